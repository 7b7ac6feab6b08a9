package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/mentions"
	"github.com/adamavenir/hark/internal/paging"
	"github.com/adamavenir/hark/internal/types"
	"github.com/adamavenir/hark/internal/ui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewMentionsCmd creates the mentions command.
func NewMentionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mentions",
		Short: "Browse messages that mention you",
		Long:  "Opens the interactive mentions screen. Keys: r roles, e @everyone, s current server, j/k move, R retry, g refresh, y copy link, q quit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if err := ctx.RequireToken(); err != nil {
				return writeCommandError(cmd, err)
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			vm := ctx.NewMentions(runCtx)
			defer vm.Close()

			err = ui.Run(runCtx, ui.Options{
				ViewModel: vm,
				Toasts:    ctx.Toasts,
				WebURL:    ctx.Config.WebURL,
				SelfID:    ctx.SelfID(runCtx),
			})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.AddCommand(NewMentionsListCmd())
	return cmd
}

// NewMentionsListCmd prints mentions without the interactive screen.
func NewMentionsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print recent mentions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if err := ctx.RequireToken(); err != nil {
				return writeCommandError(cmd, err)
			}

			noRoles, _ := cmd.Flags().GetBool("no-roles")
			noEveryone, _ := cmd.Flags().GetBool("no-everyone")
			guildRef, _ := cmd.Flags().GetString("guild")
			pages, _ := cmd.Flags().GetInt("pages")
			limit, _ := cmd.Flags().GetInt("limit")
			limit = api.ClampMentionLimit(limit)

			filter := mentions.Filter{IncludeRoles: !noRoles, IncludeEveryone: !noEveryone}
			if guildRef != "" {
				id, err := resolveGuildRef(ctx, guildRef)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				filter.GuildID = types.SnowflakePtr(id)
			}

			messages, more, err := collectMentions(cmd.Context(), mentions.NewPagingSource(ctx.API, filter), limit, pages)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"mentions": messages,
					"next":     more,
				})
			}

			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, "No mentions")
				return nil
			}
			self := ctx.SelfID(cmd.Context())
			guilds := guildNames(cmd.Context(), ctx, messages)
			for i, msg := range messages {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, FormatMention(msg, self, guilds))
			}
			if more != nil {
				fmt.Fprintf(out, "\n%s(more: hark mentions list --pages %d)%s\n", dim, pages+1, reset)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-roles", false, "exclude role mentions")
	cmd.Flags().Bool("no-everyone", false, "exclude @everyone and @here mentions")
	cmd.Flags().String("guild", "", "only mentions from this server id (\"current\" for the selected server)")
	cmd.Flags().Int("pages", 1, "number of pages to fetch")
	cmd.Flags().Int("limit", paging.DefaultPageSize, "page size (1-100)")
	return cmd
}

// collectMentions walks up to maxPages pages. It returns the cursor of the
// next page, or nil once the feed is exhausted.
func collectMentions(ctx context.Context, source paging.Source[types.Snowflake, types.Message], pageSize, maxPages int) ([]types.Message, *types.Snowflake, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	params := paging.LoadParams[types.Snowflake]{Kind: paging.LoadRefresh, LoadSize: pageSize}
	var all []types.Message
	for page := 0; page < maxPages; page++ {
		result := source.Load(ctx, params)
		if result.Err != nil {
			return nil, nil, result.Err
		}
		all = append(all, result.Page.Data...)
		if result.Page.NextKey == nil {
			return all, nil, nil
		}
		params = paging.LoadParams[types.Snowflake]{Kind: paging.LoadAppend, Key: result.Page.NextKey, LoadSize: pageSize}
	}
	return all, params.Key, nil
}

func resolveGuildRef(ctx *CommandContext, ref string) (int64, error) {
	if ref == "current" {
		id, err := ctx.Selection.CurrentGuild()
		if err != nil {
			return 0, err
		}
		if id <= 0 {
			return 0, errors.New(mentions.NoServerSelected)
		}
		return id, nil
	}
	id, err := types.ParseSnowflake(ref)
	if err != nil || !id.Valid() {
		return 0, errors.Errorf("invalid guild id %q", ref)
	}
	return int64(id), nil
}

func guildNames(ctx context.Context, cc *CommandContext, messages []types.Message) map[types.Snowflake]string {
	names := map[types.Snowflake]string{}
	for _, msg := range messages {
		if msg.GuildID == nil {
			continue
		}
		if _, ok := names[*msg.GuildID]; ok {
			continue
		}
		names[*msg.GuildID] = ""
		guild, err := cc.Guilds.FetchGuild(ctx, int64(*msg.GuildID))
		if err != nil {
			cc.Log.Debug("guild lookup failed", zap.Stringer("guild_id", *msg.GuildID), zap.Error(err))
			continue
		}
		if guild != nil {
			names[*msg.GuildID] = guild.Name
		}
	}
	return names
}
