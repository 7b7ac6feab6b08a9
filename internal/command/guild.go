package command

import (
	"encoding/json"
	"fmt"

	"github.com/adamavenir/hark/internal/types"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewGuildCmd creates the guild command.
func NewGuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guild",
		Short: "Select the current server",
	}
	cmd.AddCommand(
		newGuildSelectCmd(),
		newGuildCurrentCmd(),
		newGuildClearCmd(),
		newGuildShowCmd(),
		newGuildCachedCmd(),
	)
	return cmd
}

func newGuildSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select <guild-id>",
		Short: "Select the current server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id, err := parseGuildID(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := ctx.Selection.SetCurrentGuild(int64(id)); err != nil {
				return writeCommandError(cmd, err)
			}

			name := ""
			if ctx.RequireToken() == nil {
				if guild, err := ctx.Guilds.FetchGuild(cmd.Context(), int64(id)); err == nil && guild != nil {
					name = guild.Name
				}
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"guild_id": id, "name": name})
			}
			if name != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s (%s)\n", name, id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Selected %s\n", id)
			}
			return nil
		},
	}
}

func newGuildCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id, err := ctx.Selection.CurrentGuild()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			var guild *types.Guild
			if id > 0 {
				guild, err = ctx.Guilds.FetchGuild(cmd.Context(), id)
				if err != nil {
					ctx.Log.Warn("guild lookup failed", zap.Int64("guild_id", id), zap.Error(err))
				}
			}

			if ctx.JSONMode {
				payload := map[string]any{"guild_id": types.SnowflakePtr(id)}
				if guild != nil {
					payload["name"] = guild.Name
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			}
			out := cmd.OutOrStdout()
			switch {
			case id <= 0:
				fmt.Fprintln(out, "No server currently selected")
			case guild != nil:
				fmt.Fprintf(out, "%s (%d)\n", guild.Name, id)
			default:
				fmt.Fprintf(out, "%d (unknown server)\n", id)
			}
			return nil
		},
	}
}

func newGuildClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the server selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			if err := ctx.Selection.ClearCurrentGuild(); err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"guild_id": nil})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server selection cleared")
			return nil
		},
	}
}

func newGuildShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <guild-id>",
		Short: "Look up a server by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id, err := parseGuildID(args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			guild, err := ctx.Guilds.FetchGuild(cmd.Context(), int64(id))
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if guild == nil {
				return writeCommandError(cmd, errors.Errorf("server %s not found", id))
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(guild)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", guild.Name, guild.ID)
			return nil
		},
	}
}

func newGuildCachedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cached",
		Short: "List servers in the local cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			guilds, err := ctx.Guilds.CachedGuilds()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(guilds)
			}
			out := cmd.OutOrStdout()
			if len(guilds) == 0 {
				fmt.Fprintln(out, "No cached servers")
				return nil
			}
			for _, guild := range guilds {
				fmt.Fprintf(out, "  %s (%s) %sfetched %s%s\n", guild.Name, guild.ID, dim, humanize.Time(guild.FetchedAt), reset)
			}
			return nil
		},
	}
}

func parseGuildID(raw string) (types.Snowflake, error) {
	id, err := types.ParseSnowflake(raw)
	if err != nil || !id.Valid() {
		return 0, errors.Errorf("invalid guild id %q", raw)
	}
	return id, nil
}
