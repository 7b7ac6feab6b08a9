package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/mentions"
	"github.com/adamavenir/hark/internal/paging"
	"github.com/adamavenir/hark/internal/types"
	"github.com/dustin/go-humanize"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// CurrentGuild reads the persisted guild selection.
type CurrentGuild interface {
	CurrentGuild() (int64, error)
}

type ToolContext struct {
	Fetcher   mentions.MentionFetcher
	Guilds    mentions.GuildLookup
	Selection CurrentGuild
	WebURL    string
}

type mentionsArgs struct {
	IncludeRoles    *bool  `json:"include_roles,omitempty" jsonschema:"Include role mentions (default: true)"`
	IncludeEveryone *bool  `json:"include_everyone,omitempty" jsonschema:"Include @everyone and @here mentions (default: true)"`
	GuildID         string `json:"guild_id,omitempty" jsonschema:"Only mentions from this server id. Use \"current\" for the selected server."`
	Before          string `json:"before,omitempty" jsonschema:"Cursor: only mentions older than this message id (from a previous call)"`
	Limit           int    `json:"limit,omitempty" jsonschema:"Page size, 1-100 (default: 25)"`
}

type currentGuildArgs struct{}

// RegisterTools registers MCP tools for hark.
func RegisterTools(server *mcp.Server, tc *ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "hark_mentions",
		Description: "List recent messages that mention the user, newest first. Pass the returned cursor as 'before' to get the next page.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args mentionsArgs) (*mcp.CallToolResult, any, error) {
		return handleMentions(ctx, *tc, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "hark_current_guild",
		Description: "Show the server currently selected in hark.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ currentGuildArgs) (*mcp.CallToolResult, any, error) {
		return handleCurrentGuild(ctx, *tc), nil, nil
	})
}

func handleMentions(ctx context.Context, tc ToolContext, args mentionsArgs) *mcp.CallToolResult {
	filter := mentions.Filter{
		IncludeRoles:    boolOr(args.IncludeRoles, true),
		IncludeEveryone: boolOr(args.IncludeEveryone, true),
	}

	guildRef := strings.TrimSpace(args.GuildID)
	if strings.EqualFold(guildRef, "current") {
		id, err := tc.Selection.CurrentGuild()
		if err != nil {
			return toolError(err.Error())
		}
		if id <= 0 {
			return toolError(mentions.NoServerSelected)
		}
		filter.GuildID = types.SnowflakePtr(id)
	} else if guildRef != "" {
		id, err := types.ParseSnowflake(guildRef)
		if err != nil || !id.Valid() {
			return toolError(fmt.Sprintf("Error: invalid guild_id %q", args.GuildID))
		}
		filter.GuildID = &id
	}

	params := paging.LoadParams[types.Snowflake]{Kind: paging.LoadRefresh, LoadSize: api.ClampMentionLimit(args.Limit)}
	if before := strings.TrimSpace(args.Before); before != "" {
		key, err := types.ParseSnowflake(before)
		if err != nil || !key.Valid() {
			return toolError(fmt.Sprintf("Error: invalid before cursor %q", args.Before))
		}
		params.Kind = paging.LoadAppend
		params.Key = &key
	}

	result := mentions.NewPagingSource(tc.Fetcher, filter).Load(ctx, params)
	if result.Err != nil {
		return toolError(result.Err.Error())
	}
	page := result.Page
	if len(page.Data) == 0 {
		return toolResult("No mentions", false)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Mentions (%d):\n\n%s", len(page.Data), formatMentions(page.Data, tc.WebURL))
	if page.NextKey != nil {
		fmt.Fprintf(&out, "\n\nMore available: before=%s", *page.NextKey)
	} else {
		out.WriteString("\n\nEnd of mentions.")
	}
	return toolResult(out.String(), false)
}

func handleCurrentGuild(ctx context.Context, tc ToolContext) *mcp.CallToolResult {
	id, err := tc.Selection.CurrentGuild()
	if err != nil {
		return toolError(err.Error())
	}
	if id <= 0 {
		return toolResult("No server currently selected", false)
	}
	guild, err := tc.Guilds.FetchGuild(ctx, id)
	if err != nil {
		return toolError(err.Error())
	}
	if guild == nil {
		return toolResult(fmt.Sprintf("Selected server %d (unknown)", id), false)
	}
	return toolResult(fmt.Sprintf("Selected server: %s (%s)", guild.Name, guild.ID), false)
}

func formatMentions(messages []types.Message, webURL string) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		content := strings.ReplaceAll(strings.TrimSpace(msg.Content), "\n", " ")
		lines = append(lines, fmt.Sprintf("[%s] @%s (%s): %s\n  %s",
			msg.ID, msg.Author.Username, humanize.Time(msg.Timestamp), content, msg.Link(webURL)))
	}
	return strings.Join(lines, "\n")
}

func boolOr(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func toolResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func toolError(text string) *mcp.CallToolResult {
	return toolResult(text, true)
}
