package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/types"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubFetcher struct {
	records []types.APIMessage
	err     error
	last    api.MentionQuery
}

func (s *stubFetcher) GetUserMentions(_ context.Context, q api.MentionQuery) ([]types.APIMessage, error) {
	s.last = q
	return s.records, s.err
}

type stubGuilds map[int64]string

func (s stubGuilds) FetchGuild(_ context.Context, id int64) (*types.Guild, error) {
	name, ok := s[id]
	if !ok {
		return nil, nil
	}
	return &types.Guild{ID: types.Snowflake(id), Name: name}, nil
}

type stubSelection int64

func (s stubSelection) CurrentGuild() (int64, error) { return int64(s), nil }

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected one content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text
}

func mentionRecords(n int) []types.APIMessage {
	out := make([]types.APIMessage, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.APIMessage{
			ID:        types.Snowflake(500 - i),
			ChannelID: 3,
			Author:    types.APIUser{ID: 1, Username: "ada"},
			Content:   "hello\nthere",
			Timestamp: time.Now().Add(-2 * time.Minute),
		})
	}
	return out
}

func TestHandleMentionsFullPage(t *testing.T) {
	fetcher := &stubFetcher{records: mentionRecords(2)}
	tc := ToolContext{Fetcher: fetcher, WebURL: "https://chat.example"}
	roles := false

	result := handleMentions(context.Background(), tc, mentionsArgs{IncludeRoles: &roles, Limit: 2, Before: "900"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "Mentions (2)") || !strings.Contains(text, "before=499") {
		t.Fatalf("unexpected output: %s", text)
	}
	if !strings.Contains(text, "@ada") || !strings.Contains(text, "hello there") {
		t.Fatalf("message not formatted: %s", text)
	}
	if !strings.Contains(text, "https://chat.example/channels/@me/3/500") {
		t.Fatalf("missing link: %s", text)
	}
	if fetcher.last.IncludeRoles || !fetcher.last.IncludeEveryone {
		t.Fatalf("filter not applied: %+v", fetcher.last)
	}
	if fetcher.last.Before == nil || *fetcher.last.Before != 900 {
		t.Fatalf("cursor not applied: %+v", fetcher.last.Before)
	}
}

func TestHandleMentionsEndOfFeed(t *testing.T) {
	tc := ToolContext{Fetcher: &stubFetcher{records: mentionRecords(1)}}
	text := resultText(t, handleMentions(context.Background(), tc, mentionsArgs{}))
	if !strings.Contains(text, "End of mentions.") {
		t.Fatalf("expected end marker: %s", text)
	}
}

func TestHandleMentionsCurrentGuild(t *testing.T) {
	fetcher := &stubFetcher{}
	tc := ToolContext{Fetcher: fetcher, Selection: stubSelection(0)}
	result := handleMentions(context.Background(), tc, mentionsArgs{GuildID: "current"})
	if !result.IsError || resultText(t, result) != "No server currently selected!" {
		t.Fatalf("expected selection error, got %+v", result)
	}

	tc.Selection = stubSelection(77)
	result = handleMentions(context.Background(), tc, mentionsArgs{GuildID: "current"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(t, result))
	}
	if fetcher.last.GuildID == nil || *fetcher.last.GuildID != 77 {
		t.Fatalf("guild filter not applied: %+v", fetcher.last.GuildID)
	}
}

func TestHandleMentionsBadArgs(t *testing.T) {
	tc := ToolContext{Fetcher: &stubFetcher{}}
	for _, args := range []mentionsArgs{{GuildID: "abc"}, {Before: "-4"}} {
		if result := handleMentions(context.Background(), tc, args); !result.IsError {
			t.Fatalf("expected error for %+v", args)
		}
	}
}

func TestHandleMentionsFetchError(t *testing.T) {
	tc := ToolContext{Fetcher: &stubFetcher{err: errors.New("offline")}}
	result := handleMentions(context.Background(), tc, mentionsArgs{})
	if !result.IsError || !strings.Contains(resultText(t, result), "offline") {
		t.Fatalf("expected fetch error, got %s", resultText(t, result))
	}
}

func TestHandleCurrentGuild(t *testing.T) {
	tc := ToolContext{Guilds: stubGuilds{5: "Test Guild"}, Selection: stubSelection(5)}
	if text := resultText(t, handleCurrentGuild(context.Background(), tc)); text != "Selected server: Test Guild (5)" {
		t.Fatalf("got %q", text)
	}
	tc.Selection = stubSelection(0)
	if text := resultText(t, handleCurrentGuild(context.Background(), tc)); text != "No server currently selected" {
		t.Fatalf("got %q", text)
	}
}
