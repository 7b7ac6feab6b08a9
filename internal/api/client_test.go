package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adamavenir/hark/internal/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(server.URL+"/api/v10/", "tok", WithRateLimit(0, 0))
	require.NoError(t, err)
	return client
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "https://discord.com/api/v10/", want: "https://discord.com/api/v10"},
		{raw: "  http://localhost:8080 ", want: "http://localhost:8080"},
		{raw: "", wantErr: true},
		{raw: "discord.com/api", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := NormalizeBaseURL(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetUserMentionsEncodesQuery(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"1002","channel_id":"77","guild_id":"5","author":{"id":"9","username":"ann","global_name":"Ann"},
			 "content":"hi @me","timestamp":"2024-01-02T03:04:05Z","mention_everyone":false,"mention_roles":["44"],"mentions":[]},
			{"id":"1001","channel_id":"77","author":{"id":"9","username":"ann"},"content":"yo","timestamp":"2024-01-02T03:00:00Z","mentions":[]}
		]`))
	})

	guild := types.Snowflake(5)
	before := types.Snowflake(1003)
	messages, err := client.GetUserMentions(context.Background(), MentionQuery{
		Limit:           25,
		IncludeRoles:    true,
		IncludeEveryone: false,
		GuildID:         &guild,
		Before:          &before,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v10/users/@me/mentions", gotPath)
	assert.Equal(t, "tok", gotAuth)
	assert.Equal(t, map[string]string{
		"limit":    "25",
		"roles":    "true",
		"everyone": "false",
		"guild_id": "5",
		"before":   "1003",
	}, gotQuery)

	require.Len(t, messages, 2)
	assert.Equal(t, types.Snowflake(1002), messages[0].ID)
	require.NotNil(t, messages[0].GuildID)
	assert.Equal(t, types.Snowflake(5), *messages[0].GuildID)
	assert.Equal(t, []types.Snowflake{44}, messages[0].MentionRoles)
	assert.Nil(t, messages[1].GuildID)
}

func TestGetUserMentionsOmitsEmptyCursorAndClampsLimit(t *testing.T) {
	var query map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	})

	messages, err := client.GetUserMentions(context.Background(), MentionQuery{Limit: 500, IncludeRoles: true, IncludeEveryone: true})
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, []string{"100"}, query["limit"])
	assert.NotContains(t, query, "before")
	assert.NotContains(t, query, "guild_id")
}

func TestGetUserMentionsSendsUnselectedGuild(t *testing.T) {
	var query map[string][]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		_, _ = w.Write([]byte(`[]`))
	})

	guildID := types.Snowflake(0)
	_, err := client.GetUserMentions(context.Background(), MentionQuery{GuildID: &guildID})
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, query["guild_id"])
}

func TestGetGuildNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":10004,"message":"Unknown Guild"}`))
	})

	guild, err := client.GetGuild(context.Background(), 42)
	assert.Nil(t, guild)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetGuild(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v10/guilds/42", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"42","name":"Test Guild","icon":null}`))
	})

	guild, err := client.GetGuild(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, types.Snowflake(42), guild.ID)
	assert.Equal(t, "Test Guild", guild.Name)
}

func TestAPIErrorRateLimited(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You are being rate limited.","retry_after":1.5,"global":false}`))
	})

	_, err := client.GetUserMentions(context.Background(), MentionQuery{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.RateLimited())
	assert.Equal(t, 1500*time.Millisecond, apiErr.RetryAfter)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAPIErrorPlainBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	})

	_, err := client.GetUserMentions(context.Background(), MentionQuery{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.Equal(t, 2*time.Second, apiErr.RetryAfter)
}

func TestDoJSONHonorsContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetUserMentions(ctx, MentionQuery{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGetCurrentUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v10/users/@me", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"80351110224678912","username":"nelly","global_name":"Nelly"}`))
	})

	user, err := client.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.Snowflake(80351110224678912), user.ID)
	assert.Equal(t, "Nelly", user.ToDomain().DisplayName)
}
