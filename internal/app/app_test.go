package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/adamavenir/hark/internal/db"
	"github.com/adamavenir/hark/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestApp(t *testing.T, apiURL, token string) *App {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HARK_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("HARK_API_URL", apiURL)
	t.Setenv("HARK_TOKEN", token)
	t.Setenv("HARK_LOG_LEVEL", "")

	a, err := Open(Options{ConfigPath: filepath.Join(dir, "config.toml"), LogPath: ""})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpenWithoutToken(t *testing.T) {
	a := openTestApp(t, "http://127.0.0.1:1", "")

	assert.ErrorIs(t, a.RequireToken(), ErrNoToken)
	assert.Equal(t, types.Snowflake(0), a.SelfID(context.Background()))
	assert.FileExists(t, a.Config.DBPath())
}

func TestSelfIDCached(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"id":"4242","username":"me"}`))
	}))
	t.Cleanup(server.Close)

	a := openTestApp(t, server.URL, "tok")
	require.NoError(t, a.RequireToken())

	assert.Equal(t, types.Snowflake(4242), a.SelfID(context.Background()))
	assert.Equal(t, types.Snowflake(4242), a.SelfID(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	stored, err := db.GetConfig(a.DB, db.ConfigSelfUserID)
	require.NoError(t, err)
	assert.Equal(t, "4242", stored)
}

func TestNewMentionsStartsWithAllFilters(t *testing.T) {
	a := openTestApp(t, "http://127.0.0.1:1", "tok")
	vm := a.NewMentions(context.Background())
	defer vm.Close()

	state := vm.State()
	assert.True(t, state.IncludeRoles)
	assert.True(t, state.IncludeEveryone)
	assert.True(t, state.IncludeAllServers)
}
