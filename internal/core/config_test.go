package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HARK_TOKEN", "HARK_API_URL", "HARK_DATA_DIR", "HARK_LOG_LEVEL"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, 20*time.Second, cfg.HTTPTimeout.Duration)
	assert.Equal(t, 3*time.Second, cfg.Toasts.TTL.Duration)
	assert.Equal(t, filepath.Join(os.Getenv("XDG_DATA_HOME"), AppName), cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "hark.db"), cfg.DBPath())
	assert.Equal(t, filepath.Join(cfg.DataDir, "selection.json"), cfg.SelectionPath())
}

func TestSaveAndLoadConfig(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "hark", "config.toml")

	cfg := DefaultConfig()
	cfg.Token = "secret"
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.GuildCacheTTL = Duration{90 * time.Minute}
	cfg.Toasts.Desktop = true
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.Token)
	assert.Equal(t, cfg.DataDir, loaded.DataDir)
	assert.Equal(t, 90*time.Minute, loaded.GuildCacheTTL.Duration)
	assert.True(t, loaded.Toasts.Desktop)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_url = \"https://file.example/api\"\ntoken = \"from-file\"\n"), 0o600))

	t.Setenv("HARK_TOKEN", "from-env")
	t.Setenv("HARK_DATA_DIR", filepath.Join(dir, "env-data"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example/api", cfg.APIURL)
	assert.Equal(t, "from-env", cfg.Token)
	assert.Equal(t, filepath.Join(dir, "env-data"), cfg.DataDir)
}

func TestLoadConfigReadsDotEnvBesideConfig(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("HARK_TOKEN=dotenv-token\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("HARK_TOKEN") })

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-token", cfg.Token)
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("http_timeout = \"soon\"\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{key: "api_url", value: "https://x.example/api", check: func(t *testing.T, cfg Config) {
			assert.Equal(t, "https://x.example/api", cfg.APIURL)
		}},
		{key: "rate_limit.rps", value: "2.5", check: func(t *testing.T, cfg Config) {
			assert.Equal(t, 2.5, cfg.RateLimit.RPS)
		}},
		{key: "toasts.ttl", value: "10s", check: func(t *testing.T, cfg Config) {
			assert.Equal(t, 10*time.Second, cfg.Toasts.TTL.Duration)
		}},
		{key: "toasts.desktop", value: "true", check: func(t *testing.T, cfg Config) {
			assert.True(t, cfg.Toasts.Desktop)
		}},
		{key: "rate_limit.burst", value: "-1", wantErr: true},
		{key: "api_url", value: "  ", wantErr: true},
		{key: "nope", value: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := DefaultConfig()
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestEntriesRedactsToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Token = "secret"
	for _, entry := range cfg.Entries() {
		if entry.Key == "token" {
			assert.Equal(t, "<set>", entry.Value)
			return
		}
	}
	t.Fatal("token entry missing")
}

func TestLoadConfigFileIgnoresEnv(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("token = \"from-file\"\n"), 0o600))
	t.Setenv("HARK_TOKEN", "from-env")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Token)
	assert.Empty(t, cfg.DataDir, "data dir default is applied by LoadConfig only")
}
