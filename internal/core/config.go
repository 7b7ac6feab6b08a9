package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	AppName = "hark"

	DefaultAPIURL = "https://discord.com/api/v10"
	DefaultWebURL = "https://discord.com"

	configFileName    = "config.toml"
	dbFileName        = "hark.db"
	selectionFileName = "selection.json"
	logFileName       = "hark.log"
)

// Duration is a time.Duration that reads and writes as "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// RateLimitConfig bounds outgoing API requests.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// ToastConfig controls transient feedback messages.
type ToastConfig struct {
	Desktop bool     `toml:"desktop"`
	TTL     Duration `toml:"ttl"`
}

// LogConfig controls the log sink.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file,omitempty"`
}

// Config is the user configuration stored in config.toml.
type Config struct {
	APIURL        string          `toml:"api_url"`
	WebURL        string          `toml:"web_url"`
	Token         string          `toml:"token,omitempty"`
	DataDir       string          `toml:"data_dir,omitempty"`
	HTTPTimeout   Duration        `toml:"http_timeout"`
	GuildCacheTTL Duration        `toml:"guild_cache_ttl"`
	RateLimit     RateLimitConfig `toml:"rate_limit"`
	Toasts        ToastConfig     `toml:"toasts"`
	Log           LogConfig       `toml:"log"`
}

// ConfigEntry is a flattened key/value used by "hark config show".
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:        DefaultAPIURL,
		WebURL:        DefaultWebURL,
		HTTPTimeout:   Duration{20 * time.Second},
		GuildCacheTTL: Duration{24 * time.Hour},
		RateLimit:     RateLimitConfig{RPS: 5, Burst: 5},
		Toasts:        ToastConfig{TTL: Duration{3 * time.Second}},
		Log:           LogConfig{Level: "info"},
	}
}

// ConfigPath resolves the config file location. An explicit override wins,
// then $XDG_CONFIG_HOME/hark, then ~/.config/hark.
func ConfigPath(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName, configFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, configFileName), nil
}

func defaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}

// LoadConfig reads the config file at path (missing file = defaults), loads
// .env files from the working directory and the config directory, then
// applies HARK_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, err
	}

	loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))
	applyEnv(cfg)

	if cfg.DataDir == "" {
		dir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFile reads only the file over the defaults, without .env or
// environment overrides. It is what "hark config set" edits.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv(paths ...string) {
	existing := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return
	}
	// Load never overrides variables that are already set.
	_ = godotenv.Load(existing...)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("HARK_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("HARK_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("HARK_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("HARK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url cannot be empty")
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate_limit.rps must be >= 0")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must be >= 0")
	}
	if c.HTTPTimeout.Duration < 0 {
		return fmt.Errorf("http_timeout must be >= 0")
	}
	return nil
}

// SaveConfig writes cfg to path atomically.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Set updates a single dotted key from its string form.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "api_url":
		c.APIURL = value
	case "web_url":
		c.WebURL = value
	case "token":
		c.Token = value
	case "data_dir":
		c.DataDir = value
	case "http_timeout":
		return c.HTTPTimeout.UnmarshalText([]byte(value))
	case "guild_cache_ttl":
		return c.GuildCacheTTL.UnmarshalText([]byte(value))
	case "rate_limit.rps":
		rps, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.RateLimit.RPS = rps
	case "rate_limit.burst":
		burst, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.RateLimit.Burst = burst
	case "toasts.desktop":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		c.Toasts.Desktop = enabled
	case "toasts.ttl":
		return c.Toasts.TTL.UnmarshalText([]byte(value))
	case "log.level":
		c.Log.Level = value
	case "log.file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return c.Validate()
}

// Entries flattens the config for display. The token is redacted.
func (c *Config) Entries() []ConfigEntry {
	token := ""
	if c.Token != "" {
		token = "<set>"
	}
	entries := []ConfigEntry{
		{Key: "api_url", Value: c.APIURL},
		{Key: "web_url", Value: c.WebURL},
		{Key: "token", Value: token},
		{Key: "data_dir", Value: c.DataDir},
		{Key: "http_timeout", Value: c.HTTPTimeout.String()},
		{Key: "guild_cache_ttl", Value: c.GuildCacheTTL.String()},
		{Key: "rate_limit.rps", Value: strconv.FormatFloat(c.RateLimit.RPS, 'f', -1, 64)},
		{Key: "rate_limit.burst", Value: strconv.Itoa(c.RateLimit.Burst)},
		{Key: "toasts.desktop", Value: strconv.FormatBool(c.Toasts.Desktop)},
		{Key: "toasts.ttl", Value: c.Toasts.TTL.String()},
		{Key: "log.level", Value: c.Log.Level},
		{Key: "log.file", Value: c.LogPath()},
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// DBPath is the guild cache database.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// SelectionPath is the file holding the currently selected guild.
func (c *Config) SelectionPath() string {
	return filepath.Join(c.DataDir, selectionFileName)
}

// LogPath is the log file, defaulting to the data directory.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return expandHome(c.Log.File)
	}
	return filepath.Join(c.DataDir, logFileName)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
