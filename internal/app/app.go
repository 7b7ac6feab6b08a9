// Package app wires configuration, logging, storage and the API client into
// the services shared by the CLI, the TUI and the MCP server.
package app

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/core"
	"github.com/adamavenir/hark/internal/db"
	"github.com/adamavenir/hark/internal/logger"
	"github.com/adamavenir/hark/internal/mentions"
	"github.com/adamavenir/hark/internal/store"
	"github.com/adamavenir/hark/internal/toast"
	"github.com/adamavenir/hark/internal/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrNoToken is returned when a command needs the API but no token is set.
var ErrNoToken = errors.New("no API token configured (set HARK_TOKEN or run: hark config set token <token>)")

// Options control Open.
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string
	// Debug forces debug logging.
	Debug bool
	// LogPath overrides the configured log sink ("-" for stderr).
	LogPath string
}

// App holds the opened services. Close releases them.
type App struct {
	ConfigPath string
	Config     *core.Config
	DB         *sql.DB
	API        *api.Client
	Guilds     *store.GuildStore
	Selection  *store.SelectionStore
	Toasts     *toast.Manager
	Log        *zap.Logger
}

// Open loads config, starts logging and opens the guild cache. The API
// client is built even without a token so offline commands keep working;
// RequireToken reports the missing token.
func Open(opts Options) (*App, error) {
	path, err := core.ConfigPath(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if opts.Debug {
		level = "debug"
	}
	logPath := cfg.LogPath()
	if opts.LogPath != "" {
		logPath = opts.LogPath
	}
	if err := logger.Init(logger.Options{Level: level, Path: logPath}); err != nil {
		return nil, err
	}

	conn, err := db.OpenDatabase(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	client, err := api.NewClient(cfg.APIURL, cfg.Token,
		api.WithTimeout(cfg.HTTPTimeout.Duration),
		api.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	a := &App{
		ConfigPath: path,
		Config:     cfg,
		DB:         conn,
		API:        client,
		Guilds:     store.NewGuildStore(conn, client, cfg.GuildCacheTTL.Duration),
		Selection:  store.NewSelectionStore(cfg.SelectionPath()),
		Toasts: toast.NewManager(toast.Options{
			TTL:     cfg.Toasts.TTL.Duration,
			Desktop: cfg.Toasts.Desktop,
		}),
		Log: logger.Named("app"),
	}
	a.Log.Debug("opened",
		zap.String("config", path),
		zap.String("data_dir", cfg.DataDir),
		zap.String("api_url", cfg.APIURL))
	return a, nil
}

// RequireToken returns ErrNoToken when the API cannot be called.
func (a *App) RequireToken() error {
	if a.Config.Token == "" {
		return ErrNoToken
	}
	return nil
}

// NewMentions builds the mentions controller over the app's services.
func (a *App) NewMentions(ctx context.Context) *mentions.ViewModel {
	return mentions.New(ctx, mentions.Deps{
		Guilds:    a.Guilds,
		Selection: a.Selection,
		Feedback:  a.Toasts,
		Fetcher:   a.API,
	})
}

// SelfID returns the id of the token's user, caching it in the database.
// Failures are logged and return 0.
func (a *App) SelfID(ctx context.Context) types.Snowflake {
	cached, err := db.GetConfig(a.DB, db.ConfigSelfUserID)
	if err == nil && cached != "" {
		if id, err := strconv.ParseInt(cached, 10, 64); err == nil {
			return types.Snowflake(id)
		}
	}
	if a.Config.Token == "" {
		return 0
	}
	user, err := a.API.GetCurrentUser(ctx)
	if err != nil {
		a.Log.Warn("could not resolve current user", zap.Error(err))
		return 0
	}
	if err := db.SetConfig(a.DB, db.ConfigSelfUserID, user.ID.String()); err != nil {
		a.Log.Warn("could not cache current user", zap.Error(err))
	}
	return user.ID
}

// Close releases the database and flushes logs.
func (a *App) Close() error {
	err := a.DB.Close()
	logger.Close()
	return err
}
