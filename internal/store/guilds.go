package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/db"
	"github.com/adamavenir/hark/internal/logger"
	"github.com/adamavenir/hark/internal/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// GuildFetcher loads a guild from the remote API.
type GuildFetcher interface {
	GetGuild(ctx context.Context, id types.Snowflake) (*types.Guild, error)
}

// GuildStore resolves guild ids to guilds through the local cache, falling
// back to the API when the cached row is missing or older than the TTL.
type GuildStore struct {
	db      *sql.DB
	fetcher GuildFetcher
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// NewGuildStore creates a guild store. A nil fetcher makes the store
// cache-only. ttl <= 0 means cached rows never expire.
func NewGuildStore(database *sql.DB, fetcher GuildFetcher, ttl time.Duration) *GuildStore {
	return &GuildStore{
		db:      database,
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		log:     logger.Named("guilds"),
	}
}

// FetchGuild returns the guild with the given id, or nil if it is unknown.
func (s *GuildStore) FetchGuild(ctx context.Context, id int64) (*types.Guild, error) {
	if id <= 0 {
		return nil, nil
	}
	guildID := types.Snowflake(id)

	cached, err := db.GetGuild(s.db, guildID)
	if err != nil {
		return nil, err
	}
	if cached != nil && s.fresh(cached.FetchedAt) {
		guild := cached.Guild
		return &guild, nil
	}
	if s.fetcher == nil {
		return cachedGuild(cached), nil
	}

	guild, err := s.fetcher.GetGuild(ctx, guildID)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			if cached != nil {
				if err := db.DeleteGuild(s.db, guildID); err != nil {
					s.log.Warn("guild cache delete failed", zap.Int64("guild_id", id), zap.Error(err))
				}
			}
			return nil, nil
		}
		if cached != nil {
			s.log.Warn("guild refresh failed, serving stale cache",
				zap.Int64("guild_id", id), zap.Error(err))
			return cachedGuild(cached), nil
		}
		return nil, errors.Wrapf(err, "fetch guild %d", id)
	}
	if guild == nil {
		return nil, nil
	}

	if err := db.UpsertGuild(s.db, *guild, s.now()); err != nil {
		s.log.Warn("guild cache write failed", zap.Int64("guild_id", id), zap.Error(err))
	}
	return guild, nil
}

// CachedGuilds lists every cached guild.
func (s *GuildStore) CachedGuilds() ([]db.CachedGuild, error) {
	return db.ListGuilds(s.db)
}

func (s *GuildStore) fresh(fetchedAt time.Time) bool {
	if s.ttl <= 0 {
		return true
	}
	return s.now().Sub(fetchedAt) < s.ttl
}

func cachedGuild(cached *db.CachedGuild) *types.Guild {
	if cached == nil {
		return nil
	}
	guild := cached.Guild
	return &guild
}
