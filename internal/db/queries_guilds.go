package db

import (
	"database/sql"
	"time"

	"github.com/adamavenir/hark/internal/types"
	"github.com/pkg/errors"
)

// CachedGuild is a guild row plus the time it was fetched.
type CachedGuild struct {
	types.Guild
	FetchedAt time.Time
}

// GetGuild returns the cached guild, or nil if it was never cached.
func GetGuild(db DBTX, id types.Snowflake) (*CachedGuild, error) {
	row := db.QueryRow("SELECT id, name, icon, fetched_at FROM hark_guilds WHERE id = ?", int64(id))

	var (
		guildID   int64
		guild     CachedGuild
		icon      sql.NullString
		fetchedAt int64
	)
	if err := row.Scan(&guildID, &guild.Name, &icon, &fetchedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get guild %s", id)
	}
	guild.ID = types.Snowflake(guildID)
	if icon.Valid {
		value := icon.String
		guild.Icon = &value
	}
	guild.FetchedAt = time.UnixMilli(fetchedAt)
	return &guild, nil
}

// UpsertGuild stores a guild with its fetch time.
func UpsertGuild(db DBTX, guild types.Guild, fetchedAt time.Time) error {
	var icon any
	if guild.Icon != nil {
		icon = *guild.Icon
	}
	_, err := db.Exec(`
		INSERT INTO hark_guilds (id, name, icon, fetched_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, icon = excluded.icon, fetched_at = excluded.fetched_at
	`, int64(guild.ID), guild.Name, icon, fetchedAt.UnixMilli())
	if err != nil {
		return errors.Wrapf(err, "upsert guild %s", guild.ID)
	}
	return nil
}

// DeleteGuild removes a guild from the cache.
func DeleteGuild(db DBTX, id types.Snowflake) error {
	_, err := db.Exec("DELETE FROM hark_guilds WHERE id = ?", int64(id))
	return err
}

// ListGuilds returns cached guilds ordered by name.
func ListGuilds(db DBTX) ([]CachedGuild, error) {
	rows, err := db.Query("SELECT id, name, icon, fetched_at FROM hark_guilds ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guilds []CachedGuild
	for rows.Next() {
		var (
			guildID   int64
			guild     CachedGuild
			icon      sql.NullString
			fetchedAt int64
		)
		if err := rows.Scan(&guildID, &guild.Name, &icon, &fetchedAt); err != nil {
			return nil, err
		}
		guild.ID = types.Snowflake(guildID)
		if icon.Valid {
			value := icon.String
			guild.Icon = &value
		}
		guild.FetchedAt = time.UnixMilli(fetchedAt)
		guilds = append(guilds, guild)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guilds, nil
}
