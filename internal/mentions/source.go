package mentions

import (
	"context"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/logger"
	"github.com/adamavenir/hark/internal/paging"
	"github.com/adamavenir/hark/internal/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MentionFetcher is the remote endpoint behind the feed.
type MentionFetcher interface {
	GetUserMentions(ctx context.Context, q api.MentionQuery) ([]types.APIMessage, error)
}

// Filter is the filter snapshot a PagingSource is bound to.
type Filter struct {
	IncludeRoles    bool
	IncludeEveryone bool
	// GuildID restricts the feed to one guild; nil means all guilds.
	GuildID *types.Snowflake
}

// PagingSource loads pages of mentions, newest first. The cursor is the id
// of the last message of the previous page.
type PagingSource struct {
	fetcher MentionFetcher
	filter  Filter
	log     *zap.Logger
}

// NewPagingSource binds a source to a filter snapshot.
func NewPagingSource(fetcher MentionFetcher, filter Filter) *PagingSource {
	return &PagingSource{
		fetcher: fetcher,
		filter:  filter,
		log:     logger.Named("mentions"),
	}
}

// Filter returns the filter the source was built with.
func (s *PagingSource) Filter() Filter {
	return s.filter
}

// RefreshKey always restarts from the newest mention.
func (s *PagingSource) RefreshKey(paging.State[types.Snowflake, types.Message]) *types.Snowflake {
	return nil
}

// Load fetches one page. Failures come back as error results.
func (s *PagingSource) Load(ctx context.Context, params paging.LoadParams[types.Snowflake]) paging.LoadResult[types.Snowflake, types.Message] {
	records, err := s.fetcher.GetUserMentions(ctx, api.MentionQuery{
		Limit:           params.LoadSize,
		IncludeRoles:    s.filter.IncludeRoles,
		IncludeEveryone: s.filter.IncludeEveryone,
		GuildID:         s.filter.GuildID,
		Before:          params.Key,
	})
	if err != nil {
		if ctx.Err() != nil {
			s.log.Debug("mentions load cancelled", zap.Stringer("kind", params.Kind))
		} else {
			s.log.Warn("failed to load mentions",
				zap.Stringer("kind", params.Kind),
				zap.Int("load_size", params.LoadSize),
				zap.Error(err))
		}
		return paging.ErrorResult[types.Snowflake, types.Message](errors.Wrap(err, "load mentions"))
	}

	messages := make([]types.Message, 0, len(records))
	for _, record := range records {
		messages = append(messages, record.ToDomain())
	}

	var next *types.Snowflake
	if len(records) >= params.LoadSize && len(records) > 0 {
		last := records[len(records)-1].ID
		next = &last
	}
	return paging.PageResult[types.Snowflake, types.Message](messages, nil, next)
}
