package paging

import "errors"

const (
	DefaultPageSize   = 25
	DefaultMaxRetries = 3
)

var (
	// ErrClosed is returned by operations on a closed Pager.
	ErrClosed = errors.New("pager closed")
	// ErrBusy is returned when another load is in flight.
	ErrBusy = errors.New("load in progress")
	// ErrNothingToRetry is returned by Retry when no load has failed.
	ErrNothingToRetry = errors.New("nothing to retry")
	// ErrRetryLimit is returned by Retry once MaxRetries is exhausted.
	ErrRetryLimit = errors.New("retry limit reached")
)

// Config controls page sizes and prefetching.
type Config struct {
	// PageSize is requested for every append.
	PageSize int
	// PrefetchDistance is how close to the end of the loaded items an access
	// must be to load the next page.
	PrefetchDistance int
	// EnablePlaceholders is accepted for parity with other paging setups but
	// placeholders are never produced.
	EnablePlaceholders bool
	// InitialLoadSize is requested for refresh loads.
	InitialLoadSize int
	// MaxRetries bounds consecutive Retry calls for the same failed load.
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PrefetchDistance <= 0 {
		c.PrefetchDistance = c.PageSize
	}
	if c.InitialLoadSize <= 0 {
		c.InitialLoadSize = c.PageSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	c.EnablePlaceholders = false
	return c
}

// LoadStatus is the coarse state of one kind of load.
type LoadStatus int

const (
	NotLoading LoadStatus = iota
	Loading
	Failed
)

func (s LoadStatus) String() string {
	switch s {
	case NotLoading:
		return "idle"
	case Loading:
		return "loading"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// LoadState is a LoadStatus plus the error when Failed.
type LoadState struct {
	Status LoadStatus
	Err    error
}

// Snapshot is what subscribers observe.
type Snapshot[V any] struct {
	Items []V
	Pages int
	// Refresh is the state of the first-page load.
	Refresh LoadState
	// Append is the state of the next-page load.
	Append LoadState
	// EndReached is true once a page reported no next key.
	EndReached bool
	// Generation increases every time a refresh replaces the items.
	Generation int
}

// Loading reports whether any load is in flight.
func (s Snapshot[V]) Loading() bool {
	return s.Refresh.Status == Loading || s.Append.Status == Loading
}

// Err returns the pending load error, if any.
func (s Snapshot[V]) Err() error {
	if s.Refresh.Status == Failed {
		return s.Refresh.Err
	}
	if s.Append.Status == Failed {
		return s.Append.Err
	}
	return nil
}
