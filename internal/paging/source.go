// Package paging turns a cursor-based page loader into a cached, observable
// list that loads more pages as the consumer reads closer to its end.
//
// A Pager owns one Source at a time. Loaded pages are kept for the Pager's
// lifetime, so any number of subscribers can observe the list without
// triggering new loads. Loads never overlap: a Pager runs at most one load at
// a time. Failed loads are only re-issued when the consumer calls Retry.
package paging

import "context"

// LoadKind says why a page is being loaded.
type LoadKind int

const (
	// LoadRefresh loads the first page, replacing everything loaded so far.
	LoadRefresh LoadKind = iota
	// LoadAppend loads the page after the last loaded one.
	LoadAppend
)

func (k LoadKind) String() string {
	switch k {
	case LoadRefresh:
		return "refresh"
	case LoadAppend:
		return "append"
	default:
		return "unknown"
	}
}

// LoadParams describe a single page request.
type LoadParams[K comparable] struct {
	Kind LoadKind
	// Key is the cursor to load from; nil for the first page.
	Key *K
	// LoadSize is the number of items requested.
	LoadSize int
}

// Page is one loaded page. A nil NextKey means there is nothing after it.
type Page[K comparable, V any] struct {
	Data    []V
	PrevKey *K
	NextKey *K
}

// LoadResult is either a Page or an error.
type LoadResult[K comparable, V any] struct {
	Page *Page[K, V]
	Err  error
}

// PageResult builds a successful LoadResult.
func PageResult[K comparable, V any](data []V, prevKey, nextKey *K) LoadResult[K, V] {
	return LoadResult[K, V]{Page: &Page[K, V]{Data: data, PrevKey: prevKey, NextKey: nextKey}}
}

// ErrorResult builds a failed LoadResult.
func ErrorResult[K comparable, V any](err error) LoadResult[K, V] {
	return LoadResult[K, V]{Err: err}
}

// State is what a Source sees when asked for a refresh key.
type State[K comparable, V any] struct {
	Pages []Page[K, V]
	// Anchor is the last index the consumer accessed, or -1.
	Anchor int
	Config Config
}

// Source loads pages. Implementations report failures through ErrorResult
// instead of panicking.
type Source[K comparable, V any] interface {
	Load(ctx context.Context, params LoadParams[K]) LoadResult[K, V]
	// RefreshKey picks the key a refresh starts from; nil means the start.
	RefreshKey(state State[K, V]) *K
}

// Factory creates a fresh Source. The Pager calls it once at start and again
// on every Refresh.
type Factory[K comparable, V any] func() Source[K, V]
