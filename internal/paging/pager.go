package paging

import (
	"context"
	"fmt"
	"sync"

	"github.com/adamavenir/hark/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Pager caches the pages of one Source and hands snapshots to subscribers.
type Pager[K comparable, V any] struct {
	cfg     Config
	factory Factory[K, V]
	ctx     context.Context
	cancel  context.CancelFunc
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	log     *zap.Logger

	mu          sync.Mutex
	source      Source[K, V]
	gen         int
	started     bool
	closed      bool
	pages       []Page[K, V]
	items       []V
	nextKey     *K
	endReached  bool
	refresh     LoadState
	appendState LoadState
	anchor      int
	failed      *LoadParams[K]
	failures    int
	cancelLoad  context.CancelFunc
	nextSubID   int
	subs        map[int]chan Snapshot[V]
}

// New creates a Pager. Nothing is loaded until the first Subscribe or
// Refresh. The Pager stops when ctx is done or Close is called.
func New[K comparable, V any](ctx context.Context, cfg Config, factory Factory[K, V]) *Pager[K, V] {
	pagerCtx, cancel := context.WithCancel(ctx)
	p := &Pager[K, V]{
		cfg:     cfg.withDefaults(),
		factory: factory,
		ctx:     pagerCtx,
		cancel:  cancel,
		sem:     semaphore.NewWeighted(1),
		log:     logger.Named("pager"),
		anchor:  -1,
		subs:    make(map[int]chan Snapshot[V]),
	}
	go func() {
		<-pagerCtx.Done()
		p.Close()
	}()
	return p
}

// Config returns the effective configuration.
func (p *Pager[K, V]) Config() Config {
	return p.cfg
}

// Subscribe returns a channel of snapshots. The current snapshot is
// delivered immediately; the first subscription starts the initial load.
// The channel holds only the latest snapshot and is closed by Close or
// by the returned cancel func.
func (p *Pager[K, V]) Subscribe() (<-chan Snapshot[V], func()) {
	ch := make(chan Snapshot[V], 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = ch
	ch <- p.snapshotLocked()
	start := !p.started
	p.mu.Unlock()

	if start {
		p.Refresh()
	}

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if sub, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(sub)
		}
	}
}

// Snapshot returns the current state without subscribing.
func (p *Pager[K, V]) Snapshot() Snapshot[V] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Access records that the consumer looked at item index and loads the next
// page if index is within PrefetchDistance of the end.
func (p *Pager[K, V]) Access(index int) {
	p.mu.Lock()
	p.anchor = index
	p.mu.Unlock()
	p.maybePrefetch()
}

// Refresh discards the current source and reloads from its refresh key.
// An in-flight load is cancelled; its result is dropped.
func (p *Pager[K, V]) Refresh() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.gen++
	gen := p.gen
	if p.cancelLoad != nil {
		p.cancelLoad()
		p.cancelLoad = nil
	}
	state := p.stateLocked()
	source := p.factory()
	p.source = source
	p.failed = nil
	p.failures = 0
	p.refresh = LoadState{Status: Loading}
	p.appendState = LoadState{}
	p.broadcastLocked()
	p.mu.Unlock()

	params := LoadParams[K]{
		Kind:     LoadRefresh,
		Key:      source.RefreshKey(state),
		LoadSize: p.cfg.InitialLoadSize,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(p.ctx, 1); err != nil {
			return
		}
		if !p.current(gen) {
			p.sem.Release(1)
			return
		}
		p.run(params, source, gen)
	}()
}

// Retry re-issues the most recent failed load. It is never called
// automatically.
func (p *Pager[K, V]) Retry() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.failed == nil {
		p.mu.Unlock()
		return ErrNothingToRetry
	}
	if p.failures > p.cfg.MaxRetries {
		p.mu.Unlock()
		return ErrRetryLimit
	}
	if !p.sem.TryAcquire(1) {
		p.mu.Unlock()
		return ErrBusy
	}
	params := *p.failed
	source := p.source
	gen := p.gen
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(params, source, gen)
	}()
	return nil
}

// Close cancels in-flight work and closes every subscriber channel.
// It is safe to call more than once.
func (p *Pager[K, V]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id, ch := range p.subs {
		delete(p.subs, id)
		close(ch)
	}
	p.mu.Unlock()
	p.cancel()
}

// Closed reports whether Close has been called.
func (p *Pager[K, V]) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Wait blocks until no load goroutine is running.
func (p *Pager[K, V]) Wait() {
	p.wg.Wait()
}

func (p *Pager[K, V]) maybePrefetch() {
	p.mu.Lock()
	if !p.shouldPrefetchLocked() || !p.sem.TryAcquire(1) {
		p.mu.Unlock()
		return
	}
	params := LoadParams[K]{
		Kind:     LoadAppend,
		Key:      p.nextKey,
		LoadSize: p.cfg.PageSize,
	}
	source := p.source
	gen := p.gen
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(params, source, gen)
	}()
}

func (p *Pager[K, V]) shouldPrefetchLocked() bool {
	if p.closed || !p.started || p.source == nil {
		return false
	}
	if p.refresh.Status != NotLoading || p.appendState.Status != NotLoading {
		return false
	}
	if p.endReached || p.nextKey == nil || p.anchor < 0 {
		return false
	}
	return p.anchor >= len(p.items)-p.cfg.PrefetchDistance
}

// run executes one load. The caller holds the semaphore; run releases it.
func (p *Pager[K, V]) run(params LoadParams[K], source Source[K, V], gen int) {
	p.mu.Lock()
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		p.sem.Release(1)
		return
	}
	loadCtx, cancel := context.WithCancel(p.ctx)
	p.cancelLoad = cancel
	p.setStateLocked(params.Kind, LoadState{Status: Loading})
	p.broadcastLocked()
	p.mu.Unlock()

	p.log.Debug("page load",
		zap.Stringer("kind", params.Kind),
		zap.Int("load_size", params.LoadSize),
		zap.Bool("has_key", params.Key != nil))

	result := safeLoad(loadCtx, source, params)
	cancel()

	p.apply(params, gen, result)
	p.maybePrefetch()
}

func safeLoad[K comparable, V any](ctx context.Context, source Source[K, V], params LoadParams[K]) (result LoadResult[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			result = ErrorResult[K, V](fmt.Errorf("page load panicked: %v", r))
		}
	}()
	result = source.Load(ctx, params)
	if result.Err == nil && result.Page == nil {
		result = ErrorResult[K, V](fmt.Errorf("page load returned neither page nor error"))
	}
	return result
}

// apply stores a load result and releases the semaphore before unlocking, so
// a subscriber that sees the result can start the next load.
func (p *Pager[K, V]) apply(params LoadParams[K], gen int, result LoadResult[K, V]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer p.sem.Release(1)
	if p.closed || gen != p.gen {
		return
	}
	p.cancelLoad = nil

	if result.Err != nil {
		p.setStateLocked(params.Kind, LoadState{Status: Failed, Err: result.Err})
		if p.failed != nil && sameParams(*p.failed, params) {
			p.failures++
		} else {
			failed := params
			p.failed = &failed
			p.failures = 1
		}
		p.broadcastLocked()
		return
	}

	page := *result.Page
	p.failed = nil
	p.failures = 0
	switch params.Kind {
	case LoadRefresh:
		p.pages = []Page[K, V]{page}
		p.items = append([]V(nil), page.Data...)
		p.refresh = LoadState{}
		p.appendState = LoadState{}
	case LoadAppend:
		p.pages = append(p.pages, page)
		p.items = append(p.items, page.Data...)
		p.appendState = LoadState{}
	}
	p.nextKey = page.NextKey
	p.endReached = page.NextKey == nil
	p.broadcastLocked()
}

func (p *Pager[K, V]) setStateLocked(kind LoadKind, state LoadState) {
	if kind == LoadRefresh {
		p.refresh = state
		return
	}
	p.appendState = state
}

func (p *Pager[K, V]) current(gen int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed && gen == p.gen
}

func (p *Pager[K, V]) stateLocked() State[K, V] {
	return State[K, V]{
		Pages:  append([]Page[K, V](nil), p.pages...),
		Anchor: p.anchor,
		Config: p.cfg,
	}
}

func (p *Pager[K, V]) snapshotLocked() Snapshot[V] {
	n := len(p.items)
	return Snapshot[V]{
		Items:      p.items[:n:n],
		Pages:      len(p.pages),
		Refresh:    p.refresh,
		Append:     p.appendState,
		EndReached: p.endReached,
		Generation: p.gen,
	}
}

// broadcastLocked hands the current snapshot to every subscriber, replacing
// any snapshot the subscriber has not read yet.
func (p *Pager[K, V]) broadcastLocked() {
	snap := p.snapshotLocked()
	for _, ch := range p.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func sameParams[K comparable](a, b LoadParams[K]) bool {
	if a.Kind != b.Kind || a.LoadSize != b.LoadSize {
		return false
	}
	if a.Key == nil || b.Key == nil {
		return a.Key == nil && b.Key == nil
	}
	return *a.Key == *b.Key
}
