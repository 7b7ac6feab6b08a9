package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/adamavenir/hark/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type selectionState struct {
	GuildID int64 `json:"guild_id"`
}

// SelectionStore persists which guild the user currently has selected.
// Other hark processes (e.g. "hark guild select") may change the selection;
// observers see those changes through a file watch.
type SelectionStore struct {
	path string
	log  *zap.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

// NewSelectionStore creates a store backed by the JSON file at path.
func NewSelectionStore(path string) *SelectionStore {
	return &SelectionStore{
		path: path,
		log:  logger.Named("selection"),
		subs: make(map[int]chan struct{}),
	}
}

// CurrentGuild returns the selected guild id; 0 means none.
func (s *SelectionStore) CurrentGuild() (int64, error) {
	state, err := s.load()
	if err != nil {
		return 0, err
	}
	return state.GuildID, nil
}

// SetCurrentGuild persists the selection and notifies observers.
func (s *SelectionStore) SetCurrentGuild(id int64) error {
	if id < 0 {
		id = 0
	}
	if err := s.save(selectionState{GuildID: id}); err != nil {
		return err
	}
	s.notify()
	return nil
}

// ClearCurrentGuild deselects any guild.
func (s *SelectionStore) ClearCurrentGuild() error {
	return s.SetCurrentGuild(0)
}

// load reads the selection file. A missing file means nothing is selected.
func (s *SelectionStore) load() (selectionState, error) {
	var state selectionState
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, errors.Wrapf(err, "read %s", s.path)
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, errors.Wrapf(err, "decode %s", s.path)
	}
	return state, nil
}

// save replaces the selection file by renaming a temp file over it, so
// watchers never see a partial write.
func (s *SelectionStore) save(state selectionState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create data dir")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrap(err, "encode selection")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrapf(err, "replace %s", s.path)
	}
	return nil
}

// ObserveCurrentGuild emits the current selection, then every change until
// ctx is done. Consecutive duplicates are skipped. The channel is closed when
// ctx is done.
func (s *SelectionStore) ObserveCurrentGuild(ctx context.Context) <-chan int64 {
	out := make(chan int64)
	changed, unsubscribe := s.subscribe()

	watcher, err := s.watch()
	if err != nil {
		s.log.Warn("selection file watch unavailable", zap.Error(err))
	}

	go func() {
		defer close(out)
		defer unsubscribe()
		if watcher != nil {
			defer watcher.Close()
		}

		var (
			last    int64
			started bool
		)
		emit := func() bool {
			id, err := s.CurrentGuild()
			if err != nil {
				s.log.Warn("selection read failed", zap.Error(err))
				return true
			}
			if started && id == last {
				return true
			}
			select {
			case out <- id:
				last = id
				started = true
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !emit() {
			return
		}

		var events <-chan fsnotify.Event
		var watchErrs <-chan error
		if watcher != nil {
			events = watcher.Events
			watchErrs = watcher.Errors
		}
		base := filepath.Base(s.path)

		for {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				if !emit() {
					return
				}
			case event, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
					continue
				}
				if !emit() {
					return
				}
			case err, ok := <-watchErrs:
				if !ok {
					watchErrs = nil
					continue
				}
				s.log.Warn("selection watcher error", zap.Error(err))
			}
		}
	}()

	return out
}

func (s *SelectionStore) watch() (*fsnotify.Watcher, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

func (s *SelectionStore) subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *SelectionStore) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
