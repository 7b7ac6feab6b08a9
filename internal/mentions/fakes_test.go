package mentions

import (
	"context"
	"sync"

	"github.com/adamavenir/hark/internal/api"
	"github.com/adamavenir/hark/internal/types"
)

type fakeMentions struct {
	mu      sync.Mutex
	pages   [][]types.APIMessage
	err     error
	queries []api.MentionQuery
}

func (f *fakeMentions) GetUserMentions(_ context.Context, q api.MentionQuery) ([]types.APIMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) == 0 {
		return nil, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeMentions) lastQuery() api.MentionQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func (f *fakeMentions) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type fakeGuilds struct {
	mu     sync.Mutex
	guilds map[int64]string
	calls  []int64
}

func (f *fakeGuilds) FetchGuild(_ context.Context, id int64) (*types.Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, id)
	name, ok := f.guilds[id]
	if !ok {
		return nil, nil
	}
	return &types.Guild{ID: types.Snowflake(id), Name: name}, nil
}

func (f *fakeGuilds) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeSelection hands out a channel the test pushes ids into.
type fakeSelection struct {
	ch chan int64
}

func newFakeSelection() *fakeSelection {
	return &fakeSelection{ch: make(chan int64)}
}

func (f *fakeSelection) ObserveCurrentGuild(context.Context) <-chan int64 {
	return f.ch
}

type fakeFeedback struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeFeedback) ShowToast(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeFeedback) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}
