package mentions

import (
	"context"
	"testing"
	"time"

	"github.com/adamavenir/hark/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	vm        *ViewModel
	fetcher   *fakeMentions
	guilds    *fakeGuilds
	selection *fakeSelection
	feedback  *fakeFeedback
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetcher:   &fakeMentions{},
		guilds:    &fakeGuilds{guilds: map[int64]string{5: "Test Guild", 6: "Other Guild"}},
		selection: newFakeSelection(),
		feedback:  &fakeFeedback{},
	}
	h.vm = New(context.Background(), Deps{
		Guilds:    h.guilds,
		Selection: h.selection,
		Feedback:  h.feedback,
		Fetcher:   h.fetcher,
	})
	t.Cleanup(h.vm.Close)
	return h
}

func (h *harness) selectGuild(t *testing.T, id int64) {
	t.Helper()
	select {
	case h.selection.ch <- id:
	case <-time.After(2 * time.Second):
		t.Fatal("selection follower not receiving")
	}
	require.Eventually(t, func() bool { return h.vm.GuildID() == id }, 2*time.Second, 5*time.Millisecond)
}

// firstQuery subscribes to the live feed and waits for its first fetch.
func (h *harness) firstQuery(t *testing.T) Filter {
	t.Helper()
	before := h.fetcher.queryCount()
	_, cancel := h.vm.Messages().Subscribe()
	defer cancel()
	require.Eventually(t, func() bool { return h.fetcher.queryCount() > before }, 2*time.Second, 5*time.Millisecond)
	q := h.fetcher.lastQuery()
	return Filter{IncludeRoles: q.IncludeRoles, IncludeEveryone: q.IncludeEveryone, GuildID: q.GuildID}
}

func TestInitialState(t *testing.T) {
	h := newHarness(t)
	state := h.vm.State()
	assert.True(t, state.IncludeRoles)
	assert.True(t, state.IncludeEveryone)
	assert.True(t, state.IncludeAllServers)
	assert.Nil(t, state.CurrentGuildName)

	filter := h.firstQuery(t)
	assert.True(t, filter.IncludeRoles)
	assert.True(t, filter.IncludeEveryone)
	assert.Nil(t, filter.GuildID)
	assert.Equal(t, 25, h.fetcher.lastQuery().Limit)
}

func TestTogglesReplaceFeed(t *testing.T) {
	h := newHarness(t)
	h.selectGuild(t, 5)

	steps := []struct {
		name   string
		toggle func()
		want   State
	}{
		{"roles off", h.vm.ToggleRoles, State{IncludeRoles: false, IncludeEveryone: true, IncludeAllServers: true}},
		{"everyone off", h.vm.ToggleEveryone, State{IncludeRoles: false, IncludeEveryone: false, IncludeAllServers: true}},
		{"current server", h.vm.ToggleCurrentServer, State{IncludeRoles: false, IncludeEveryone: false, IncludeAllServers: false}},
		{"roles on", h.vm.ToggleRoles, State{IncludeRoles: true, IncludeEveryone: false, IncludeAllServers: false}},
		{"all servers", h.vm.ToggleCurrentServer, State{IncludeRoles: true, IncludeEveryone: false, IncludeAllServers: true}},
	}

	for _, step := range steps {
		previous := h.vm.Messages()
		step.toggle()
		current := h.vm.Messages()

		require.NotSame(t, previous, current, step.name)
		assert.True(t, previous.Closed(), "%s: old feed must be closed", step.name)

		state := h.vm.State()
		assert.Equal(t, step.want.IncludeRoles, state.IncludeRoles, step.name)
		assert.Equal(t, step.want.IncludeEveryone, state.IncludeEveryone, step.name)
		assert.Equal(t, step.want.IncludeAllServers, state.IncludeAllServers, step.name)

		filter := h.firstQuery(t)
		assert.Equal(t, step.want.IncludeRoles, filter.IncludeRoles, step.name)
		assert.Equal(t, step.want.IncludeEveryone, filter.IncludeEveryone, step.name)
		if step.want.IncludeAllServers {
			assert.Nil(t, filter.GuildID, step.name)
		} else {
			require.NotNil(t, filter.GuildID, step.name)
			assert.Equal(t, types.Snowflake(5), *filter.GuildID, step.name)
		}
	}
	assert.Empty(t, h.feedback.all())
}

func TestToggleCurrentServerWithoutSelection(t *testing.T) {
	h := newHarness(t)
	before := h.vm.State()
	pager := h.vm.Messages()

	h.vm.ToggleCurrentServer()

	assert.Equal(t, before, h.vm.State())
	assert.Same(t, pager, h.vm.Messages())
	assert.Equal(t, []string{NoServerSelected}, h.feedback.all())
}

func TestToggleCurrentServerWithSelection(t *testing.T) {
	h := newHarness(t)
	h.selectGuild(t, 5)

	h.vm.ToggleCurrentServer()

	assert.False(t, h.vm.State().IncludeAllServers)
	assert.Empty(t, h.feedback.all())
}

func TestRestrictedFeedCanReturnToAllAfterDeselect(t *testing.T) {
	h := newHarness(t)
	h.selectGuild(t, 5)
	h.vm.ToggleCurrentServer()
	h.selectGuild(t, 0)

	h.vm.ToggleCurrentServer()

	assert.True(t, h.vm.State().IncludeAllServers)
	assert.Empty(t, h.feedback.all())
}

func TestRestrictedFeedKeepsGuildFilterAfterDeselect(t *testing.T) {
	h := newHarness(t)
	h.selectGuild(t, 5)
	h.vm.ToggleCurrentServer()
	h.selectGuild(t, 0)

	h.vm.ToggleRoles()

	require.False(t, h.vm.State().IncludeAllServers)
	filter := h.firstQuery(t)
	require.NotNil(t, filter.GuildID, "restricted feed must keep a guild filter")
	assert.Equal(t, types.Snowflake(0), *filter.GuildID)
	assert.False(t, filter.IncludeRoles)
}

func TestSelectionResolvesGuildName(t *testing.T) {
	h := newHarness(t)

	h.selectGuild(t, 5)
	require.Eventually(t, func() bool {
		name := h.vm.State().CurrentGuildName
		return name != nil && *name == "Test Guild"
	}, 2*time.Second, 5*time.Millisecond)

	h.selectGuild(t, 0)
	name := h.vm.State().CurrentGuildName
	require.NotNil(t, name)
	assert.Equal(t, "Test Guild", *name)
	assert.Equal(t, int64(0), h.vm.GuildID())
	assert.Equal(t, 1, h.guilds.callCount(), "non-positive ids are not looked up")
}

func TestUnknownGuildKeepsName(t *testing.T) {
	h := newHarness(t)
	h.selectGuild(t, 5)
	require.Eventually(t, func() bool { return h.vm.State().CurrentGuildName != nil }, 2*time.Second, 5*time.Millisecond)

	h.selectGuild(t, 404)
	require.Eventually(t, func() bool { return h.guilds.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "Test Guild", *h.vm.State().CurrentGuildName)
}

func TestChangesSignalled(t *testing.T) {
	h := newHarness(t)
	h.vm.ToggleRoles()
	select {
	case <-h.vm.Changes():
	case <-time.After(time.Second):
		t.Fatal("no change signal after toggle")
	}
}

func TestCloseStopsEverything(t *testing.T) {
	h := newHarness(t)
	pager := h.vm.Messages()
	h.vm.Close()

	select {
	case <-h.vm.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("selection follower still running")
	}
	assert.True(t, pager.Closed())
}
