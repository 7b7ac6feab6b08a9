// Package mentions holds the state behind the mentions screen: filter toggles,
// the selected guild's name, and the paged mentions feed.
package mentions

import (
	"context"
	"sync"

	"github.com/adamavenir/hark/internal/logger"
	"github.com/adamavenir/hark/internal/paging"
	"github.com/adamavenir/hark/internal/types"
	"go.uber.org/zap"
)

const (
	pageSize         = 25
	prefetchDistance = 25
	initialLoadSize  = 25

	// NoServerSelected is shown when restricting to the current server
	// without one selected.
	NoServerSelected = "No server currently selected!"
)

// GuildLookup resolves a guild id to a guild, or nil when unknown.
type GuildLookup interface {
	FetchGuild(ctx context.Context, id int64) (*types.Guild, error)
}

// SelectionObserver streams the selected guild id; <= 0 means none.
type SelectionObserver interface {
	ObserveCurrentGuild(ctx context.Context) <-chan int64
}

// FeedbackSink shows short messages to the user.
type FeedbackSink interface {
	ShowToast(message string)
}

// Deps are the collaborators of a ViewModel.
type Deps struct {
	Guilds    GuildLookup
	Selection SelectionObserver
	Feedback  FeedbackSink
	Fetcher   MentionFetcher
}

// Pager is the paged feed type exposed to the UI.
type Pager = paging.Pager[types.Snowflake, types.Message]

// State is the read-only filter state.
type State struct {
	IncludeRoles      bool
	IncludeEveryone   bool
	IncludeAllServers bool
	CurrentGuildName  *string
}

// ViewModel is the mentions screen controller. Methods are safe to call from
// any goroutine.
type ViewModel struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger
	done   chan struct{}

	mu      sync.Mutex
	state   State
	guildID int64
	pager   *Pager
	changes chan struct{}
}

// New builds the initial feed with every filter enabled and starts following
// the guild selection until ctx is done or Close is called.
func New(ctx context.Context, deps Deps) *ViewModel {
	vmCtx, cancel := context.WithCancel(ctx)
	vm := &ViewModel{
		deps:    deps,
		ctx:     vmCtx,
		cancel:  cancel,
		log:     logger.Named("mentions"),
		done:    make(chan struct{}),
		changes: make(chan struct{}, 1),
		state: State{
			IncludeRoles:      true,
			IncludeEveryone:   true,
			IncludeAllServers: true,
		},
	}

	vm.mu.Lock()
	vm.initPagerLocked()
	vm.mu.Unlock()

	go vm.followSelection()
	return vm
}

// State returns a copy of the filter state.
func (vm *ViewModel) State() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	state := vm.state
	if state.CurrentGuildName != nil {
		name := *state.CurrentGuildName
		state.CurrentGuildName = &name
	}
	return state
}

// Messages returns the live feed. It is replaced on every toggle.
func (vm *ViewModel) Messages() *Pager {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.pager
}

// Changes receives a value after the state or the feed changes. Signals
// coalesce; read State and Messages after each one.
func (vm *ViewModel) Changes() <-chan struct{} {
	return vm.changes
}

// ToggleRoles flips whether role mentions are included.
func (vm *ViewModel) ToggleRoles() {
	vm.mu.Lock()
	vm.state.IncludeRoles = !vm.state.IncludeRoles
	vm.initPagerLocked()
	vm.mu.Unlock()
	vm.signal()
}

// ToggleEveryone flips whether @everyone and @here mentions are included.
func (vm *ViewModel) ToggleEveryone() {
	vm.mu.Lock()
	vm.state.IncludeEveryone = !vm.state.IncludeEveryone
	vm.initPagerLocked()
	vm.mu.Unlock()
	vm.signal()
}

// ToggleCurrentServer switches between all guilds and the selected guild.
func (vm *ViewModel) ToggleCurrentServer() {
	vm.mu.Lock()
	if vm.state.IncludeAllServers && vm.guildID <= 0 {
		vm.mu.Unlock()
		vm.deps.Feedback.ShowToast(NoServerSelected)
		return
	}
	vm.state.IncludeAllServers = !vm.state.IncludeAllServers
	vm.initPagerLocked()
	vm.mu.Unlock()
	vm.signal()
}

// Close stops following the selection and closes the live feed.
func (vm *ViewModel) Close() {
	vm.cancel()
	vm.mu.Lock()
	if vm.pager != nil {
		vm.pager.Close()
	}
	vm.mu.Unlock()
}

// Done is closed once the selection follower has exited.
func (vm *ViewModel) Done() <-chan struct{} {
	return vm.done
}

func (vm *ViewModel) initPagerLocked() {
	if vm.pager != nil {
		vm.pager.Close()
	}
	filter := Filter{
		IncludeRoles:    vm.state.IncludeRoles,
		IncludeEveryone: vm.state.IncludeEveryone,
	}
	if !vm.state.IncludeAllServers {
		guildID := types.Snowflake(vm.guildID)
		filter.GuildID = &guildID
	}
	fetcher := vm.deps.Fetcher
	cfg := paging.Config{
		PageSize:           pageSize,
		PrefetchDistance:   prefetchDistance,
		EnablePlaceholders: false,
		InitialLoadSize:    initialLoadSize,
	}
	vm.pager = paging.New[types.Snowflake, types.Message](vm.ctx, cfg, func() paging.Source[types.Snowflake, types.Message] {
		return NewPagingSource(fetcher, filter)
	})
	vm.log.Debug("mentions feed rebuilt",
		zap.Bool("roles", filter.IncludeRoles),
		zap.Bool("everyone", filter.IncludeEveryone),
		zap.Bool("all_servers", filter.GuildID == nil))
}

func (vm *ViewModel) followSelection() {
	defer close(vm.done)
	updates := vm.deps.Selection.ObserveCurrentGuild(vm.ctx)
	for {
		select {
		case <-vm.ctx.Done():
			return
		case id, ok := <-updates:
			if !ok {
				return
			}
			vm.selectGuild(id)
		}
	}
}

func (vm *ViewModel) selectGuild(id int64) {
	vm.mu.Lock()
	vm.guildID = id
	vm.mu.Unlock()
	if id <= 0 {
		return
	}

	guild, err := vm.deps.Guilds.FetchGuild(vm.ctx, id)
	if err != nil {
		vm.log.Warn("guild lookup failed", zap.Int64("guild_id", id), zap.Error(err))
		return
	}
	if guild == nil {
		return
	}

	vm.mu.Lock()
	name := guild.Name
	vm.state.CurrentGuildName = &name
	vm.mu.Unlock()
	vm.signal()
}

func (vm *ViewModel) signal() {
	select {
	case vm.changes <- struct{}{}:
	default:
	}
}

// GuildID returns the last selected guild id.
func (vm *ViewModel) GuildID() int64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.guildID
}
