// Package ui is the interactive mentions screen.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/adamavenir/hark/internal/logger"
	"github.com/adamavenir/hark/internal/mentions"
	"github.com/adamavenir/hark/internal/paging"
	"github.com/adamavenir/hark/internal/toast"
	"github.com/adamavenir/hark/internal/types"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.uber.org/zap"
)

// Options configure the mentions screen.
type Options struct {
	ViewModel *mentions.ViewModel
	Toasts    *toast.Manager
	// WebURL is the base for message links copied with y.
	WebURL string
	// SelfID marks direct mentions; zero disables the marker.
	SelfID types.Snowflake
}

// Run starts the mentions screen and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	model := NewModel(opts)
	fmt.Printf("\033]0;%s\007", "hark · mentions")

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := program.Run()
	model.Close()
	return err
}

type snapshotMsg struct {
	pager *mentions.Pager
	snap  paging.Snapshot[types.Message]
	ok    bool
}

type changeMsg struct{}

type toastMsg struct {
	toast toast.Toast
}

type tickMsg time.Time

// Model renders a mentions.ViewModel.
type Model struct {
	vm     *mentions.ViewModel
	toasts *toast.Manager
	webURL string
	selfID types.Snowflake
	log    *zap.Logger

	viewport    viewport.Model
	zoneManager *zone.Manager
	copy        func(string) error
	now         func() time.Time

	pager       *mentions.Pager
	snapshots   <-chan paging.Snapshot[types.Message]
	unsubscribe func()
	snap        paging.Snapshot[types.Message]
	state       mentions.State
	toastCh     <-chan toast.Toast

	cursor int
	width  int
	height int
	status string
	ready  bool
}

// NewModel creates the screen model.
func NewModel(opts Options) *Model {
	m := &Model{
		vm:          opts.ViewModel,
		toasts:      opts.Toasts,
		webURL:      opts.WebURL,
		selfID:      opts.SelfID,
		log:         logger.Named("ui"),
		viewport:    viewport.New(0, 0),
		zoneManager: zone.New(),
		copy:        copyToClipboard,
		now:         time.Now,
	}
	m.state = m.vm.State()
	if m.toasts != nil {
		m.toastCh = m.toasts.Subscribe()
	}
	return m
}

// Init subscribes to the live feed and the controller's change signal.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bindPager(), waitChange(m.vm), tick()}
	if m.toastCh != nil {
		cmds = append(cmds, waitToast(m.toastCh))
	}
	return tea.Batch(cmds...)
}

// Close drops the feed subscription.
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.zoneManager.Close()
}

// bindPager subscribes to the controller's current feed if it changed.
func (m *Model) bindPager() tea.Cmd {
	pager := m.vm.Messages()
	if pager == m.pager {
		return nil
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.pager = pager
	m.snapshots, m.unsubscribe = pager.Subscribe()
	m.snap = paging.Snapshot[types.Message]{}
	m.cursor = 0
	m.viewport.GotoTop()
	m.refreshViewport()
	return waitSnapshot(pager, m.snapshots)
}

func waitSnapshot(pager *mentions.Pager, ch <-chan paging.Snapshot[types.Message]) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		return snapshotMsg{pager: pager, snap: snap, ok: ok}
	}
}

func waitChange(vm *mentions.ViewModel) tea.Cmd {
	return func() tea.Msg {
		<-vm.Changes()
		return changeMsg{}
	}
}

func waitToast(ch <-chan toast.Toast) tea.Cmd {
	return func() tea.Msg {
		t, ok := <-ch
		if !ok {
			return nil
		}
		return toastMsg{toast: t}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
