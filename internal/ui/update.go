package ui

import (
	"errors"
	"fmt"

	"github.com/adamavenir/hark/internal/paging"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

const (
	zoneRoles    = "chip-roles"
	zoneEveryone = "chip-everyone"
	zoneServer   = "chip-server"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	case snapshotMsg:
		return m.handleSnapshotMsg(msg)
	case changeMsg:
		m.state = m.vm.State()
		cmd := m.bindPager()
		m.refreshViewport()
		return m, tea.Batch(cmd, waitChange(m.vm))
	case toastMsg:
		m.refreshViewport()
		return m, waitToast(m.toastCh)
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleSnapshotMsg(msg snapshotMsg) (tea.Model, tea.Cmd) {
	if msg.pager != m.pager || !msg.ok {
		return m, nil
	}
	m.snap = msg.snap
	if m.cursor >= len(m.snap.Items) {
		m.cursor = max(len(m.snap.Items)-1, 0)
	}
	m.refreshViewport()
	return m, waitSnapshot(m.pager, m.snapshots)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		m.vm.ToggleRoles()
		return m, m.syncViewModel()
	case "e":
		m.vm.ToggleEveryone()
		return m, m.syncViewModel()
	case "s":
		m.vm.ToggleCurrentServer()
		return m, m.syncViewModel()
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "pgdown", "ctrl+d":
		m.moveCursor(max(m.viewport.Height/messageHeight, 1))
	case "pgup", "ctrl+u":
		m.moveCursor(-max(m.viewport.Height/messageHeight, 1))
	case "home":
		m.moveCursor(-len(m.snap.Items))
	case "end", "G":
		m.moveCursor(len(m.snap.Items))
	case "R":
		m.retry()
	case "g":
		m.pager.Refresh()
		m.status = "Refreshing mentions..."
	case "y":
		m.copySelectedLink()
	}
	m.refreshViewport()
	return m, nil
}

func (m *Model) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
		switch {
		case m.zoneManager.Get(zoneRoles).InBounds(msg):
			m.vm.ToggleRoles()
			return m, m.syncViewModel()
		case m.zoneManager.Get(zoneEveryone).InBounds(msg):
			m.vm.ToggleEveryone()
			return m, m.syncViewModel()
		case m.zoneManager.Get(zoneServer).InBounds(msg):
			m.vm.ToggleCurrentServer()
			return m, m.syncViewModel()
		}
	}
	switch msg.Button {
	case tea.MouseButtonWheelDown:
		m.moveCursor(1)
	case tea.MouseButtonWheelUp:
		m.moveCursor(-1)
	}
	m.refreshViewport()
	return m, nil
}

// syncViewModel picks up state and feed changes right after a toggle
// instead of waiting for the change signal.
func (m *Model) syncViewModel() tea.Cmd {
	m.state = m.vm.State()
	cmd := m.bindPager()
	m.refreshViewport()
	return cmd
}

func (m *Model) moveCursor(delta int) {
	n := len(m.snap.Items)
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.pager.Access(m.cursor)
}

func (m *Model) retry() {
	err := m.pager.Retry()
	switch {
	case err == nil:
		m.status = "Retrying..."
	case errors.Is(err, paging.ErrRetryLimit):
		m.status = "Retry limit reached; press g to refresh."
	case errors.Is(err, paging.ErrNothingToRetry):
		m.status = ""
	case errors.Is(err, paging.ErrBusy):
		m.status = "Still loading..."
	default:
		m.status = fmt.Sprintf("Retry failed: %v", err)
	}
}

func (m *Model) copySelectedLink() {
	if m.cursor >= len(m.snap.Items) {
		return
	}
	link := m.snap.Items[m.cursor].Link(m.webURL)
	if err := m.copy(link); err != nil {
		m.log.Warn("copy failed", zap.Error(err))
		m.status = fmt.Sprintf("Copy failed: %v", err)
		return
	}
	m.status = "Copied message link to clipboard."
}
