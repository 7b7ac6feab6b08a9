// Package toast collects short, transient feedback messages for the UI and
// optionally mirrors them as desktop notifications.
package toast

import (
	"sync"
	"time"

	"github.com/adamavenir/hark/internal/logger"
	"github.com/gen2brain/beeep"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultTTL = 3 * time.Second

	maxHistory = 20
	appName    = "hark"
)

// Toast is a single feedback message.
type Toast struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Notifier raises a desktop notification.
type Notifier func(title, message string) error

// Options configure a Manager.
type Options struct {
	TTL     time.Duration
	Desktop bool
	// Notifier overrides the desktop notifier (beeep by default).
	Notifier Notifier
}

// Manager is the feedback sink. It is safe for concurrent use.
type Manager struct {
	ttl      time.Duration
	desktop  bool
	notifier Notifier
	now      func() time.Time
	log      *zap.Logger

	mu      sync.Mutex
	history []Toast
	subs    []chan Toast
}

// NewManager creates a toast manager.
func NewManager(opts Options) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = func(title, message string) error {
			return beeep.Notify(title, message, "")
		}
	}
	return &Manager{
		ttl:      ttl,
		desktop:  opts.Desktop,
		notifier: notifier,
		now:      time.Now,
		log:      logger.Named("toast"),
	}
}

// ShowToast records a message for transient display.
func (m *Manager) ShowToast(message string) {
	t := Toast{
		ID:        uuid.NewString(),
		Text:      message,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	m.history = append(m.history, t)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	subs := append([]chan Toast(nil), m.subs...)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- t:
		default:
			m.log.Debug("toast subscriber full, dropping", zap.String("text", message))
		}
	}

	if m.desktop {
		if err := m.notifier(appName, message); err != nil {
			m.log.Warn("desktop notification failed", zap.Error(err))
		}
	}
}

// Active returns the toasts still visible at now, oldest first.
func (m *Manager) Active(now time.Time) []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []Toast
	for _, t := range m.history {
		if now.Sub(t.CreatedAt) < m.ttl {
			active = append(active, t)
		}
	}
	return active
}

// Dismiss removes a toast by id.
func (m *Manager) Dismiss(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.history {
		if t.ID == id {
			m.history = append(m.history[:i], m.history[i+1:]...)
			return
		}
	}
}

// TTL is how long a toast stays visible.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Subscribe returns a channel receiving every new toast. Slow subscribers
// miss toasts rather than blocking ShowToast.
func (m *Manager) Subscribe() <-chan Toast {
	ch := make(chan Toast, 8)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}
