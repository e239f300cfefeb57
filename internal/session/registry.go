// Package session keeps one transaction store per logged-in user session.
//
// Sessions are held in memory only. They expire after a period of inactivity and
// the least recently used session is evicted when the registry is full.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
	applog "spendwise/internal/log"
	"spendwise/internal/store/memory"
)

// Session binds a token to a user and their ledger.
type Session struct {
	Token     string
	Username  string
	Store     *memory.Store
	CreatedAt time.Time
}

// Config holds registry limits.
type Config struct {
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
	// Categories seeds every new session's store. Empty means the defaults.
	Categories []core.Category
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		TTL:             12 * time.Hour,
		MaxEntries:      1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// Registry maps session tokens to sessions.
type Registry struct {
	cfg    Config
	items  *lru[*Session]
	logger *applog.Logger
	now    func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry creates a registry. Zero config values take the defaults.
func NewRegistry(cfg Config, logger *applog.Logger) *Registry {
	return newRegistry(cfg, logger, time.Now)
}

func newRegistry(cfg Config, logger *applog.Logger, now func() time.Time) *Registry {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if logger == nil {
		logger = applog.Default()
	}
	r := &Registry{
		cfg:    cfg,
		items:  newLRU[*Session](cfg.MaxEntries, cfg.TTL, now),
		logger: logger.WithComponent(applog.ComponentSession),
		now:    now,
		stop:   make(chan struct{}),
	}
	r.items.onEvict = func(_ string, s *Session) {
		r.logger.Debug("Session ended", applog.FieldUsername, s.Username)
	}
	return r
}

// Create starts a session for username with a fresh store.
func (r *Registry) Create(username string) *Session {
	s := &Session{
		Token:     uuid.NewString(),
		Username:  username,
		Store:     memory.New(r.cfg.Categories),
		CreatedAt: r.now(),
	}
	r.items.set(s.Token, s)
	r.logger.Info("Session started", applog.FieldUsername, username)
	return s
}

// Lookup returns the live session for token and extends its lifetime.
func (r *Registry) Lookup(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	return r.items.get(token)
}

// Drop ends a session. It reports whether the token was live.
func (r *Registry) Drop(token string) bool {
	return r.items.delete(token)
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	return r.items.size()
}

// Run removes expired sessions until ctx is cancelled or Close is called.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.items.cleanExpired(); n > 0 {
				r.logger.Debug("Expired sessions removed", "count", n)
			}
		case <-r.stop:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops Run. It is safe to call more than once.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}
