// Package session stores dialogue sessions for callers that cannot hold the
// dialogue state themselves. Sessions expire after a TTL and a janitor
// goroutine purges them.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/scene-clarify/internal/db"
	"github.com/ziadkadry99/scene-clarify/internal/dialogue"
	"github.com/ziadkadry99/scene-clarify/internal/logging"
)

// Backend names accepted by New.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultTTL applies when Config.TTL is not positive.
const DefaultTTL = 30 * time.Minute

// Config selects and tunes a store.
type Config struct {
	Backend     string
	TTL         time.Duration
	SQLitePath  string
	PostgresDSN string
	// JanitorInterval defaults to a quarter of the TTL, at least one second.
	JanitorInterval time.Duration
	Logger          *zap.Logger
	// Now is the clock; tests replace it.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.JanitorInterval <= 0 {
		c.JanitorInterval = c.TTL / 4
		if c.JanitorInterval < time.Second {
			c.JanitorInterval = time.Second
		}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	c.Logger = logging.OrNop(c.Logger).Named("session")
	return c
}

// New opens the configured backend.
func New(ctx context.Context, cfg Config) (dialogue.SessionStore, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(cfg), nil
	case BackendSQLite:
		d, err := db.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite session store: %w", err)
		}
		return newSQLStore(d, cfg, true), nil
	case BackendPostgres:
		d, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres session store: %w", err)
		}
		return newSQLStore(d, cfg, true), nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", dialogue.ErrSessionNotFound, id)
}

// janitor periodically purges expired sessions until stopped.
type janitor struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startJanitor(interval time.Duration, logger *zap.Logger, purge func(ctx context.Context) (int, error)) *janitor {
	j := &janitor{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-j.stop:
				return
			case <-ticker.C:
				n, err := purge(context.Background())
				if err != nil {
					logger.Warn("purging expired sessions", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Debug("purged expired sessions", zap.Int("count", n))
				}
			}
		}
	}()
	return j
}

// Stop ends the janitor and waits for it to exit. It is safe to call twice.
func (j *janitor) Stop() {
	j.once.Do(func() { close(j.stop) })
	<-j.done
}
