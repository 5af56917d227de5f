package persist

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is logged when a save arrives after Close.
var ErrClosed = errors.New("persist: store closed")

// Adapter wraps a Store so that callers never see persistence errors:
// failed loads read as "no record" and failed saves are logged no-ops.
// Saves run synchronously in call order, so the last write wins.
type Adapter struct {
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewAdapter creates an Adapter over store.
func NewAdapter(store Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: store, logger: logger}
}

// Load returns the persisted record, or ok=false when none is available.
func (a *Adapter) Load(ctx context.Context) (Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Record{}, false
	}

	rec, ok, err := a.store.Load(ctx)
	if err != nil {
		a.logger.Warn("persist: load failed, using defaults", slog.String("error", err.Error()))
		return Record{}, false
	}
	return rec, ok
}

// Save writes rec through to the store. It reports whether the write
// succeeded; callers are free to ignore the result.
func (a *Adapter) Save(ctx context.Context, rec Record) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		a.logger.Warn("persist: save skipped", slog.String("error", ErrClosed.Error()))
		return false
	}

	if err := a.store.Save(ctx, rec); err != nil {
		a.logger.Warn("persist: save failed, keeping in-memory state",
			slog.Int("bytes", len(rec.Text)),
			slog.String("error", err.Error()))
		return false
	}
	a.logger.Debug("persist: saved", slog.Int("bytes", len(rec.Text)))
	return true
}

// Close closes the store. Later saves are no-ops.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.store.Close()
}
