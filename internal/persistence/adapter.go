// Package persistence mirrors the in-memory storage engine into a durable
// slot. Every mutation re-exports the whole database and overwrites the slot
// synchronously, so a mutating call has reached the slot by the time it
// returns.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/pkg/logger"
)

// SnapshotContentType identifies a backup file for download/upload.
const SnapshotContentType = "application/x-sqlite3"

// Engine is the slice of the storage backend the adapter needs.
type Engine interface {
	InitializeSchema(ctx context.Context) error
	ExportSnapshot(ctx context.Context) ([]byte, error)
	ImportSnapshot(ctx context.Context, b []byte) error
	Close() error
}

// Persister is what mutating services call after every successful write.
type Persister interface {
	Persist(ctx context.Context) error
}

// Seeder populates a brand-new database. Seeders run only when the slot
// was empty at startup.
type Seeder interface {
	Seed(ctx context.Context) error
}

// SeederFunc adapts a function to Seeder.
type SeederFunc func(ctx context.Context) error

func (f SeederFunc) Seed(ctx context.Context) error { return f(ctx) }

// Stats describes the persistence history of this process.
type Stats struct {
	Writes          int64
	LastBytes       int
	LastPersistedAt time.Time
	LoadedFromSlot  bool
}

type Adapter struct {
	engine Engine
	slot   Slot
	logger *slog.Logger

	mu    sync.Mutex
	stats Stats
}

func NewAdapter(engine Engine, slot Slot, lg *slog.Logger) *Adapter {
	return &Adapter{
		engine: engine,
		slot:   slot,
		logger: logger.Or(lg).With("slot", slot.Name()),
	}
}

// Initialize loads the slot into the engine, or creates a fresh schema and
// runs the seeders when the slot is empty. A slot holding bytes that are not
// a valid snapshot is a fatal startup error; the slot is not overwritten.
func (a *Adapter) Initialize(ctx context.Context, seeders ...Seeder) error {
	b, err := a.slot.Load(ctx)
	switch {
	case err == nil:
		if err := a.engine.ImportSnapshot(ctx, b); err != nil {
			return fmt.Errorf("failed to load snapshot from %s: %w", a.slot.Name(), err)
		}
		a.mu.Lock()
		a.stats.LoadedFromSlot = true
		a.mu.Unlock()
		a.logger.Info("database loaded from slot", "bytes", len(b))
		return nil

	case errors.Is(err, ErrSlotEmpty):
		if err := a.engine.InitializeSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		for _, s := range seeders {
			if err := s.Seed(ctx); err != nil {
				return fmt.Errorf("failed to seed database: %w", err)
			}
		}
		a.logger.Info("fresh database created")
		return a.Persist(ctx)

	default:
		return internal.NewStorageError("persistence slot unavailable", internal.ErrCodeSlotUnavailable, err)
	}
}

// Persist exports the whole database and overwrites the slot with it.
func (a *Adapter) Persist(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	b, err := a.engine.ExportSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to export snapshot: %w", err)
	}
	if err := a.slot.Store(ctx, b); err != nil {
		return internal.NewStorageError("failed to persist snapshot", internal.ErrCodeSlotUnavailable, err)
	}

	a.stats.Writes++
	a.stats.LastBytes = len(b)
	a.stats.LastPersistedAt = time.Now().UTC()
	a.logger.Debug("snapshot persisted", "bytes", len(b), "writes", a.stats.Writes)
	return nil
}

// ExportToFile returns the current database as a downloadable backup.
func (a *Adapter) ExportToFile(ctx context.Context) ([]byte, error) {
	return a.engine.ExportSnapshot(ctx)
}

// ImportFromFile replaces the database with an uploaded backup and persists
// it. Malformed bytes fail with a CorruptSnapshot error and change nothing.
// When only the final persist fails, the restored database is already live
// and reaches the slot with the next successful write.
func (a *Adapter) ImportFromFile(ctx context.Context, b []byte) error {
	if err := a.engine.ImportSnapshot(ctx, b); err != nil {
		a.logger.Warn("backup import rejected", "error", err)
		return err
	}
	a.logger.Info("backup imported", "bytes", len(b))
	if err := a.Persist(ctx); err != nil {
		a.logger.Error("restored backup is live but not yet persisted", "error", err)
		return err
	}
	return nil
}

func (a *Adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Close flushes the database to the slot and releases the engine.
func (a *Adapter) Close(ctx context.Context) error {
	persistErr := a.Persist(ctx)
	closeErr := a.engine.Close()
	if c, ok := a.slot.(io.Closer); ok {
		if err := c.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	return errors.Join(persistErr, closeErr)
}
