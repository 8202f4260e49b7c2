// Package storage holds the in-process relational engine every repository
// writes through. The whole database lives in one in-memory SQLite
// connection; its state can be exported to, and restored from, the native
// SQLite file format.
package storage

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const driverName = "sqlite3"

// Row is one result row keyed by column name.
type Row map[string]any

// Options tunes engine construction.
type Options struct {
	Logger *slog.Logger
	// NowFunc overrides the clock gorm uses for autoCreateTime columns.
	NowFunc func() time.Time
}

// Engine is the storage backend: an in-memory SQLite database pinned to a
// single pooled connection so the pool never discards it.
type Engine struct {
	db     *gorm.DB
	rows   *sqlx.DB
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Open creates an empty engine. Callers normally follow with InitializeSchema
// or ImportSnapshot.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	lg := logger.Or(opts.Logger)

	cfg := &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	}
	if opts.NowFunc != nil {
		cfg.NowFunc = opts.NowFunc
	}

	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite engine: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	// every pooled connection to ":memory:" is its own database
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping sqlite engine: %w", err)
	}

	lg.Debug("storage engine opened", "driver", driverName)

	return &Engine{
		db:     db,
		rows:   sqlx.NewDb(sqlDB, driverName),
		logger: lg,
	}, nil
}

// DB exposes the gorm handle repositories build their queries on.
func (e *Engine) DB() *gorm.DB {
	return e.db
}

// Execute runs a mutating statement. Constraint failures come back as a
// conflict AppError.
func (e *Engine) Execute(ctx context.Context, stmt string, args ...any) error {
	if err := e.db.WithContext(ctx).Exec(stmt, args...).Error; err != nil {
		return Classify(err)
	}
	return nil
}

// Query returns a lazy sequence over the rows of a read-only statement. The
// statement runs each time the sequence is ranged over. The engine has a
// single connection, so the loop body must not issue statements of its own.
func (e *Engine) Query(ctx context.Context, stmt string, args ...any) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		rows, err := e.rows.QueryxContext(ctx, stmt, args...)
		if err != nil {
			yield(nil, Classify(err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			row := make(map[string]any)
			if err := rows.MapScan(row); err != nil {
				yield(nil, err)
				return
			}
			for k, v := range row {
				if b, ok := v.([]byte); ok {
					row[k] = string(b)
				}
			}
			if !yield(Row(row), nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// Ping checks the engine connection is still usable.
func (e *Engine) Ping(ctx context.Context) error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the in-memory database. Anything not exported is lost.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Classify maps driver errors onto the application taxonomy. Errors it does
// not recognise are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.ErrConstraintViolation.WithCause(err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return internal.ErrConstraintViolation.WithCause(err)
	}
	return err
}
