package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Tables lists every table the schema guarantees.
var Tables = []string{"users", "user_roles", "audit_log", "people", "cases", "attachments", "incidents"}

// InitializeSchema brings the live database up to the current schema. It is
// idempotent and safe to run on a freshly imported snapshot.
func (e *Engine) InitializeSchema(ctx context.Context) error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	version, err := migrate(ctx, sqlDB)
	if err != nil {
		return err
	}
	e.logger.Debug("storage schema ready", "version", version)
	return nil
}

// migrate applies every pending migration to db and returns the resulting
// schema version.
func migrate(ctx context.Context, db *sql.DB) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return 0, err
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return 0, fmt.Errorf("failed to apply schema migrations: %w", err)
	}
	return goose.GetDBVersionContext(ctx, db)
}

// HasTable reports whether the live database has the named table.
func (e *Engine) HasTable(ctx context.Context, name string) (bool, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Raw("SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).
		Scan(&count).Error
	return count > 0, err
}

// columnSet maps each table to the names of its columns. A missing table
// has no entry.
type columnSet map[string]map[string]bool

func readColumns(ctx context.Context, db *sql.DB, tables ...string) (columnSet, error) {
	x := sqlx.NewDb(db, driverName)
	out := make(columnSet, len(tables))
	for _, t := range tables {
		var names []string
		if err := x.SelectContext(ctx, &names, "SELECT name FROM pragma_table_info(?)", t); err != nil {
			return nil, fmt.Errorf("failed to read columns of %s: %w", t, err)
		}
		if len(names) == 0 {
			continue
		}
		cols := make(map[string]bool, len(names))
		for _, n := range names {
			cols[n] = true
		}
		out[t] = cols
	}
	return out, nil
}

// currentColumns returns the column layout a freshly migrated database has.
func currentColumns(ctx context.Context) (columnSet, error) {
	ref, err := openScratch(ctx)
	if err != nil {
		return nil, err
	}
	defer ref.Close()

	if _, err := migrate(ctx, ref); err != nil {
		return nil, err
	}
	return readColumns(ctx, ref, Tables...)
}
