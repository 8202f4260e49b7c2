package storage

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/frahmantamala/herasat/internal"
	"github.com/mattn/go-sqlite3"
)

// sqliteHeader opens every SQLite database file.
var sqliteHeader = []byte("SQLite format 3\x00")

const (
	minSnapshotSize = 512
	schemaMain      = "main"
)

// ExportSnapshot serializes the entire database into the SQLite file format.
func (e *Engine) ExportSnapshot(ctx context.Context) ([]byte, error) {
	var out []byte
	err := e.withRawConn(ctx, func(conn *sqlite3.SQLiteConn) error {
		b, err := conn.Serialize(schemaMain)
		if err != nil {
			return fmt.Errorf("failed to serialize database: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ImportSnapshot replaces the entire database with the content of b. The
// bytes are loaded, upgraded and checked in a scratch database first; the
// live database is only overwritten once the staged copy has the current
// schema. On any failure the live database is left as it was and a
// CorruptSnapshot error is returned.
func (e *Engine) ImportSnapshot(ctx context.Context, b []byte) error {
	if len(b) < minSnapshotSize || !bytes.HasPrefix(b, sqliteHeader) {
		return internal.NewCorruptSnapshotError("snapshot is not a SQLite database", nil)
	}

	stage, err := stageSnapshot(ctx, b)
	if err != nil {
		return err
	}
	defer stage.Close()

	legacy, err := upgradeLegacy(ctx, stage)
	if err != nil {
		return internal.NewCorruptSnapshotError("legacy snapshot could not be upgraded", err)
	}
	if legacy {
		e.logger.Info("legacy snapshot upgraded")
	}

	if _, err := migrate(ctx, stage); err != nil {
		return internal.NewCorruptSnapshotError("snapshot could not be migrated", err)
	}
	if err := verifySchema(ctx, stage); err != nil {
		return err
	}

	err = rawConn(ctx, stage, func(src *sqlite3.SQLiteConn) error {
		return e.withRawConn(ctx, func(dst *sqlite3.SQLiteConn) error {
			return copyDatabase(dst, src)
		})
	})
	if err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	e.logger.Info("snapshot imported", "bytes", len(b))
	return nil
}

// stageSnapshot loads b into a writable scratch database. A deserialized
// database cannot grow, so it is copied once more before anything migrates
// it.
func stageSnapshot(ctx context.Context, b []byte) (*sql.DB, error) {
	loaded, err := openScratch(ctx)
	if err != nil {
		return nil, err
	}
	defer loaded.Close()

	err = rawConn(ctx, loaded, func(c *sqlite3.SQLiteConn) error {
		return c.Deserialize(b, schemaMain)
	})
	if err != nil {
		return nil, internal.NewCorruptSnapshotError("snapshot could not be loaded", err)
	}
	if err := checkIntegrity(ctx, loaded); err != nil {
		return nil, err
	}

	stage, err := openScratch(ctx)
	if err != nil {
		return nil, err
	}
	err = rawConn(ctx, loaded, func(src *sqlite3.SQLiteConn) error {
		return rawConn(ctx, stage, func(dst *sqlite3.SQLiteConn) error {
			return copyDatabase(dst, src)
		})
	})
	if err != nil {
		_ = stage.Close()
		return nil, internal.NewCorruptSnapshotError("snapshot could not be staged", err)
	}
	return stage, nil
}

func checkIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return internal.NewCorruptSnapshotError("snapshot failed integrity check", err)
	}
	if result != "ok" {
		return internal.NewCorruptSnapshotError("snapshot failed integrity check", errors.New(result))
	}

	var users int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'").Scan(&users)
	if err != nil {
		return internal.NewCorruptSnapshotError("snapshot schema unreadable", err)
	}
	if users == 0 {
		return internal.NewCorruptSnapshotError("snapshot has no users table", nil)
	}
	return nil
}

// verifySchema requires every table and column a fresh database has.
func verifySchema(ctx context.Context, stage *sql.DB) error {
	want, err := currentColumns(ctx)
	if err != nil {
		return fmt.Errorf("failed to build reference schema: %w", err)
	}
	have, err := readColumns(ctx, stage, Tables...)
	if err != nil {
		return internal.NewCorruptSnapshotError("snapshot schema unreadable", err)
	}

	for _, table := range Tables {
		cols, ok := have[table]
		if !ok {
			return internal.NewCorruptSnapshotError(fmt.Sprintf("snapshot has no %s table", table), nil)
		}
		for col := range want[table] {
			if !cols[col] {
				return internal.NewCorruptSnapshotError(
					fmt.Sprintf("snapshot table %s has no %s column", table, col), nil)
			}
		}
	}
	return nil
}

// copyDatabase overwrites dst with src using the online backup API, which
// commits as a single write transaction on dst.
func copyDatabase(dst, src *sqlite3.SQLiteConn) error {
	bk, err := dst.Backup(schemaMain, src, schemaMain)
	if err != nil {
		return err
	}

	done, stepErr := bk.Step(-1)
	finishErr := bk.Finish()
	if stepErr != nil {
		return stepErr
	}
	if !done {
		return errors.New("backup did not complete")
	}
	return finishErr
}

// openScratch opens a private in-memory database pinned to one connection.
func openScratch(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open scratch database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open scratch database: %w", err)
	}
	return db, nil
}

// withRawConn runs fn on the engine's single driver connection.
func (e *Engine) withRawConn(ctx context.Context, fn func(*sqlite3.SQLiteConn) error) error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return rawConn(ctx, sqlDB, fn)
}

func rawConn(ctx context.Context, db *sql.DB, fn func(*sqlite3.SQLiteConn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		return fn(c)
	})
}
