package storage_test

import (
	"context"
	"testing"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestStorage(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Storage Engine Suite")
}

func collect(engine *storage.Engine, ctx context.Context, stmt string, args ...any) []storage.Row {
	var out []storage.Row
	for row, err := range engine.Query(ctx, stmt, args...) {
		Expect(err).NotTo(HaveOccurred())
		out = append(out, row)
	}
	return out
}

var _ = Describe("Engine", func() {
	var (
		ctx    context.Context
		engine *storage.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		engine, err = storage.Open(ctx, storage.Options{Logger: logger.Discard()})
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.InitializeSchema(ctx)).To(Succeed())
	})

	AfterEach(func() {
		Expect(engine.Close()).To(Succeed())
	})

	Describe("InitializeSchema", func() {
		It("creates every table", func() {
			for _, table := range storage.Tables {
				ok, err := engine.HasTable(ctx, table)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue(), table)
			}
		})

		It("is idempotent", func() {
			Expect(engine.InitializeSchema(ctx)).To(Succeed())
			Expect(engine.InitializeSchema(ctx)).To(Succeed())
		})
	})

	Describe("Execute and Query", func() {
		It("returns an empty sequence when nothing matches", func() {
			Expect(collect(engine, ctx, "SELECT * FROM people WHERE id = ?", "missing")).To(BeEmpty())
		})

		It("returns rows keyed by column name", func() {
			Expect(engine.Execute(ctx,
				"INSERT INTO attachments (id, file_name, file_type, file_data, uploaded_at) VALUES (?, ?, ?, ?, datetime('now'))",
				"a1", "scan.pdf", "application/pdf", "AAAA")).To(Succeed())

			rows := collect(engine, ctx, "SELECT id, file_name FROM attachments")
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveKeyWithValue("id", "a1"))
			Expect(rows[0]).To(HaveKeyWithValue("file_name", "scan.pdf"))
		})

		It("re-runs the statement on every range", func() {
			seq := engine.Query(ctx, "SELECT id FROM attachments")
			count := func() int {
				n := 0
				for _, err := range seq {
					Expect(err).NotTo(HaveOccurred())
					n++
				}
				return n
			}
			Expect(count()).To(Equal(0))

			Expect(engine.Execute(ctx,
				"INSERT INTO attachments (id, file_name, file_type, file_data, uploaded_at) VALUES ('a2', 'x', 'text/plain', '', datetime('now'))")).To(Succeed())
			Expect(count()).To(Equal(1))
		})

		It("surfaces a unique violation as a constraint violation", func() {
			insert := "INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES (?, ?, 'h', 'n', datetime('now'))"
			Expect(engine.Execute(ctx, insert, "u1", "admin")).To(Succeed())

			err := engine.Execute(ctx, insert, "u2", "admin")
			Expect(err).To(HaveOccurred())
			Expect(internal.IsConstraintViolation(err)).To(BeTrue())

			rows := collect(engine, ctx, "SELECT id FROM users")
			Expect(rows).To(HaveLen(1))
			Expect(rows[0]).To(HaveKeyWithValue("id", "u1"))
		})
	})

	Describe("Snapshots", func() {
		BeforeEach(func() {
			Expect(engine.Execute(ctx,
				"INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES ('u1', 'admin', 'h', 'Admin', datetime('now'))")).To(Succeed())
		})

		It("round-trips through export and import", func() {
			snapshot, err := engine.ExportSnapshot(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(snapshot[:15])).To(Equal("SQLite format 3"))

			other, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
			Expect(err).NotTo(HaveOccurred())
			defer other.Close()

			Expect(other.ImportSnapshot(ctx, snapshot)).To(Succeed())
			rows := collect(other, ctx, "SELECT username FROM users")
			Expect(rows).To(ConsistOf(HaveKeyWithValue("username", "admin")))
		})

		It("keeps the restored database writable", func() {
			snapshot, err := engine.ExportSnapshot(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.ImportSnapshot(ctx, snapshot)).To(Succeed())

			for i := 0; i < 200; i++ {
				Expect(engine.Execute(ctx,
					"INSERT INTO audit_log (id, seq, user_id, action, entity_type, entity_id, details, timestamp) VALUES (?, ?, 'u1', 'CREATE', 'case', 'c', ?, datetime('now'))",
					i, i, "a fairly long details string to make the database grow past its imported size")).To(Succeed())
			}
		})

		It("rejects garbage and leaves the live state untouched", func() {
			err := engine.ImportSnapshot(ctx, []byte("definitely not a database"))
			Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())

			rows := collect(engine, ctx, "SELECT id FROM users")
			Expect(rows).To(HaveLen(1))
		})

		It("rejects a truncated snapshot", func() {
			snapshot, err := engine.ExportSnapshot(ctx)
			Expect(err).NotTo(HaveOccurred())

			broken := append([]byte{}, snapshot[:len(snapshot)/2]...)
			for i := 100; i < len(broken); i++ {
				broken[i] = 0xFF
			}
			err = engine.ImportSnapshot(ctx, broken)
			Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())
			Expect(collect(engine, ctx, "SELECT id FROM users")).To(HaveLen(1))
		})

		It("rejects a SQLite database without the users table", func() {
			foreign, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
			Expect(err).NotTo(HaveOccurred())
			defer foreign.Close()
			Expect(foreign.Execute(ctx, "CREATE TABLE notes (id TEXT)")).To(Succeed())

			snapshot, err := foreign.ExportSnapshot(ctx)
			Expect(err).NotTo(HaveOccurred())

			err = engine.ImportSnapshot(ctx, snapshot)
			Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())
		})

		It("rejects a users table without the current columns", func() {
			foreign, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
			Expect(err).NotTo(HaveOccurred())
			defer foreign.Close()
			Expect(foreign.Execute(ctx,
				"CREATE TABLE users (id TEXT PRIMARY KEY, username TEXT, password TEXT, fullName TEXT, role TEXT, createdAt TEXT)")).To(Succeed())
			Expect(foreign.Execute(ctx,
				"INSERT INTO users VALUES ('x', 'intruder', 'p', 'X', 'admin', '2023-01-01')")).To(Succeed())

			snapshot, err := foreign.ExportSnapshot(ctx)
			Expect(err).NotTo(HaveOccurred())

			err = engine.ImportSnapshot(ctx, snapshot)
			Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())
			Expect(collect(engine, ctx, "SELECT username FROM users")).To(ConsistOf(HaveKeyWithValue("username", "admin")))

			hasRoles, err := engine.HasTable(ctx, "user_roles")
			Expect(err).NotTo(HaveOccurred())
			Expect(hasRoles).To(BeTrue())
		})

		It("brings an older snapshot up to the current schema before it goes live", func() {
			older, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
			Expect(err).NotTo(HaveOccurred())
			defer older.Close()
			Expect(older.Execute(ctx,
				"CREATE TABLE users (id TEXT PRIMARY KEY, username TEXT NOT NULL UNIQUE, password_hash TEXT NOT NULL, full_name TEXT NOT NULL, must_change_password INTEGER NOT NULL DEFAULT 0, created_at DATETIME NOT NULL)")).To(Succeed())
			Expect(older.Execute(ctx,
				"INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES ('o1', 'old', 'h', 'Old', datetime('now'))")).To(Succeed())

			snapshot, err := older.ExportSnapshot(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.ImportSnapshot(ctx, snapshot)).To(Succeed())
			for _, table := range storage.Tables {
				ok, err := engine.HasTable(ctx, table)
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue(), table)
			}
			Expect(collect(engine, ctx, "SELECT username FROM users")).To(ConsistOf(HaveKeyWithValue("username", "old")))
		})
	})
})
