package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

func TestPersistence(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Persistence Adapter Suite")
}

func openEngine(ctx context.Context) *storage.Engine {
	engine, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
	Expect(err).NotTo(HaveOccurred())
	return engine
}

func countUsers(ctx context.Context, engine *storage.Engine) int {
	n := 0
	for _, err := range engine.Query(ctx, "SELECT id FROM users") {
		Expect(err).NotTo(HaveOccurred())
		n++
	}
	return n
}

type failingSlot struct{ persistence.Slot }

func (failingSlot) Load(context.Context) ([]byte, error) { return nil, errors.New("disk on fire") }

// flakySlot fails every Store while down is set.
type flakySlot struct {
	persistence.Slot
	down bool
}

func (s *flakySlot) Store(ctx context.Context, b []byte) error {
	if s.down {
		return errors.New("disk full")
	}
	return s.Slot.Store(ctx, b)
}

var _ = Describe("Adapter", func() {
	var (
		ctx    context.Context
		engine *storage.Engine
		slot   *persistence.MemorySlot
		subj   *persistence.Adapter
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = openEngine(ctx)
		slot = persistence.NewMemorySlot("herasat_db")
		subj = persistence.NewAdapter(engine, slot, logger.Discard())
	})

	AfterEach(func() {
		_ = engine.Close()
	})

	Describe("Initialize", func() {
		It("creates the schema, runs seeders and persists when the slot is empty", func() {
			seeded := 0
			seeder := persistence.SeederFunc(func(ctx context.Context) error {
				seeded++
				return engine.Execute(ctx,
					"INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES ('1', 'admin', 'h', 'Admin', datetime('now'))")
			})

			Expect(subj.Initialize(ctx, seeder)).To(Succeed())
			Expect(seeded).To(Equal(1))
			Expect(subj.Stats().Writes).To(Equal(int64(1)))
			Expect(subj.Stats().LoadedFromSlot).To(BeFalse())

			stored, err := slot.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeEmpty())
		})

		It("loads an existing snapshot without seeding", func() {
			Expect(subj.Initialize(ctx)).To(Succeed())
			Expect(engine.Execute(ctx,
				"INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES ('7', 'jafari', 'h', 'J', datetime('now'))")).To(Succeed())
			Expect(subj.Persist(ctx)).To(Succeed())

			restarted := openEngine(ctx)
			defer restarted.Close()
			again := persistence.NewAdapter(restarted, slot, logger.Discard())

			seeded := false
			Expect(again.Initialize(ctx, persistence.SeederFunc(func(context.Context) error {
				seeded = true
				return nil
			}))).To(Succeed())

			Expect(seeded).To(BeFalse())
			Expect(again.Stats().LoadedFromSlot).To(BeTrue())
			Expect(again.Stats().Writes).To(BeZero())
			Expect(countUsers(ctx, restarted)).To(Equal(1))
		})

		It("refuses to start from a corrupt slot and does not overwrite it", func() {
			Expect(slot.Store(ctx, []byte("garbage"))).To(Succeed())

			err := subj.Initialize(ctx)
			Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())

			stored, _ := slot.Load(ctx)
			Expect(string(stored)).To(Equal("garbage"))
		})

		It("reports an unreadable slot", func() {
			broken := persistence.NewAdapter(engine, failingSlot{slot}, logger.Discard())
			err := broken.Initialize(ctx)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeSlotUnavailable))
		})
	})

	Describe("ImportFromFile", func() {
		BeforeEach(func() {
			Expect(subj.Initialize(ctx)).To(Succeed())
			Expect(engine.Execute(ctx,
				"INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES ('1', 'admin', 'h', 'Admin', datetime('now'))")).To(Succeed())
		})

		It("restores a backup and persists it", func() {
			backup, err := subj.ExportToFile(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(engine.Execute(ctx, "DELETE FROM users")).To(Succeed())
			Expect(countUsers(ctx, engine)).To(BeZero())

			before := subj.Stats().Writes
			Expect(subj.ImportFromFile(ctx, backup)).To(Succeed())
			Expect(countUsers(ctx, engine)).To(Equal(1))
			Expect(subj.Stats().Writes).To(Equal(before + 1))
		})

		It("leaves a restored backup live when the slot cannot take it", func() {
			backup, err := subj.ExportToFile(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(engine.Execute(ctx, "DELETE FROM users")).To(Succeed())

			flaky := &flakySlot{Slot: slot, down: true}
			restorer := persistence.NewAdapter(engine, flaky, logger.Discard())

			err = restorer.ImportFromFile(ctx, backup)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeSlotUnavailable))
			Expect(countUsers(ctx, engine)).To(Equal(1))

			flaky.down = false
			Expect(restorer.Persist(ctx)).To(Succeed())
			stored, err := slot.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored).NotTo(BeEmpty())
		})

		It("rejects malformed bytes and keeps the loaded state", func() {
			before := subj.Stats().Writes
			err := subj.ImportFromFile(ctx, []byte("SQLite format 3\x00 but not really"))
			Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())
			Expect(countUsers(ctx, engine)).To(Equal(1))
			Expect(subj.Stats().Writes).To(Equal(before))
		})
	})

	Describe("Close", func() {
		It("flushes before releasing the engine", func() {
			Expect(subj.Initialize(ctx)).To(Succeed())
			Expect(engine.Execute(ctx,
				"INSERT INTO users (id, username, password_hash, full_name, created_at) VALUES ('1', 'admin', 'h', 'Admin', datetime('now'))")).To(Succeed())

			Expect(subj.Close(ctx)).To(Succeed())

			fresh := openEngine(ctx)
			defer fresh.Close()
			stored, err := slot.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.ImportSnapshot(ctx, stored)).To(Succeed())
			Expect(countUsers(ctx, fresh)).To(Equal(1))
		})
	})
})

var _ = Describe("Slots", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	shared := func(newSlot func() persistence.Slot) {
		It("reports empty before the first store", func() {
			_, err := newSlot().Load(ctx)
			Expect(err).To(MatchError(persistence.ErrSlotEmpty))
		})

		It("returns exactly what was stored last", func() {
			s := newSlot()
			Expect(s.Store(ctx, []byte("first"))).To(Succeed())
			Expect(s.Store(ctx, []byte("second"))).To(Succeed())

			b, err := s.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal([]byte("second")))
		})
	}

	Context("memory", func() {
		shared(func() persistence.Slot { return persistence.NewMemorySlot("db") })
	})

	Context("file", func() {
		var fsys afero.Fs

		BeforeEach(func() {
			fsys = afero.NewMemMapFs()
		})

		shared(func() persistence.Slot { return persistence.NewFileSlot(fsys, "data/herasat_db.sqlite") })

		It("leaves no temp file behind", func() {
			s := persistence.NewFileSlot(fsys, "data/herasat_db.sqlite")
			Expect(s.Store(ctx, []byte("snapshot"))).To(Succeed())

			exists, err := afero.Exists(fsys, "data/herasat_db.sqlite.tmp")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Context("redis", func() {
		var client *redis.Client

		BeforeEach(func() {
			mr := miniredis.RunT(GinkgoT())
			client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
			DeferCleanup(client.Close)
		})

		shared(func() persistence.Slot { return persistence.NewRedisSlot(client, "herasat_db") })
	})

	It("builds the configured slot", func() {
		cfg := internal.DefaultConfig().Storage
		cfg.Slot = internal.SlotKindMemory
		s, err := persistence.NewSlot(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name()).To(Equal("memory:herasat_db"))

		cfg.Slot = "floppy"
		_, err = persistence.NewSlot(cfg)
		Expect(err).To(HaveOccurred())
	})
})
