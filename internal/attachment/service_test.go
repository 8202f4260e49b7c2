package attachment_test

import (
	"context"
	"testing"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/attachment"
	attachmentSqlite "github.com/frahmantamala/herasat/internal/attachment/sqlite"
	"github.com/frahmantamala/herasat/internal/audit"
	auditSqlite "github.com/frahmantamala/herasat/internal/audit/sqlite"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/internal/storage/storagetest"
	"github.com/frahmantamala/herasat/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAttachmentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Attachment Service Suite")
}

var _ = Describe("Attachment Service", func() {
	var (
		ctx       context.Context
		engine    *storage.Engine
		service   *attachment.Service
		auditLog  *audit.Service
		persister *storagetest.Persister
		payload   []byte
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine = storagetest.NewEngine()
		lg := logger.Discard()

		bus := events.NewEventBus(lg)
		auditLog = audit.NewService(auditSqlite.NewAuditRepository(engine.DB()), lg)
		auditLog.Subscribe(bus)

		persister = &storagetest.Persister{}
		service = attachment.NewService(attachmentSqlite.NewAttachmentRepository(engine.DB()), persister, bus, lg)
		payload = []byte{0x00, 0x01, 0xfe, 0xff, 'h', 'i'}
	})

	It("stores the payload as base64 text and decodes it back", func() {
		id, err := service.Create(ctx, attachment.NewAttachment{
			FileName: "report.bin", FileType: "application/octet-stream", Data: payload,
		}, "actor-1")
		Expect(err).NotTo(HaveOccurred())

		for row, err := range engine.Query(ctx, "SELECT file_data FROM attachments WHERE id = ?", id) {
			Expect(err).NotTo(HaveOccurred())
			Expect(row["file_data"]).To(Equal("AAH+/2hp"))
		}

		a, err := service.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Data).To(Equal(payload))
		Expect(a.Size).To(Equal(len(payload)))
		Expect(a.FileType).To(Equal("application/octet-stream"))
		Expect(persister.Calls()).To(Equal(1))
	})

	It("sniffs the content type when none is given", func() {
		id, err := service.Create(ctx, attachment.NewAttachment{
			FileName: "note.txt", Data: []byte("plain words"),
		}, "")
		Expect(err).NotTo(HaveOccurred())

		a, err := service.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.FileType).To(HavePrefix("text/plain"))
	})

	It("reads rows stored as data URLs", func() {
		Expect(engine.Execute(ctx,
			"INSERT INTO attachments (id, file_name, file_type, file_data, uploaded_at) VALUES ('legacy', 'a.png', 'image/png', 'data:image/png;base64,aGk=', datetime('now'))")).To(Succeed())

		a, err := service.GetByID(ctx, "legacy")
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Data).To(Equal([]byte("hi")))
	})

	It("reports a payload that is not base64", func() {
		Expect(engine.Execute(ctx,
			"INSERT INTO attachments (id, file_name, file_type, file_data, uploaded_at) VALUES ('bad', 'a', 'text/plain', '***', datetime('now'))")).To(Succeed())

		_, err := service.GetByID(ctx, "bad")
		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeCorruptAttachment))

		many, err := service.GetMany(ctx, []string{"bad"})
		Expect(err).NotTo(HaveOccurred())
		Expect(many).To(BeEmpty())
	})

	It("lists readable attachments past an unreadable one", func() {
		id, err := service.Create(ctx, attachment.NewAttachment{FileName: "good", Data: payload}, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(engine.Execute(ctx,
			"INSERT INTO attachments (id, file_name, file_type, file_data, uploaded_at) VALUES ('bad', 'a', 'text/plain', '***', datetime('now'))")).To(Succeed())

		all, err := service.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(HaveLen(1))
		Expect(all[0].ID).To(Equal(id))
	})

	It("rejects empty uploads", func() {
		_, err := service.Create(ctx, attachment.NewAttachment{FileName: "empty"}, "")
		Expect(err).To(HaveOccurred())
		Expect(persister.Calls()).To(BeZero())
	})

	It("renames without touching the payload", func() {
		id, err := service.Create(ctx, attachment.NewAttachment{FileName: "a", Data: payload}, "")
		Expect(err).NotTo(HaveOccurred())

		name := "b"
		Expect(service.Update(ctx, id, attachment.Patch{FileName: &name}, "actor-1")).To(Succeed())
		Expect(service.Update(ctx, "missing", attachment.Patch{FileName: &name}, "actor-1")).To(Succeed())

		a, err := service.GetByID(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(a.FileName).To(Equal("b"))
		Expect(a.Data).To(Equal(payload))

		entries, err := auditLog.ListByEntity(ctx, events.EntityAttachment, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("deletes once", func() {
		id, err := service.Create(ctx, attachment.NewAttachment{FileName: "a", Data: payload}, "")
		Expect(err).NotTo(HaveOccurred())

		removed, err := service.Delete(ctx, id, "actor-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeTrue())

		removed, err = service.Delete(ctx, id, "actor-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(removed).To(BeFalse())
		Expect(persister.Calls()).To(Equal(2))

		all, err := service.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(all).To(BeEmpty())
	})
})
