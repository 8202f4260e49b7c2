package app_test

import (
	"context"
	"time"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/casefile"
	"github.com/frahmantamala/herasat/internal/incident"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var browserSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY, username TEXT UNIQUE NOT NULL, password TEXT NOT NULL,
		fullName TEXT NOT NULL, role TEXT NOT NULL, createdAt TEXT NOT NULL)`,
	`CREATE TABLE people (
		id TEXT PRIMARY KEY, type TEXT NOT NULL, fullName TEXT NOT NULL, nationalId TEXT, passportNo TEXT,
		birthDate TEXT, gender TEXT, religion TEXT, sect TEXT, address TEXT, city TEXT, country TEXT,
		phone TEXT, email TEXT, studentNumber TEXT, faculty TEXT, program TEXT, enrollmentYear TEXT,
		isForeign INTEGER, employeeNumber TEXT, department TEXT, position TEXT, facultyType TEXT,
		rank TEXT, specialization TEXT, notes TEXT, attachments TEXT,
		createdAt TEXT NOT NULL, updatedAt TEXT NOT NULL)`,
	`CREATE TABLE cases (
		id TEXT PRIMARY KEY, title TEXT NOT NULL, status TEXT NOT NULL, summary TEXT,
		relatedPersons TEXT, attachments TEXT, createdBy TEXT,
		createdAt TEXT NOT NULL, updatedAt TEXT NOT NULL)`,
	`CREATE TABLE attachments (
		id TEXT PRIMARY KEY, fileName TEXT NOT NULL, fileType TEXT NOT NULL,
		fileData TEXT NOT NULL, uploadedAt TEXT NOT NULL)`,
	`CREATE TABLE incidents (
		id TEXT PRIMARY KEY, title TEXT NOT NULL, date TEXT NOT NULL, importance TEXT NOT NULL,
		followUp TEXT, description TEXT NOT NULL, recordsAndNotes TEXT, securityOpinion TEXT,
		involvedPersons TEXT, status TEXT NOT NULL, updates TEXT, createdBy TEXT,
		createdAt TEXT NOT NULL, updatedAt TEXT NOT NULL)`,
}

func buildFile(ctx context.Context, stmts ...string) []byte {
	scratch, err := storage.Open(ctx, storage.Options{Logger: logger.Discard()})
	Expect(err).NotTo(HaveOccurred())
	defer scratch.Close()

	for _, stmt := range stmts {
		Expect(scratch.Execute(ctx, stmt)).To(Succeed())
	}
	b, err := scratch.ExportSnapshot(ctx)
	Expect(err).NotTo(HaveOccurred())
	return b
}

var _ = Describe("Backup import", func() {
	var (
		ctx context.Context
		a   *app.App
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		a, err = app.New(ctx, testConfig(), app.Options{
			Slot:   persistence.NewMemorySlot("herasat_db"),
			Logger: logger.Discard(),
		})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close, ctx)
	})

	It("rejects a users table of the wrong shape and keeps the live accounts", func() {
		file := buildFile(ctx,
			browserSchema[0],
			"INSERT INTO users VALUES ('1', 'intruder', 'x', 'X', 'admin', '2023-01-01T00:00:00.000Z')")

		writes := a.Persistence.Stats().Writes
		err := a.Persistence.ImportFromFile(ctx, file)
		Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())
		Expect(a.Persistence.Stats().Writes).To(Equal(writes))

		admin, err := a.Users.Authenticate(ctx, "admin", "admin123")
		Expect(err).NotTo(HaveOccurred())
		Expect(admin).NotTo(BeNil())
	})

	It("rejects a snapshot whose tables lack current columns", func() {
		file := buildFile(ctx,
			"CREATE TABLE users (id TEXT PRIMARY KEY, username TEXT, password_hash TEXT, full_name TEXT, must_change_password INTEGER, created_at DATETIME)",
			"CREATE TABLE people (id TEXT PRIMARY KEY, full_name TEXT)")

		err := a.Persistence.ImportFromFile(ctx, file)
		Expect(internal.IsCorruptSnapshot(err)).To(BeTrue())

		users, err := a.Users.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(users).To(HaveLen(1))
	})

	Describe("a database from the browser edition", func() {
		BeforeEach(func() {
			file := buildFile(ctx, append(append([]string{}, browserSchema...),
				"INSERT INTO users VALUES ('u1', 'admin', 'admin123', 'مدیر سیستم', 'admin', '2023-10-01T08:00:00.000Z')",
				"INSERT INTO users VALUES ('u2', 'jafari', 'secret1', 'Jafari', 'user', '2023-10-01T09:00:00.000Z')",
				`INSERT INTO people (id, type, fullName, facultyType, rank, createdAt, updatedAt)
				 VALUES ('p1', 'faculty', 'Dr. Karimi', 'هیئت علمی', 'Associate', '2023-10-01T08:00:00.000Z', '2023-10-01T08:00:00.000Z')`,
				`INSERT INTO cases VALUES ('c1', 'Gate dispute', 'در حال بررسی', NULL, '["p1"]', NULL, 'u1',
				 '2023-10-02T08:00:00.000Z', '2023-10-02T08:00:00.000Z')`,
				`INSERT INTO attachments VALUES ('f1', 'note.txt', 'text/plain', 'data:text/plain;base64,aGk=', '2023-10-02T08:00:00.000Z')`,
				`INSERT INTO incidents VALUES ('i1', 'Fire alarm', '1402/07/10', 'بحرانی', NULL, 'Alarm in block B', NULL, NULL,
				 '["p1"]', 'فعال', '[{"id":"n1","text":"Fire brigade called","createdBy":"u1","createdAt":"2023-10-02T09:00:00.000Z"}]', 'u1',
				 '2023-10-02T08:30:00.000Z', '2023-10-02T09:00:00.000Z')`,
			)...)
			Expect(a.Persistence.ImportFromFile(ctx, file)).To(Succeed())
		})

		It("keeps every account and forces a new password", func() {
			admin, err := a.Users.Authenticate(ctx, "admin", "admin123")
			Expect(err).NotTo(HaveOccurred())
			Expect(admin).NotTo(BeNil())
			Expect(admin.ID).To(Equal("u1"))
			Expect(admin.IsAdmin()).To(BeTrue())
			Expect(admin.MustChangePassword).To(BeTrue())

			jafari, err := a.Users.Authenticate(ctx, "jafari", "secret1")
			Expect(err).NotTo(HaveOccurred())
			Expect(jafari).NotTo(BeNil())
			Expect(jafari.IsAdmin()).To(BeFalse())
			Expect(jafari.CreatedAt).To(BeTemporally("==", time.Date(2023, 10, 1, 9, 0, 0, 0, time.UTC)))
		})

		It("reads old faculty rows and status labels", func() {
			faculty, err := a.People.ListByType(ctx, person.TypeFacultyHeyat, person.TypeFacultyHaghtadris)
			Expect(err).NotTo(HaveOccurred())
			Expect(faculty).To(HaveLen(1))
			Expect(faculty[0].IsFaculty()).To(BeTrue())
			Expect(faculty[0].Attachments).To(BeEmpty())

			detail, err := a.Cases.Detail(ctx, "c1")
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Status).To(Equal(casefile.StatusInProgress))
			Expect(detail.People).To(HaveLen(1))

			i, err := a.Incidents.GetByID(ctx, "i1")
			Expect(err).NotTo(HaveOccurred())
			Expect(i.Importance).To(Equal(incident.ImportanceCritical))
			Expect(i.Status).To(Equal(incident.StatusActive))
			Expect(i.Updates).To(HaveLen(1))
			Expect(i.Updates[0].Text).To(Equal("Fire brigade called"))

			f, err := a.Attachments.GetByID(ctx, "f1")
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Data).To(Equal([]byte("hi")))
		})

		It("summarizes the imported records", func() {
			summary, err := a.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*summary).To(Equal(app.Summary{Faculty: 1, Cases: 1}))
		})

		It("accepts new writes on the upgraded tables", func() {
			ok, err := a.Incidents.AddUpdate(ctx, "i1", "Resolved", "u1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			trail, err := a.Audit.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(trail).To(HaveLen(1))
		})
	})
})
