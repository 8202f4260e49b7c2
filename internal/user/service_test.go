package user_test

import (
	"context"
	"testing"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/audit"
	auditSqlite "github.com/frahmantamala/herasat/internal/audit/sqlite"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/storage/storagetest"
	"github.com/frahmantamala/herasat/internal/user"
	userSqlite "github.com/frahmantamala/herasat/internal/user/sqlite"
	"github.com/frahmantamala/herasat/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

var _ = Describe("User Service", func() {
	var (
		ctx       context.Context
		service   *user.Service
		auditLog  *audit.Service
		persister *storagetest.Persister
		adminSeed internal.AdminSeed
	)

	BeforeEach(func() {
		ctx = context.Background()
		engine := storagetest.NewEngine()
		lg := logger.Discard()

		bus := events.NewEventBus(lg)
		auditLog = audit.NewService(auditSqlite.NewAuditRepository(engine.DB()), lg)
		auditLog.Subscribe(bus)

		persister = &storagetest.Persister{}
		service = user.NewService(userSqlite.NewUserRepository(engine.DB()), persister, bus, lg).
			WithBCryptCost(bcrypt.MinCost)
		adminSeed = internal.DefaultConfig().Security.DefaultAdmin
	})

	auditCount := func() int64 {
		n, err := auditLog.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		return n
	}

	Describe("EnsureDefaultAdmin", func() {
		It("creates one admin flagged for password rotation", func() {
			Expect(service.EnsureDefaultAdmin(adminSeed).Seed(ctx)).To(Succeed())
			Expect(service.EnsureDefaultAdmin(adminSeed).Seed(ctx)).To(Succeed())

			users, err := service.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(users).To(HaveLen(1))
			Expect(users[0].Username).To(Equal("admin"))
			Expect(users[0].Roles).To(ConsistOf(user.RoleAdmin))
			Expect(users[0].MustChangePassword).To(BeTrue())
			Expect(auditCount()).To(BeZero())
		})
	})

	Describe("Authenticate", func() {
		BeforeEach(func() {
			Expect(service.EnsureDefaultAdmin(adminSeed).Seed(ctx)).To(Succeed())
		})

		It("accepts the seeded credentials and audits the login", func() {
			u, err := service.Authenticate(ctx, "admin", "admin123")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).NotTo(BeNil())
			Expect(u.IsAdmin()).To(BeTrue())

			entries, err := auditLog.ListByUser(ctx, u.ID, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(events.ActionLogin))
			Expect(entries[0].EntityType).To(Equal(events.EntityAuth))
			Expect(entries[0].EntityID).To(Equal(u.ID))
		})

		It("returns nil for a wrong password without auditing", func() {
			u, err := service.Authenticate(ctx, "admin", "wrong")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
			Expect(auditCount()).To(BeZero())
		})

		It("returns nil for an unknown username", func() {
			u, err := service.Authenticate(ctx, "nobody", "admin123")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())
		})

		It("never stores the plaintext password", func() {
			u, err := service.GetByUsername(ctx, "admin")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.PasswordHash).NotTo(Equal("admin123"))
			Expect(bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("admin123"))).To(Succeed())
		})
	})

	Describe("Create", func() {
		dto := user.CreateUserDTO{
			Username: "rezaei",
			Password: "secret1",
			FullName: "Sara Rezaei",
		}

		It("defaults to the user role and audits with the actor", func() {
			id, err := service.Create(ctx, dto, "actor-1")
			Expect(err).NotTo(HaveOccurred())

			u, err := service.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Roles).To(ConsistOf(user.RoleUser))
			Expect(u.CreatedAt).NotTo(BeZero())

			entries, err := auditLog.ListByEntity(ctx, events.EntityUser, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Action).To(Equal(events.ActionCreate))
			Expect(entries[0].UserID).To(Equal("actor-1"))
			Expect(persister.Calls()).To(Equal(1))
		})

		It("rejects a duplicate username and keeps the first user", func() {
			firstID, err := service.Create(ctx, dto, "")
			Expect(err).NotTo(HaveOccurred())

			again := dto
			again.FullName = "Someone Else"
			_, err = service.Create(ctx, again, "")
			Expect(internal.IsConstraintViolation(err)).To(BeTrue())
			Expect(err).To(MatchError(internal.ErrDuplicateUsername))

			u, err := service.GetByUsername(ctx, "rezaei")
			Expect(err).NotTo(HaveOccurred())
			Expect(u.ID).To(Equal(firstID))
			Expect(u.FullName).To(Equal("Sara Rezaei"))
			Expect(persister.Calls()).To(Equal(1))
		})

		It("rejects short passwords and unknown roles", func() {
			short := dto
			short.Password = "12345"
			_, err := service.Create(ctx, short, "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			badRole := dto
			badRole.Roles = []string{"superuser"}
			_, err = service.Create(ctx, badRole, "")
			Expect(err).To(HaveOccurred())
			Expect(persister.Calls()).To(BeZero())
		})
	})

	Describe("Update and ChangePassword", func() {
		var id string

		BeforeEach(func() {
			var err error
			id, err = service.Create(ctx, user.CreateUserDTO{
				Username: "karimi", Password: "secret1", FullName: "Ali Karimi",
			}, "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("replaces the role set", func() {
			name := "Ali R. Karimi"
			Expect(service.Update(ctx, id, user.UpdateUserDTO{
				FullName: &name,
				Roles:    []string{user.RoleAdmin, user.RoleUser},
			}, "actor-1")).To(Succeed())

			u, err := service.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.FullName).To(Equal(name))
			Expect(u.Roles).To(ConsistOf(user.RoleAdmin, user.RoleUser))
		})

		It("ignores a missing id", func() {
			name := "ghost"
			Expect(service.Update(ctx, "missing", user.UpdateUserDTO{FullName: &name}, "actor-1")).To(Succeed())
			Expect(auditCount()).To(BeZero())
		})

		It("changes the password and clears the rotation flag", func() {
			Expect(service.ChangePassword(ctx, id, "newsecret", "actor-1")).To(Succeed())

			u, err := service.Authenticate(ctx, "karimi", "newsecret")
			Expect(err).NotTo(HaveOccurred())
			Expect(u).NotTo(BeNil())
			Expect(u.MustChangePassword).To(BeFalse())

			old, err := service.Authenticate(ctx, "karimi", "secret1")
			Expect(err).NotTo(HaveOccurred())
			Expect(old).To(BeNil())

			entries, err := auditLog.ListByEntity(ctx, events.EntityUser, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries[0].Action).To(Equal(events.ActionUpdatePassword))
		})
	})

	Describe("Delete", func() {
		It("removes the user and its grants", func() {
			id, err := service.Create(ctx, user.CreateUserDTO{
				Username: "moradi", Password: "secret1", FullName: "M", Roles: []string{user.RoleAdmin},
			}, "")
			Expect(err).NotTo(HaveOccurred())

			removed, err := service.Delete(ctx, id, "actor-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			u, err := service.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNil())

			roles, err := service.Roles(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(BeEmpty())
		})

		It("returns false for a missing id without persisting or auditing", func() {
			removed, err := service.Delete(ctx, "missing", "actor-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
			Expect(persister.Calls()).To(BeZero())
			Expect(auditCount()).To(BeZero())
		})

		It("refuses to delete the acting user", func() {
			id, err := service.Create(ctx, user.CreateUserDTO{
				Username: "self", Password: "secret1", FullName: "Self",
			}, "")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Delete(ctx, id, id)
			Expect(err).To(MatchError(internal.ErrSelfDelete))
		})
	})
})
