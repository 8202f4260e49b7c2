package rest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/app"
	"github.com/frahmantamala/herasat/internal/auth"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/frahmantamala/herasat/internal/transport/rest"
	"github.com/frahmantamala/herasat/internal/user"
	"github.com/frahmantamala/herasat/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestRest(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "REST Suite")
}

var _ = Describe("Router", func() {
	var (
		ctx    context.Context
		a      *app.App
		server *httptest.Server
	)

	login := func(username, password string) string {
		body, _ := json.Marshal(auth.LoginDTO{Username: username, Password: password})
		resp, err := http.Post(server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var tokens auth.AuthTokens
		Expect(json.NewDecoder(resp.Body).Decode(&tokens)).To(Succeed())
		return tokens.AccessToken
	}

	do := func(method, path, token string, body []byte) *http.Response {
		req, err := http.NewRequest(method, server.URL+path, bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	BeforeEach(func() {
		ctx = context.Background()
		cfg := internal.DefaultConfig()
		cfg.Storage.Slot = internal.SlotKindMemory
		cfg.Security.BCryptCost = bcrypt.MinCost

		lg := logger.Discard()
		var err error
		a, err = app.New(ctx, cfg, app.Options{Slot: persistence.NewMemorySlot("rest"), Logger: lg})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close, ctx)

		tokens := auth.NewJWTTokenGenerator("rest-secret", time.Minute)
		authHandler := auth.NewHandler(auth.NewService(a.Users, tokens, lg), lg)

		router := chi.NewRouter()
		rest.RegisterAllRoutes(router, a, authHandler, lg)
		server = httptest.NewServer(router)
		DeferCleanup(server.Close)
	})

	It("answers health and ping without a token", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "", nil).StatusCode).To(Equal(http.StatusOK))

		resp := do(http.MethodGet, "/api/v1/health", "", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var health rest.HealthResponse
		Expect(json.NewDecoder(resp.Body).Decode(&health)).To(Succeed())
		Expect(health.Status).To(Equal(rest.HealthHealthy))
		Expect(health.Components).To(HaveKey("slot"))
	})

	It("rejects bad credentials", func() {
		body, _ := json.Marshal(auth.LoginDTO{Username: "admin", Password: "wrong"})
		resp := do(http.MethodPost, "/api/v1/auth/login", "", body)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("requires a token for backups", func() {
		Expect(do(http.MethodGet, "/api/v1/backup", "", nil).StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("forbids backups to non-admin users", func() {
		_, err := a.Users.Create(ctx, user.CreateUserDTO{Username: "guard", Password: "secret1", FullName: "Guard"}, "")
		Expect(err).NotTo(HaveOccurred())

		token := login("guard", "secret1")
		Expect(do(http.MethodGet, "/api/v1/backup", token, nil).StatusCode).To(Equal(http.StatusForbidden))
	})

	It("downloads a backup and restores it", func() {
		token := login("admin", "admin123")

		_, err := a.People.Create(ctx, person.Person{FullName: "Before Backup", Details: person.StaffDetails{}}, "")
		Expect(err).NotTo(HaveOccurred())

		resp := do(http.MethodGet, "/api/v1/backup", token, nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal(persistence.SnapshotContentType))
		Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring("attachment"))
		backup, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(backup[:15])).To(Equal("SQLite format 3"))

		_, err = a.People.Create(ctx, person.Person{FullName: "After Backup", Details: person.StaffDetails{}}, "")
		Expect(err).NotTo(HaveOccurred())

		restore := do(http.MethodPost, "/api/v1/restore", token, backup)
		Expect(restore.StatusCode).To(Equal(http.StatusOK))

		people, err := a.People.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(people).To(HaveLen(1))
		Expect(people[0].FullName).To(Equal("Before Backup"))
	})

	It("rejects a corrupt upload with 400 and keeps the data", func() {
		token := login("admin", "admin123")
		_, err := a.People.Create(ctx, person.Person{FullName: "Kept", Details: person.StaffDetails{}}, "")
		Expect(err).NotTo(HaveOccurred())

		resp := do(http.MethodPost, "/api/v1/restore", token, []byte("definitely not sqlite"))
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		var body internal.Response
		Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
		Expect(body.Error.Code).To(Equal(internal.ErrCodeCorruptSnapshot))

		people, err := a.People.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(people).To(HaveLen(1))
	})
})
