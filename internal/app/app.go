// Package app assembles the storage engine, the persistence slot and the
// record services into one explicit database handle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/attachment"
	attachmentSqlite "github.com/frahmantamala/herasat/internal/attachment/sqlite"
	"github.com/frahmantamala/herasat/internal/audit"
	auditSqlite "github.com/frahmantamala/herasat/internal/audit/sqlite"
	"github.com/frahmantamala/herasat/internal/casefile"
	casefileSqlite "github.com/frahmantamala/herasat/internal/casefile/sqlite"
	"github.com/frahmantamala/herasat/internal/core/common/clock"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/incident"
	incidentSqlite "github.com/frahmantamala/herasat/internal/incident/sqlite"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/person"
	personSqlite "github.com/frahmantamala/herasat/internal/person/sqlite"
	"github.com/frahmantamala/herasat/internal/search"
	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/internal/user"
	userSqlite "github.com/frahmantamala/herasat/internal/user/sqlite"
	"github.com/frahmantamala/herasat/pkg/logger"
)

// recordTables are cleared by ClearRecords. Users, their roles and the audit
// log survive.
var recordTables = []string{"incidents", "cases", "attachments", "people"}

// Options overrides the pieces New would otherwise build from config.
type Options struct {
	Slot   persistence.Slot
	Logger *slog.Logger
	Clock  clock.Func
}

// App is the database handle. It is created once at startup and passed to
// every consumer; there is no package-level instance.
type App struct {
	Config      *internal.Config
	Engine      *storage.Engine
	Persistence *persistence.Adapter
	Events      *events.EventBus
	Logger      *slog.Logger

	Audit       *audit.Service
	Users       *user.Service
	People      *person.Service
	Attachments *attachment.Service
	Cases       *casefile.Service
	Incidents   *incident.Service
	Search      *search.Service
}

// New opens the engine, loads the configured slot (or creates and seeds a
// fresh database) and wires the services.
func New(ctx context.Context, cfg *internal.Config, opts Options) (*App, error) {
	lg := logger.Or(opts.Logger)
	now := clock.Or(opts.Clock)

	engine, err := storage.Open(ctx, storage.Options{Logger: lg, NowFunc: now})
	if err != nil {
		return nil, err
	}

	slot := opts.Slot
	if slot == nil {
		if slot, err = persistence.NewSlot(cfg.Storage); err != nil {
			_ = engine.Close()
			return nil, err
		}
	}

	a := &App{
		Config:      cfg,
		Engine:      engine,
		Persistence: persistence.NewAdapter(engine, slot, lg),
		Events:      events.NewEventBus(lg),
		Logger:      lg,
	}

	db := engine.DB()
	a.Audit = audit.NewService(auditSqlite.NewAuditRepository(db), lg).WithClock(now)
	a.Audit.Subscribe(a.Events)

	a.Users = user.NewService(userSqlite.NewUserRepository(db), a.Persistence, a.Events, lg).
		WithClock(now).
		WithBCryptCost(cfg.Security.BCryptCost)
	a.People = person.NewService(personSqlite.NewPersonRepository(db), a.Persistence, a.Events, lg).WithClock(now)
	a.Attachments = attachment.NewService(attachmentSqlite.NewAttachmentRepository(db), a.Persistence, a.Events, lg).WithClock(now)
	a.Cases = casefile.NewService(casefileSqlite.NewCaseRepository(db), a.People, a.Attachments, a.Persistence, a.Events, lg).WithClock(now)
	a.Incidents = incident.NewService(incidentSqlite.NewIncidentRepository(db), a.People, a.Persistence, a.Events, lg).WithClock(now)
	a.Search = search.NewService(engine, a.People, a.Cases, a.Incidents, lg)

	if err := a.Persistence.Initialize(ctx, a.Users.EnsureDefaultAdmin(cfg.Security.DefaultAdmin)); err != nil {
		_ = engine.Close()
		return nil, err
	}
	return a, nil
}

// ClearRecords deletes every person, case, incident and attachment, then
// persists. User accounts and the audit log are kept; the clear itself is
// audited when actorID is set.
func (a *App) ClearRecords(ctx context.Context, actorID string) error {
	for _, t := range recordTables {
		if err := a.Engine.Execute(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to clear %s: %w", t, err)
		}
	}
	if actorID != "" {
		a.Audit.Append(ctx, actorID, events.ActionClear, events.EntityRecords, "*",
			"Cleared "+strings.Join(recordTables, ", "))
	}
	a.Logger.Info("records cleared", "actor_id", actorID)
	return a.Persistence.Persist(ctx)
}

// Close flushes the database to the slot and releases the engine.
func (a *App) Close(ctx context.Context) error {
	return a.Persistence.Close(ctx)
}
