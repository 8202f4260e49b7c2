package audit

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/herasat/internal/core/common/clock"
	auditDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/audit"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/google/uuid"
)

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 500

type RepositoryAPI interface {
	// Append inserts e with the next sequence number.
	Append(ctx context.Context, e *auditDatamodel.Entry) error
	List(ctx context.Context, limit int) ([]*auditDatamodel.Entry, error)
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*auditDatamodel.Entry, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*auditDatamodel.Entry, error)
	Count(ctx context.Context) (int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    clock.Func
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    clock.UTC,
	}
}

// WithClock replaces the clock used for entries appended directly.
func (s *Service) WithClock(now clock.Func) *Service {
	s.now = clock.Or(now)
	return s
}

// Append records one audit entry. Failures are logged and swallowed; the
// mutation that triggered the entry has already happened and stands.
func (s *Service) Append(ctx context.Context, actorID, action, entityType, entityID, details string) {
	s.append(ctx, &Entry{
		UserID:     actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		Timestamp:  s.now(),
	})
}

func (s *Service) append(ctx context.Context, e *Entry) {
	e.ID = uuid.NewString()
	if err := s.repo.Append(ctx, ToDataModel(e)); err != nil {
		s.logger.Error("failed to append audit entry",
			"error", err,
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID)
		return
	}
	s.logger.Debug("audit entry appended",
		"action", e.Action,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID)
}

// HandleEvent turns a record event into an audit entry. It never fails.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.RecordEvent)
	if !ok {
		s.logger.Warn("ignoring unexpected event", "event_type", event.EventType())
		return nil
	}
	s.append(ctx, &Entry{
		UserID:     ev.ActorID,
		Action:     ev.Action,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Details:    ev.Details,
		Timestamp:  ev.OccurredAt().UTC(),
	})
	return nil
}

// Subscribe attaches the service to every record event on bus.
func (s *Service) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll(events.RecordEventTypes, s.HandleEvent)
}

// List returns the newest entries first.
func (s *Service) List(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.repo.List(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list audit log", "error", err)
		return nil, err
	}
	return fromDataModels(rows), nil
}

// ListByEntity returns the history of one record, oldest first.
func (s *Service) ListByEntity(ctx context.Context, entityType, entityID string) ([]*Entry, error) {
	rows, err := s.repo.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		s.logger.Error("failed to list audit log for entity", "error", err, "entity_type", entityType, "entity_id", entityID)
		return nil, err
	}
	return fromDataModels(rows), nil
}

// ListByUser returns what one user did, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list audit log for user", "error", err, "user_id", userID)
		return nil, err
	}
	return fromDataModels(rows), nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}
