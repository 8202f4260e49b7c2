package incident

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	errors "github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/core/common/clock"
	"github.com/frahmantamala/herasat/internal/core/common/validation"
	incidentDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/incident"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*incidentDatamodel.Incident, error)
	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, id string) (*incidentDatamodel.Incident, error)
	Create(ctx context.Context, i *incidentDatamodel.Incident) error
	Update(ctx context.Context, i *incidentDatamodel.Incident) error
	Delete(ctx context.Context, id string) (bool, error)
}

// PersonLookup resolves involved people for Detail.
type PersonLookup interface {
	GetMany(ctx context.Context, ids []string) ([]*person.Person, error)
}

type Service struct {
	repo      RepositoryAPI
	people    PersonLookup
	persister persistence.Persister
	publisher events.Publisher
	logger    *slog.Logger
	now       clock.Func
}

func NewService(repo RepositoryAPI, people PersonLookup, persister persistence.Persister, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		people:    people,
		persister: persister,
		publisher: publisher,
		logger:    logger,
		now:       clock.UTC,
	}
}

func (s *Service) WithClock(now clock.Func) *Service {
	s.now = clock.Or(now)
	return s
}

func (s *Service) List(ctx context.Context) ([]*Incident, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list incidents", "error", err)
		return nil, err
	}
	out := make([]*Incident, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Incident, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	i, err := s.GetByID(ctx, id)
	if err != nil || i == nil {
		return nil, err
	}
	people, err := s.people.GetMany(ctx, i.InvolvedPersons)
	if err != nil {
		return nil, err
	}
	return &Detail{Incident: *i, People: people}, nil
}

func (s *Service) Create(ctx context.Context, in NewIncident, actorID string) (string, error) {
	if in.Status == "" {
		in.Status = StatusActive
	}
	if in.Importance == "" {
		in.Importance = ImportanceMedium
	}
	v := validation.NewValidator()
	v.Field("title", in.Title).Required().MaxLength(500)
	v.Field("date", in.Date).Required()
	v.Field("description", in.Description).Required()
	v.Field("importance", string(in.Importance)).OneOf(Importances, errors.ErrCodeInvalidImportance)
	v.Field("status", string(in.Status)).OneOf(Statuses, errors.ErrCodeInvalidStatus)
	if err := v.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	i := &Incident{
		ID:              uuid.NewString(),
		Title:           in.Title,
		Date:            in.Date,
		Importance:      in.Importance,
		Status:          in.Status,
		Description:     in.Description,
		FollowUp:        in.FollowUp,
		RecordsAndNotes: in.RecordsAndNotes,
		SecurityOpinion: in.SecurityOpinion,
		InvolvedPersons: in.InvolvedPersons,
		Updates:         []Update{},
		CreatedBy:       actorID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, ToDataModel(i)); err != nil {
		s.logger.Error("failed to create incident", "error", err)
		return "", err
	}
	if i.IsCritical() {
		s.logger.Warn("critical incident reported", "incident_id", i.ID, "title", i.Title)
	}

	s.record(ctx, events.RecordCreated(actorID, events.EntityIncident, i.ID, "Reported incident "+i.Title))
	if err := s.persister.Persist(ctx); err != nil {
		return "", err
	}
	return i.ID, nil
}

// Update merges patch over the stored incident. A missing id is a no-op.
func (s *Service) Update(ctx context.Context, id string, patch Patch, actorID string) error {
	v := validation.NewValidator()
	if patch.Title != nil {
		v.Field("title", *patch.Title).Required().MaxLength(500)
	}
	if patch.Importance != nil {
		v.Field("importance", string(*patch.Importance)).Required().OneOf(Importances, errors.ErrCodeInvalidImportance)
	}
	if patch.Status != nil {
		v.Field("status", string(*patch.Status)).Required().OneOf(Statuses, errors.ErrCodeInvalidStatus)
	}
	if err := v.Validate(); err != nil {
		return err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load incident: %w", err)
	}
	if row == nil {
		s.logger.Debug("update of missing incident ignored", "incident_id", id)
		return nil
	}

	patch.applyTo(row)
	row.UpdatedAt = clock.After(row.UpdatedAt, s.now())
	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update incident", "error", err, "incident_id", id)
		return err
	}

	s.record(ctx, events.RecordUpdated(actorID, events.EntityIncident, id, "Updated incident "+row.Title))
	return s.persister.Persist(ctx)
}

// AddUpdate appends a follow-up note. The actor is mandatory and the append
// is always audited. It returns false when the incident does not exist.
func (s *Service) AddUpdate(ctx context.Context, incidentID, text, actorID string) (bool, error) {
	if actorID == "" {
		return false, errors.ErrActorRequired
	}
	text = strings.TrimSpace(text)
	v := validation.NewValidator()
	v.Field("text", text).Required()
	if err := v.Validate(); err != nil {
		return false, err
	}

	row, err := s.repo.GetByID(ctx, incidentID)
	if err != nil {
		return false, fmt.Errorf("failed to load incident: %w", err)
	}
	if row == nil {
		return false, nil
	}

	stamp := clock.After(row.UpdatedAt, s.now())
	update := incidentDatamodel.Update{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedBy: actorID,
		CreatedAt: stamp,
	}
	row.Updates = datatypes.NewJSONSlice(append([]incidentDatamodel.Update(row.Updates), update))
	row.UpdatedAt = stamp

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to append incident update", "error", err, "incident_id", incidentID)
		return false, err
	}

	s.record(ctx, events.NewRecordEvent(events.EventTypeIncidentUpdateAdd, actorID, events.EntityIncident, incidentID, text))
	if err := s.persister.Persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Service) Delete(ctx context.Context, id, actorID string) (bool, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load incident: %w", err)
	}
	if row == nil {
		return false, nil
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete incident", "error", err, "incident_id", id)
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.record(ctx, events.RecordDeleted(actorID, events.EntityIncident, id, "Deleted incident "+row.Title))
	if err := s.persister.Persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

func (s *Service) record(ctx context.Context, ev *events.RecordEvent) {
	if ev.ActorID == "" || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, ev); err != nil {
		s.logger.Warn("audit publish failed", "error", err, "action", ev.Action, "entity_id", ev.EntityID)
	}
}
