package person

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/core/common/clock"
	"github.com/frahmantamala/herasat/internal/core/common/validation"
	personDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/person"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*personDatamodel.Person, error)
	ListByType(ctx context.Context, types []string) ([]*personDatamodel.Person, error)
	CountByType(ctx context.Context) (map[string]int64, error)
	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, id string) (*personDatamodel.Person, error)
	GetByIDs(ctx context.Context, ids []string) ([]*personDatamodel.Person, error)
	Create(ctx context.Context, p *personDatamodel.Person) error
	Update(ctx context.Context, p *personDatamodel.Person) error
	Delete(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo      RepositoryAPI
	persister persistence.Persister
	publisher events.Publisher
	logger    *slog.Logger
	now       clock.Func
}

func NewService(repo RepositoryAPI, persister persistence.Persister, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
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

func (s *Service) List(ctx context.Context) ([]*Person, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list people", "error", err)
		return nil, err
	}
	return fromDataModels(rows), nil
}

// ListByType lists people of the given types. Faculty pages pass both
// faculty appointments.
func (s *Service) ListByType(ctx context.Context, types ...Type) ([]*Person, error) {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
		if t == TypeFacultyHeyat {
			names = append(names, string(typeFacultyLegacy))
		}
	}
	rows, err := s.repo.ListByType(ctx, names)
	if err != nil {
		s.logger.Error("failed to list people by type", "error", err, "types", names)
		return nil, err
	}
	return fromDataModels(rows), nil
}

// CountByType counts people per type. Legacy faculty rows count as
// TypeFacultyHeyat, matching ListByType.
func (s *Service) CountByType(ctx context.Context) (map[Type]int64, error) {
	counts, err := s.repo.CountByType(ctx)
	if err != nil {
		s.logger.Error("failed to count people", "error", err)
		return nil, err
	}
	out := make(map[Type]int64, len(counts))
	for t, n := range counts {
		if Type(t) == typeFacultyLegacy {
			t = string(TypeFacultyHeyat)
		}
		out[Type(t)] += n
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Person, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// GetMany resolves ids in the order given and skips ids that no longer
// exist.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]*Person, error) {
	if len(ids) == 0 {
		return []*Person{}, nil
	}
	rows, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve people: %w", err)
	}
	byID := make(map[string]*personDatamodel.Person, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]*Person, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, FromDataModel(r))
		}
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, p Person, actorID string) (string, error) {
	if err := validateNew(&p); err != nil {
		s.logger.Warn("person validation failed", "error", err)
		return "", err
	}

	now := s.now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now

	row := ToDataModel(&p)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create person", "error", err)
		return "", err
	}

	s.record(ctx, events.RecordCreated(actorID, events.EntityPerson, row.ID, fmt.Sprintf("Created %s %s", row.Type, row.FullName)))
	if err := s.persister.Persist(ctx); err != nil {
		return "", err
	}
	return row.ID, nil
}

// Update merges patch over the stored row and writes it back whole. A
// missing id is a no-op.
func (s *Service) Update(ctx context.Context, id string, patch Patch, actorID string) error {
	if patch.FullName != nil {
		if err := validation.ValidateTitle("fullName", *patch.FullName); err != nil {
			return err
		}
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load person: %w", err)
	}
	if row == nil {
		s.logger.Debug("update of missing person ignored", "person_id", id)
		return nil
	}

	patch.applyTo(row)
	row.UpdatedAt = clock.After(row.UpdatedAt, s.now())

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update person", "error", err, "person_id", id)
		return err
	}

	s.record(ctx, events.RecordUpdated(actorID, events.EntityPerson, id, "Updated "+row.FullName))
	return s.persister.Persist(ctx)
}

func (s *Service) Delete(ctx context.Context, id, actorID string) (bool, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load person: %w", err)
	}
	if row == nil {
		return false, nil
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete person", "error", err, "person_id", id)
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.record(ctx, events.RecordDeleted(actorID, events.EntityPerson, id, "Deleted "+row.FullName))
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

func validateNew(p *Person) error {
	if p.Details == nil {
		return errors.NewValidationFieldError("type", "type is required", errors.ErrCodeInvalidPersonType)
	}
	v := validation.NewValidator()
	v.Field("fullName", p.FullName).Required().MaxLength(500)
	v.Field("type", string(p.Type())).Required().OneOf(Types, errors.ErrCodeInvalidPersonType)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func fromDataModels(rows []*personDatamodel.Person) []*Person {
	out := make([]*Person, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}
