package casefile

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/attachment"
	"github.com/frahmantamala/herasat/internal/core/common/clock"
	"github.com/frahmantamala/herasat/internal/core/common/validation"
	casefileDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/casefile"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*casefileDatamodel.Case, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, id string) (*casefileDatamodel.Case, error)
	Create(ctx context.Context, c *casefileDatamodel.Case) error
	Update(ctx context.Context, c *casefileDatamodel.Case) error
	Delete(ctx context.Context, id string) (bool, error)
}

// PersonLookup resolves related people for Detail.
type PersonLookup interface {
	GetMany(ctx context.Context, ids []string) ([]*person.Person, error)
}

// AttachmentLookup resolves attached files for Detail.
type AttachmentLookup interface {
	GetMany(ctx context.Context, ids []string) ([]*attachment.Attachment, error)
}

type Service struct {
	repo        RepositoryAPI
	people      PersonLookup
	attachments AttachmentLookup
	persister   persistence.Persister
	publisher   events.Publisher
	logger      *slog.Logger
	now         clock.Func
}

func NewService(repo RepositoryAPI, people PersonLookup, attachments AttachmentLookup, persister persistence.Persister, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		people:      people,
		attachments: attachments,
		persister:   persister,
		publisher:   publisher,
		logger:      logger,
		now:         clock.UTC,
	}
}

func (s *Service) WithClock(now clock.Func) *Service {
	s.now = clock.Or(now)
	return s
}

func (s *Service) List(ctx context.Context) ([]*Case, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list cases", "error", err)
		return nil, err
	}
	out := make([]*Case, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out, nil
}

// CountByStatus counts cases per status, folding legacy labels into their
// current code.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to count cases", "error", err)
		return nil, err
	}
	out := make(map[Status]int64, len(counts))
	for st, n := range counts {
		out[NormalizeStatus(st)] += n
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Case, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row), nil
}

// Detail returns the case with related people and files resolved. Deleted
// people and files are skipped.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}

	people, err := s.people.GetMany(ctx, c.RelatedPersons)
	if err != nil {
		return nil, err
	}
	files, err := s.attachments.GetMany(ctx, c.Attachments)
	if err != nil {
		return nil, err
	}
	if missing := len(c.RelatedPersons) - len(people); missing > 0 {
		s.logger.Debug("case references missing people", "case_id", id, "missing", missing)
	}
	return &Detail{Case: *c, People: people, Files: files}, nil
}

func (s *Service) Create(ctx context.Context, in NewCase, actorID string) (string, error) {
	if in.Status == "" {
		in.Status = StatusOpen
	}
	if err := validateCase(in.Title, in.Status); err != nil {
		return "", err
	}

	now := s.now()
	c := &Case{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Status:         in.Status,
		Summary:        in.Summary,
		RelatedPersons: in.RelatedPersons,
		Attachments:    in.Attachments,
		CreatedBy:      actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, ToDataModel(c)); err != nil {
		s.logger.Error("failed to create case", "error", err)
		return "", err
	}

	s.record(ctx, events.RecordCreated(actorID, events.EntityCase, c.ID, "Opened case "+c.Title))
	if err := s.persister.Persist(ctx); err != nil {
		return "", err
	}
	return c.ID, nil
}

// Update merges patch over the stored case. A missing id is a no-op.
func (s *Service) Update(ctx context.Context, id string, patch Patch, actorID string) error {
	if err := patch.validate(); err != nil {
		return err
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load case: %w", err)
	}
	if row == nil {
		s.logger.Debug("update of missing case ignored", "case_id", id)
		return nil
	}

	patch.applyTo(row)
	row.UpdatedAt = clock.After(row.UpdatedAt, s.now())

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update case", "error", err, "case_id", id)
		return err
	}

	s.record(ctx, events.RecordUpdated(actorID, events.EntityCase, id, "Updated case "+row.Title))
	return s.persister.Persist(ctx)
}

func (s *Service) Delete(ctx context.Context, id, actorID string) (bool, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load case: %w", err)
	}
	if row == nil {
		return false, nil
	}

	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete case", "error", err, "case_id", id)
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.record(ctx, events.RecordDeleted(actorID, events.EntityCase, id, "Deleted case "+row.Title))
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

func (p Patch) validate() error {
	v := validation.NewValidator()
	if p.Title != nil {
		v.Field("title", *p.Title).Required().MaxLength(500)
	}
	if p.Status != nil {
		v.Field("status", string(*p.Status)).Required().OneOf(Statuses, errors.ErrCodeInvalidStatus)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func validateCase(title string, status Status) error {
	v := validation.NewValidator()
	v.Field("title", title).Required().MaxLength(500)
	v.Field("status", string(status)).Required().OneOf(Statuses, errors.ErrCodeInvalidStatus)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
