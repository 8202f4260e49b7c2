package attachment

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/herasat/internal/core/common/clock"
	"github.com/frahmantamala/herasat/internal/core/common/validation"
	attachmentDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/attachment"
	"github.com/frahmantamala/herasat/internal/core/events"
	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	List(ctx context.Context) ([]*attachmentDatamodel.Attachment, error)
	// GetByID returns nil, nil when no row matches.
	GetByID(ctx context.Context, id string) (*attachmentDatamodel.Attachment, error)
	GetByIDs(ctx context.Context, ids []string) ([]*attachmentDatamodel.Attachment, error)
	Create(ctx context.Context, a *attachmentDatamodel.Attachment) error
	Update(ctx context.Context, a *attachmentDatamodel.Attachment) error
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

func (s *Service) List(ctx context.Context) ([]*Attachment, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list attachments", "error", err)
		return nil, err
	}
	return s.decodeAll(rows), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*Attachment, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return FromDataModel(row)
}

// GetMany resolves ids in order, skipping ids that no longer exist.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]*Attachment, error) {
	if len(ids) == 0 {
		return []*Attachment{}, nil
	}
	rows, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve attachments: %w", err)
	}
	byID := make(map[string]*attachmentDatamodel.Attachment, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]*Attachment, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		a, err := FromDataModel(r)
		if err != nil {
			s.logger.Warn("skipping unreadable attachment", "attachment_id", id, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, in NewAttachment, actorID string) (string, error) {
	v := validation.NewValidator()
	v.Field("fileName", in.FileName).Required().MaxLength(255)
	v.Field("data", in.Data).Required()
	if err := v.Validate(); err != nil {
		return "", err
	}

	fileType := in.FileType
	if fileType == "" {
		fileType = http.DetectContentType(in.Data)
	}

	a := &Attachment{
		ID:         uuid.NewString(),
		FileName:   in.FileName,
		FileType:   fileType,
		Data:       in.Data,
		UploadedAt: s.now(),
	}
	if err := s.repo.Create(ctx, ToDataModel(a)); err != nil {
		s.logger.Error("failed to store attachment", "error", err, "file_name", in.FileName)
		return "", err
	}

	s.record(ctx, events.RecordCreated(actorID, events.EntityAttachment, a.ID, "Uploaded "+a.FileName))
	if err := s.persister.Persist(ctx); err != nil {
		return "", err
	}
	s.logger.Info("attachment stored", "attachment_id", a.ID, "bytes", len(in.Data))
	return a.ID, nil
}

// Update renames or retypes the attachment. A missing id is a no-op.
func (s *Service) Update(ctx context.Context, id string, patch Patch, actorID string) error {
	if patch.FileName != nil {
		v := validation.NewValidator()
		v.Field("fileName", *patch.FileName).Required().MaxLength(255)
		if err := v.Validate(); err != nil {
			return err
		}
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load attachment: %w", err)
	}
	if row == nil {
		return nil
	}
	if patch.FileName != nil {
		row.FileName = *patch.FileName
	}
	if patch.FileType != nil {
		row.FileType = *patch.FileType
	}
	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.Error("failed to update attachment", "error", err, "attachment_id", id)
		return err
	}

	s.record(ctx, events.RecordUpdated(actorID, events.EntityAttachment, id, "Updated "+row.FileName))
	return s.persister.Persist(ctx)
}

// Delete removes the attachment. People and cases that reference it keep the
// id; readers skip it.
func (s *Service) Delete(ctx context.Context, id, actorID string) (bool, error) {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete attachment", "error", err, "attachment_id", id)
		return false, err
	}
	if !removed {
		return false, nil
	}

	s.record(ctx, events.RecordDeleted(actorID, events.EntityAttachment, id, ""))
	if err := s.persister.Persist(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// decodeAll skips rows whose payload cannot be decoded.
func (s *Service) decodeAll(rows []*attachmentDatamodel.Attachment) []*Attachment {
	out := make([]*Attachment, 0, len(rows))
	for _, r := range rows {
		a, err := FromDataModel(r)
		if err != nil {
			s.logger.Warn("skipping unreadable attachment", "attachment_id", r.ID, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Service) record(ctx context.Context, ev *events.RecordEvent) {
	if ev.ActorID == "" || s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSync(ctx, ev); err != nil {
		s.logger.Warn("audit publish failed", "error", err, "action", ev.Action, "entity_id", ev.EntityID)
	}
}
