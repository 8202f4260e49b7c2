package sqlite

import (
	"context"
	"errors"

	"github.com/frahmantamala/herasat/internal/attachment"
	attachmentDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/attachment"
	"github.com/frahmantamala/herasat/internal/storage"
	"gorm.io/gorm"
)

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) attachment.RepositoryAPI {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) List(ctx context.Context) ([]*attachmentDatamodel.Attachment, error) {
	var out []*attachmentDatamodel.Attachment
	err := r.db.WithContext(ctx).Order("uploaded_at DESC").Find(&out).Error
	return out, err
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*attachmentDatamodel.Attachment, error) {
	var a attachmentDatamodel.Attachment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AttachmentRepository) GetByIDs(ctx context.Context, ids []string) ([]*attachmentDatamodel.Attachment, error) {
	var out []*attachmentDatamodel.Attachment
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *AttachmentRepository) Create(ctx context.Context, a *attachmentDatamodel.Attachment) error {
	return storage.Classify(r.db.WithContext(ctx).Create(a).Error)
}

func (r *AttachmentRepository) Update(ctx context.Context, a *attachmentDatamodel.Attachment) error {
	err := r.db.WithContext(ctx).Model(&attachmentDatamodel.Attachment{}).
		Where("id = ?", a.ID).
		Updates(map[string]interface{}{
			"file_name": a.FileName,
			"file_type": a.FileType,
		}).Error
	return storage.Classify(err)
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&attachmentDatamodel.Attachment{})
	return res.RowsAffected > 0, res.Error
}
