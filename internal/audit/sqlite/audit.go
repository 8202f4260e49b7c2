package sqlite

import (
	"context"

	"github.com/frahmantamala/herasat/internal/audit"
	auditDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/audit"
	"github.com/frahmantamala/herasat/internal/storage"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

// Append allocates seq inside the insert so concurrent callers on the one
// connection still get distinct, increasing values.
func (r *AuditRepository) Append(ctx context.Context, e *auditDatamodel.Entry) error {
	err := r.db.WithContext(ctx).Exec(
		`INSERT INTO audit_log (id, seq, user_id, action, entity_type, entity_id, details, timestamp)
		 SELECT ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ? FROM audit_log`,
		e.ID, e.UserID, e.Action, e.EntityType, e.EntityID, e.Details, e.Timestamp,
	).Error
	return storage.Classify(err)
}

func (r *AuditRepository) List(ctx context.Context, limit int) ([]*auditDatamodel.Entry, error) {
	var entries []*auditDatamodel.Entry
	err := r.db.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*auditDatamodel.Entry, error) {
	var entries []*auditDatamodel.Entry
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("seq ASC").
		Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*auditDatamodel.Entry, error) {
	var entries []*auditDatamodel.Entry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("seq DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func (r *AuditRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&auditDatamodel.Entry{}).Count(&n).Error
	return n, err
}
