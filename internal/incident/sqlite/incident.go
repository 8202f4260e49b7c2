package sqlite

import (
	"context"
	"errors"

	incidentDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/incident"
	"github.com/frahmantamala/herasat/internal/incident"
	"github.com/frahmantamala/herasat/internal/storage"
	"gorm.io/gorm"
)

type IncidentRepository struct {
	db *gorm.DB
}

func NewIncidentRepository(db *gorm.DB) incident.RepositoryAPI {
	return &IncidentRepository{db: db}
}

func (r *IncidentRepository) List(ctx context.Context) ([]*incidentDatamodel.Incident, error) {
	var out []*incidentDatamodel.Incident
	err := r.db.WithContext(ctx).Order("date DESC, created_at DESC").Find(&out).Error
	return out, err
}

func (r *IncidentRepository) GetByID(ctx context.Context, id string) (*incidentDatamodel.Incident, error) {
	var i incidentDatamodel.Incident
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&i).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &i, nil
}

func (r *IncidentRepository) Create(ctx context.Context, i *incidentDatamodel.Incident) error {
	return storage.Classify(r.db.WithContext(ctx).Create(i).Error)
}

func (r *IncidentRepository) Update(ctx context.Context, i *incidentDatamodel.Incident) error {
	return storage.Classify(r.db.WithContext(ctx).Select("*").Where("id = ?", i.ID).Updates(i).Error)
}

func (r *IncidentRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&incidentDatamodel.Incident{})
	return res.RowsAffected > 0, res.Error
}
