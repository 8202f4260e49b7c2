package sqlite

import (
	"context"
	"errors"

	"github.com/frahmantamala/herasat/internal/casefile"
	casefileDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/casefile"
	"github.com/frahmantamala/herasat/internal/storage"
	"gorm.io/gorm"
)

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) casefile.RepositoryAPI {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) List(ctx context.Context) ([]*casefileDatamodel.Case, error) {
	var cases []*casefileDatamodel.Case
	err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&cases).Error
	return cases, err
}

func (r *CaseRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := r.db.WithContext(ctx).Model(&casefileDatamodel.Case{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}

func (r *CaseRepository) GetByID(ctx context.Context, id string) (*casefileDatamodel.Case, error) {
	var c casefileDatamodel.Case
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func (r *CaseRepository) Create(ctx context.Context, c *casefileDatamodel.Case) error {
	return storage.Classify(r.db.WithContext(ctx).Create(c).Error)
}

func (r *CaseRepository) Update(ctx context.Context, c *casefileDatamodel.Case) error {
	return storage.Classify(r.db.WithContext(ctx).Select("*").Where("id = ?", c.ID).Updates(c).Error)
}

func (r *CaseRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&casefileDatamodel.Case{})
	return res.RowsAffected > 0, res.Error
}
