package sqlite

import (
	"context"
	"errors"

	personDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/person"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/frahmantamala/herasat/internal/storage"
	"gorm.io/gorm"
)

type PersonRepository struct {
	db *gorm.DB
}

func NewPersonRepository(db *gorm.DB) person.RepositoryAPI {
	return &PersonRepository{db: db}
}

func (r *PersonRepository) List(ctx context.Context) ([]*personDatamodel.Person, error) {
	var people []*personDatamodel.Person
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&people).Error
	return people, err
}

func (r *PersonRepository) ListByType(ctx context.Context, types []string) ([]*personDatamodel.Person, error) {
	var people []*personDatamodel.Person
	err := r.db.WithContext(ctx).Where("type IN ?", types).Order("created_at DESC").Find(&people).Error
	return people, err
}

func (r *PersonRepository) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Type string
		N    int64
	}
	err := r.db.WithContext(ctx).Model(&personDatamodel.Person{}).
		Select("type, count(*) AS n").
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Type] = row.N
	}
	return out, nil
}

func (r *PersonRepository) GetByID(ctx context.Context, id string) (*personDatamodel.Person, error) {
	var p personDatamodel.Person
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PersonRepository) GetByIDs(ctx context.Context, ids []string) ([]*personDatamodel.Person, error) {
	var people []*personDatamodel.Person
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&people).Error
	return people, err
}

func (r *PersonRepository) Create(ctx context.Context, p *personDatamodel.Person) error {
	return storage.Classify(r.db.WithContext(ctx).Create(p).Error)
}

// Update writes every column of p in place.
func (r *PersonRepository) Update(ctx context.Context, p *personDatamodel.Person) error {
	return storage.Classify(r.db.WithContext(ctx).Select("*").Where("id = ?", p.ID).Updates(p).Error)
}

func (r *PersonRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&personDatamodel.Person{})
	return res.RowsAffected > 0, res.Error
}
