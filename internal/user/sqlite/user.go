package sqlite

import (
	"context"
	"errors"

	userDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/user"
	"github.com/frahmantamala/herasat/internal/storage"
	"github.com/frahmantamala/herasat/internal/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

func (r *UserRepository) List(ctx context.Context) ([]*userDatamodel.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).Order("created_at ASC, username ASC").Find(&users).Error
	return users, err
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Count(&n).Error
	return n, err
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *UserRepository) first(ctx context.Context, query string, args ...interface{}) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where(query, args...).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User, roles []*userDatamodel.UserRole) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if len(roles) > 0 {
			if err := tx.Create(&roles).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return storage.Classify(err)
}

func (r *UserRepository) Update(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"full_name":            u.FullName,
			"password_hash":        u.PasswordHash,
			"must_change_password": u.MustChangePassword,
		}).Error
	return storage.Classify(err)
}

func (r *UserRepository) ReplaceRoles(ctx context.Context, userID string, roles []*userDatamodel.UserRole) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		if len(roles) > 0 {
			return tx.Create(&roles).Error
		}
		return nil
	})
	return storage.Classify(err)
}

func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&userDatamodel.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userDatamodel.User{})
		removed = res.RowsAffected
		return res.Error
	})
	return removed > 0, err
}

func (r *UserRepository) Roles(ctx context.Context, userID string) ([]string, error) {
	roles := []string{}
	err := r.db.WithContext(ctx).Model(&userDatamodel.UserRole{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error
	return roles, err
}

func (r *UserRepository) RolesByUser(ctx context.Context) (map[string][]string, error) {
	var grants []*userDatamodel.UserRole
	if err := r.db.WithContext(ctx).Order("role ASC").Find(&grants).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]string)
	for _, g := range grants {
		out[g.UserID] = append(out[g.UserID], g.Role)
	}
	return out, nil
}
