package user

import (
	errors "github.com/frahmantamala/herasat/internal"
	"github.com/frahmantamala/herasat/internal/core/common/validation"
)

type CreateUserDTO struct {
	Username           string   `json:"username"`
	Password           string   `json:"password"`
	FullName           string   `json:"fullName"`
	Roles              []string `json:"roles"`
	MustChangePassword bool     `json:"mustChangePassword"`
}

func (d CreateUserDTO) Validate() error {
	if err := validation.ValidateUsername(d.Username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(d.Password); err != nil {
		return err
	}
	v := validation.NewValidator()
	v.Field("fullName", d.FullName).Required().MaxLength(200)
	for _, r := range d.Roles {
		v.Field("roles", r).Required().OneOf(Roles, errors.ErrCodeInvalidRole)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO changes profile fields. Nil fields are left alone; a non-nil
// Roles replaces the whole grant set.
type UpdateUserDTO struct {
	FullName *string  `json:"fullName,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if d.FullName != nil {
		v.Field("fullName", *d.FullName).Required().MaxLength(200)
	}
	for _, r := range d.Roles {
		v.Field("roles", r).Required().OneOf(Roles, errors.ErrCodeInvalidRole)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
