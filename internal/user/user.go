package user

import (
	"slices"
	"time"

	userDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/user"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

var Roles = []string{RoleAdmin, RoleUser}

type User struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"`
	FullName           string    `json:"fullName"`
	MustChangePassword bool      `json:"mustChangePassword"`
	Roles              []string  `json:"roles"`
	CreatedAt          time.Time `json:"createdAt"`
}

func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:                 u.ID,
		Username:           u.Username,
		PasswordHash:       u.PasswordHash,
		FullName:           u.FullName,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:                 u.ID,
		Username:           u.Username,
		PasswordHash:       u.PasswordHash,
		FullName:           u.FullName,
		MustChangePassword: u.MustChangePassword,
		Roles:              []string{},
		CreatedAt:          u.CreatedAt.UTC(),
	}
}

func FromDataModelWithRoles(u *userDatamodel.User, roles []string) *User {
	domainUser := FromDataModel(u)
	if roles != nil {
		domainUser.Roles = roles
	}
	return domainUser
}
