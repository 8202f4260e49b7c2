package user

import "time"

type User struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Username           string    `gorm:"column:username;uniqueIndex;not null"`
	PasswordHash       string    `gorm:"column:password_hash;not null"`
	FullName           string    `gorm:"column:full_name;not null"`
	MustChangePassword bool      `gorm:"column:must_change_password;not null;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (User) TableName() string { return "users" }

type UserRole struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null"`
	Role      string    `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime:false"`
}

func (UserRole) TableName() string { return "user_roles" }
