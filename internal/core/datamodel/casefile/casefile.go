package casefile

import (
	"time"

	"gorm.io/datatypes"
)

type Case struct {
	ID             string                      `gorm:"column:id;primaryKey"`
	Title          string                      `gorm:"column:title;not null"`
	Status         string                      `gorm:"column:status;not null"`
	Summary        string                      `gorm:"column:summary"`
	RelatedPersons datatypes.JSONSlice[string] `gorm:"column:related_persons"`
	Attachments    datatypes.JSONSlice[string] `gorm:"column:attachments"`
	CreatedBy      string                      `gorm:"column:created_by"`
	CreatedAt      time.Time                   `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt      time.Time                   `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Case) TableName() string { return "cases" }
