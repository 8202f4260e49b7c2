package incident

import (
	"time"

	"gorm.io/datatypes"
)

// Update is one entry of an incident's append-only follow-up log, stored
// inside the incident row as JSON.
type Update struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type Incident struct {
	ID              string                      `gorm:"column:id;primaryKey"`
	Title           string                      `gorm:"column:title;not null"`
	Date            string                      `gorm:"column:date;not null"`
	Importance      string                      `gorm:"column:importance;not null"`
	Status          string                      `gorm:"column:status;not null"`
	Description     string                      `gorm:"column:description;not null"`
	FollowUp        string                      `gorm:"column:follow_up"`
	RecordsAndNotes string                      `gorm:"column:records_and_notes"`
	SecurityOpinion string                      `gorm:"column:security_opinion"`
	InvolvedPersons datatypes.JSONSlice[string] `gorm:"column:involved_persons"`
	Updates         datatypes.JSONSlice[Update] `gorm:"column:updates"`
	CreatedBy       string                      `gorm:"column:created_by"`
	CreatedAt       time.Time                   `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt       time.Time                   `gorm:"column:updated_at;not null;autoUpdateTime:false"`
}

func (Incident) TableName() string { return "incidents" }
