package audit

import "time"

type Entry struct {
	ID         string    `gorm:"column:id;primaryKey"`
	Seq        int64     `gorm:"column:seq;not null"`
	UserID     string    `gorm:"column:user_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	EntityType string    `gorm:"column:entity_type;not null"`
	EntityID   string    `gorm:"column:entity_id;not null"`
	Details    string    `gorm:"column:details"`
	Timestamp  time.Time `gorm:"column:timestamp;not null"`
}

func (Entry) TableName() string { return "audit_log" }
