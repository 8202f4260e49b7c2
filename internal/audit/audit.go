package audit

import (
	"time"

	auditDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/audit"
)

// Entry is one immutable line of the audit trail.
type Entry struct {
	ID         string    `json:"id"`
	Seq        int64     `json:"seq"`
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func ToDataModel(e *Entry) *auditDatamodel.Entry {
	return &auditDatamodel.Entry{
		ID:         e.ID,
		Seq:        e.Seq,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		Timestamp:  e.Timestamp,
	}
}

func FromDataModel(e *auditDatamodel.Entry) *Entry {
	return &Entry{
		ID:         e.ID,
		Seq:        e.Seq,
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		Timestamp:  e.Timestamp.UTC(),
	}
}

func fromDataModels(rows []*auditDatamodel.Entry) []*Entry {
	out := make([]*Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, FromDataModel(r))
	}
	return out
}
