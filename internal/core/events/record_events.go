package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRecordCreated     = "record.created"
	EventTypeRecordUpdated     = "record.updated"
	EventTypeRecordDeleted     = "record.deleted"
	EventTypePasswordChanged   = "user.password_changed"
	EventTypeIncidentUpdateAdd = "incident.update_added"
	EventTypeLogin             = "auth.login"
)

// RecordEventTypes lists every event a mutation can raise.
var RecordEventTypes = []string{
	EventTypeRecordCreated,
	EventTypeRecordUpdated,
	EventTypeRecordDeleted,
	EventTypePasswordChanged,
	EventTypeIncidentUpdateAdd,
	EventTypeLogin,
}

// Audit action codes.
const (
	ActionCreate         = "CREATE"
	ActionUpdate         = "UPDATE"
	ActionDelete         = "DELETE"
	ActionUpdatePassword = "UPDATE_PASSWORD"
	ActionAddUpdate      = "ADD_UPDATE"
	ActionLogin          = "LOGIN"
	ActionClear          = "CLEAR"
)

// Entity types as they appear in the audit log.
const (
	EntityUser       = "user"
	EntityPerson     = "person"
	EntityCase       = "case"
	EntityIncident   = "incident"
	EntityAttachment = "attachment"
	EntityAuth       = "auth"
	EntityRecords    = "records"
)

var actionByEventType = map[string]string{
	EventTypeRecordCreated:     ActionCreate,
	EventTypeRecordUpdated:     ActionUpdate,
	EventTypeRecordDeleted:     ActionDelete,
	EventTypePasswordChanged:   ActionUpdatePassword,
	EventTypeIncidentUpdateAdd: ActionAddUpdate,
	EventTypeLogin:             ActionLogin,
}

// RecordEvent announces that ActorID changed (or logged in to) one record.
type RecordEvent struct {
	BaseEvent
	ActorID    string `json:"actor_id"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Details    string `json:"details"`
}

func NewRecordEvent(eventType, actorID, entityType, entityID, details string) *RecordEvent {
	action := actionByEventType[eventType]
	return &RecordEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"actor_id":    actorID,
				"action":      action,
				"entity_type": entityType,
				"entity_id":   entityID,
			},
		},
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	}
}

func RecordCreated(actorID, entityType, entityID, details string) *RecordEvent {
	return NewRecordEvent(EventTypeRecordCreated, actorID, entityType, entityID, details)
}

func RecordUpdated(actorID, entityType, entityID, details string) *RecordEvent {
	return NewRecordEvent(EventTypeRecordUpdated, actorID, entityType, entityID, details)
}

func RecordDeleted(actorID, entityType, entityID, details string) *RecordEvent {
	return NewRecordEvent(EventTypeRecordDeleted, actorID, entityType, entityID, details)
}
