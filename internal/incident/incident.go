package incident

import (
	"time"

	incidentDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/incident"
	"github.com/frahmantamala/herasat/internal/person"
	"gorm.io/datatypes"
)

type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

var Importances = []string{
	string(ImportanceLow),
	string(ImportanceMedium),
	string(ImportanceHigh),
	string(ImportanceCritical),
}

type Status string

const (
	StatusActive      Status = "active"
	StatusUnderReview Status = "under-review"
	StatusClosed      Status = "closed"
)

var Statuses = []string{string(StatusActive), string(StatusUnderReview), string(StatusClosed)}

var legacyImportance = map[string]Importance{
	"کم":     ImportanceLow,
	"متوسط":  ImportanceMedium,
	"زیاد":   ImportanceHigh,
	"بحرانی": ImportanceCritical,
}

var legacyStatus = map[string]Status{
	"فعال":         StatusActive,
	"در حال بررسی": StatusUnderReview,
	"بسته":         StatusClosed,
}

func NormalizeImportance(s string) Importance {
	if v, ok := legacyImportance[s]; ok {
		return v
	}
	return Importance(s)
}

func NormalizeStatus(s string) Status {
	if v, ok := legacyStatus[s]; ok {
		return v
	}
	return Status(s)
}

// Update is one follow-up note on an incident.
type Update struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type Incident struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Date            string     `json:"date"`
	Importance      Importance `json:"importance"`
	Status          Status     `json:"status"`
	Description     string     `json:"description"`
	FollowUp        string     `json:"followUp,omitempty"`
	RecordsAndNotes string     `json:"recordsAndNotes,omitempty"`
	SecurityOpinion string     `json:"securityOpinion,omitempty"`
	InvolvedPersons []string   `json:"involvedPersons"`
	Updates         []Update   `json:"updates"`
	CreatedBy       string     `json:"createdBy,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (i *Incident) IsCritical() bool {
	return i.Importance == ImportanceCritical
}

// Detail is an incident with involved people resolved. Deleted people are
// left out.
type Detail struct {
	Incident
	People []*person.Person `json:"people"`
}

type NewIncident struct {
	Title           string     `json:"title"`
	Date            string     `json:"date"`
	Importance      Importance `json:"importance"`
	Status          Status     `json:"status"`
	Description     string     `json:"description"`
	FollowUp        string     `json:"followUp"`
	RecordsAndNotes string     `json:"recordsAndNotes"`
	SecurityOpinion string     `json:"securityOpinion"`
	InvolvedPersons []string   `json:"involvedPersons"`
}

// Patch is a partial update. The follow-up log is not patchable; use
// AddUpdate.
type Patch struct {
	Title           *string     `json:"title,omitempty"`
	Date            *string     `json:"date,omitempty"`
	Importance      *Importance `json:"importance,omitempty"`
	Status          *Status     `json:"status,omitempty"`
	Description     *string     `json:"description,omitempty"`
	FollowUp        *string     `json:"followUp,omitempty"`
	RecordsAndNotes *string     `json:"recordsAndNotes,omitempty"`
	SecurityOpinion *string     `json:"securityOpinion,omitempty"`
	InvolvedPersons []string    `json:"involvedPersons,omitempty"`
}

func (p Patch) applyTo(row *incidentDatamodel.Incident) {
	if p.Title != nil {
		row.Title = *p.Title
	}
	if p.Date != nil {
		row.Date = *p.Date
	}
	if p.Importance != nil {
		row.Importance = string(*p.Importance)
	}
	if p.Status != nil {
		row.Status = string(*p.Status)
	}
	if p.Description != nil {
		row.Description = *p.Description
	}
	if p.FollowUp != nil {
		row.FollowUp = *p.FollowUp
	}
	if p.RecordsAndNotes != nil {
		row.RecordsAndNotes = *p.RecordsAndNotes
	}
	if p.SecurityOpinion != nil {
		row.SecurityOpinion = *p.SecurityOpinion
	}
	if p.InvolvedPersons != nil {
		row.InvolvedPersons = datatypes.NewJSONSlice(p.InvolvedPersons)
	}
}

func ToDataModel(i *Incident) *incidentDatamodel.Incident {
	updates := make([]incidentDatamodel.Update, 0, len(i.Updates))
	for _, u := range i.Updates {
		updates = append(updates, incidentDatamodel.Update(u))
	}
	involved := i.InvolvedPersons
	if involved == nil {
		involved = []string{}
	}
	return &incidentDatamodel.Incident{
		ID:              i.ID,
		Title:           i.Title,
		Date:            i.Date,
		Importance:      string(i.Importance),
		Status:          string(i.Status),
		Description:     i.Description,
		FollowUp:        i.FollowUp,
		RecordsAndNotes: i.RecordsAndNotes,
		SecurityOpinion: i.SecurityOpinion,
		InvolvedPersons: datatypes.NewJSONSlice(involved),
		Updates:         datatypes.NewJSONSlice(updates),
		CreatedBy:       i.CreatedBy,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

func FromDataModel(row *incidentDatamodel.Incident) *Incident {
	updates := make([]Update, 0, len(row.Updates))
	for _, u := range row.Updates {
		u.CreatedAt = u.CreatedAt.UTC()
		updates = append(updates, Update(u))
	}
	involved := []string(row.InvolvedPersons)
	if involved == nil {
		involved = []string{}
	}
	return &Incident{
		ID:              row.ID,
		Title:           row.Title,
		Date:            row.Date,
		Importance:      NormalizeImportance(row.Importance),
		Status:          NormalizeStatus(row.Status),
		Description:     row.Description,
		FollowUp:        row.FollowUp,
		RecordsAndNotes: row.RecordsAndNotes,
		SecurityOpinion: row.SecurityOpinion,
		InvolvedPersons: involved,
		Updates:         updates,
		CreatedBy:       row.CreatedBy,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}
