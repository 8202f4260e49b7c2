package casefile

import (
	"time"

	"github.com/frahmantamala/herasat/internal/attachment"
	casefileDatamodel "github.com/frahmantamala/herasat/internal/core/datamodel/casefile"
	"github.com/frahmantamala/herasat/internal/person"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusClosed     Status = "closed"
)

var Statuses = []string{string(StatusOpen), string(StatusInProgress), string(StatusClosed)}

// legacyStatuses maps the labels older databases stored to current codes.
var legacyStatuses = map[string]Status{
	"باز":          StatusOpen,
	"در حال بررسی": StatusInProgress,
	"بسته":         StatusClosed,
}

// NormalizeStatus maps stored labels onto a Status. Unknown values pass
// through unchanged.
func NormalizeStatus(s string) Status {
	if st, ok := legacyStatuses[s]; ok {
		return st
	}
	return Status(s)
}

type Case struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Status         Status    `json:"status"`
	Summary        string    `json:"summary,omitempty"`
	RelatedPersons []string  `json:"relatedPersons"`
	Attachments    []string  `json:"attachments"`
	CreatedBy      string    `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (c *Case) IsClosed() bool {
	return c.Status == StatusClosed
}

// Detail is a case with its references resolved. Ids that no longer
// resolve are left out of People and Files.
type Detail struct {
	Case
	People []*person.Person         `json:"people"`
	Files  []*attachment.Attachment `json:"files"`
}

// NewCase is the input to Create.
type NewCase struct {
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Summary        string   `json:"summary"`
	RelatedPersons []string `json:"relatedPersons"`
	Attachments    []string `json:"attachments"`
}

// Patch is a partial update; nil fields keep their stored value and a
// non-nil list replaces the stored list.
type Patch struct {
	Title          *string  `json:"title,omitempty"`
	Status         *Status  `json:"status,omitempty"`
	Summary        *string  `json:"summary,omitempty"`
	RelatedPersons []string `json:"relatedPersons,omitempty"`
	Attachments    []string `json:"attachments,omitempty"`
}

func (p Patch) applyTo(row *casefileDatamodel.Case) {
	if p.Title != nil {
		row.Title = *p.Title
	}
	if p.Status != nil {
		row.Status = string(*p.Status)
	}
	if p.Summary != nil {
		row.Summary = *p.Summary
	}
	if p.RelatedPersons != nil {
		row.RelatedPersons = datatypes.NewJSONSlice(p.RelatedPersons)
	}
	if p.Attachments != nil {
		row.Attachments = datatypes.NewJSONSlice(p.Attachments)
	}
}

func ToDataModel(c *Case) *casefileDatamodel.Case {
	return &casefileDatamodel.Case{
		ID:             c.ID,
		Title:          c.Title,
		Status:         string(c.Status),
		Summary:        c.Summary,
		RelatedPersons: datatypes.NewJSONSlice(nonNil(c.RelatedPersons)),
		Attachments:    datatypes.NewJSONSlice(nonNil(c.Attachments)),
		CreatedBy:      c.CreatedBy,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func FromDataModel(row *casefileDatamodel.Case) *Case {
	return &Case{
		ID:             row.ID,
		Title:          row.Title,
		Status:         NormalizeStatus(row.Status),
		Summary:        row.Summary,
		RelatedPersons: nonNil([]string(row.RelatedPersons)),
		Attachments:    nonNil([]string(row.Attachments)),
		CreatedBy:      row.CreatedBy,
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
