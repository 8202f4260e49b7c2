// Package search finds people, cases and incidents by free text.
package search

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/frahmantamala/herasat/internal/casefile"
	"github.com/frahmantamala/herasat/internal/incident"
	"github.com/frahmantamala/herasat/internal/person"
	"github.com/frahmantamala/herasat/internal/storage"
)

var personFields = []string{
	"full_name", "national_id", "passport_no", "student_number", "employee_number",
	"phone", "email", "address", "city", "country", "faculty", "program",
	"department", "position", "rank", "specialization", "notes",
}

var caseFields = []string{"title", "summary"}

var incidentFields = []string{"title", "description"}

type Querier interface {
	Query(ctx context.Context, stmt string, args ...any) iter.Seq2[storage.Row, error]
}

type PersonReader interface {
	GetMany(ctx context.Context, ids []string) ([]*person.Person, error)
}

type CaseReader interface {
	GetByID(ctx context.Context, id string) (*casefile.Case, error)
}

type IncidentReader interface {
	GetByID(ctx context.Context, id string) (*incident.Incident, error)
}

type Result struct {
	Term      string               `json:"term"`
	People    []*person.Person     `json:"people"`
	Cases     []*casefile.Case     `json:"cases"`
	Incidents []*incident.Incident `json:"incidents"`
	Total     int                  `json:"total"`
}

type Service struct {
	db        Querier
	people    PersonReader
	cases     CaseReader
	incidents IncidentReader
	logger    *slog.Logger
}

func NewService(db Querier, people PersonReader, cases CaseReader, incidents IncidentReader, logger *slog.Logger) *Service {
	return &Service{
		db:        db,
		people:    people,
		cases:     cases,
		incidents: incidents,
		logger:    logger,
	}
}

// Search matches term case-insensitively as a substring of the searchable
// fields. A blank term matches nothing.
func (s *Service) Search(ctx context.Context, term string) (*Result, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	res := &Result{
		Term:      term,
		People:    []*person.Person{},
		Cases:     []*casefile.Case{},
		Incidents: []*incident.Incident{},
	}
	if term == "" {
		return res, nil
	}

	personIDs, err := s.match(ctx, "people", personFields, term)
	if err != nil {
		return nil, err
	}
	caseIDs, err := s.match(ctx, "cases", caseFields, term)
	if err != nil {
		return nil, err
	}
	incidentIDs, err := s.match(ctx, "incidents", incidentFields, term)
	if err != nil {
		return nil, err
	}

	if res.People, err = s.people.GetMany(ctx, personIDs); err != nil {
		return nil, err
	}
	for _, id := range caseIDs {
		c, err := s.cases.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if c != nil {
			res.Cases = append(res.Cases, c)
		}
	}
	for _, id := range incidentIDs {
		i, err := s.incidents.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if i != nil {
			res.Incidents = append(res.Incidents, i)
		}
	}

	res.Total = len(res.People) + len(res.Cases) + len(res.Incidents)
	s.logger.Debug("search finished", "term", term, "total", res.Total)
	return res, nil
}

// match scans table and returns the ids of rows where any field contains
// term. Matching happens here rather than in SQL because SQLite's lower()
// only folds ASCII.
func (s *Service) match(ctx context.Context, table string, fields []string, term string) ([]string, error) {
	stmt := fmt.Sprintf("SELECT id, %s FROM %s ORDER BY created_at DESC", strings.Join(fields, ", "), table)

	var ids []string
	for row, err := range s.db.Query(ctx, stmt) {
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", table, err)
		}
		for _, f := range fields {
			v, ok := row[f].(string)
			if ok && strings.Contains(strings.ToLower(v), term) {
				ids = append(ids, fmt.Sprint(row["id"]))
				break
			}
		}
	}
	return ids, nil
}
