package app

import (
	"context"

	"github.com/frahmantamala/herasat/internal/casefile"
	"github.com/frahmantamala/herasat/internal/person"
)

// Summary counts the records on file.
type Summary struct {
	Students  int64 `json:"students"`
	Staff     int64 `json:"staff"`
	Faculty   int64 `json:"faculty"`
	Cases     int64 `json:"cases"`
	OpenCases int64 `json:"openCases"`
}

func (a *App) Summary(ctx context.Context) (*Summary, error) {
	people, err := a.People.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	cases, err := a.Cases.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Students:  people[person.TypeStudent],
		Staff:     people[person.TypeStaff],
		Faculty:   people[person.TypeFacultyHeyat] + people[person.TypeFacultyHaghtadris],
		OpenCases: cases[casefile.StatusOpen],
	}
	for _, n := range cases {
		s.Cases += n
	}
	return s, nil
}
