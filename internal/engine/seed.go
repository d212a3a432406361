package engine

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"flowmetric/internal/domain"
)

//go:embed demo_seed.json
var demoSeed []byte

// SeedData is a bulk import document. Records keep their ids; activities are
// appended in document order.
type SeedData struct {
	Users      []domain.User     `json:"users"`
	Projects   []domain.Project  `json:"projects"`
	Tasks      []domain.Task     `json:"tasks"`
	Resources  []domain.Resource `json:"resources"`
	Activities []domain.Activity `json:"activities"`
}

type SeedSummary struct {
	Users      int `json:"users"`
	Projects   int `json:"projects"`
	Tasks      int `json:"tasks"`
	Resources  int `json:"resources"`
	Activities int `json:"activities"`
}

// ParseSeed decodes a seed document, rejecting unknown fields.
func ParseSeed(data []byte) (SeedData, error) {
	var s SeedData
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return SeedData{}, fmt.Errorf("invalid seed document: %w", err)
	}
	return s, nil
}

// DemoSeed returns the bundled demo dataset.
func DemoSeed() SeedData {
	s, err := ParseSeed(demoSeed)
	if err != nil {
		panic(err)
	}
	return s
}

// Import writes every record of s in one transaction. Any id collision aborts
// the whole import with repo.ErrConflict.
func (e Engine) Import(ctx context.Context, s SeedData) (SeedSummary, error) {
	for i, t := range s.Tasks {
		if !domain.ValidTaskStatus(t.Status) {
			return SeedSummary{}, ValidationError{Field: fmt.Sprintf("tasks[%d].status", i), Message: fmt.Sprintf("unknown status %q", t.Status)}
		}
	}
	for i, p := range s.Projects {
		if !domain.ValidProjectStatus(p.Status) {
			return SeedSummary{}, ValidationError{Field: fmt.Sprintf("projects[%d].status", i), Message: fmt.Sprintf("unknown status %q", p.Status)}
		}
	}
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		for _, u := range s.Users {
			if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
				return fmt.Errorf("user %s: %w", u.UserID, err)
			}
		}
		for _, p := range s.Projects {
			if err := e.Repo.InsertProject(ctx, tx, p); err != nil {
				return fmt.Errorf("project %s: %w", p.ProjectID, err)
			}
		}
		for _, t := range s.Tasks {
			if t.Priority == "" {
				t.Priority = domain.PriorityMedium
			}
			if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
				return fmt.Errorf("task %s: %w", t.TaskID, err)
			}
		}
		for _, r := range s.Resources {
			if err := e.Repo.InsertResource(ctx, tx, r); err != nil {
				return fmt.Errorf("resource %s: %w", r.ResourceID, err)
			}
		}
		for _, a := range s.Activities {
			if a.ID == "" {
				a.ID = uuid.NewString()
			}
			if a.Timestamp.IsZero() {
				a.Timestamp = e.now().UTC()
			}
			if err := e.Repo.InsertActivity(ctx, tx, a); err != nil {
				return fmt.Errorf("activity %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return SeedSummary{}, err
	}
	return SeedSummary{
		Users:      len(s.Users),
		Projects:   len(s.Projects),
		Tasks:      len(s.Tasks),
		Resources:  len(s.Resources),
		Activities: len(s.Activities),
	}, nil
}
