// Package casedir is a read-only, display-only lookup of case titles. Case
// management lives elsewhere; nothing here gates an operation.
package casedir

import (
	"fmt"

	"evidex/internal/platform/config"
	id "evidex/pkg/domain"
)

// Case is what responses are enriched with.
type Case struct {
	ID     id.CaseID `json:"id"`
	Title  string    `json:"title"`
	Client string    `json:"client,omitempty"`
}

// Directory answers case lookups.
type Directory interface {
	Lookup(caseID id.CaseID) (Case, bool)
}

// Static is a Directory loaded once from configuration.
type Static struct {
	cases map[id.CaseID]Case
}

// FromConfig validates entries and builds a Static directory.
func FromConfig(entries []config.CaseEntry) (*Static, error) {
	s := &Static{cases: make(map[id.CaseID]Case, len(entries))}
	for _, e := range entries {
		caseID, err := id.ParseCaseID(e.ID)
		if err != nil {
			return nil, fmt.Errorf("case directory entry %q: %w", e.ID, err)
		}
		if _, dup := s.cases[caseID]; dup {
			return nil, fmt.Errorf("case directory entry %q listed twice", e.ID)
		}
		s.cases[caseID] = Case{ID: caseID, Title: e.Title, Client: e.Client}
	}
	return s, nil
}

func (s *Static) Lookup(caseID id.CaseID) (Case, bool) {
	if s == nil {
		return Case{}, false
	}
	c, ok := s.cases[caseID]
	return c, ok
}

// Title returns the case title or "" when unknown.
func Title(d Directory, caseID id.CaseID) string {
	if d == nil {
		return ""
	}
	c, _ := d.Lookup(caseID)
	return c.Title
}
