// Package rules holds the company-scoped, ordered mapping rules used to
// classify bank transactions.
package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/cleared-dev/ledger/internal/model"
)

// Source returns a company's active rules in definition order.
type Source interface {
	ActiveRules(ctx context.Context, companyID string) ([]model.MappingRule, error)
}

// Store is an in-memory rule store. Definition order is insertion order.
type Store struct {
	mu    sync.RWMutex
	rules map[string][]model.MappingRule
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{rules: make(map[string][]model.MappingRule)}
}

// Add appends rules for a company. A rule whose ID already exists is edited
// in place and keeps its original definition position.
func (s *Store) Add(companyID string, rs ...model.MappingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.rules[companyID]
	for _, r := range rs {
		if r.ID == "" {
			return fmt.Errorf("rule for pattern %q has no id", r.Pattern)
		}
		if r.Pattern == "" {
			return fmt.Errorf("rule %s has an empty pattern", r.ID)
		}
		if r.AccountCode == "" {
			return fmt.Errorf("rule %s has no target account", r.ID)
		}
		if r.Match == "" {
			r.Match = model.MatchContains
		}
		if r.Match != model.MatchContains && r.Match != model.MatchRegex {
			return fmt.Errorf("rule %s: unknown match type %q", r.ID, r.Match)
		}
		r.CompanyID = companyID

		replaced := false
		for i := range existing {
			if existing[i].ID == r.ID {
				existing[i] = r
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, r)
		}
	}
	s.rules[companyID] = existing
	return nil
}

// All returns every rule of a company, active or not, in definition order.
func (s *Store) All(companyID string) []model.MappingRule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.MappingRule, len(s.rules[companyID]))
	copy(out, s.rules[companyID])
	return out
}

// ActiveRules implements Source.
func (s *Store) ActiveRules(_ context.Context, companyID string) ([]model.MappingRule, error) {
	var out []model.MappingRule
	for _, r := range s.All(companyID) {
		if r.Active {
			out = append(out, r)
		}
	}
	return out, nil
}

var _ Source = (*Store)(nil)
