package rules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledger/internal/model"
)

// rulesFile is the rules location relative to a repo root.
const rulesFile = "rules/categorization-rules.yaml"

type fileRule struct {
	ID       string `yaml:"id"`
	Pattern  string `yaml:"pattern"`
	Match    string `yaml:"match,omitempty"`
	Account  string `yaml:"account"`
	Priority int    `yaml:"priority"`
	Active   *bool  `yaml:"active,omitempty"`
}

type fileRules struct {
	Rules []fileRule `yaml:"rules"`
}

// Decode reads rules in YAML form. Omitted "active" means true and omitted
// "match" means contains.
func Decode(r io.Reader) ([]model.MappingRule, error) {
	var fr fileRules
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&fr); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parsing rules: %w", err)
	}

	out := make([]model.MappingRule, 0, len(fr.Rules))
	for _, r := range fr.Rules {
		active := true
		if r.Active != nil {
			active = *r.Active
		}
		match := model.MatchType(r.Match)
		if match == "" {
			match = model.MatchContains
		}
		out = append(out, model.MappingRule{
			ID:          r.ID,
			Pattern:     r.Pattern,
			Match:       match,
			AccountCode: r.Account,
			Priority:    r.Priority,
			Active:      active,
		})
	}
	return out, nil
}

// Encode writes rules in YAML form.
func Encode(w io.Writer, rs []model.MappingRule) error {
	fr := fileRules{Rules: make([]fileRule, len(rs))}
	for i, r := range rs {
		active := r.Active
		fr.Rules[i] = fileRule{
			ID:       r.ID,
			Pattern:  r.Pattern,
			Match:    string(r.Match),
			Account:  r.AccountCode,
			Priority: r.Priority,
			Active:   &active,
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fr); err != nil {
		return fmt.Errorf("marshaling rules: %w", err)
	}
	return enc.Close()
}

// Load reads rules/categorization-rules.yaml from a repo root into a new Store.
func Load(repoRoot, companyID string) (*Store, error) {
	f, err := os.Open(filepath.Join(repoRoot, rulesFile))
	if err != nil {
		return nil, fmt.Errorf("opening rules: %w", err)
	}
	defer f.Close()

	rs, err := Decode(f)
	if err != nil {
		return nil, err
	}

	s := NewStore()
	if err := s.Add(companyID, rs...); err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	return s, nil
}

// Save writes a company's rules to rules/categorization-rules.yaml.
func (s *Store) Save(repoRoot, companyID string) error {
	dir := filepath.Join(repoRoot, filepath.Dir(rulesFile))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating rules dir: %w", err)
	}

	f, err := os.Create(filepath.Join(repoRoot, rulesFile))
	if err != nil {
		return fmt.Errorf("creating rules file: %w", err)
	}
	defer f.Close()

	return Encode(f, s.All(companyID))
}
