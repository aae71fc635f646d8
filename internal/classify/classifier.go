// Package classify assigns accounts to bank transactions from a company's
// mapping rules.
package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/cleared-dev/ledger/internal/model"
)

// RuleSet is a compiled, ordered list of active mapping rules.
type RuleSet struct {
	rules []compiledRule
}

type compiledRule struct {
	rule   model.MappingRule
	re     *regexp.Regexp
	needle string
}

// NewRuleSet drops inactive rules and orders the rest by priority, highest
// first. Rules of equal priority keep their definition order. An invalid
// regex pattern is an error.
func NewRuleSet(rules []model.MappingRule) (*RuleSet, error) {
	rs := &RuleSet{}
	for _, r := range rules {
		if !r.Active {
			continue
		}
		cr := compiledRule{rule: r}
		switch r.Match {
		case model.MatchRegex:
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("compiling rule %s: %w", r.ID, err)
			}
			cr.re = re
		case model.MatchContains, "":
			cr.needle = strings.ToLower(r.Pattern)
		default:
			return nil, fmt.Errorf("rule %s: unknown match type %q", r.ID, r.Match)
		}
		rs.rules = append(rs.rules, cr)
	}
	sort.SliceStable(rs.rules, func(i, j int) bool {
		return rs.rules[i].rule.Priority > rs.rules[j].rule.Priority
	})
	return rs, nil
}

// Len returns the number of active rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Match returns the first rule whose pattern matches description.
func (rs *RuleSet) Match(description string) (model.MappingRule, bool) {
	lower := strings.ToLower(description)
	for _, cr := range rs.rules {
		if cr.re != nil {
			if cr.re.MatchString(description) {
				return cr.rule, true
			}
			continue
		}
		if strings.Contains(lower, cr.needle) {
			return cr.rule, true
		}
	}
	return model.MappingRule{}, false
}

// Classify returns the account code the first matching rule assigns to txn.
// No match returns ("", false, nil); there is no fallback account.
func Classify(txn model.BankTransaction, rules []model.MappingRule) (string, bool, error) {
	rs, err := NewRuleSet(rules)
	if err != nil {
		return "", false, err
	}
	r, ok := rs.Match(txn.Description)
	if !ok {
		return "", false, nil
	}
	return r.AccountCode, true, nil
}
