package model

// MatchType selects how a rule pattern is compared to a description.
type MatchType string

const (
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// MappingRule assigns a target account to descriptions matching Pattern.
type MappingRule struct {
	CompanyID   string
	ID          string
	Pattern     string
	Match       MatchType
	AccountCode string
	Priority    int // higher wins
	Active      bool
}
