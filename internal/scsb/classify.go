package scsb

import (
	"strings"
	"unicode"
)

// Use restrictions.
const (
	SupervisedUse = "Supervised Use"
	InLibraryUse  = "In Library Use"
	NoRestriction = ""
)

// Collection group designations.
const (
	Private   = "Private"
	Shared    = "Shared"
	Committed = "Committed"
)

// Names of the ladder branches that fired, used in run reports.
const (
	RuleSupervisedAccess        = "supervised-access"
	RuleInLibraryRestriction    = "in-library-restriction"
	RuleUnrestrictedRestriction = "unrestricted-restriction"
	RuleDefaultPrivate          = "default-private"

	RuleCommittedOverride   = "committed-override"
	RulePrivateDistribution = "private-distribution"
	RulePrivateCustomer     = "private-customer"
	RulePrivateAccess       = "private-access"
	RulePrivateRestriction  = "private-restriction"
	RuleShared              = "shared"
)

// ItemData is the first-value view of an item's location (852) and
// circulation (876) fields.
type ItemData struct {
	Location    map[string]string
	Circulation map[string]string
}

// AccessCode returns the circulation access-policy code (876$o).
func (d ItemData) AccessCode() string { return d.Circulation["o"] }

// RestrictionCode returns the circulation restriction code (876$y).
func (d ItemData) RestrictionCode() string { return d.Circulation["y"] }

// DistributionCode returns the distribution restriction code (876$d).
func (d ItemData) DistributionCode() string { return d.Circulation["d"] }

// Classification is the outcome of the use-restriction and group-designation
// ladders for one item.
type Classification struct {
	UseRestriction   string `yaml:"use_restriction" json:"useRestriction"`
	GroupDesignation string `yaml:"group_designation" json:"groupDesignation"`
	UseRule          string `yaml:"use_rule" json:"useRule"`
	GroupRule        string `yaml:"group_rule" json:"groupRule"`
}

// Classify runs the use-restriction ladder and, where it defers, the group
// designation ladder. The first matching branch wins.
func (p *Policy) Classify(item ItemData, customerCode string, committed bool) Classification {
	restriction, hasRestriction := leadingInt(item.RestrictionCode())

	var c Classification
	switch {
	case p.supervised.has(item.AccessCode()):
		c.UseRestriction, c.UseRule = SupervisedUse, RuleSupervisedAccess
	case hasRestriction && p.inLibrary.has(restriction):
		c.UseRestriction, c.UseRule = InLibraryUse, RuleInLibraryRestriction
	case hasRestriction && p.unrestricted.has(restriction):
		c.UseRestriction, c.UseRule = NoRestriction, RuleUnrestrictedRestriction
	default:
		c.UseRestriction, c.UseRule = InLibraryUse, RuleDefaultPrivate
		c.GroupDesignation, c.GroupRule = Private, RuleDefaultPrivate
		return c
	}

	c.GroupDesignation, c.GroupRule = p.groupDesignation(item, customerCode, committed)
	return c
}

func (p *Policy) groupDesignation(item ItemData, customerCode string, committed bool) (string, string) {
	restriction, hasRestriction := leadingInt(item.RestrictionCode())

	switch {
	case committed:
		return Committed, RuleCommittedOverride
	case p.distribution.has(item.DistributionCode()):
		return Private, RulePrivateDistribution
	case p.customers.has(customerCode):
		return Private, RulePrivateCustomer
	case p.accessCodes.has(item.AccessCode()):
		return Private, RulePrivateAccess
	case hasRestriction && p.restrictCodes.has(restriction):
		return Private, RulePrivateRestriction
	}
	return Shared, RuleShared
}

// leadingInt parses the integer prefix of s the way catalog exports write
// restriction codes: surrounding whitespace, an optional sign, then digits.
// Trailing junk after the digits is ignored.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		n = n*10 + int(s[digits]-'0')
		digits++
		if n > 1<<30 {
			break
		}
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
