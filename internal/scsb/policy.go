package scsb

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicyYAML []byte

// Policy is the versioned table of code sets that drives item eligibility
// and classification.
type Policy struct {
	Version          string                 `yaml:"version"`
	Eligibility      EligibilityPolicy      `yaml:"eligibility"`
	UseRestriction   UseRestrictionPolicy   `yaml:"use_restriction"`
	GroupDesignation GroupDesignationPolicy `yaml:"group_designation"`

	supervised    set[string]
	inLibrary     set[int]
	unrestricted  set[int]
	distribution  set[string]
	customers     set[string]
	accessCodes   set[string]
	restrictCodes set[int]
}

// EligibilityPolicy decides which items may be exported at all.
type EligibilityPolicy struct {
	RecapLocationPrefix string `yaml:"recap_location_prefix"`
}

// UseRestrictionPolicy holds the code sets for the use-restriction ladder.
type UseRestrictionPolicy struct {
	SupervisedAccessCodes        []string `yaml:"supervised_access_codes"`
	InLibraryRestrictionCodes    []int    `yaml:"in_library_restriction_codes"`
	UnrestrictedRestrictionCodes []int    `yaml:"unrestricted_restriction_codes"`
}

// GroupDesignationPolicy holds the code sets for the CGD ladder.
type GroupDesignationPolicy struct {
	CommittedOverride        string   `yaml:"committed_override"`
	PrivateDistributionCodes []string `yaml:"private_distribution_codes"`
	PrivateCustomerCodes     []string `yaml:"private_customer_codes"`
	PrivateAccessCodes       []string `yaml:"private_access_codes"`
	PrivateRestrictionCodes  []int    `yaml:"private_restriction_codes"`
}

type set[T comparable] map[T]struct{}

func newSet[T comparable](values []T) set[T] {
	s := make(set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

var defaultPolicy = sync.OnceValue(func() *Policy {
	p, err := ParsePolicy(defaultPolicyYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded policy is invalid: %v", err))
	}
	return p
})

// DefaultPolicy returns the embedded policy table. It is parsed once and
// shared, so callers must not modify it.
func DefaultPolicy() *Policy {
	return defaultPolicy()
}

// LoadPolicy reads a policy table from a YAML file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses and validates a YAML policy table.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.compile()
	return &p, nil
}

// Validate checks that every rule has a non-empty code set.
func (p *Policy) Validate() error {
	switch {
	case p.Version == "":
		return fmt.Errorf("policy: version is required")
	case p.Eligibility.RecapLocationPrefix == "":
		return fmt.Errorf("policy: eligibility.recap_location_prefix is required")
	case len(p.UseRestriction.SupervisedAccessCodes) == 0:
		return fmt.Errorf("policy: use_restriction.supervised_access_codes is empty")
	case len(p.UseRestriction.InLibraryRestrictionCodes) == 0:
		return fmt.Errorf("policy: use_restriction.in_library_restriction_codes is empty")
	case len(p.UseRestriction.UnrestrictedRestrictionCodes) == 0:
		return fmt.Errorf("policy: use_restriction.unrestricted_restriction_codes is empty")
	case p.GroupDesignation.CommittedOverride == "":
		return fmt.Errorf("policy: group_designation.committed_override is required")
	case len(p.GroupDesignation.PrivateCustomerCodes) == 0:
		return fmt.Errorf("policy: group_designation.private_customer_codes is empty")
	case len(p.GroupDesignation.PrivateRestrictionCodes) == 0:
		return fmt.Errorf("policy: group_designation.private_restriction_codes is empty")
	}
	return nil
}

func (p *Policy) compile() {
	p.supervised = newSet(p.UseRestriction.SupervisedAccessCodes)
	p.inLibrary = newSet(p.UseRestriction.InLibraryRestrictionCodes)
	p.unrestricted = newSet(p.UseRestriction.UnrestrictedRestrictionCodes)
	p.distribution = newSet(p.GroupDesignation.PrivateDistributionCodes)
	p.customers = newSet(p.GroupDesignation.PrivateCustomerCodes)
	p.accessCodes = newSet(p.GroupDesignation.PrivateAccessCodes)
	p.restrictCodes = newSet(p.GroupDesignation.PrivateRestrictionCodes)
}

// IsCommitted reports whether a catalog annotation is the committed override.
func (p *Policy) IsCommitted(annotation string) bool {
	return annotation != "" && annotation == p.GroupDesignation.CommittedOverride
}
