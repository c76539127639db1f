package domain

import "fmt"

// PredicateKind discriminates the tagged predicate variants. Rule predicates
// are data, not code, so rule sets can be validated and round-tripped through
// configuration without evaluating arbitrary conditions.
type PredicateKind string

const (
	// PredicateRange matches values in the half-open interval [Min, Max).
	// A nil bound leaves that side unbounded.
	PredicateRange PredicateKind = "range"
	// PredicateEquals matches one exact value, for categorical rasters.
	PredicateEquals PredicateKind = "equals"
	// PredicateIn matches any value in a categorical set.
	PredicateIn PredicateKind = "in"
)

// Predicate is one tagged-variant condition over a cell value.
type Predicate struct {
	Kind   PredicateKind
	Min    *float64  // range lower bound, inclusive; nil = open
	Max    *float64  // range upper bound, exclusive; nil = open
	Value  float64   // equals
	Values []float64 // in
}

// Matches evaluates the predicate against a valid (non-no-data) cell value.
func (p Predicate) Matches(v float64) bool {
	switch p.Kind {
	case PredicateRange:
		if p.Min != nil && v < *p.Min {
			return false
		}
		if p.Max != nil && v >= *p.Max {
			return false
		}
		return true
	case PredicateEquals:
		return v == p.Value
	case PredicateIn:
		for _, c := range p.Values {
			if v == c {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (p Predicate) validate() error {
	switch p.Kind {
	case PredicateRange:
		if p.Min != nil && p.Max != nil && *p.Min >= *p.Max {
			return Configf("range predicate: min %g must be below max %g", *p.Min, *p.Max)
		}
	case PredicateEquals:
	case PredicateIn:
		if len(p.Values) == 0 {
			return Configf("in predicate: empty value set")
		}
	default:
		return Configf("unknown predicate kind %q", p.Kind)
	}
	return nil
}

// Rule pairs a predicate with the susceptibility class it assigns.
type Rule struct {
	Predicate Predicate
	Class     int
}

// RuleSet is an ordered sequence of rules applied per cell. Rules are
// evaluated in declaration order and the first matching predicate wins, so
// overlapping predicates are legal, if discouraged. Cells that match no rule
// receive DefaultClass. No-data cells never reach the rules; they are mapped
// to the reserved no-data class by the classifier.
type RuleSet struct {
	Factor       string
	Rules        []Rule
	DefaultClass int
}

// Classify returns the class for a valid cell value.
func (rs *RuleSet) Classify(v float64) int {
	for _, rule := range rs.Rules {
		if rule.Predicate.Matches(v) {
			return rule.Class
		}
	}
	return rs.DefaultClass
}

// Validate checks every rule predicate in the set.
func (rs *RuleSet) Validate() error {
	if len(rs.Rules) == 0 {
		return Configf("rule set %q has no rules", rs.Factor)
	}
	for i, rule := range rs.Rules {
		if err := rule.Predicate.validate(); err != nil {
			return fmt.Errorf("rule set %q, rule %d: %w", rs.Factor, i, err)
		}
	}
	return nil
}
