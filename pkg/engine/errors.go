package engine

import (
	"fmt"
	"strings"
)

// ConflictKind classifies a constraint violation.
type ConflictKind string

const (
	ConflictOrder     ConflictKind = "order"
	ConflictExclusion ConflictKind = "exclusion"
)

// Conflict is one violated constraint between two rules of a sequence.
type Conflict struct {
	Kind  ConflictKind
	Rule  string
	Other string
	Label string
	// Index positions within the supplied sequence.
	RuleIndex  int
	OtherIndex int
}

func (c Conflict) String() string {
	switch c.Kind {
	case ConflictExclusion:
		return fmt.Sprintf("%s (#%d) excludes %s (#%d) labelled %q", c.Rule, c.RuleIndex, c.Other, c.OtherIndex, c.Label)
	default:
		if c.RuleIndex < c.OtherIndex {
			return fmt.Sprintf("%s (#%d) must run after %s (#%d) labelled %q", c.Rule, c.RuleIndex, c.Other, c.OtherIndex, c.Label)
		}
		return fmt.Sprintf("%s (#%d) must run before %s (#%d) labelled %q", c.Rule, c.RuleIndex, c.Other, c.OtherIndex, c.Label)
	}
}

// RuleConflictError is returned when a rule sequence violates a declared
// constraint. The document is not modified.
type RuleConflictError struct {
	Conflicts []Conflict
}

func (e *RuleConflictError) Error() string {
	parts := make([]string, len(e.Conflicts))
	for idx, c := range e.Conflicts {
		parts[idx] = c.String()
	}
	return "engine: rule conflict: " + strings.Join(parts, "; ")
}

// IdempotenceError is returned when the verification pass changed the
// document. Report holds the results of the first pass.
type IdempotenceError struct {
	Rules  []string
	Report Report
}

func (e *IdempotenceError) Error() string {
	return fmt.Sprintf("engine: rules are not idempotent: %s", strings.Join(e.Rules, ", "))
}
