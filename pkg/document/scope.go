package document

import (
	"fmt"
	"strings"
)

// Scope selects the set of fields inside which integration identifiers must
// be unique.
type Scope string

const (
	ScopeStep     Scope = "step"
	ScopeDocument Scope = "document"
)

// ParseScope validates a scope name. An empty value selects ScopeStep.
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ScopeStep:
		return ScopeStep, nil
	case ScopeDocument:
		return ScopeDocument, nil
	default:
		return "", fmt.Errorf("document: unknown uniqueness scope %q", raw)
	}
}

// Key returns the bucket a field belongs to for uniqueness checks.
func (s Scope) Key(stepIndex int) string {
	if s == ScopeDocument {
		return "document"
	}
	return StepPath(stepIndex)
}
