package rules

import (
	"fmt"

	"github.com/goliatone/go-formpatch/pkg/document"
)

// Labels shared by built-in rules to express constraints.
const (
	LabelMatchesType        = "matches-type"
	LabelRewritesIDs        = "rewrites-integration-ids"
	LabelRemovesFields      = "removes-fields"
	LabelAddsDynamicRules   = "adds-dynamic-rules"
	LabelClearsDynamicRules = "clears-dynamic-rules"
)

// Warning is a non-fatal anomaly surfaced to operators.
type Warning struct {
	Rule    string `json:"rule"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Path == "" {
		return fmt.Sprintf("%s: %s", w.Rule, w.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", w.Rule, w.Message, w.Path)
}

// Result reports what a single rule application did.
type Result struct {
	Changed  int       `json:"changed"`
	Warnings []Warning `json:"warnings,omitempty"`
}

func (r *Result) warn(rule, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{Rule: rule, Path: path, Message: fmt.Sprintf(format, args...)})
}

// Rule transforms a document in place.
type Rule interface {
	Name() string
	Apply(doc *document.Document) (Result, error)
}

// Constraints declares how a rule interacts with others in one sequence.
// Before lists labels of rules that must run after this one, After lists
// labels of rules that must run earlier, and Excludes lists labels that may
// not appear in the same sequence at all.
type Constraints struct {
	Labels   []string `json:"labels,omitempty"`
	Before   []string `json:"before,omitempty"`
	After    []string `json:"after,omitempty"`
	Excludes []string `json:"excludes,omitempty"`
}

// referenceKeys returns keys, or the default reference keys when empty.
func referenceKeys(keys []string) []string {
	if len(keys) == 0 {
		return document.DefaultReferenceKeys()
	}
	return keys
}

// Constrained is implemented by rules that declare constraints.
type Constrained interface {
	Constraints() Constraints
}

// ConstraintsOf returns the declared constraints of rule, if any.
func ConstraintsOf(rule Rule) Constraints {
	if c, ok := rule.(Constrained); ok {
		return c.Constraints()
	}
	return Constraints{}
}

// HasLabel reports whether the constraints carry label.
func (c Constraints) HasLabel(label string) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Func adapts a function into an unconstrained Rule.
type Func struct {
	RuleName string
	Fn       func(doc *document.Document) (Result, error)
}

func (f Func) Name() string { return f.RuleName }

// Apply calls the wrapped function.
func (f Func) Apply(doc *document.Document) (Result, error) {
	if f.Fn == nil {
		return Result{}, nil
	}
	return f.Fn(doc)
}
