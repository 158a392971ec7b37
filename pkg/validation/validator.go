// Package validation checks document-wide invariants after rules have run.
// Every check runs to completion so a report lists all violations at once.
package validation

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formpatch/pkg/content"
	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

// Issue codes.
const (
	CodeDuplicateStepID        = "duplicate-step-id"
	CodeDuplicateIntegrationID = "duplicate-integration-id"
	CodeUnknownFieldType       = "unknown-field-type"
	CodeArrayProperty          = "array-property"
	CodeUngatedWidget          = "ungated-widget-step"
	CodeRoundTrip              = "round-trip"
)

// Issue is a single violated invariant tagged with its entity path.
type Issue struct {
	Code    string `json:"code"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Code, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Code, i.Path, i.Message)
}

// Report captures validation outcomes.
type Report struct {
	Valid  bool    `json:"valid"`
	Issues []Issue `json:"issues,omitempty"`
}

// Err returns nil for a valid report and a *ValidationError otherwise.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Issues: r.Issues}
}

// ValidationError is the fatal form of a failing Report.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "validation: " + e.Issues[0].String()
	}
	return fmt.Sprintf("validation: %d issues, first: %s", len(e.Issues), e.Issues[0].String())
}

// Options configures Validate. Zero values select the defaults.
type Options struct {
	Scope     document.Scope
	Arrays    document.ArrayProperties
	Inspector *content.Inspector
	// GateControl names the navigation control that must start disabled on
	// widget steps. Empty checks "next".
	GateControl string
	// Formats lists the codecs checked for round-trip fidelity.
	Formats []tree.Format
}

func (o Options) withDefaults() Options {
	if o.Scope == "" {
		o.Scope = document.ScopeStep
	}
	if len(o.Arrays.Document) == 0 && len(o.Arrays.Field) == 0 {
		o.Arrays = document.DefaultArrayProperties()
	}
	if o.Inspector == nil {
		o.Inspector = content.NewInspector()
	}
	if strings.TrimSpace(o.GateControl) == "" {
		o.GateControl = document.NavNext
	}
	if len(o.Formats) == 0 {
		o.Formats = []tree.Format{tree.FormatJSON, tree.FormatYAML}
	}
	return o
}

// Validate checks doc. The document is not modified beyond synchronising
// its collections for encoding.
func Validate(doc *document.Document, opts Options) Report {
	if doc == nil {
		return Report{Issues: []Issue{{Code: CodeRoundTrip, Message: "document is nil"}}}
	}
	opts = opts.withDefaults()

	var issues []Issue
	issues = append(issues, checkUniqueness(doc, opts.Scope)...)
	issues = append(issues, checkTypes(doc)...)
	issues = append(issues, checkArrays(doc, opts.Arrays)...)
	issues = append(issues, checkGating(doc, opts.Inspector, opts.GateControl)...)
	issues = append(issues, checkRoundTrip(doc, opts.Formats)...)

	return Report{Valid: len(issues) == 0, Issues: issues}
}

func checkUniqueness(doc *document.Document, scope document.Scope) []Issue {
	var issues []Issue

	stepIDs := map[string]int{}
	for idx, step := range doc.Steps {
		id := step.ID()
		if id == "" {
			continue
		}
		if first, dup := stepIDs[id]; dup {
			issues = append(issues, Issue{
				Code:    CodeDuplicateStepID,
				Path:    document.StepPath(idx),
				Message: fmt.Sprintf("step id %q already used by %s", id, document.StepPath(first)),
			})
			continue
		}
		stepIDs[id] = idx
	}

	seen := map[string]map[string]string{}
	_ = document.WalkFields(doc, func(field *document.Field, ctx *document.FieldContext) error {
		id := field.IntegrationID()
		if id == "" {
			return nil
		}
		key := scope.Key(ctx.StepIndex)
		if seen[key] == nil {
			seen[key] = map[string]string{}
		}
		if first, dup := seen[key][id]; dup {
			issues = append(issues, Issue{
				Code:    CodeDuplicateIntegrationID,
				Path:    ctx.Path(),
				Message: fmt.Sprintf("integration id %q already used by %s within %s scope", id, first, scope),
			})
			return nil
		}
		seen[key][id] = ctx.Path()
		return nil
	})
	return issues
}

func checkTypes(doc *document.Document) []Issue {
	var issues []Issue
	_ = document.WalkFields(doc, func(field *document.Field, ctx *document.FieldContext) error {
		if field.Type().IsAccepted() {
			return nil
		}
		raw, present := field.Props().Get(document.KeyType)
		message := fmt.Sprintf("field type %q is not accepted", field.Type())
		switch {
		case !present:
			message = "field type is missing"
		case tree.KindOf(raw) != "string":
			message = fmt.Sprintf("field type must be a string, got %s", tree.KindOf(raw))
		}
		issues = append(issues, Issue{Code: CodeUnknownFieldType, Path: ctx.Path(), Message: message})
		return nil
	})
	return issues
}

func checkArrays(doc *document.Document, props document.ArrayProperties) []Issue {
	var issues []Issue
	for _, violation := range document.FindArrayViolations(doc, props) {
		message := "array property is absent"
		if violation.Kind != "absent" {
			message = fmt.Sprintf("array property holds %s", violation.Kind)
		}
		issues = append(issues, Issue{Code: CodeArrayProperty, Path: violation.Path, Message: message})
	}
	return issues
}

func checkGating(doc *document.Document, inspector *content.Inspector, name string) []Issue {
	var issues []Issue
	for idx, step := range doc.Steps {
		marker := ""
		for _, field := range step.Fields() {
			if found, ok := inspector.WidgetMarker(field.Content()); ok {
				marker = found
				break
			}
		}
		if marker == "" {
			continue
		}
		control, ok := step.Navigation(name)
		if ok && control.DisabledByDefault() {
			continue
		}
		issues = append(issues, Issue{
			Code:    CodeUngatedWidget,
			Path:    document.StepPath(idx) + ".navigation." + name,
			Message: fmt.Sprintf("step embeds widget %q but its advance control is not disabled by default", marker),
		})
	}
	return issues
}

func checkRoundTrip(doc *document.Document, formats []tree.Format) []Issue {
	var issues []Issue
	root := document.Encode(doc)
	for _, format := range formats {
		if err := roundTrip(root, format); err != nil {
			issues = append(issues, Issue{Code: CodeRoundTrip, Path: string(format), Message: err.Error()})
		}
	}
	return issues
}

func roundTrip(root *tree.Object, format tree.Format) error {
	first, err := tree.Encode(root, format)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	decoded, err := tree.Decode(first, format)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if diff := tree.Diff(root, decoded); diff != "" {
		return fmt.Errorf("re-parsed tree differs (-encoded +decoded):\n%s", strings.TrimSpace(diff))
	}
	if _, err := document.Decode(decoded.Clone()); err != nil {
		return err
	}
	second, err := tree.Encode(decoded, format)
	if err != nil {
		return fmt.Errorf("re-encode: %w", err)
	}
	if string(first) != string(second) {
		return fmt.Errorf("re-encoded output differs from first encoding")
	}
	return nil
}
