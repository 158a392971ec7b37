package rules

import (
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

const NameResponseElision = "response-elision"

// ResponseElisionOptions configures ResponseElision.
type ResponseElisionOptions struct {
	// Categories are matched case-insensitively against step names.
	Categories []string `mapstructure:"categories"`
	// LabelContains is matched case-insensitively against field labels.
	LabelContains string `mapstructure:"label_contains"`
	// Types restricts removal to these field types.
	Types []string `mapstructure:"types"`
	// ReferenceKeys names the dynamic-rule members checked for dangling
	// references. Empty uses Env.ReferenceKeys.
	ReferenceKeys []string `mapstructure:"reference_keys"`
}

// ResponseElision removes free-text response fields from steps of the
// configured categories, where responses are captured by an embedded widget
// instead.
type ResponseElision struct {
	categories []string
	label      string
	types      map[document.FieldType]struct{}
	refKeys    []string
}

// NewResponseElision builds the rule with defaults for blank options.
func NewResponseElision(opts ResponseElisionOptions) *ResponseElision {
	categories := opts.Categories
	if len(categories) == 0 {
		categories = []string{"Roleplay", "Scenario"}
	}
	label := opts.LabelContains
	if strings.TrimSpace(label) == "" {
		label = "Your Response"
	}
	types := opts.Types
	if len(types) == 0 {
		types = []string{string(document.FieldTypeText), string(document.FieldTypeLongText)}
	}

	r := &ResponseElision{
		label:   strings.ToLower(strings.TrimSpace(label)),
		types:   make(map[document.FieldType]struct{}, len(types)),
		refKeys: referenceKeys(opts.ReferenceKeys),
	}
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			r.categories = append(r.categories, c)
		}
	}
	for _, t := range types {
		r.types[document.FieldType(strings.TrimSpace(t))] = struct{}{}
	}
	return r
}

func newResponseElisionFactory(env Env, options map[string]any) (Rule, error) {
	var opts ResponseElisionOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if len(opts.ReferenceKeys) == 0 {
		opts.ReferenceKeys = env.ReferenceKeys
	}
	return NewResponseElision(opts), nil
}

func (ResponseElision) Name() string { return NameResponseElision }

func (ResponseElision) Constraints() Constraints {
	return Constraints{Labels: []string{LabelMatchesType, LabelRemovesFields}}
}

func (r *ResponseElision) inCategory(step *document.Step) bool {
	name := strings.ToLower(step.Name())
	for _, c := range r.categories {
		if strings.Contains(name, c) {
			return true
		}
	}
	return false
}

// Apply removes matching fields.
func (r *ResponseElision) Apply(doc *document.Document) (Result, error) {
	var result Result
	var removed []string
	err := document.WalkFields(doc, func(field *document.Field, ctx *document.FieldContext) error {
		if !r.inCategory(ctx.Step) {
			return nil
		}
		if _, ok := r.types[field.Type()]; !ok {
			return nil
		}
		if !strings.Contains(strings.ToLower(field.Label()), r.label) {
			return nil
		}
		if ctx.Remove() {
			result.Changed++
			if id := field.IntegrationID(); id != "" {
				removed = append(removed, id)
			}
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if dynamic, ok := doc.DynamicRules(); ok {
		for _, id := range removed {
			if r.stillDeclared(doc, id) || !tree.ContainsReference(dynamic, r.refKeys, id) {
				continue
			}
			result.warn(NameResponseElision, document.KeyDynamicRules,
				"dynamic rules still reference removed field %q", id)
		}
	}
	return result, nil
}

func (r *ResponseElision) stillDeclared(doc *document.Document, id string) bool {
	for _, step := range doc.Steps {
		for _, field := range step.Fields() {
			if field.IntegrationID() == id {
				return true
			}
		}
	}
	return false
}
