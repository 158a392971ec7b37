package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

const (
	NameDirectFill = "direct-fill"

	defaultDirectFillPattern = `(?i)response`
)

// DirectFillOptions configures DirectFill.
type DirectFillOptions struct {
	// LabelPattern is a regular expression matched against field labels.
	LabelPattern string `mapstructure:"label_pattern"`
	// ReferenceKeys names the dynamic-rule members checked for unlocked ids.
	// Empty uses Env.ReferenceKeys.
	ReferenceKeys []string `mapstructure:"reference_keys"`
}

// DirectFill makes required free-text fields directly editable: read-only,
// disabled and hidden flags are cleared and any dynamic rule referencing the
// field is removed so nothing can lock it again at runtime.
type DirectFill struct {
	pattern *regexp.Regexp
	refKeys []string
}

// NewDirectFill compiles the label pattern.
func NewDirectFill(opts DirectFillOptions) (*DirectFill, error) {
	raw := strings.TrimSpace(opts.LabelPattern)
	if raw == "" {
		raw = defaultDirectFillPattern
	}
	pattern, err := regexp.Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("label_pattern: %w", err)
	}
	return &DirectFill{pattern: pattern, refKeys: referenceKeys(opts.ReferenceKeys)}, nil
}

func newDirectFillFactory(env Env, options map[string]any) (Rule, error) {
	var opts DirectFillOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if len(opts.ReferenceKeys) == 0 {
		opts.ReferenceKeys = env.ReferenceKeys
	}
	return NewDirectFill(opts)
}

func (DirectFill) Name() string { return NameDirectFill }

func (DirectFill) Constraints() Constraints {
	return Constraints{
		Labels:   []string{LabelMatchesType, LabelClearsDynamicRules},
		Excludes: []string{LabelAddsDynamicRules},
	}
}

// Apply unlocks matching fields.
func (r *DirectFill) Apply(doc *document.Document) (Result, error) {
	var result Result
	var unlocked []string
	err := document.WalkFields(doc, func(field *document.Field, _ *document.FieldContext) error {
		if !field.Type().IsFreeText() || !field.Required() || !r.pattern.MatchString(field.Label()) {
			return nil
		}
		changed := false
		for _, flag := range []string{document.FlagReadOnly, document.FlagDisabled, document.FlagHidden} {
			if set, ok := field.Flag(flag); ok && set {
				changed = field.SetFlag(flag, false) || changed
			}
		}
		if changed {
			result.Changed++
		}
		if id := field.IntegrationID(); id != "" {
			unlocked = append(unlocked, id)
		}
		return nil
	})
	if err != nil || len(unlocked) == 0 {
		return result, err
	}

	dynamic, ok := doc.DynamicRules()
	if !ok {
		return result, nil
	}
	kept := make([]any, 0, len(dynamic))
	for _, entry := range dynamic {
		if referencesAny(entry, r.refKeys, unlocked) {
			result.Changed++
			continue
		}
		kept = append(kept, entry)
	}
	if len(kept) != len(dynamic) {
		doc.SetDynamicRules(kept)
	}
	return result, nil
}

func referencesAny(value any, keys, ids []string) bool {
	for _, id := range ids {
		if tree.ContainsReference(value, keys, id) {
			return true
		}
	}
	return false
}
