package rules

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
)

const NameTypeNormalization = "type-normalization"

// DefaultTypeAliases maps rejected legacy type names to accepted ones.
func DefaultTypeAliases() map[string]document.FieldType {
	return map[string]document.FieldType{
		"textarea":  document.FieldTypeLongText,
		"paragraph": document.FieldTypeContent,
	}
}

// TypeNormalizationOptions configures TypeNormalization.
type TypeNormalizationOptions struct {
	// Aliases extends or overrides DefaultTypeAliases.
	Aliases map[string]string `mapstructure:"aliases"`
}

// TypeNormalization rewrites deprecated field type aliases to their accepted
// enumeration member. Types that remain outside the enumeration are reported
// as warnings; the validator treats them as errors.
type TypeNormalization struct {
	aliases map[string]document.FieldType
}

// NewTypeNormalization validates the alias table.
func NewTypeNormalization(opts TypeNormalizationOptions) (*TypeNormalization, error) {
	aliases := DefaultTypeAliases()
	for alias, target := range opts.Aliases {
		canonical := document.FieldType(strings.TrimSpace(target))
		if !canonical.IsAccepted() {
			return nil, fmt.Errorf("alias %q targets unaccepted type %q", alias, target)
		}
		aliases[strings.ToLower(strings.TrimSpace(alias))] = canonical
	}
	return &TypeNormalization{aliases: aliases}, nil
}

func newTypeNormalizationFactory(_ Env, options map[string]any) (Rule, error) {
	var opts TypeNormalizationOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return NewTypeNormalization(opts)
}

func (TypeNormalization) Name() string { return NameTypeNormalization }

// Constraints requires every type-matching rule to run afterwards.
func (TypeNormalization) Constraints() Constraints {
	return Constraints{Before: []string{LabelMatchesType}}
}

// Canonical resolves t to an accepted type when it is a known alias or a
// case variant of an accepted type.
func (r *TypeNormalization) Canonical(t document.FieldType) (document.FieldType, bool) {
	if t.IsAccepted() {
		return t, true
	}
	lowered := strings.ToLower(strings.TrimSpace(string(t)))
	if target, ok := r.aliases[lowered]; ok {
		return target, true
	}
	for _, accepted := range document.AcceptedTypes() {
		if strings.EqualFold(string(accepted), lowered) {
			return accepted, true
		}
	}
	return t, false
}

// Apply rewrites aliased types.
func (r *TypeNormalization) Apply(doc *document.Document) (Result, error) {
	var result Result
	err := document.WalkFields(doc, func(field *document.Field, ctx *document.FieldContext) error {
		current := field.Type()
		canonical, ok := r.Canonical(current)
		if !ok {
			result.warn(NameTypeNormalization, ctx.Path(), "field type %q is not in the accepted enumeration", current)
			return nil
		}
		if canonical != current {
			field.SetType(canonical)
			result.Changed++
		}
		return nil
	})
	return result, err
}
