package rules

import (
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
)

const NameArrayDefaulting = "array-defaulting"

// ArrayDefaultingOptions extends the environment's array property lists.
type ArrayDefaultingOptions struct {
	DocumentProperties []string `mapstructure:"document_properties"`
	FieldProperties    []string `mapstructure:"field_properties"`
}

// ArrayDefaulting replaces absent or non-array values of array-typed
// configuration properties with an empty array. Renderers iterate these
// properties unconditionally.
type ArrayDefaulting struct {
	props document.ArrayProperties
}

// NewArrayDefaulting builds the rule for props.
func NewArrayDefaulting(props document.ArrayProperties) *ArrayDefaulting {
	return &ArrayDefaulting{props: props}
}

func newArrayDefaultingFactory(env Env, options map[string]any) (Rule, error) {
	var opts ArrayDefaultingOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	props := document.ArrayProperties{
		Document: mergeUnique(env.Arrays.Document, opts.DocumentProperties),
		Field:    mergeUnique(env.Arrays.Field, opts.FieldProperties),
	}
	return NewArrayDefaulting(props), nil
}

func (ArrayDefaulting) Name() string { return NameArrayDefaulting }

// Apply coerces every violation it finds.
func (r *ArrayDefaulting) Apply(doc *document.Document) (Result, error) {
	var result Result
	for _, violation := range document.FindArrayViolations(doc, r.props) {
		violation.Reset()
		result.Changed++
		if violation.Kind == "absent" {
			result.warn(NameArrayDefaulting, violation.Path, "absent array property defaulted to []")
			continue
		}
		result.warn(NameArrayDefaulting, violation.Path, "%s value replaced with []", violation.Kind)
	}
	return result, nil
}

func mergeUnique(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, item := range list {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}
