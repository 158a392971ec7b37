package document

import "github.com/goliatone/go-formpatch/pkg/tree"

// ArrayProperties lists configuration properties that must always be arrays.
// Document paths are resolved from the document root and absent parents are
// created on reset. Field paths are resolved from each field and only apply
// when their parent object exists.
type ArrayProperties struct {
	Document []string
	Field    []string
}

// DefaultArrayProperties returns the documented array-typed properties.
func DefaultArrayProperties() ArrayProperties {
	return ArrayProperties{
		Document: []string{KeyDynamicRules, "hiddenFields", "calculations", "webhooks", "settings.languages"},
		Field:    []string{"otpConfig.optionalFields"},
	}
}

// ArrayViolation is an array-typed property that is absent or holds another
// kind of value.
type ArrayViolation struct {
	Path string
	// Kind is "absent" or the tree kind found in place of the array.
	Kind string

	owner *tree.Object
	key   string

	// root and path are set instead of owner when the parent is absent.
	root *tree.Object
	path string
}

// Reset stores an empty array in place of the offending value.
func (v ArrayViolation) Reset() {
	owner, key := v.owner, v.key
	if owner == nil {
		var ok bool
		if owner, key, ok = v.root.EnsureParent(v.path); !ok {
			return
		}
	}
	owner.Set(key, []any{})
}

// FindArrayViolations lists every array property of doc that is not an array.
func FindArrayViolations(doc *Document, props ArrayProperties) []ArrayViolation {
	var out []ArrayViolation
	for _, path := range props.Document {
		if v, ok := checkArray(doc.props, path, path); ok {
			out = append(out, v)
			continue
		}
		if _, _, resolved := doc.props.Parent(path); !resolved && doc.props.CanEnsureParent(path) {
			out = append(out, ArrayViolation{Path: path, Kind: "absent", root: doc.props, path: path})
		}
	}
	if len(props.Field) == 0 {
		return out
	}
	_ = WalkFields(doc, func(field *Field, ctx *FieldContext) error {
		for _, path := range props.Field {
			if v, ok := checkArray(field.props, path, ctx.Path()+"."+path); ok {
				out = append(out, v)
			}
		}
		return nil
	})
	return out
}

func checkArray(root *tree.Object, path, display string) (ArrayViolation, bool) {
	parent, key, ok := root.Parent(path)
	if !ok {
		return ArrayViolation{}, false
	}
	value, present := parent.Get(key)
	if !present {
		return ArrayViolation{Path: display, Kind: "absent", owner: parent, key: key}, true
	}
	if _, isArray := value.([]any); isArray {
		return ArrayViolation{}, false
	}
	return ArrayViolation{Path: display, Kind: tree.KindOf(value), owner: parent, key: key}, true
}
