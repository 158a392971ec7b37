package document

import (
	"strings"

	"github.com/goliatone/go-formpatch/pkg/tree"
)

// Wire keys used by the form builder export.
const (
	KeySteps        = "steps"
	KeyBlocks       = "blocks"
	KeyRows         = "rows"
	KeyFields       = "fields"
	KeyCustomCSS    = "customCSS"
	KeyLogo         = "logo"
	KeySettings     = "settings"
	KeyDynamicRules = "dynamicRules"

	KeyID          = "id"
	KeyName        = "name"
	KeyIsFirstStep = "isFirstStep"
	KeyIsLastStep  = "isLastStep"
	KeyNavigation  = "navigation"

	KeyType          = "type"
	KeyIntegrationID = "integrationID"
	KeyLabel         = "label"
	KeyContent       = "content"

	FlagEditable = "editable"
	FlagRequired = "required"
	FlagHidden   = "hidden"
	FlagReadOnly = "readOnly"
	FlagDisabled = "disabled"
	FlagEnabled  = "enabled"
	FlagVisible  = "visible"
)

// Navigation control names inside a step's navigation object.
const (
	NavNext = "next"
	NavBack = "back"
)

// AnswerMarker prefixes integration identifiers that mark machine-graded
// answer slots.
const AnswerMarker = "answer:"

// Document is the root of the form tree.
type Document struct {
	props *tree.Object
	Steps []*Step
}

// Props exposes the document-level property object. Collections are
// re-synchronised from the typed slices on Encode.
func (d *Document) Props() *tree.Object { return d.props }

// CustomCSS returns the document style payload.
func (d *Document) CustomCSS() string { return d.props.String(KeyCustomCSS) }

// SetCustomCSS replaces the document style payload.
func (d *Document) SetCustomCSS(css string) { d.props.Set(KeyCustomCSS, css) }

// HasCustomCSS reports whether a style payload key exists.
func (d *Document) HasCustomCSS() bool { return d.props.Has(KeyCustomCSS) }

// DynamicRules returns the document dynamic-rule list when it is an array.
func (d *Document) DynamicRules() ([]any, bool) { return d.props.Array(KeyDynamicRules) }

// DefaultReferenceKeys lists the dynamic-rule members that name fields by
// integration id: condition sources and action targets.
func DefaultReferenceKeys() []string {
	return []string{"field", "fields", "target", "targets"}
}

// SetDynamicRules replaces the dynamic-rule list.
func (d *Document) SetDynamicRules(rules []any) {
	if rules == nil {
		rules = []any{}
	}
	d.props.Set(KeyDynamicRules, rules)
}

// Step is one stage of the form flow.
type Step struct {
	props  *tree.Object
	Blocks []*Block
}

func (s *Step) Props() *tree.Object { return s.props }
func (s *Step) ID() string          { return s.props.String(KeyID) }
func (s *Step) SetID(id string)     { s.props.Set(KeyID, id) }
func (s *Step) Name() string        { return s.props.String(KeyName) }

func (s *Step) IsFirstStep() bool {
	v, _ := s.props.Bool(KeyIsFirstStep)
	return v
}

func (s *Step) IsLastStep() bool {
	v, _ := s.props.Bool(KeyIsLastStep)
	return v
}

// SetFirstStep writes isFirstStep and reports whether the stored value changed.
func (s *Step) SetFirstStep(v bool) bool { return setBool(s.props, KeyIsFirstStep, v) }

// SetLastStep writes isLastStep and reports whether the stored value changed.
func (s *Step) SetLastStep(v bool) bool { return setBool(s.props, KeyIsLastStep, v) }

// Fields returns every field of the step in document order.
func (s *Step) Fields() []*Field {
	var out []*Field
	for _, block := range s.Blocks {
		for _, row := range block.Rows {
			out = append(out, row.Fields...)
		}
	}
	return out
}

// Navigation returns the named navigation control when configured.
func (s *Step) Navigation(name string) (*NavControl, bool) {
	nav, ok := s.props.Object(KeyNavigation)
	if !ok {
		return nil, false
	}
	control, ok := nav.Object(name)
	if !ok {
		return nil, false
	}
	return &NavControl{props: control}, true
}

// EnsureNavigation returns the named navigation control, creating the
// navigation object and the control when they are absent. Existing controls
// are never replaced.
func (s *Step) EnsureNavigation(name string) *NavControl {
	nav, ok := s.props.Object(KeyNavigation)
	if !ok {
		nav = &tree.Object{}
		s.props.Set(KeyNavigation, nav)
	}
	control, ok := nav.Object(name)
	if !ok {
		control = &tree.Object{}
		nav.Set(name, control)
	}
	return &NavControl{props: control}
}

// NavControl is a navigation button configuration (next/back).
type NavControl struct {
	props *tree.Object
}

func (n *NavControl) Props() *tree.Object { return n.props }

// Flag returns a boolean flag and whether it is present as a boolean.
func (n *NavControl) Flag(key string) (bool, bool) { return n.props.Bool(key) }

// SetFlag writes a boolean flag and reports whether the stored value changed.
func (n *NavControl) SetFlag(key string, v bool) bool { return setBool(n.props, key, v) }

func (n *NavControl) Label() string     { return n.props.String(KeyLabel) }
func (n *NavControl) HasLabel() bool    { return strings.TrimSpace(n.Label()) != "" }
func (n *NavControl) SetLabel(l string) { n.props.Set(KeyLabel, l) }

// DisabledByDefault reports whether the control explicitly starts disabled.
func (n *NavControl) DisabledByDefault() bool {
	disabled, _ := n.Flag(FlagDisabled)
	if !disabled {
		return false
	}
	if enabled, ok := n.Flag(FlagEnabled); ok && enabled {
		return false
	}
	return true
}

// Block groups rows inside a step.
type Block struct {
	props *tree.Object
	Rows  []*Row
}

func (b *Block) Props() *tree.Object { return b.props }

// Row groups fields inside a block.
type Row struct {
	props  *tree.Object
	Fields []*Field
}

func (r *Row) Props() *tree.Object { return r.props }

// RemoveField drops field from the row and reports whether it was present.
func (r *Row) RemoveField(field *Field) bool {
	for idx, candidate := range r.Fields {
		if candidate == field {
			r.Fields = append(r.Fields[:idx:idx], r.Fields[idx+1:]...)
			return true
		}
	}
	return false
}

// Field is a leaf input or display unit.
type Field struct {
	props *tree.Object
}

// NewField wraps a property object as a field. Used when rules synthesise
// fields and by tests.
func NewField(props *tree.Object) *Field {
	if props == nil {
		props = &tree.Object{}
	}
	return &Field{props: props}
}

func (f *Field) Props() *tree.Object { return f.props }
func (f *Field) Type() FieldType     { return FieldType(f.props.String(KeyType)) }
func (f *Field) SetType(t FieldType) { f.props.Set(KeyType, string(t)) }
func (f *Field) IntegrationID() string {
	return f.props.String(KeyIntegrationID)
}
func (f *Field) SetIntegrationID(id string) { f.props.Set(KeyIntegrationID, id) }
func (f *Field) Label() string              { return f.props.String(KeyLabel) }
func (f *Field) Content() string            { return f.props.String(KeyContent) }
func (f *Field) SetContent(c string)        { f.props.Set(KeyContent, c) }

// Flag returns a boolean flag and whether it is present as a boolean.
func (f *Field) Flag(key string) (bool, bool) { return f.props.Bool(key) }

// SetFlag writes a boolean flag and reports whether the stored value changed.
func (f *Field) SetFlag(key string, v bool) bool { return setBool(f.props, key, v) }

func (f *Field) Required() bool { return f.flagOrFalse(FlagRequired) }
func (f *Field) Hidden() bool   { return f.flagOrFalse(FlagHidden) }
func (f *Field) ReadOnly() bool { return f.flagOrFalse(FlagReadOnly) }
func (f *Field) Disabled() bool { return f.flagOrFalse(FlagDisabled) }

func (f *Field) flagOrFalse(key string) bool {
	v, _ := f.Flag(key)
	return v
}

// Editable defaults to true when the flag is absent.
func (f *Field) Editable() bool {
	v, ok := f.Flag(FlagEditable)
	return !ok || v
}

// IsAnswerSlot reports whether the integration id carries the answer marker.
func (f *Field) IsAnswerSlot() bool {
	return strings.HasPrefix(f.IntegrationID(), AnswerMarker)
}

func setBool(obj *tree.Object, key string, v bool) bool {
	if current, ok := obj.Bool(key); ok && current == v {
		return false
	}
	obj.Set(key, v)
	return true
}
