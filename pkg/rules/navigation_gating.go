package rules

import (
	"strings"

	"github.com/goliatone/go-formpatch/pkg/content"
	"github.com/goliatone/go-formpatch/pkg/document"
)

const (
	NameNavigationGating = "navigation-gating"

	defaultGateLabel = "Next"
)

// NavigationGatingOptions configures NavigationGating.
type NavigationGatingOptions struct {
	// Label is written when the control has none.
	Label string `mapstructure:"label"`
}

// NavigationGating disables the advance control of every step whose content
// embeds an interactive widget. The widget enables the control once its
// interaction completes; that handshake is expected to go through a hidden
// or read-only companion field, and steps without one are reported.
type NavigationGating struct {
	inspector *content.Inspector
	label     string
	control   string
}

// NewNavigationGating builds the rule gating the named control, "next" when
// empty. Registry builds take the control from Env.GateControl.
func NewNavigationGating(inspector *content.Inspector, control string, opts NavigationGatingOptions) *NavigationGating {
	if inspector == nil {
		inspector = content.NewInspector()
	}
	label := strings.TrimSpace(opts.Label)
	if label == "" {
		label = defaultGateLabel
	}
	control = strings.TrimSpace(control)
	if control == "" {
		control = document.NavNext
	}
	return &NavigationGating{inspector: inspector, label: label, control: control}
}

func newNavigationGatingFactory(env Env, options map[string]any) (Rule, error) {
	var opts NavigationGatingOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return NewNavigationGating(env.Inspector, env.GateControl, opts), nil
}

func (NavigationGating) Name() string { return NameNavigationGating }

// Apply gates every step embedding a widget.
func (r *NavigationGating) Apply(doc *document.Document) (Result, error) {
	var result Result
	err := document.WalkSteps(doc, func(step *document.Step, index int) error {
		fields := step.Fields()
		widget := false
		companion := false
		for _, field := range fields {
			if r.inspector.HasWidget(field.Content()) {
				widget = true
			}
			if field.IntegrationID() != "" && (field.Hidden() || field.ReadOnly() || field.Type() == document.FieldTypeHidden) {
				companion = true
			}
		}
		if !widget {
			return nil
		}

		control := step.EnsureNavigation(r.control)
		changed := control.SetFlag(document.FlagDisabled, true)
		if enabled, ok := control.Flag(document.FlagEnabled); ok && enabled {
			changed = control.SetFlag(document.FlagEnabled, false) || changed
		}
		if !control.HasLabel() {
			control.SetLabel(r.label)
			changed = true
		}
		if changed {
			result.Changed++
		}
		if !companion {
			result.warn(NameNavigationGating, document.StepPath(index),
				"step %q embeds a widget but has no hidden or read-only companion field to record completion", step.ID())
		}
		return nil
	})
	return result, err
}
