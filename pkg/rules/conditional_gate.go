package rules

import (
	"errors"
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

const NameConditionalGate = "conditional-gate"

// ConditionalGateOptions configures ConditionalGate.
type ConditionalGateOptions struct {
	Target   string `mapstructure:"target"`
	Source   string `mapstructure:"source"`
	Operator string `mapstructure:"operator"`
	Value    any    `mapstructure:"value"`
	Action   string `mapstructure:"action"`
}

// ConditionalGate appends a dynamic rule that applies an action to a target
// field when a source field satisfies a condition. An equal rule already in
// the document is not added twice.
type ConditionalGate struct {
	entry *tree.Object
}

// NewConditionalGate validates opts and prepares the rule entry.
func NewConditionalGate(opts ConditionalGateOptions) (*ConditionalGate, error) {
	target := strings.TrimSpace(opts.Target)
	source := strings.TrimSpace(opts.Source)
	if target == "" || source == "" {
		return nil, errors.New("target and source are required")
	}
	operator := strings.TrimSpace(opts.Operator)
	if operator == "" {
		operator = "equals"
	}
	action := strings.TrimSpace(opts.Action)
	if action == "" {
		action = "show"
	}

	condition := map[string]any{"field": source, "operator": operator}
	if opts.Value != nil {
		condition["value"] = opts.Value
	}
	conditions, err := tree.FromGo([]any{condition})
	if err != nil {
		return nil, err
	}
	actions, err := tree.FromGo([]any{map[string]any{"type": action, "target": target}})
	if err != nil {
		return nil, err
	}
	return &ConditionalGate{entry: tree.NewObject("conditions", conditions, "actions", actions)}, nil
}

func newConditionalGateFactory(_ Env, options map[string]any) (Rule, error) {
	var opts ConditionalGateOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	return NewConditionalGate(opts)
}

func (ConditionalGate) Name() string { return NameConditionalGate }

func (ConditionalGate) Constraints() Constraints {
	return Constraints{Labels: []string{LabelAddsDynamicRules}}
}

// Apply appends the entry unless it is already present.
func (r *ConditionalGate) Apply(doc *document.Document) (Result, error) {
	dynamic, _ := doc.DynamicRules()
	for _, existing := range dynamic {
		if tree.Equal(existing, r.entry) {
			return Result{}, nil
		}
	}
	doc.SetDynamicRules(append(dynamic, r.entry.Clone()))
	return Result{Changed: 1}, nil
}
