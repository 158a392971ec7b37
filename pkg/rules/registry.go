package rules

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/goliatone/go-formpatch/pkg/content"
	"github.com/goliatone/go-formpatch/pkg/document"
)

// Env carries deployment-wide settings shared by every rule built from a
// registry. Rule options may override them individually.
type Env struct {
	Inspector *content.Inspector
	Scope     document.Scope
	Arrays    document.ArrayProperties
	// ReferenceKeys names the dynamic-rule members holding integration ids.
	ReferenceKeys []string
	// GateControl is the navigation control gated on widget steps.
	GateControl string
}

// DefaultEnv returns the built-in defaults.
func DefaultEnv() Env {
	return Env{
		Inspector:     content.NewInspector(),
		Scope:         document.ScopeStep,
		Arrays:        document.DefaultArrayProperties(),
		ReferenceKeys: document.DefaultReferenceKeys(),
		GateControl:   document.NavNext,
	}
}

func (e Env) withDefaults() Env {
	defaults := DefaultEnv()
	if e.Inspector == nil {
		e.Inspector = defaults.Inspector
	}
	if e.Scope == "" {
		e.Scope = defaults.Scope
	}
	if len(e.Arrays.Document) == 0 && len(e.Arrays.Field) == 0 {
		e.Arrays = defaults.Arrays
	}
	if len(e.ReferenceKeys) == 0 {
		e.ReferenceKeys = defaults.ReferenceKeys
	}
	if e.GateControl == "" {
		e.GateControl = defaults.GateControl
	}
	return e
}

// Factory builds a rule from loosely typed options.
type Factory func(env Env, options map[string]any) (Rule, error)

// Info describes a registered rule.
type Info struct {
	Name        string
	Description string
	Constraints Constraints
}

type registration struct {
	info    Info
	factory Factory
}

// Registry maps rule names to factories. Registration order is preserved for
// listings.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]registration
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// DefaultRegistry returns a registry holding every built-in rule.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.registerBuiltins()
	return reg
}

// Register adds a factory. Duplicate names are rejected.
func (r *Registry) Register(info Info, factory Factory) error {
	info.Name = strings.TrimSpace(info.Name)
	if info.Name == "" {
		return fmt.Errorf("rules: rule name is required")
	}
	if factory == nil {
		return fmt.Errorf("rules: factory for %q is nil", info.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[info.Name]; exists {
		return fmt.Errorf("rules: rule %q already registered", info.Name)
	}
	r.entries[info.Name] = registration{info: info, factory: factory}
	r.order = append(r.order, info.Name)
	return nil
}

// Build instantiates the named rule.
func (r *Registry) Build(name string, env Env, options map[string]any) (Rule, error) {
	r.mu.RLock()
	entry, ok := r.entries[strings.TrimSpace(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("rules: unknown rule %q", name)
	}
	rule, err := entry.factory(env.withDefaults(), options)
	if err != nil {
		return nil, fmt.Errorf("rules: build %q: %w", name, err)
	}
	return rule, nil
}

// Spec names a rule and its options.
type Spec struct {
	Name    string
	Options map[string]any
}

// BuildAll instantiates a sequence of rules, keeping the given order.
func (r *Registry) BuildAll(env Env, specs []Spec) ([]Rule, error) {
	out := make([]Rule, 0, len(specs))
	for _, spec := range specs {
		rule, err := r.Build(spec.Name, env, spec.Options)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

// List returns registered rules in registration order.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].info)
	}
	return out
}

func decodeOptions(options map[string]any, out any) error {
	if len(options) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

func (r *Registry) registerBuiltins() {
	builtins := []struct {
		info    Info
		factory Factory
	}{
		{Info{NameTypeNormalization, "rewrite legacy field type aliases to accepted types", TypeNormalization{}.Constraints()}, newTypeNormalizationFactory},
		{Info{NameScopeIsolation, "prefix integration ids with a step marker and de-duplicate them", ScopeIsolation{}.Constraints()}, newScopeIsolationFactory},
		{Info{NameArrayDefaulting, "coerce absent or non-array configuration properties to []", Constraints{}}, newArrayDefaultingFactory},
		{Info{NameContentSafety, "normalise embedded markup and allow-list the document style payload", Constraints{}}, newContentSafetyFactory},
		{Info{NameNavigationGating, "disable the advance control of steps embedding a widget", Constraints{}}, newNavigationGatingFactory},
		{Info{NameResponseElision, "remove free-text response fields from scenario steps", ResponseElision{}.Constraints()}, newResponseElisionFactory},
		{Info{NameDirectFill, "unlock required free-text fields and drop the dynamic rules gating them", DirectFill{}.Constraints()}, newDirectFillFactory},
		{Info{NameConditionalGate, "add a dynamic rule showing a field when another field matches", ConditionalGate{}.Constraints()}, newConditionalGateFactory},
	}
	for _, b := range builtins {
		if err := r.Register(b.info, b.factory); err != nil {
			panic(err)
		}
	}
}
