package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

const (
	NameScopeIsolation = "scope-isolation"

	defaultEntryID = "start"
	scopeSeparator = "__"
)

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ScopeIsolationOptions configures ScopeIsolation.
type ScopeIsolationOptions struct {
	// Steps selects target steps by id or name. Empty targets every step.
	Steps []string `mapstructure:"steps"`
	// Scope overrides the registry uniqueness scope ("step" or "document").
	Scope string `mapstructure:"scope"`
	// EntryStep selects the designated entry step by id or name.
	EntryStep string `mapstructure:"entry_step"`
	// EntryID is the canonical id forced onto the entry step.
	EntryID string `mapstructure:"entry_id"`
	// ReferenceKeys names the dynamic-rule members rewritten after a rename.
	// Empty uses Env.ReferenceKeys.
	ReferenceKeys []string `mapstructure:"reference_keys"`
}

// ScopeIsolation prefixes every integration id in the targeted steps with a
// step marker so that unrelated steps never share synchronised values, then
// removes any remaining duplicates inside the uniqueness scope. References in
// the document dynamic rules follow renamed ids when the old id was unique.
type ScopeIsolation struct {
	steps     []string
	scope     document.Scope
	entryStep string
	entryID   string
	refKeys   []string
}

// NewScopeIsolation builds the rule.
func NewScopeIsolation(opts ScopeIsolationOptions, fallback document.Scope) (*ScopeIsolation, error) {
	scope := fallback
	if strings.TrimSpace(opts.Scope) != "" {
		parsed, err := document.ParseScope(opts.Scope)
		if err != nil {
			return nil, err
		}
		scope = parsed
	}
	if scope == "" {
		scope = document.ScopeStep
	}
	entryID := strings.TrimSpace(opts.EntryID)
	if entryID == "" {
		entryID = defaultEntryID
	}
	return &ScopeIsolation{
		steps:     opts.Steps,
		scope:     scope,
		entryStep: strings.TrimSpace(opts.EntryStep),
		entryID:   entryID,
		refKeys:   referenceKeys(opts.ReferenceKeys),
	}, nil
}

func newScopeIsolationFactory(env Env, options map[string]any) (Rule, error) {
	var opts ScopeIsolationOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if len(opts.ReferenceKeys) == 0 {
		opts.ReferenceKeys = env.ReferenceKeys
	}
	return NewScopeIsolation(opts, env.Scope)
}

func (ScopeIsolation) Name() string { return NameScopeIsolation }

func (ScopeIsolation) Constraints() Constraints {
	return Constraints{Labels: []string{LabelRewritesIDs}}
}

// StepPrefix returns the marker prepended to integration ids of a step.
func StepPrefix(stepID string, index int) string {
	cleaned := strings.Trim(unsafeIDChars.ReplaceAllString(stepID, "_"), "_")
	if cleaned == "" {
		cleaned = fmt.Sprintf("step%d", index)
	}
	return cleaned + scopeSeparator
}

func matchesStep(step *document.Step, selector string) bool {
	return selector != "" && (step.ID() == selector || step.Name() == selector)
}

func (r *ScopeIsolation) targeted(step *document.Step) bool {
	if len(r.steps) == 0 {
		return true
	}
	for _, selector := range r.steps {
		if matchesStep(step, strings.TrimSpace(selector)) {
			return true
		}
	}
	return false
}

// splitAnswer separates the answer marker from the rest of an id.
func splitAnswer(id string) (string, string) {
	if strings.HasPrefix(id, document.AnswerMarker) {
		return document.AnswerMarker, strings.TrimPrefix(id, document.AnswerMarker)
	}
	return "", id
}

// Apply isolates the targeted steps.
func (r *ScopeIsolation) Apply(doc *document.Document) (Result, error) {
	var result Result

	usage := map[string]int{}
	for _, step := range doc.Steps {
		for _, field := range step.Fields() {
			if id := field.IntegrationID(); id != "" {
				usage[id]++
			}
		}
	}
	origin := map[*document.Field]string{}

	targeted := make([]bool, len(doc.Steps))
	for si, step := range doc.Steps {
		if !r.targeted(step) {
			continue
		}
		targeted[si] = true

		if r.entryStep != "" && matchesStep(step, r.entryStep) {
			changed := false
			if step.ID() != r.entryID {
				step.SetID(r.entryID)
				changed = true
			}
			changed = step.SetFirstStep(true) || changed
			changed = step.SetLastStep(false) || changed
			if changed {
				result.Changed++
			}
		}

		prefix := StepPrefix(step.ID(), si)
		for _, field := range step.Fields() {
			id := field.IntegrationID()
			if id == "" {
				continue
			}
			marker, rest := splitAnswer(id)
			if strings.HasPrefix(rest, prefix) {
				continue
			}
			renamed := marker + prefix + rest
			field.SetIntegrationID(renamed)
			origin[field] = id
			result.Changed++
		}
	}

	result.Changed += r.deduplicate(doc, targeted, origin)

	renames := map[string][]string{}
	for field, old := range origin {
		renames[old] = append(renames[old], field.IntegrationID())
	}
	r.rewriteReferences(doc, usage, renames, &result)
	return result, nil
}

// deduplicate suffixes colliding ids of targeted steps with _2, _3, ...
func (r *ScopeIsolation) deduplicate(doc *document.Document, targeted []bool, origin map[*document.Field]string) int {
	seen := map[string]map[string]struct{}{}
	bucket := func(si int) map[string]struct{} {
		key := r.scope.Key(si)
		if seen[key] == nil {
			seen[key] = map[string]struct{}{}
		}
		return seen[key]
	}
	for si, step := range doc.Steps {
		if targeted[si] {
			continue
		}
		ids := bucket(si)
		for _, field := range step.Fields() {
			if id := field.IntegrationID(); id != "" {
				ids[id] = struct{}{}
			}
		}
	}

	changed := 0
	for si, step := range doc.Steps {
		if !targeted[si] {
			continue
		}
		ids := bucket(si)
		for _, field := range step.Fields() {
			id := field.IntegrationID()
			if id == "" {
				continue
			}
			if _, dup := ids[id]; !dup {
				ids[id] = struct{}{}
				continue
			}
			candidate := id
			for n := 2; ; n++ {
				candidate = fmt.Sprintf("%s_%d", id, n)
				if _, taken := ids[candidate]; !taken {
					break
				}
			}
			field.SetIntegrationID(candidate)
			ids[candidate] = struct{}{}
			if _, renamed := origin[field]; !renamed {
				origin[field] = id
			}
			changed++
		}
	}
	return changed
}

func (r *ScopeIsolation) rewriteReferences(doc *document.Document, usage map[string]int, renames map[string][]string, result *Result) {
	dynamic, ok := doc.DynamicRules()
	if !ok || len(dynamic) == 0 {
		return
	}
	olds := make([]string, 0, len(renames))
	for old := range renames {
		olds = append(olds, old)
	}
	sort.Strings(olds)
	for _, old := range olds {
		targets := renames[old]
		if !tree.ContainsReference(dynamic, r.refKeys, old) {
			continue
		}
		if usage[old] != 1 || len(targets) != 1 {
			result.warn(NameScopeIsolation, document.KeyDynamicRules,
				"dynamic rules reference %q which was shared by several fields; references left unchanged", old)
			continue
		}
		result.Changed += tree.ReplaceReference(dynamic, r.refKeys, old, targets[0])
	}
}
