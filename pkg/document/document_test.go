package document_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/testsupport"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

func TestParseMarshalPreservesUntouchedDocument(t *testing.T) {
	doc := testsupport.SampleDocument(t)
	got := testsupport.MustMarshalJSON(t, doc)

	if diff := cmp.Diff(testsupport.SampleDocumentJSON, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeReportsStructuralPath(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		path string
	}{
		{
			name: "missing steps",
			raw:  `{"name":"x"}`,
			path: "$",
		},
		{
			name: "steps not an array",
			raw:  `{"steps":null}`,
			path: "steps",
		},
		{
			name: "missing rows",
			raw:  `{"steps":[{"blocks":[]},{"blocks":[{"rows":[]},{"title":"b"}]}]}`,
			path: "steps[1].blocks[1]",
		},
		{
			name: "missing fields",
			raw:  `{"steps":[{"blocks":[{"rows":[{"fields":[]},{"fields":[]}]}]},{"blocks":[]},{"blocks":[{"rows":[]},{"rows":[{"fields":[]},{}]}]}]}`,
			path: "steps[2].blocks[1].rows[1]",
		},
		{
			name: "field not an object",
			raw:  `{"steps":[{"blocks":[{"rows":[{"fields":["oops"]}]}]}]}`,
			path: "steps[0].blocks[0].rows[0].fields[0]",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := document.Parse([]byte(tc.raw), tree.FormatJSON)
			var structErr *document.StructuralError
			if !errors.As(err, &structErr) {
				t.Fatalf("expected StructuralError, got %v", err)
			}
			if structErr.Path != tc.path {
				t.Fatalf("expected path %q, got %q (%v)", tc.path, structErr.Path, err)
			}
		})
	}
}

func TestDecodeKeepsOptionalArraysUntouched(t *testing.T) {
	doc := testsupport.MustParseJSON(t, `{"steps":[],"dynamicRules":null}`)

	value, ok := doc.Props().Get(document.KeyDynamicRules)
	if !ok || value != nil {
		t.Fatalf("expected dynamicRules to remain null, got %#v", value)
	}
}

func TestWalkFieldsVisitsInDocumentOrder(t *testing.T) {
	doc := testsupport.SampleDocument(t)

	var paths []string
	var ids []string
	err := document.WalkFields(doc, func(field *document.Field, ctx *document.FieldContext) error {
		paths = append(paths, ctx.Path())
		ids = append(ids, ctx.Step.ID()+"/"+field.IntegrationID())
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	wantPaths := []string{
		"steps[0].blocks[0].rows[0].fields[0]",
		"steps[0].blocks[0].rows[0].fields[1]",
		"steps[1].blocks[0].rows[0].fields[0]",
		"steps[1].blocks[0].rows[0].fields[1]",
		"steps[1].blocks[0].rows[0].fields[2]",
		"steps[2].blocks[0].rows[0].fields[0]",
		"steps[2].blocks[0].rows[0].fields[1]",
	}
	if diff := cmp.Diff(wantPaths, paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
	wantIDs := []string{
		"intro/", "intro/name",
		"roleplay-1/", "roleplay-1/roleplay_done", "roleplay-1/notes",
		"details/notes", "details/otp",
	}
	if diff := cmp.Diff(wantIDs, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestWalkFieldsRemovalDuringIteration(t *testing.T) {
	doc := testsupport.MustParseJSON(t, `{"steps":[{"blocks":[{"rows":[{"fields":[
		{"type":"text","integrationID":"a"},
		{"type":"text","integrationID":"b"},
		{"type":"text","integrationID":"c"}
	]}]}]}]}`)

	var visited []string
	err := document.WalkFields(doc, func(field *document.Field, ctx *document.FieldContext) error {
		visited = append(visited, field.IntegrationID())
		if field.IntegrationID() != "c" {
			ctx.Remove()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b", "c"}, visited); diff != "" {
		t.Fatalf("visited mismatch (-want +got):\n%s", diff)
	}
	row := doc.Steps[0].Blocks[0].Rows[0]
	if len(row.Fields) != 1 || row.Fields[0].IntegrationID() != "c" {
		t.Fatalf("expected only field c to remain, got %d fields", len(row.Fields))
	}

	out := testsupport.MustMarshalJSON(t, doc)
	back := testsupport.MustParseJSON(t, out)
	if got := len(back.Steps[0].Blocks[0].Rows[0].Fields); got != 1 {
		t.Fatalf("expected removal to survive serialisation, got %d fields", got)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	doc := testsupport.SampleDocument(t)

	count := 0
	err := document.WalkSteps(doc, func(step *document.Step, index int) error {
		count++
		if index == 1 {
			return document.ErrStopWalk
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected walk to stop after two steps, visited %d", count)
	}
}

func TestEnsureNavigationIsAdditive(t *testing.T) {
	doc := testsupport.SampleDocument(t)
	intro := testsupport.StepByID(t, doc, "intro")

	next := intro.EnsureNavigation(document.NavNext)
	if next.Label() != "Start" {
		t.Fatalf("expected existing control to be reused, got label %q", next.Label())
	}

	details := testsupport.StepByID(t, doc, "details")
	if _, ok := details.Navigation(document.NavNext); ok {
		t.Fatalf("expected details to start without navigation")
	}
	details.EnsureNavigation(document.NavNext).SetFlag(document.FlagDisabled, true)
	control, ok := details.Navigation(document.NavNext)
	if !ok || !control.DisabledByDefault() {
		t.Fatalf("expected created control to be disabled by default")
	}
}

func TestFieldAccessors(t *testing.T) {
	field := document.NewField(tree.NewObject(
		"type", "text",
		"integrationID", document.AnswerMarker+"q1",
		"editable", false,
	))

	if !field.IsAnswerSlot() {
		t.Fatalf("expected answer slot")
	}
	if field.Editable() {
		t.Fatalf("expected explicit editable=false")
	}
	if changed := field.SetFlag(document.FlagRequired, false); !changed {
		t.Fatalf("expected absent flag to be written")
	}
	if changed := field.SetFlag(document.FlagRequired, false); changed {
		t.Fatalf("expected identical flag write to be a no-op")
	}
	if !field.Type().IsAccepted() || !field.Type().IsFreeText() {
		t.Fatalf("expected text to be an accepted free-text type")
	}
	if document.FieldType("textarea").IsAccepted() {
		t.Fatalf("expected legacy alias to be rejected")
	}
}

func TestArrayViolationsCreateAbsentDocumentParents(t *testing.T) {
	props := document.ArrayProperties{Document: []string{"settings.languages"}}

	doc := testsupport.MustParseJSON(t, `{"steps":[]}`)
	violations := document.FindArrayViolations(doc, props)
	if len(violations) != 1 || violations[0].Path != "settings.languages" || violations[0].Kind != "absent" {
		t.Fatalf("expected absent settings.languages, got %+v", violations)
	}
	violations[0].Reset()

	want := "{\n  \"steps\": [],\n  \"settings\": {\n    \"languages\": []\n  }\n}\n"
	if diff := cmp.Diff(want, testsupport.MustMarshalJSON(t, doc)); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
	if got := document.FindArrayViolations(doc, props); len(got) != 0 {
		t.Fatalf("expected no violations after reset, got %+v", got)
	}

	blocked := testsupport.MustParseJSON(t, `{"steps":[],"settings":"legacy"}`)
	if got := document.FindArrayViolations(blocked, props); len(got) != 0 {
		t.Fatalf("expected non-object parent to be left alone, got %+v", got)
	}
}
