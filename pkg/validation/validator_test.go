package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/engine"
	"github.com/goliatone/go-formpatch/pkg/rules"
	"github.com/goliatone/go-formpatch/pkg/testsupport"
	"github.com/goliatone/go-formpatch/pkg/tree"
	"github.com/goliatone/go-formpatch/pkg/validation"
)

type issueKey struct {
	Code string
	Path string
}

func keys(report validation.Report) []issueKey {
	out := make([]issueKey, 0, len(report.Issues))
	for _, issue := range report.Issues {
		out = append(out, issueKey{Code: issue.Code, Path: issue.Path})
	}
	return out
}

func TestValidateReportsEveryViolation(t *testing.T) {
	doc := testsupport.SampleDocument(t)
	report := validation.Validate(doc, validation.Options{Scope: document.ScopeDocument})

	want := []issueKey{
		{validation.CodeDuplicateIntegrationID, "steps[2].blocks[0].rows[0].fields[0]"},
		{validation.CodeUnknownFieldType, "steps[2].blocks[0].rows[0].fields[0]"},
		{validation.CodeArrayProperty, "hiddenFields"},
		{validation.CodeArrayProperty, "calculations"},
		{validation.CodeArrayProperty, "webhooks"},
		{validation.CodeArrayProperty, "settings.languages"},
		{validation.CodeArrayProperty, "steps[2].blocks[0].rows[0].fields[1].otpConfig.optionalFields"},
		{validation.CodeUngatedWidget, "steps[1].navigation.next"},
	}
	if diff := cmp.Diff(want, keys(report)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
	if report.Valid {
		t.Fatalf("expected invalid report")
	}

	var verr *validation.ValidationError
	if !errors.As(report.Err(), &verr) || len(verr.Issues) != len(want) {
		t.Fatalf("expected ValidationError carrying every issue, got %v", report.Err())
	}
}

func TestValidateUniquenessFollowsScope(t *testing.T) {
	raw := `{"dynamicRules":[],"hiddenFields":[],"calculations":[],"webhooks":[],"settings":{"languages":[]},"steps":[
		{"id":"a","blocks":[{"rows":[{"fields":[{"type":"text","integrationID":"x"}]}]}]},
		{"id":"a","blocks":[{"rows":[{"fields":[{"type":"text","integrationID":"x"}]}]}]}
	]}`

	stepScoped := validation.Validate(testsupport.MustParseJSON(t, raw), validation.Options{})
	if diff := cmp.Diff([]issueKey{{validation.CodeDuplicateStepID, "steps[1]"}}, keys(stepScoped)); diff != "" {
		t.Fatalf("step scope mismatch (-want +got):\n%s", diff)
	}

	docScoped := validation.Validate(testsupport.MustParseJSON(t, raw), validation.Options{Scope: document.ScopeDocument})
	want := []issueKey{
		{validation.CodeDuplicateStepID, "steps[1]"},
		{validation.CodeDuplicateIntegrationID, "steps[1].blocks[0].rows[0].fields[0]"},
	}
	if diff := cmp.Diff(want, keys(docScoped)); diff != "" {
		t.Fatalf("document scope mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAfterPipelineIsClean(t *testing.T) {
	doc := testsupport.SampleDocument(t)
	sequence, err := rules.DefaultRegistry().BuildAll(rules.DefaultEnv(), []rules.Spec{
		{Name: rules.NameTypeNormalization},
		{Name: rules.NameScopeIsolation, Options: map[string]any{"scope": "document"}},
		{Name: rules.NameArrayDefaulting},
		{Name: rules.NameContentSafety},
		{Name: rules.NameNavigationGating},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := engine.New().Apply(context.Background(), doc, sequence); err != nil {
		t.Fatalf("apply: %v", err)
	}

	report := validation.Validate(doc, validation.Options{Scope: document.ScopeDocument})
	if !report.Valid || report.Err() != nil {
		t.Fatalf("expected valid document, got %v", report.Issues)
	}

	out := testsupport.MustMarshalJSON(t, doc)
	back := testsupport.MustParseJSON(t, out)
	if diff := tree.Diff(document.Encode(doc), document.Encode(back)); diff != "" {
		t.Fatalf("round trip mismatch:\n%s", diff)
	}
}

func TestValidateReportsRoundTripFailures(t *testing.T) {
	doc := testsupport.MustParseJSON(t, `{"steps":[],"dynamicRules":[],"hiddenFields":[],"calculations":[],"webhooks":[],"settings":{"languages":[]}}`)
	doc.Props().Set("broken", 42)

	report := validation.Validate(doc, validation.Options{})
	want := []issueKey{
		{validation.CodeRoundTrip, "json"},
		{validation.CodeRoundTrip, "yaml"},
	}
	if diff := cmp.Diff(want, keys(report)); diff != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateMissingAndNonStringTypes(t *testing.T) {
	doc := testsupport.MustParseJSON(t, `{"dynamicRules":[],"hiddenFields":[],"calculations":[],"webhooks":[],"settings":{"languages":[]},
		"steps":[{"blocks":[{"rows":[{"fields":[{"label":"x"},{"type":3}]}]}]}]}`)
	report := validation.Validate(doc, validation.Options{})

	var messages []string
	for _, issue := range report.Issues {
		messages = append(messages, issue.Message)
	}
	want := []string{"field type is missing", "field type must be a string, got number"}
	if diff := cmp.Diff(want, messages); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}
}

func gatingPaths(report validation.Report) []string {
	var paths []string
	for _, issue := range report.Issues {
		if issue.Code == validation.CodeUngatedWidget {
			paths = append(paths, issue.Path)
		}
	}
	return paths
}

func TestValidateGatingFollowsConfiguredControl(t *testing.T) {
	doc := testsupport.SampleDocument(t)
	env := rules.DefaultEnv()
	env.GateControl = "advance"
	sequence, err := rules.DefaultRegistry().BuildAll(env, []rules.Spec{{Name: rules.NameNavigationGating}})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := engine.New().Apply(context.Background(), doc, sequence); err != nil {
		t.Fatalf("apply: %v", err)
	}

	gated := validation.Validate(doc, validation.Options{GateControl: "advance"})
	if paths := gatingPaths(gated); len(paths) != 0 {
		t.Fatalf("expected gated control to satisfy validation, got %v", paths)
	}

	fallback := validation.Validate(doc, validation.Options{})
	if diff := cmp.Diff([]string{"steps[1].navigation.next"}, gatingPaths(fallback)); diff != "" {
		t.Fatalf("default control mismatch (-want +got):\n%s", diff)
	}
}
