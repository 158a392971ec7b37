package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/store"
	"github.com/goliatone/go-formpatch/pkg/testsupport"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

func TestDefaultTarget(t *testing.T) {
	cases := map[string]string{
		"form.json":        "form.patched.json",
		"dir/form.yaml":    "dir/form.patched.yaml",
		"noext":            "noext.patched",
		"a.b/form.v2.json": "a.b/form.v2.patched.json",
	}
	for source, want := range cases {
		if got := store.DefaultTarget(source); got != want {
			t.Errorf("DefaultTarget(%q) = %q, want %q", source, got, want)
		}
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	source := testsupport.WriteFile(t, dir, "form.json", testsupport.SampleDocumentJSON)

	doc, format, err := store.Load(context.Background(), source)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if format != tree.FormatJSON {
		t.Fatalf("expected json format, got %s", format)
	}

	target := store.DefaultTarget(source)
	if err := store.Save(target, doc, format, store.SaveOptions{Source: source}); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if diff := cmp.Diff(testsupport.SampleDocumentJSON, string(data)); diff != "" {
		t.Fatalf("saved document mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
}

func TestSaveRefusesToOverwriteSource(t *testing.T) {
	dir := t.TempDir()
	source := testsupport.WriteFile(t, dir, "form.json", testsupport.SampleDocumentJSON)
	doc := testsupport.SampleDocument(t)
	doc.SetCustomCSS("")

	err := store.Save(filepath.Join(dir, ".", "form.json"), doc, tree.FormatJSON, store.SaveOptions{Source: source})
	if !errors.Is(err, store.ErrOverwrite) {
		t.Fatalf("expected ErrOverwrite, got %v", err)
	}
	data, _ := os.ReadFile(source)
	if string(data) != testsupport.SampleDocumentJSON {
		t.Fatalf("source modified despite refusal")
	}

	if err := store.Save(source, doc, tree.FormatJSON, store.SaveOptions{Source: source, AllowOverwrite: true}); err != nil {
		t.Fatalf("in-place save: %v", err)
	}
	reloaded, _, err := store.Load(context.Background(), source)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.CustomCSS() != "" {
		t.Fatalf("expected in-place save to persist changes")
	}
}

func TestSaveKeepsExistingMode(t *testing.T) {
	dir := t.TempDir()
	target := testsupport.WriteFile(t, dir, "out.json", "{}")
	if err := os.Chmod(target, 0o600); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := store.Save(target, testsupport.SampleDocument(t), tree.FormatJSON, store.SaveOptions{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestLoadFSDetectsYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"forms/form.yaml": {Data: []byte("steps:\n  - id: one\n    blocks: []\n")},
		"forms/bad.json":  {Data: []byte(`{"steps":[{"id":"one"}]}`)},
	}

	doc, format, err := store.LoadFS(context.Background(), fsys, "forms/form.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if format != tree.FormatYAML || doc.Steps[0].ID() != "one" {
		t.Fatalf("unexpected load result: %s %q", format, doc.Steps[0].ID())
	}

	_, _, err = store.LoadFS(context.Background(), fsys, "forms/bad.json")
	var structErr *document.StructuralError
	if !errors.As(err, &structErr) || structErr.Path != "steps[0]" {
		t.Fatalf("expected structural error at steps[0], got %v", err)
	}
}

func TestLoadHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := store.Load(ctx, "missing.json"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
