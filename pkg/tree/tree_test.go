package tree_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formpatch/pkg/tree"
)

const orderedJSON = `{
  "b": 1,
  "a": {
    "z": "x<y",
    "y": [
      true,
      null,
      1.50
    ]
  },
  "empty": {},
  "list": []
}
`

func TestJSONRoundTripPreservesBytes(t *testing.T) {
	root, err := tree.DecodeJSON([]byte(orderedJSON))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a", "empty", "list"}, root.Keys()); diff != "" {
		t.Fatalf("key order mismatch (-want +got):\n%s", diff)
	}

	out, err := tree.EncodeJSON(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if diff := cmp.Diff(orderedJSON, string(out)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeJSONRejectsNonObjectRoot(t *testing.T) {
	if _, err := tree.DecodeJSON([]byte(`[1,2]`)); err == nil {
		t.Fatalf("expected error for array root")
	}
	if _, err := tree.DecodeJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatalf("expected error for trailing data")
	}
	if _, err := tree.DecodeJSON([]byte(`{"a":1,"a":2}`)); err == nil {
		t.Fatalf("expected error for duplicate keys")
	}
}

func TestYAMLMatchesJSONTree(t *testing.T) {
	yamlDoc := `
b: 1
a:
  z: "x<y"
  y: [true, null, 1.50]
empty: {}
list: []
`
	fromYAML, err := tree.DecodeYAML([]byte(yamlDoc))
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	fromJSON, err := tree.DecodeJSON([]byte(orderedJSON))
	if err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if diff := tree.Diff(fromJSON, fromYAML); diff != "" {
		t.Fatalf("yaml tree mismatch (-json +yaml):\n%s", diff)
	}
}

func TestYAMLRoundTripKeepsStringKinds(t *testing.T) {
	root := tree.NewObject(
		"flag", "true",
		"count", "123",
		"number", json.Number("42"),
		"ratio", json.Number("0.25"),
		"multiline", "line one\nline two\n",
		"nothing", nil,
		"nested", tree.NewObject("ok", true),
	)

	data, err := tree.EncodeYAML(root)
	if err != nil {
		t.Fatalf("encode yaml: %v", err)
	}
	back, err := tree.DecodeYAML(data)
	if err != nil {
		t.Fatalf("decode yaml: %v\n%s", err, data)
	}
	if diff := tree.Diff(root, back); diff != "" {
		t.Fatalf("yaml round trip mismatch (-want +got):\n%s\n%s", diff, data)
	}
}

func TestObjectSetKeepsPosition(t *testing.T) {
	obj := tree.NewObject("a", "1", "b", "2", "c", "3")
	obj.Set("b", "two")
	obj.Set("d", "4")
	if !obj.Delete("a") {
		t.Fatalf("expected a to be deleted")
	}

	if diff := cmp.Diff([]string{"b", "c", "d"}, obj.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if got := obj.String("b"); got != "two" {
		t.Fatalf("expected updated value, got %q", got)
	}
}

func TestLookupDottedPath(t *testing.T) {
	obj := tree.NewObject("settings", tree.NewObject("languages", []any{"en"}))

	value, ok := obj.Lookup("settings.languages")
	if !ok {
		t.Fatalf("expected lookup to succeed")
	}
	if diff := cmp.Diff([]any{"en"}, value); diff != "" {
		t.Fatalf("lookup mismatch (-want +got):\n%s", diff)
	}
	if _, ok := obj.Lookup("missing.languages"); ok {
		t.Fatalf("expected missing parent to fail")
	}
}

func TestCloneIsDeep(t *testing.T) {
	obj := tree.NewObject("list", []any{tree.NewObject("k", "v")})
	clone := obj.Clone()

	list, _ := clone.Array("list")
	list[0].(*tree.Object).Set("k", "changed")

	original, _ := obj.Array("list")
	if got := original[0].(*tree.Object).String("k"); got != "v" {
		t.Fatalf("expected original untouched, got %q", got)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]tree.Format{
		"form.json":      tree.FormatJSON,
		"form.YAML":      tree.FormatYAML,
		"dir/form.yml":   tree.FormatYAML,
		"no-extension":   tree.FormatJSON,
		"form.backup.js": tree.FormatJSON,
	}
	for path, want := range cases {
		if got := tree.FormatFromPath(path); got != want {
			t.Errorf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestEncodeJSONDoesNotEscapeMarkup(t *testing.T) {
	root := tree.NewObject("content", `<div class="x">a & b</div>`)
	out, err := tree.EncodeJSON(root)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `<div class=\"x\">a & b</div>`) {
		t.Fatalf("expected raw markup with escaped quotes, got %s", out)
	}
}

func TestReferencesOnlyFollowReferenceKeys(t *testing.T) {
	rules, err := tree.DecodeJSON([]byte(`{"dynamicRules":[
		{"conditions":[{"field":"phone","operator":"equals","value":"phone"}],
		 "actions":[{"type":"show","target":"phone"},{"type":"hide","targets":["email","phone"]}]}
	]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	keys := []string{"field", "target", "targets"}

	if !tree.ContainsReference(rules, keys, "email") {
		t.Fatalf("expected array reference to match")
	}
	if tree.ContainsReference(rules, keys, "equals") || tree.ContainsReference(rules, keys, "show") {
		t.Fatalf("expected operator and action type to be ignored")
	}

	if n := tree.ReplaceReference(rules, keys, "phone", "s1__phone"); n != 3 {
		t.Fatalf("expected 3 replacements, got %d", n)
	}
	value, _ := rules.Lookup("dynamicRules")
	entry := value.([]any)[0].(*tree.Object)
	conditions, _ := entry.Array("conditions")
	condition := conditions[0].(*tree.Object)
	if got := condition.String("value"); got != "phone" {
		t.Fatalf("expected condition value untouched, got %q", got)
	}
	if got := condition.String("field"); got != "s1__phone" {
		t.Fatalf("expected condition field rewritten, got %q", got)
	}
}

func TestEnsureParentCreatesIntermediates(t *testing.T) {
	root := tree.NewObject("name", "x", "blocked", "scalar")

	if !root.CanEnsureParent("settings.languages") || root.Has("settings") {
		t.Fatalf("expected creatable parent without mutation")
	}
	parent, key, ok := root.EnsureParent("settings.languages")
	if !ok || key != "languages" {
		t.Fatalf("unexpected parent %v %q %v", parent, key, ok)
	}
	parent.Set(key, []any{})
	if _, ok := root.Lookup("settings.languages"); !ok {
		t.Fatalf("expected created path")
	}

	if root.CanEnsureParent("blocked.items") {
		t.Fatalf("expected scalar intermediate to block creation")
	}
	if _, _, ok := root.EnsureParent("blocked.items"); ok {
		t.Fatalf("expected EnsureParent to fail over a scalar")
	}
}

func TestFormatForPath(t *testing.T) {
	cases := map[string]tree.Format{
		"out.yaml":    tree.FormatYAML,
		"out.JSON":    tree.FormatJSON,
		"out.yml":     tree.FormatYAML,
		"out.patched": tree.FormatYAML,
	}
	for path, want := range cases {
		if got := tree.FormatForPath(path, tree.FormatYAML); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}
