package refresolve

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveRefFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "policy.xml"), []byte("<policies/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	in := map[string]interface{}{
		"$ref-policy": "policy.xml",
		"format":      "rawxml",
	}
	out, err := Resolve(in, dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out["policy"] != "<policies/>" {
		t.Errorf("policy = %v, want <policies/>", out["policy"])
	}
	if out["format"] != "rawxml" {
		t.Errorf("format = %v", out["format"])
	}
	if _, exists := out["$ref-policy"]; exists {
		t.Errorf("raw $ref- key should not survive resolution")
	}
}

func TestResolveRefsJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "groups.json"), []byte(`["admins","developers"]`), 0o644); err != nil {
		t.Fatal(err)
	}

	in := map[string]interface{}{"$refs-groups": "groups.json"}
	out, err := Resolve(in, dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []interface{}{"admins", "developers"}
	if !reflect.DeepEqual(out["groups"], want) {
		t.Errorf("groups = %v, want %v", out["groups"], want)
	}
}

func TestResolveMissingFileSwallowed(t *testing.T) {
	dir := t.TempDir()
	in := map[string]interface{}{"$ref-policy": "missing.xml"}
	out, err := Resolve(in, dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out["policy"] != "missing.xml" {
		t.Errorf("expected unresolved literal path preserved, got %v", out["policy"])
	}
}

func TestResolveNestedAndLists(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "body.html"), []byte("<p>hi</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	in := map[string]interface{}{
		"nested": map[string]interface{}{"$ref-body": "body.html"},
		"list": []interface{}{
			map[string]interface{}{"$ref-body": "body.html"},
			"literal",
		},
	}
	out, err := Resolve(in, dir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	nested := out["nested"].(map[string]interface{})
	if nested["body"] != "<p>hi</p>" {
		t.Errorf("nested body = %v", nested["body"])
	}
	list := out["list"].([]interface{})
	if list[0].(map[string]interface{})["body"] != "<p>hi</p>" {
		t.Errorf("list[0] body not resolved")
	}
	if list[1] != "literal" {
		t.Errorf("list[1] = %v", list[1])
	}
}
