package canon

import "testing"

func TestDigestKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"b": 2, "a": 1}
	b := map[string]interface{}{"a": 1, "b": 2}

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest(a): %v", err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatalf("Digest(b): %v", err)
	}
	if da != db {
		t.Errorf("expected key-order-independent digests to match, got %s vs %s", da, db)
	}
}

func TestDigestFormat(t *testing.T) {
	d, err := Digest(map[string]interface{}{"name": "gw-1"})
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if len(d) != len("sha256:")+64 || d[:7] != "sha256:" {
		t.Errorf("unexpected digest shape: %s", d)
	}
}

func TestDigestNested(t *testing.T) {
	v := map[string]interface{}{
		"x": map[string]interface{}{"z": 10, "y": 5},
	}
	b, err := Canonicalize(v)
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"x":{"y":5,"z":10}}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestHashBytes(t *testing.T) {
	got := HashBytes([]byte("<policies/>"))
	if got[:7] != "sha256:" {
		t.Errorf("expected sha256: prefix, got %s", got)
	}
}
