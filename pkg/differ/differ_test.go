package differ

import "testing"

func TestDiffCreate(t *testing.T) {
	local := map[string]Side{
		"backend:echo": {Kind: "backend", ID: "echo", Hash: "sha256:a", Properties: map[string]interface{}{"url": "https://echo"}},
	}
	changes := Diff(local, map[string]Side{})
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Action != Create || changes[0].Detail != "new" {
		t.Errorf("unexpected change: %+v", changes[0])
	}
}

func TestDiffDelete(t *testing.T) {
	state := map[string]Side{
		"backend:echo": {Kind: "backend", ID: "echo", Hash: "sha256:a", Properties: map[string]interface{}{"url": "https://echo"}},
	}
	changes := Diff(map[string]Side{}, state)
	if len(changes) != 1 || changes[0].Action != Delete {
		t.Fatalf("expected 1 delete change, got %+v", changes)
	}
}

func TestDiffNoop(t *testing.T) {
	side := Side{Kind: "backend", ID: "echo", Hash: "sha256:a", Properties: map[string]interface{}{"url": "https://echo"}}
	local := map[string]Side{"backend:echo": side}
	state := map[string]Side{"backend:echo": side}
	changes := Diff(local, state)
	if len(changes) != 1 || changes[0].Action != Noop {
		t.Fatalf("expected 1 noop change, got %+v", changes)
	}
}

func TestDiffUpdateWithDetail(t *testing.T) {
	local := map[string]Side{
		"backend:echo": {Kind: "backend", ID: "echo", Hash: "sha256:b", Properties: map[string]interface{}{"url": "https://echo2", "timeout": 30}},
	}
	state := map[string]Side{
		"backend:echo": {Kind: "backend", ID: "echo", Hash: "sha256:a", Properties: map[string]interface{}{"url": "https://echo", "timeout": 30}},
	}
	changes := Diff(local, state)
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	c := changes[0]
	if c.Action != Update {
		t.Fatalf("expected update, got %v", c.Action)
	}
	if c.Detail != `url 'https://echo'→'https://echo2'` {
		t.Errorf("detail = %q", c.Detail)
	}
}

func TestDiffDetailTruncatesAtThree(t *testing.T) {
	old := map[string]interface{}{"a": "1", "b": "1", "c": "1", "d": "1"}
	nw := map[string]interface{}{"a": "2", "b": "2", "c": "2", "d": "2"}
	detail := diffDetail(old, nw)
	if detail != `a '1'→'2', b '1'→'2', c '1'→'2'...` {
		t.Errorf("detail = %q", detail)
	}
}

func TestDiffDetailAddedRemoved(t *testing.T) {
	old := map[string]interface{}{"x": "1"}
	nw := map[string]interface{}{"y": "2"}
	detail := diffDetail(old, nw)
	if detail != "removed x, added y" {
		t.Errorf("detail = %q", detail)
	}
}

func TestDisplayNameFallsBackToID(t *testing.T) {
	s := Side{ID: "echo", Properties: map[string]interface{}{}}
	if got := displayName(s); got != "echo" {
		t.Errorf("displayName = %q", got)
	}
}

func TestSortedOutput(t *testing.T) {
	local := map[string]Side{
		"backend:zebra": {Kind: "backend", ID: "zebra", Hash: "sha256:z"},
		"backend:apple": {Kind: "backend", ID: "apple", Hash: "sha256:a"},
	}
	changes := Diff(local, map[string]Side{})
	if changes[0].Key != "backend:apple" || changes[1].Key != "backend:zebra" {
		t.Errorf("expected sorted keys, got %v, %v", changes[0].Key, changes[1].Key)
	}
}
