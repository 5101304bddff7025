package interpreter

import (
	"encoding/json"
	"testing"
)

func TestInitializeSubstitutesParams(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{{
		What: []Action{{Action: "type", Args: json.RawMessage(`["#username", {"$param": "username"}]`)}},
	}}}

	out, err := Initialize(wf, map[string]any{"username": "alice"})
	if err != nil {
		t.Fatal(err)
	}

	var args []any
	if err := json.Unmarshal(out.Pairs[0].What[0].Args, &args); err != nil {
		t.Fatal(err)
	}
	if args[1] != "alice" {
		t.Fatalf("expected substituted value %q, got %v", "alice", args[1])
	}
}

func TestInitializeLeavesUnresolvedPlaceholderUntouched(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{{
		What: []Action{{Action: "type", Args: json.RawMessage(`{"$param": "missing"}`)}},
	}}}

	out, err := Initialize(wf, nil)
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	if err := json.Unmarshal(out.Pairs[0].What[0].Args, &v); err != nil {
		t.Fatal(err)
	}
	if _, ok := v["$param"]; !ok {
		t.Fatalf("expected the unresolved placeholder to survive untouched, got %v", v)
	}
}

func TestInitializeAssignsMissingPairIDs(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{{}, {ID: "explicit"}}}
	out, err := Initialize(wf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pairs[0].ID == "" {
		t.Fatal("expected a generated id for the pair with none")
	}
	if out.Pairs[1].ID != "explicit" {
		t.Fatalf("expected the explicit id to survive, got %q", out.Pairs[1].ID)
	}
}

func TestInitializeDoesNotMutateOriginal(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{{ID: "p1"}}}
	out, err := Initialize(wf, nil)
	if err != nil {
		t.Fatal(err)
	}
	out.Pairs[0].ID = "changed"
	if wf.Pairs[0].ID != "p1" {
		t.Fatal("expected Initialize to return an independent copy")
	}
}

func TestDeepCopyWorkflowIndependence(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{{ID: "p1", Where: Where{Selectors: []string{"#a"}}}}}
	cp, err := deepCopyWorkflow(wf)
	if err != nil {
		t.Fatal(err)
	}
	cp.Pairs[0].Where.Selectors[0] = "#b"
	if wf.Pairs[0].Where.Selectors[0] != "#a" {
		t.Fatal("expected deepCopyWorkflow to produce an independent copy")
	}
}
