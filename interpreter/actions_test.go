package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestNormalizeArgsShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int // expected arg count, -1 for nil
	}{
		{"absent", "", -1},
		{"null", "null", -1},
		{"list", `["#sel", "value"]`, 2},
		{"bare string", `"#sel"`, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			args, err := normalizeArgs(json.RawMessage(c.raw))
			if err != nil {
				t.Fatal(err)
			}
			if c.want == -1 {
				if args != nil {
					t.Fatalf("expected nil args, got %v", args)
				}
				return
			}
			if len(args) != c.want {
				t.Fatalf("expected %d args, got %d (%v)", c.want, len(args), args)
			}
		})
	}
}

func TestNormalizeArgsInvalidJSON(t *testing.T) {
	if _, err := normalizeArgs(json.RawMessage("{not json")); err == nil {
		t.Fatal("expected an error for malformed args")
	}
}

func TestExecClickWithRetrySucceedsOnFirstTry(t *testing.T) {
	page := newFakePage("https://example.com")
	ac := &actionCtx{page: page, host: &recordingHost{}}
	skip, err := execClickWithRetry(context.Background(), ac, json.RawMessage(`"#button"`))
	if err != nil || skip {
		t.Fatalf("expected success without skipping, got skip=%v err=%v", skip, err)
	}
	if len(page.clicked) != 1 {
		t.Fatalf("expected exactly one click attempt, got %d", len(page.clicked))
	}
}

func TestExecClickWithRetryForcesOnSecondAttempt(t *testing.T) {
	page := newFakePage("https://example.com")
	page.clickErr = errors.New("not clickable")
	ac := &actionCtx{page: page, host: &recordingHost{}}
	skip, err := execClickWithRetry(context.Background(), ac, json.RawMessage(`"#button"`))
	if err != nil {
		t.Fatal(err)
	}
	if !skip {
		t.Fatal("expected the body to be skipped once both attempts fail")
	}
	if len(page.clicked) != 2 {
		t.Fatalf("expected two click attempts (plain then forced), got %d", len(page.clicked))
	}
}

func TestExecDottedDispatchesToDriverCall(t *testing.T) {
	page := newFakePage("https://example.com")
	ac := &actionCtx{page: page, host: &recordingHost{}}
	err := execDotted(context.Background(), ac, Action{Action: "hover", Args: json.RawMessage(`"#menu"`)})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.calls) != 1 || page.calls[0] != "hover" {
		t.Fatalf("expected a dispatched hover call, got %v", page.calls)
	}
}

func TestExecDottedTruncatesExtraTypeArgs(t *testing.T) {
	page := newFakePage("https://example.com")
	ac := &actionCtx{page: page, host: &recordingHost{}}
	err := execDotted(context.Background(), ac, Action{Action: "type", Args: json.RawMessage(`["#field", "value", "extra"]`)})
	if err != nil {
		t.Fatal(err)
	}
	if len(page.calls) != 1 {
		t.Fatalf("expected the type call to still dispatch once, got %v", page.calls)
	}
	if len(page.callArgs[0]) != 2 {
		t.Fatalf("expected the extra type arg to be dropped, got %v", page.callArgs[0])
	}
}

// recordingHost is a minimal Host used by action tests that don't care about
// callback content, only that calling it doesn't panic.
type recordingHost struct{}

func (recordingHost) Serializable(any)      {}
func (recordingHost) Binary([]byte, string) {}
func (recordingHost) ActiveID(string)       {}
func (recordingHost) DebugMessage(string)   {}
func (recordingHost) Flag(ctx context.Context, resume func()) {
	resume()
}
