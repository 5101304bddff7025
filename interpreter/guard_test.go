package interpreter

import "testing"

func TestMatchEmptyGuardMatchesAnything(t *testing.T) {
	ok, err := Match(Where{}, PageState{URL: "https://example.com"}, nil)
	if err != nil || !ok {
		t.Fatalf("empty guard should match, got ok=%v err=%v", ok, err)
	}
}

func TestMatchURLExactAndRegex(t *testing.T) {
	w := Where{URL: &Matcher{Value: "https://example.com/login"}}
	ok, _ := Match(w, PageState{URL: "https://example.com/login"}, nil)
	if !ok {
		t.Fatal("expected exact URL match")
	}
	ok, _ = Match(w, PageState{URL: "https://example.com/home"}, nil)
	if ok {
		t.Fatal("expected exact URL mismatch to fail")
	}

	rw := Where{URL: &Matcher{Value: `^https://example\.com/items/\d+$`, Regex: true}}
	ok, _ = Match(rw, PageState{URL: "https://example.com/items/42"}, nil)
	if !ok {
		t.Fatal("expected regex URL match")
	}
	ok, _ = Match(rw, PageState{URL: "https://example.com/items/abc"}, nil)
	if ok {
		t.Fatal("expected regex URL mismatch to fail")
	}
}

func TestMatchCookies(t *testing.T) {
	w := Where{Cookies: map[string]Matcher{"session": {Value: "abc"}}}
	ok, _ := Match(w, PageState{Cookies: map[string]string{"session": "abc"}}, nil)
	if !ok {
		t.Fatal("expected cookie match")
	}
	ok, _ = Match(w, PageState{Cookies: map[string]string{}}, nil)
	if ok {
		t.Fatal("expected missing cookie to fail match")
	}
}

func TestMatchSelectorsIntersection(t *testing.T) {
	w := Where{Selectors: []string{"#login", "#signup"}}
	ok, _ := Match(w, PageState{Selectors: []string{"#signup"}}, nil)
	if !ok {
		t.Fatal("expected selector intersection to match")
	}
	ok, _ = Match(w, PageState{Selectors: []string{"#other"}}, nil)
	if ok {
		t.Fatal("expected disjoint selectors to fail")
	}
}

func TestMatchCombinators(t *testing.T) {
	w := Where{
		And: []Where{
			{URL: &Matcher{Value: "https://example.com"}},
			{Selectors: []string{"#ok"}},
		},
	}
	ok, _ := Match(w, PageState{URL: "https://example.com", Selectors: []string{"#ok"}}, nil)
	if !ok {
		t.Fatal("expected $and to match when both children match")
	}
	ok, _ = Match(w, PageState{URL: "https://example.com", Selectors: []string{"#other"}}, nil)
	if ok {
		t.Fatal("expected $and to fail when one child fails")
	}

	or := Where{Or: []Where{
		{URL: &Matcher{Value: "https://a.com"}},
		{URL: &Matcher{Value: "https://b.com"}},
	}}
	ok, _ = Match(or, PageState{URL: "https://b.com"}, nil)
	if !ok {
		t.Fatal("expected $or to match one of the children")
	}

	not := Where{Not: &Where{URL: &Matcher{Value: "https://a.com"}}}
	ok, _ = Match(not, PageState{URL: "https://b.com"}, nil)
	if !ok {
		t.Fatal("expected $not to invert its child")
	}
	ok, _ = Match(not, PageState{URL: "https://a.com"}, nil)
	if ok {
		t.Fatal("expected $not to reject when the child matches")
	}
}

func TestMatchBeforeAfter(t *testing.T) {
	before := Where{Before: &Matcher{Value: "submit"}}
	ok, _ := Match(before, PageState{}, []string{"load"})
	if !ok {
		t.Fatal("expected $before to match when the id hasn't fired")
	}
	ok, _ = Match(before, PageState{}, []string{"load", "submit"})
	if ok {
		t.Fatal("expected $before to fail once the id has fired")
	}

	after := Where{After: &Matcher{Value: "submit"}}
	ok, _ = Match(after, PageState{}, []string{"submit"})
	if !ok {
		t.Fatal("expected $after to match once the id has fired")
	}
	ok, _ = Match(after, PageState{}, nil)
	if ok {
		t.Fatal("expected $after to fail before the id has fired")
	}
}

func TestFindMatchPrefersLastMatchingPair(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{
		{ID: "general", Where: Where{}},
		{ID: "specific", Where: Where{URL: &Matcher{Value: "https://example.com"}}},
	}}
	res, err := FindMatch(wf, PageState{URL: "https://example.com"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || wf.Pairs[res.Index].ID != "specific" {
		t.Fatalf("expected the later, more specific pair to win, got index %d", res.Index)
	}
}

func TestFindMatchNoneFound(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{
		{ID: "only", Where: Where{URL: &Matcher{Value: "https://example.com"}}},
	}}
	res, err := FindMatch(wf, PageState{URL: "https://other.com"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Found {
		t.Fatal("expected no match")
	}
}
