package interpreter

import (
	"regexp"
	"sync"
)

// regexCache avoids recompiling the same pattern on every match call; guards
// are matched on every loop iteration so this matters for workflows with
// many pairs.
var (
	regexCacheMu sync.Mutex
	regexCache   = make(map[string]*regexp.Regexp)
)

func compileRegex(pattern string) (*regexp.Regexp, error) {
	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()
	if re, ok := regexCache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache[pattern] = re
	return re, nil
}

// matchString evaluates a Matcher against a concrete string.
func matchString(m *Matcher, value string) bool {
	if m == nil {
		return true
	}
	if !m.Regex {
		return m.Value == value
	}
	re, err := compileRegex(m.Value)
	if err != nil {
		return false
	}
	return re.MatchString(value)
}

// Match evaluates a single guard against a page state and the ordered list
// of action ids fired so far in this run. An empty Where matches anything
// (rule 1).
func Match(w Where, state PageState, firedIDs []string) (bool, error) {
	// A combinator sharing a node with base predicates means the
	// conjunction of both, so combinators are folded in below rather than
	// treated as exclusive.
	if w.IsEmpty() {
		return true, nil
	}

	if w.URL != nil && !matchString(w.URL, state.URL) {
		return false, nil
	}

	for name, m := range w.Cookies {
		val, ok := state.Cookies[name]
		if !ok {
			return false, nil
		}
		mm := m
		if !matchString(&mm, val) {
			return false, nil
		}
	}

	if w.Selectors != nil {
		if !matchSelectors(w.Selectors, state.Selectors) {
			return false, nil
		}
	}

	for _, child := range w.And {
		ok, err := Match(child, state, firedIDs)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if len(w.Or) > 0 {
		any := false
		for _, child := range w.Or {
			ok, err := Match(child, state, firedIDs)
			if err != nil {
				return false, err
			}
			if ok {
				any = true
				break
			}
		}
		if !any {
			return false, nil
		}
	}

	if w.Not != nil {
		ok, err := Match(*w.Not, state, firedIDs)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}

	if w.Before != nil {
		if hasFired(w.Before, firedIDs) {
			return false, nil
		}
	}

	if w.After != nil {
		if !hasFired(w.After, firedIDs) {
			return false, nil
		}
	}

	return true, nil
}

// matchSelectors implements the selectors leaf: both lists empty matches;
// otherwise the intersection must be non-empty.
func matchSelectors(guardSelectors, attached []string) bool {
	if len(guardSelectors) == 0 && len(attached) == 0 {
		return true
	}
	attachedSet := make(map[string]struct{}, len(attached))
	for _, s := range attached {
		attachedSet[s] = struct{}{}
	}
	for _, s := range guardSelectors {
		if _, ok := attachedSet[s]; ok {
			return true
		}
	}
	return false
}

// hasFired reports whether an action id (or regex over ids) appears in the
// ordered firedIDs history.
func hasFired(m *Matcher, firedIDs []string) bool {
	for _, id := range firedIDs {
		if matchString(m, id) {
			return true
		}
	}
	return false
}

// MatchResult is the outcome of scanning a workflow for the applicable pair.
type MatchResult struct {
	Index int  // index into wf.Pairs, -1 if none matched
	Found bool
}

// FindMatch scans the workflow from last to first and returns the index of
// the first pair whose guard matches. Later-declared pairs are more
// specific overrides, so scanning from the tail makes an override beat a
// more general earlier rule without extra annotations. Ties cannot occur:
// the first match found from the tail wins.
func FindMatch(wf *Workflow, state PageState, firedIDs []string) (MatchResult, error) {
	for i := len(wf.Pairs) - 1; i >= 0; i-- {
		ok, err := Match(wf.Pairs[i].Where, state, firedIDs)
		if err != nil {
			return MatchResult{}, err
		}
		if ok {
			return MatchResult{Index: i, Found: true}, nil
		}
	}
	return MatchResult{Index: -1, Found: false}, nil
}
