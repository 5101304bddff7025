package interpreter

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Validate checks structural well-formedness of a workflow: every pair must
// have a Where (possibly empty) and a What that is a list of actions each
// carrying a non-empty Action name. It does not evaluate guards or
// parameters; that happens at match/run time.
func Validate(wf *Workflow) error {
	if wf == nil {
		return NewInterpreterError(ErrCodeValidation, "workflow is nil", nil)
	}
	for i, pair := range wf.Pairs {
		for j, action := range pair.What {
			if action.Action == "" {
				return NewInterpreterError(
					ErrCodeValidation,
					fmt.Sprintf("pair %d (%s) action %d has no action name", i, pair.ID, j),
					nil,
				)
			}
		}
		if err := validateWhere(pair.Where); err != nil {
			return NewInterpreterError(
				ErrCodeValidation,
				fmt.Sprintf("pair %d (%s) has an invalid where clause", i, pair.ID),
				err,
			)
		}
	}
	return nil
}

// validateWhere walks a guard tree checking that regex matchers compile and
// that boolean combinators are internally consistent (e.g. $not has exactly
// one child, already guaranteed by the Go type, so this mostly validates
// regexes up front rather than deferring the failure to match time).
func validateWhere(w Where) error {
	if err := validateMatcher(w.URL); err != nil {
		return fmt.Errorf("url: %w", err)
	}
	for i, sel := range w.Selectors {
		if err := validateSelector(sel); err != nil {
			return fmt.Errorf("selectors[%d]: %w", i, err)
		}
	}
	for name, m := range w.Cookies {
		if err := validateMatcher(&m); err != nil {
			return fmt.Errorf("cookies[%s]: %w", name, err)
		}
	}
	if err := validateMatcher(w.Before); err != nil {
		return fmt.Errorf("$before: %w", err)
	}
	if err := validateMatcher(w.After); err != nil {
		return fmt.Errorf("$after: %w", err)
	}
	for i, child := range w.And {
		if err := validateWhere(child); err != nil {
			return fmt.Errorf("$and[%d]: %w", i, err)
		}
	}
	for i, child := range w.Or {
		if err := validateWhere(child); err != nil {
			return fmt.Errorf("$or[%d]: %w", i, err)
		}
	}
	if w.Not != nil {
		if err := validateWhere(*w.Not); err != nil {
			return fmt.Errorf("$not: %w", err)
		}
	}
	return nil
}

func validateMatcher(m *Matcher) error {
	if m == nil || !m.Regex {
		return nil
	}
	_, err := compileRegex(m.Value)
	return err
}

// validateSelector checks that a guard selector parses as valid CSS, once
// the iframe (":>>") and shadow-DOM (">>") delimiters are split
// off — those are only meaningful to the in-page extractors, so cascadia
// only ever sees plain CSS segments. A selector that fails to parse here
// would also fail at match time inside the browser, just later and with a
// less useful error.
func validateSelector(selector string) error {
	for _, frame := range strings.Split(selector, ":>>") {
		for _, part := range strings.Split(frame, ">>") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, err := cascadia.Parse(part); err != nil {
				return fmt.Errorf("invalid selector %q: %w", part, err)
			}
		}
	}
	return nil
}
