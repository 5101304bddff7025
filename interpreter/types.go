package interpreter

import "encoding/json"

// Workflow is an ordered sequence of Pairs. Order matters: the matcher
// prefers later pairs on ties (see FindMatch).
type Workflow struct {
	Pairs []Pair `json:"pairs"`
}

// Pair is a single where→what rule. ID is stable across the lifetime of a
// workflow and is appended to firedIds when the pair's body runs.
type Pair struct {
	ID    string   `json:"id,omitempty"`
	Label string   `json:"label,omitempty"` // descriptive only, never read by the matcher
	Where Where    `json:"where"`
	What  []Action `json:"what"`
}

// Where is a guard: a tree of base predicates and boolean combinators.
// Base predicates are conjunctive when several are set on the same node.
type Where struct {
	URL       *Matcher           `json:"url,omitempty"`
	Cookies   map[string]Matcher `json:"cookies,omitempty"`
	Selectors []string           `json:"selectors"`

	And []Where `json:"$and,omitempty"`
	Or  []Where `json:"$or,omitempty"`
	Not *Where  `json:"$not,omitempty"`

	Before *Matcher `json:"$before,omitempty"`
	After  *Matcher `json:"$after,omitempty"`
}

// IsEmpty reports whether the guard carries no predicates at all, in which
// case it matches any state (rule 1 of the matcher).
func (w Where) IsEmpty() bool {
	return w.URL == nil && len(w.Cookies) == 0 && w.Selectors == nil &&
		len(w.And) == 0 && len(w.Or) == 0 && w.Not == nil &&
		w.Before == nil && w.After == nil
}

// Matcher is either a literal string (equality) or a regular expression.
// When Regex is true, Value is compiled and used with regexp.MatchString.
type Matcher struct {
	Value string `json:"value"`
	Regex bool   `json:"regex,omitempty"`
}

// Action is a single step of a pair's body: either a built-in primitive
// (scrape, scrapeList, scroll, ...) or a dotted path into the driver API.
type Action struct {
	Action  string          `json:"action"`
	Args    json.RawMessage `json:"args,omitempty"`
	Timeout int             `json:"timeoutMs,omitempty"` // override of the default per-action deadline
}

// ParamPlaceholder is the shape substituted by the initializer: any Args
// value of the form {"$param": "<name>"} is replaced by the caller-supplied
// parameter of that name.
type ParamPlaceholder struct {
	Param string `json:"$param"`
}

// PageState is the observable tuple the matcher runs against. It is
// recomputed before every matching decision and is otherwise ephemeral.
type PageState struct {
	URL       string
	Cookies   map[string]string
	Selectors []string
}

// ScrapeSchemaField describes one field of a scrapeSchema action.
type ScrapeSchemaField struct {
	Selector  string `json:"selector"`
	Tag       string `json:"tag,omitempty"`       // "text" (default), "html", or an attribute name via Attribute
	Attribute string `json:"attribute,omitempty"`
	Shadow    bool   `json:"shadow,omitempty"`
}

// Pagination describes the strategy scrapeList uses to traverse multiple
// pages of a list.
type Pagination struct {
	Type     string `json:"type,omitempty"` // "", "none", "scrollDown", "scrollUp", "clickNext", "clickLoadMore"
	Selector string `json:"selector,omitempty"`
}

// ScrapeListArgs is the argument shape of the scrapeList built-in.
type ScrapeListArgs struct {
	ListSelector string                       `json:"listSelector"`
	Fields       map[string]ScrapeSchemaField `json:"fields"`
	Limit        int                          `json:"limit,omitempty"`
	Pagination   Pagination                   `json:"pagination,omitempty"`
}

// Row is one extracted record: field name to extracted string value.
type Row map[string]string

// ScrapeArgs is the argument shape of the scrape built-in. A bare string (or
// single-element list) is still accepted as shorthand for {selector: ...};
// see parseScrapeArgs.
type ScrapeArgs struct {
	Selector    string   `json:"selector,omitempty"`
	Markdown    bool     `json:"markdown,omitempty"`    // run the extracted HTML through a main-content extractor + markdown rendering
	ExtractMode string   `json:"extractMode,omitempty"` // "readability" (default) or "pruning"; markdown mode only
	Citations   bool     `json:"citations,omitempty"`   // rewrite inline links to reference-style citations (markdown mode only)
	IncludeTags []string `json:"includeTags,omitempty"` // keep only these CSS selectors before rendering markdown
	ExcludeTags []string `json:"excludeTags,omitempty"` // drop these CSS selectors before rendering markdown
}
