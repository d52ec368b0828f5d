// Package engine runs a corpus of documents against a set of rules by
// calling an LLM oracle once per (document, rule) pair and folding the
// judgments into an order-stable summary.
package engine

// Severity is the weight a rule carries when it fails.
type Severity string

const (
	SeverityError Severity = "error"
	SeverityWarn  Severity = "warn"
)

// Document is one unit of text content to evaluate. Documents are owned by
// the caller and read-only for the duration of a run.
type Document struct {
	Path    string `json:"path"`
	Content string `json:"-"`
}

// Rule is one externally authored evaluation criterion. Criteria is free
// text fed verbatim into the oracle prompt.
type Rule struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Criteria string   `json:"criteria"`
}

// SuggestedFix is an opaque remediation hint from the oracle. Line is the
// only field trusted as an exact location; the quotation fields are free
// text and may not appear byte-for-byte in the source.
type SuggestedFix struct {
	Line     int    `json:"line,omitempty"`
	Before   string `json:"before,omitempty"`
	After    string `json:"after,omitempty"`
	Quote    string `json:"quote,omitempty"`
	Original string `json:"original,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Judgment is the oracle's parsed verdict for one (document, rule) task.
// RuleID is always forced to the rule that produced the call; the oracle is
// not trusted to echo identifiers faithfully.
type Judgment struct {
	RuleID         string         `json:"rule_id"`
	Pass           bool           `json:"pass"`
	Rationale      string         `json:"rationale"`
	SuggestedFixes []SuggestedFix `json:"suggested_fixes,omitempty"`
}

// RuleOutcome is a Judgment plus the rule's severity and, for failing
// judgments, a best-effort 1-based source line.
type RuleOutcome struct {
	Judgment
	Severity Severity `json:"severity"`
	Line     int      `json:"line"`
}

// DocumentResult collects all rule outcomes for one document.
// Pass is the AND over every outcome's Pass.
type DocumentResult struct {
	Path     string        `json:"path"`
	Pass     bool          `json:"pass"`
	Outcomes []RuleOutcome `json:"outcomes"`
}

// Summary is the final report shape consumed by the renderers.
// Passed and Failed count documents, not individual outcomes.
type Summary struct {
	Checked int              `json:"checked"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	Results []DocumentResult `json:"results"`
}

// FailedErrors reports how many documents have at least one failing outcome
// with error severity. Used by the CLI exit-code policy.
func (s Summary) FailedErrors() int {
	n := 0
	for _, r := range s.Results {
		for _, o := range r.Outcomes {
			if !o.Pass && o.Severity == SeverityError {
				n++
				break
			}
		}
	}
	return n
}
