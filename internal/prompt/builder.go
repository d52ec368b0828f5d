// Package prompt constructs the oracle prompts for one evaluation task.
package prompt

import (
	"fmt"
	"strings"

	"docjudge/internal/engine"
)

// Builder renders the system and user prompt for a (document, rule) pair.
// Its Build method satisfies engine.PromptFunc.
type Builder struct {
	// MaxContentBytes truncates oversized documents before they reach the
	// oracle. Zero means no truncation.
	MaxContentBytes int
}

// New returns a builder with the default truncation guard.
func New() *Builder {
	return &Builder{MaxContentBytes: 120_000}
}

// Build produces the prompts for one task. Document content is sent with
// 1-based line numbers so the oracle can point at exact lines in its fixes.
func (b *Builder) Build(doc engine.Document, rule engine.Rule) (string, string) {
	var sb strings.Builder

	sb.WriteString("## Rule\n")
	sb.WriteString(fmt.Sprintf("- **ID**: %s\n", rule.ID))
	sb.WriteString(fmt.Sprintf("- **Severity**: %s\n", rule.Severity))
	sb.WriteString("- **Criteria**:\n")
	sb.WriteString(rule.Criteria)
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("## Document: %s\n", doc.Path))
	content := doc.Content
	truncated := false
	if b.MaxContentBytes > 0 && len(content) > b.MaxContentBytes {
		content = content[:b.MaxContentBytes]
		truncated = true
	}
	for i, line := range strings.Split(content, "\n") {
		sb.WriteString(fmt.Sprintf("%d: %s\n", i+1, line))
	}
	if truncated {
		sb.WriteString("... (document truncated)\n")
	}

	return systemPrompt, sb.String()
}

// systemPrompt fixes the output contract. The engine's parser accepts a
// fenced block or a bare object, but asking for bare JSON keeps responses
// small.
var systemPrompt = `You are a meticulous documentation reviewer. You will be given one rule and one document; decide whether the document satisfies the rule.

Judge only the rule you are given. Do not penalize the document for problems outside the rule's criteria.

Respond with a single JSON object and nothing else:
{
  "pass": true or false,
  "rationale": "2-3 sentences explaining the verdict",
  "suggested_fixes": [
    {
      "line": <1-based line number of the problem, if you can identify it>,
      "quote": "<the exact text from the document that violates the rule>",
      "before": "<the problematic text>",
      "after": "<the corrected text>"
    }
  ]
}

For suggested_fixes:
- Include entries only for FAIL verdicts, one per distinct violation
- Quote the document verbatim wherever possible
- Omit fields you cannot fill rather than inventing values`
