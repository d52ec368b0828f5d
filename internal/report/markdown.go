package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"docjudge/internal/engine"
)

// RenderMarkdown renders the summary as a Markdown report suitable for a
// pull-request comment.
func RenderMarkdown(s engine.Summary) string {
	var sb strings.Builder

	sb.WriteString("# docjudge results\n\n")
	sb.WriteString(fmt.Sprintf("**%d** checked · **%d** passed · **%d** failed\n\n", s.Checked, s.Passed, s.Failed))

	if s.Failed == 0 {
		sb.WriteString("All documents passed.\n")
		return sb.String()
	}

	sb.WriteString("| Document | Line | Severity | Rule | Rationale |\n")
	sb.WriteString("|----------|------|----------|------|-----------|\n")
	for _, r := range s.Results {
		for _, o := range r.Outcomes {
			if o.Pass {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s |\n",
				r.Path, o.Line, o.Severity, o.RuleID, mdEscape(o.Rationale)))
		}
	}
	return sb.String()
}

// RenderJSON renders the summary as indented JSON.
func RenderJSON(s engine.Summary) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal summary: %w", err)
	}
	return string(data) + "\n", nil
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
