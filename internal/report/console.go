// Package report renders an engine Summary for humans and CI: styled
// console text, Markdown, JSON, and JUnit XML. Renderers consume only the
// Summary's public shape.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"docjudge/internal/engine"
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	pathStyle  = lipgloss.NewStyle().Bold(true)
	lineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// RenderConsole renders the summary as styled terminal output. Passing
// documents get one line; failing documents list each failing outcome with
// its recovered line number.
func RenderConsole(s engine.Summary) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("docjudge results"))
	sb.WriteString("\n\n")

	for _, r := range s.Results {
		if r.Pass {
			sb.WriteString(fmt.Sprintf("%s %s\n", passStyle.Render("PASS"), pathStyle.Render(r.Path)))
			continue
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", failStyle.Render("FAIL"), pathStyle.Render(r.Path)))
		for _, o := range r.Outcomes {
			if o.Pass {
				continue
			}
			marker := failStyle.Render(string(engine.SeverityError))
			if o.Severity == engine.SeverityWarn {
				marker = warnStyle.Render(string(engine.SeverityWarn))
			}
			sb.WriteString(fmt.Sprintf("  %s %s %s\n",
				lineStyle.Render(fmt.Sprintf("%s:%d", r.Path, o.Line)), marker, o.RuleID))
			sb.WriteString(fmt.Sprintf("      %s\n", o.Rationale))
			for _, fix := range o.SuggestedFixes {
				if fix.Before != "" && fix.After != "" {
					sb.WriteString(fmt.Sprintf("      - %q -> %q\n", fix.Before, fix.After))
				} else if fix.Note != "" {
					sb.WriteString(fmt.Sprintf("      - %s\n", fix.Note))
				}
			}
		}
	}

	sb.WriteString("\n")
	counts := fmt.Sprintf("%d checked, %d passed, %d failed", s.Checked, s.Passed, s.Failed)
	if s.Failed == 0 {
		sb.WriteString(passStyle.Render(counts))
	} else {
		sb.WriteString(failStyle.Render(counts))
	}
	sb.WriteString("\n")
	return sb.String()
}
