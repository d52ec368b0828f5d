package engine

import "strings"

// Locate recovers a best-effort 1-based line number for a failing judgment
// from its suggested fixes. Resolution order: the first fix carrying an
// explicit positive line number wins outright; otherwise each fix's
// quotation fields (Before, then Quote, then Original) are matched against
// the source with progressively looser strategies. When nothing matches,
// the answer is line 1.
//
// Oracle quotations are free text and may come back re-wrapped or with case
// drift, so the layered scan trades precision for recall. It always
// terminates and always returns >= 1.
func Locate(source string, fixes []SuggestedFix) int {
	for _, fix := range fixes {
		if fix.Line > 0 {
			return fix.Line
		}
	}

	for _, fix := range fixes {
		for _, needle := range []string{fix.Before, fix.Quote, fix.Original} {
			if needle == "" {
				continue
			}
			if line, ok := findLine(source, needle); ok {
				return line
			}
		}
	}
	return 1
}

func findLine(source, needle string) (int, bool) {
	// Exact substring match.
	if idx := strings.Index(source, needle); idx >= 0 {
		return 1 + strings.Count(source[:idx], "\n"), true
	}

	lines := strings.Split(source, "\n")

	// Per-line contains, case-sensitive then case-insensitive.
	for i, line := range lines {
		if strings.Contains(line, needle) {
			return i + 1, true
		}
	}
	lowerNeedle := strings.ToLower(needle)
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), lowerNeedle) {
			return i + 1, true
		}
	}

	// Whitespace-collapsed, case-insensitive scan over the whole text. The
	// match offset is mapped back approximately by accumulating collapsed
	// line lengths until the cumulative length reaches the offset.
	collapsedNeedle := collapse(lowerNeedle)
	if collapsedNeedle == "" {
		return 0, false
	}
	collapsedLines := make([]string, len(lines))
	for i, line := range lines {
		collapsedLines[i] = collapse(strings.ToLower(line))
	}
	collapsedSource := strings.Join(collapsedLines, " ")
	idx := strings.Index(collapsedSource, collapsedNeedle)
	if idx < 0 {
		return 0, false
	}
	cum := 0
	for i, cl := range collapsedLines {
		cum += len(cl) + 1 // joining space
		if cum > idx {
			return i + 1, true
		}
	}
	return len(lines), true
}

// collapse squeezes all whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
