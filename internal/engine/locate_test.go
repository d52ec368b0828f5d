package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocate_ExplicitLineWins(t *testing.T) {
	// The quoted text does not exist in the source; the explicit line must
	// be trusted over any fuzzy search.
	fixes := []SuggestedFix{
		{Quote: "text that appears nowhere"},
		{Line: 7, Quote: "also absent"},
	}
	assert.Equal(t, 7, Locate("AAA\nBBB", fixes))
}

func TestLocate_FirstExplicitLineInArrayOrder(t *testing.T) {
	fixes := []SuggestedFix{
		{Line: 4},
		{Line: 9},
	}
	assert.Equal(t, 4, Locate("irrelevant", fixes))
}

func TestLocate_ExactMatch(t *testing.T) {
	assert.Equal(t, 2, Locate("line1\nTARGET\nline3", []SuggestedFix{{Quote: "TARGET"}}))
}

func TestLocate_NotFoundDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, Locate("AAA", []SuggestedFix{{Quote: "not present"}}))
	assert.Equal(t, 1, Locate("AAA", nil))
	assert.Equal(t, 1, Locate("", []SuggestedFix{{Quote: "x"}}))
}

func TestLocate_BeforePreferredOverQuote(t *testing.T) {
	source := "alpha\nbeta\ngamma"
	fixes := []SuggestedFix{{Before: "gamma", Quote: "alpha"}}
	assert.Equal(t, 3, Locate(source, fixes))
}

func TestLocate_CaseInsensitiveFallback(t *testing.T) {
	source := "one\nThe Quick Fox\nthree"
	assert.Equal(t, 2, Locate(source, []SuggestedFix{{Quote: "the quick fox"}}))
}

func TestLocate_WhitespaceCollapsedFallback(t *testing.T) {
	// Internal whitespace differs, so exact and per-line scans miss; the
	// collapsed scan must still land on the right line.
	source := "aaa\nfoo   bar\nccc"
	assert.Equal(t, 2, Locate(source, []SuggestedFix{{Quote: "foo bar"}}))
}

func TestLocate_QuoteRewrappedAcrossLines(t *testing.T) {
	source := "intro\nthe quick brown\nfox jumps over\nend"
	line := Locate(source, []SuggestedFix{{Quote: "the quick brown fox jumps over"}})
	assert.Equal(t, 2, line, "collapsed match should map back to the first matched line")
}

func TestLocate_Deterministic(t *testing.T) {
	source := "a\nb\nc\nb again"
	fixes := []SuggestedFix{{Quote: "b"}}
	first := Locate(source, fixes)
	second := Locate(source, fixes)
	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 1)
}

func TestLocate_MultilineExactMatch(t *testing.T) {
	source := "x\ny\nfoo\nbar\nz"
	// Exact match spanning a newline: line of the match start.
	assert.Equal(t, 3, Locate(source, []SuggestedFix{{Quote: "foo\nbar"}}))
}
