package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docjudge/internal/engine"
)

const goodRule = `---
id: heading-required
severity: warn
---
Every document must start with a level-1 heading.
`

func TestParse(t *testing.T) {
	rule, err := Parse("good.md", []byte(goodRule))
	require.NoError(t, err)
	assert.Equal(t, "heading-required", rule.ID)
	assert.Equal(t, engine.SeverityWarn, rule.Severity)
	assert.Equal(t, "Every document must start with a level-1 heading.", rule.Criteria)
}

func TestParse_DefaultSeverity(t *testing.T) {
	rule, err := Parse("r.md", []byte("---\nid: x\n---\nbody\n"))
	require.NoError(t, err)
	assert.Equal(t, engine.SeverityError, rule.Severity)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "missing front-matter", in: "just a body\n"},
		{name: "unterminated front-matter", in: "---\nid: x\nbody\n"},
		{name: "missing id", in: "---\nseverity: warn\n---\nbody\n"},
		{name: "invalid severity", in: "---\nid: x\nseverity: fatal\n---\nbody\n"},
		{name: "empty criteria", in: "---\nid: x\n---\n\n"},
		{name: "invalid yaml", in: "---\nid: [\n---\nbody\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.name, []byte(tt.in))
			assert.Error(t, err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("b.md", "---\nid: zeta\n---\nz criteria\n")
	write("a.md", "---\nid: alpha\nseverity: warn\n---\na criteria\n")
	write("notes.txt", "not a rule")

	rules, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	// Sorted by id, not by filename.
	assert.Equal(t, "alpha", rules[0].ID)
	assert.Equal(t, "zeta", rules[1].ID)
}

func TestLoadDir_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\nid: dup\n---\nbody\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\nid: dup\n---\nbody\n"), 0644))

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}
