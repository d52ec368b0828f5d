package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docjudge/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)

	sum := engine.Summary{
		Checked: 2, Passed: 1, Failed: 1,
		Results: []engine.DocumentResult{
			{Path: "a.md", Pass: true},
			{Path: "b.md", Pass: false, Outcomes: []engine.RuleOutcome{
				{Judgment: engine.Judgment{RuleID: "r1", Pass: false, Rationale: "missing heading"}, Severity: engine.SeverityError, Line: 3},
			}},
		},
	}

	started := time.Now().Add(-time.Second)
	id, err := store.Record(sum, started, 750*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, 2, runs[0].Checked)
	assert.Equal(t, 1, runs[0].Passed)
	assert.Equal(t, 1, runs[0].Failed)
	assert.Equal(t, 750*time.Millisecond, runs[0].Duration)
	assert.WithinDuration(t, started, runs[0].StartedAt, time.Millisecond)
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	store := openTestStore(t)

	base := time.Now().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := store.Record(engine.Summary{Checked: i}, base.Add(time.Duration(i)*time.Minute), time.Second)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestRecord_PersistsOnlyFailures(t *testing.T) {
	store := openTestStore(t)

	sum := engine.Summary{
		Checked: 1, Failed: 1,
		Results: []engine.DocumentResult{
			{Path: "a.md", Pass: false, Outcomes: []engine.RuleOutcome{
				{Judgment: engine.Judgment{RuleID: "ok", Pass: true}, Severity: engine.SeverityError, Line: 1},
				{Judgment: engine.Judgment{RuleID: "bad", Pass: false, Rationale: "nope"}, Severity: engine.SeverityWarn, Line: 7},
			}},
		},
	}
	id, err := store.Record(sum, time.Now(), time.Second)
	require.NoError(t, err)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM failures WHERE run_id = ?`, id).Scan(&count))
	assert.Equal(t, 1, count)

	var ruleID string
	var line int
	require.NoError(t, store.db.QueryRow(`SELECT rule_id, line FROM failures WHERE run_id = ?`, id).Scan(&ruleID, &line))
	assert.Equal(t, "bad", ruleID)
	assert.Equal(t, 7, line)
}

func TestOpen_ReopensExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Record(engine.Summary{Checked: 1}, time.Now(), time.Second)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.Recent(10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
