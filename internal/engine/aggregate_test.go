package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestAggregate(t *testing.T) {
	results := []DocumentResult{
		{Path: "a.md", Pass: true},
		{Path: "b.md", Pass: false, Outcomes: []RuleOutcome{
			{Judgment: Judgment{RuleID: "r1", Pass: false, Rationale: "bad"}, Severity: SeverityError, Line: 3},
		}},
		{Path: "c.md", Pass: true},
	}

	got := Aggregate(results)
	want := Summary{Checked: 3, Passed: 2, Failed: 1, Results: results}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil)
	assert.Equal(t, 0, got.Checked)
	assert.Equal(t, 0, got.Passed)
	assert.Equal(t, 0, got.Failed)
}

func TestAggregate_TrustsPrecomputedPass(t *testing.T) {
	// A result marked passing is counted as passing even when an outcome
	// disagrees; the aggregator never re-derives document verdicts.
	results := []DocumentResult{
		{Path: "a.md", Pass: true, Outcomes: []RuleOutcome{
			{Judgment: Judgment{RuleID: "r1", Pass: false}},
		}},
	}
	got := Aggregate(results)
	assert.Equal(t, 1, got.Passed)
	assert.Equal(t, 0, got.Failed)
}

func TestSummary_FailedErrors(t *testing.T) {
	s := Summary{
		Checked: 3,
		Results: []DocumentResult{
			{Path: "a.md", Pass: false, Outcomes: []RuleOutcome{
				{Judgment: Judgment{Pass: false}, Severity: SeverityWarn},
			}},
			{Path: "b.md", Pass: false, Outcomes: []RuleOutcome{
				{Judgment: Judgment{Pass: false}, Severity: SeverityError},
				{Judgment: Judgment{Pass: false}, Severity: SeverityError},
			}},
			{Path: "c.md", Pass: true},
		},
	}
	assert.Equal(t, 1, s.FailedErrors(), "counts documents, not outcomes, and ignores warn-only failures")
}
