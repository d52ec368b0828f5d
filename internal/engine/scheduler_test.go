package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Background worker started by go.opencensus.io's package init
		// (pulled in transitively); it is not stoppable from tests.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// recordingClient counts every (document, rule) pair it is asked about.
// The test prompt encodes the pair as "path/ruleID" in the user prompt.
type recordingClient struct {
	mu       sync.Mutex
	pairs    map[string]int
	response func(user string) string
}

func (c *recordingClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	if c.pairs == nil {
		c.pairs = make(map[string]int)
	}
	c.pairs[userPrompt]++
	c.mu.Unlock()
	if c.response != nil {
		return c.response(userPrompt), nil
	}
	return `{"pass": true, "rationale": "ok"}`, nil
}

func (c *recordingClient) seen() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.pairs))
	for k, v := range c.pairs {
		out[k] = v
	}
	return out
}

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{Path: fmt.Sprintf("doc%d.md", i), Content: "line1\nTARGET\nline3"}
	}
	return docs
}

func makeRules(n int) []Rule {
	rules := make([]Rule, n)
	for i := range rules {
		rules[i] = Rule{ID: fmt.Sprintf("rule%d", i), Severity: SeverityError, Criteria: "criteria"}
	}
	return rules
}

func TestScheduler_AllPairsExactlyOnce(t *testing.T) {
	client := &recordingClient{}
	oc := NewOracleClient(client, testPrompt, fastRetry())
	s := NewScheduler(oc, 2, 3)

	docs := makeDocs(3)
	rules := makeRules(5)
	results := s.Run(context.Background(), docs, rules)

	summary := Aggregate(results)
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 3, summary.Passed)
	assert.Equal(t, 0, summary.Failed)

	// Output order matches input order regardless of completion order.
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("doc%d.md", i), r.Path)
		require.Len(t, r.Outcomes, 5)
		for k, o := range r.Outcomes {
			assert.Equal(t, fmt.Sprintf("rule%d", k), o.RuleID, "outcome written to the wrong rule slot")
		}
	}

	// Every pair attempted exactly once: len(docs) * len(rules) tasks.
	seen := client.seen()
	assert.Len(t, seen, 15)
	for pair, n := range seen {
		assert.Equal(t, 1, n, "pair %s claimed more than once", pair)
	}
}

func TestScheduler_MoreWorkersThanTasks(t *testing.T) {
	client := &recordingClient{}
	oc := NewOracleClient(client, testPrompt, fastRetry())
	s := NewScheduler(oc, 100, 50)

	results := s.Run(context.Background(), makeDocs(2), makeRules(1))

	require.Len(t, results, 2)
	assert.Len(t, client.seen(), 2)
}

func TestScheduler_FailingOutcomeGetsLine(t *testing.T) {
	client := &recordingClient{
		response: func(user string) string {
			return `{"pass": false, "rationale": "bad", "suggested_fixes": [{"quote": "TARGET"}]}`
		},
	}
	oc := NewOracleClient(client, testPrompt, fastRetry())
	s := NewScheduler(oc, 1, 1)

	results := s.Run(context.Background(), makeDocs(1), makeRules(1))

	require.Len(t, results, 1)
	require.Len(t, results[0].Outcomes, 1)
	o := results[0].Outcomes[0]
	assert.False(t, o.Pass)
	assert.False(t, results[0].Pass)
	assert.Equal(t, 2, o.Line, "line recovered from the quoted text")
}

func TestScheduler_PassingOutcomeSkipsLineRecovery(t *testing.T) {
	client := &recordingClient{}
	oc := NewOracleClient(client, testPrompt, fastRetry())
	s := NewScheduler(oc, 1, 1)

	results := s.Run(context.Background(), makeDocs(1), makeRules(1))
	assert.Equal(t, 1, results[0].Outcomes[0].Line)
}

func TestScheduler_PanicIsolatedPerDocument(t *testing.T) {
	client := &recordingClient{}
	// The prompt builder is the first per-task step, so a panic here
	// exercises the scheduler's document-level recovery.
	panicky := func(doc Document, rule Rule) (string, string) {
		if doc.Path == "doc1.md" {
			panic("prompt blew up")
		}
		return testPrompt(doc, rule)
	}
	oc := NewOracleClient(client, panicky, fastRetry())
	s := NewScheduler(oc, 1, 1)

	results := s.Run(context.Background(), makeDocs(3), makeRules(2))

	require.Len(t, results, 3)
	assert.True(t, results[0].Pass)
	assert.True(t, results[2].Pass)

	bad := results[1]
	assert.False(t, bad.Pass)
	require.Len(t, bad.Outcomes, 1)
	assert.Equal(t, "engine", bad.Outcomes[0].RuleID)
	assert.Contains(t, bad.Outcomes[0].Rationale, "engine error")

	summary := Aggregate(results)
	assert.Equal(t, Summary{Checked: 3, Passed: 2, Failed: 1, Results: results}, summary)
}

func TestScheduler_MixedSeverities(t *testing.T) {
	client := &recordingClient{
		response: func(user string) string {
			if strings.Contains(user, "warn-rule") {
				return `{"pass": false, "rationale": "style nit"}`
			}
			return `{"pass": true, "rationale": "ok"}`
		},
	}
	oc := NewOracleClient(client, testPrompt, fastRetry())
	s := NewScheduler(oc, 2, 2)

	rules := []Rule{
		{ID: "err-rule", Severity: SeverityError, Criteria: "c"},
		{ID: "warn-rule", Severity: SeverityWarn, Criteria: "c"},
	}
	results := s.Run(context.Background(), makeDocs(1), rules)
	summary := Aggregate(results)

	assert.Equal(t, 1, summary.Failed, "a failing warn still fails the document")
	assert.Equal(t, 0, summary.FailedErrors(), "but does not count as an error-severity failure")
}

func TestScheduler_EmptyRuleSet(t *testing.T) {
	client := &recordingClient{}
	oc := NewOracleClient(client, testPrompt, fastRetry())
	s := NewScheduler(oc, 4, 4)

	results := s.Run(context.Background(), makeDocs(2), nil)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Pass)
		assert.Empty(t, r.Outcomes)
	}
	assert.Empty(t, client.seen())
}
