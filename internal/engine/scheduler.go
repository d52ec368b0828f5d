package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"docjudge/internal/logging"
)

// Scheduler expands (documents x rules) into tasks and drains them under
// two independent concurrency limits: at most FileConcurrency documents in
// flight, and within each document at most RuleConcurrency oracle calls.
//
// Both pool levels use a pull model: workers claim the next unclaimed index
// from a shared atomic cursor and stop when it runs past the end. Each
// index is claimed at most once, so results are written back into their
// input slot without locking, and configuring more workers than tasks is
// safe.
type Scheduler struct {
	oracle *OracleClient

	// FileConcurrency bounds concurrent documents; RuleConcurrency bounds
	// concurrent rule evaluations within one document. Values < 1 become 1.
	FileConcurrency int
	RuleConcurrency int
}

// NewScheduler returns a scheduler driving the given oracle client.
func NewScheduler(oracle *OracleClient, fileConcurrency, ruleConcurrency int) *Scheduler {
	if fileConcurrency < 1 {
		fileConcurrency = 1
	}
	if ruleConcurrency < 1 {
		ruleConcurrency = 1
	}
	return &Scheduler{
		oracle:          oracle,
		FileConcurrency: fileConcurrency,
		RuleConcurrency: ruleConcurrency,
	}
}

// Run evaluates every rule against every document and returns one result
// per document, in input order regardless of completion order. Task-level
// failures arrive as failing outcomes; Run itself never fails.
func (s *Scheduler) Run(ctx context.Context, docs []Document, rules []Rule) []DocumentResult {
	start := time.Now()
	logging.Engine("starting run: %d documents x %d rules (file_concurrency=%d rule_concurrency=%d)",
		len(docs), len(rules), s.FileConcurrency, s.RuleConcurrency)

	results := make([]DocumentResult, len(docs))

	var cursor atomic.Int64
	workers := s.FileConcurrency
	if workers > len(docs) {
		workers = len(docs)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(cursor.Add(1)) - 1
				if i >= len(docs) {
					return
				}
				results[i] = s.evaluateDocument(ctx, docs[i], rules)
			}
		}()
	}
	wg.Wait()

	logging.Engine("run complete in %v", time.Since(start))
	return results
}

// evaluateDocument drains one document's rule tasks with an inner pull
// pool. An unexpected panic while processing the document is isolated into
// a synthetic failing result so one bad document cannot abort the batch.
func (s *Scheduler) evaluateDocument(ctx context.Context, doc Document, rules []Rule) (res DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.EngineWarn("document %s failed outside the task path: %v", doc.Path, r)
			res = engineErrorResult(doc, fmt.Sprintf("engine error: %v", r))
		}
	}()

	outcomes := make([]RuleOutcome, len(rules))

	var cursor atomic.Int64
	workers := s.RuleConcurrency
	if workers > len(rules) {
		workers = len(rules)
	}

	// Rule workers run on their own goroutines, so their panics cannot be
	// caught by this function's recover; capture the first one and convert
	// it after the pool drains.
	var panicVal atomic.Value

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicVal.CompareAndSwap(nil, fmt.Sprintf("%v", r))
				}
			}()
			for {
				k := int(cursor.Add(1)) - 1
				if k >= len(rules) {
					return
				}
				outcomes[k] = s.evaluateRule(ctx, doc, rules[k])
			}
		}()
	}
	wg.Wait()

	if v := panicVal.Load(); v != nil {
		logging.EngineWarn("document %s failed outside the task path: %v", doc.Path, v)
		return engineErrorResult(doc, fmt.Sprintf("engine error: %v", v))
	}

	pass := true
	for _, o := range outcomes {
		if !o.Pass {
			pass = false
			break
		}
	}
	return DocumentResult{Path: doc.Path, Pass: pass, Outcomes: outcomes}
}

func (s *Scheduler) evaluateRule(ctx context.Context, doc Document, rule Rule) RuleOutcome {
	j := s.oracle.Evaluate(ctx, doc, rule)
	line := 1
	if !j.Pass {
		line = Locate(doc.Content, j.SuggestedFixes)
		logging.EngineDebug("fail %s/%s at line %d: %s", doc.Path, rule.ID, line, j.Rationale)
	}
	return RuleOutcome{Judgment: j, Severity: rule.Severity, Line: line}
}

// engineErrorResult is the synthetic result for a document that failed
// outside the normal task/judgment path.
func engineErrorResult(doc Document, rationale string) DocumentResult {
	return DocumentResult{
		Path: doc.Path,
		Pass: false,
		Outcomes: []RuleOutcome{
			{
				Judgment: Judgment{
					RuleID:    "engine",
					Pass:      false,
					Rationale: rationale,
				},
				Severity: SeverityError,
				Line:     1,
			},
		},
	}
}
