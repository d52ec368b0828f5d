package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"docjudge/internal/logging"
	"docjudge/internal/oracle"
)

// LLMClient is the oracle transport. Implementations normalize provider
// failures into the internal/oracle error taxonomy before returning.
type LLMClient interface {
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// PromptFunc builds the system and user prompt for one task. Prompt
// construction is a collaborator's concern; the engine only owns the call.
type PromptFunc func(doc Document, rule Rule) (system, user string)

// RetryConfig bounds the per-task retry budget.
type RetryConfig struct {
	MaxAttempts   int           // total attempts, including the first
	BackoffBase   time.Duration // first backoff; doubles per failed attempt
	BackoffJitter time.Duration // uniform random add-on per backoff
}

// DefaultRetryConfig returns the standard budget: 3 attempts, 300ms base,
// 200ms jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		BackoffBase:   300 * time.Millisecond,
		BackoffJitter: 200 * time.Millisecond,
	}
}

// OracleClient issues one evaluation call per task with a bounded
// retry/backoff policy. Failures never escape as errors: every failure mode
// collapses into a synthetic failing Judgment so the scheduler treats
// failures as data, not control flow.
type OracleClient struct {
	client LLMClient
	prompt PromptFunc
	retry  RetryConfig
}

// NewOracleClient wires a transport and prompt builder. Zero retry fields
// fall back to the defaults.
func NewOracleClient(client LLMClient, prompt PromptFunc, retry RetryConfig) *OracleClient {
	def := DefaultRetryConfig()
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = def.MaxAttempts
	}
	if retry.BackoffBase <= 0 {
		retry.BackoffBase = def.BackoffBase
	}
	if retry.BackoffJitter < 0 {
		retry.BackoffJitter = def.BackoffJitter
	}
	return &OracleClient{client: client, prompt: prompt, retry: retry}
}

// Evaluate judges one (document, rule) pair. Transient failures are retried
// with exponential backoff and jitter; quota failures short-circuit with a
// distinguishable rationale; everything else fails on the first attempt.
func (c *OracleClient) Evaluate(ctx context.Context, doc Document, rule Rule) Judgment {
	system, user := c.prompt(doc, rule)

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		raw, err := c.client.CompleteWithSystem(ctx, system, user)
		if err == nil {
			j, perr := ParseJudgment(raw)
			if perr != nil {
				// A malformed response is not worth another round trip.
				logging.OracleError("unparseable judgment for %s/%s: %v", doc.Path, rule.ID, perr)
				return failedJudgment(rule, fmt.Sprintf("call failed: %v", perr))
			}
			j.RuleID = rule.ID
			return j
		}

		if oracle.IsQuota(err) {
			logging.OracleError("quota exhausted for %s/%s: %v", doc.Path, rule.ID, err)
			return failedJudgment(rule, fmt.Sprintf("insufficient quota: %v", err))
		}
		if !oracle.IsRetryable(err) {
			logging.OracleError("fatal oracle error for %s/%s: %v", doc.Path, rule.ID, err)
			return failedJudgment(rule, fmt.Sprintf("call failed: %v", err))
		}

		lastErr = err
		if attempt < c.retry.MaxAttempts {
			delay := c.backoff(attempt)
			logging.OracleWarn("transient oracle error for %s/%s (attempt %d/%d), retrying in %v: %v",
				doc.Path, rule.ID, attempt, c.retry.MaxAttempts, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return failedJudgment(rule, fmt.Sprintf("call failed: %v", ctx.Err()))
			}
		}
	}

	logging.OracleError("retries exhausted for %s/%s: %v", doc.Path, rule.ID, lastErr)
	return failedJudgment(rule, fmt.Sprintf("call failed after %d attempts: %v", c.retry.MaxAttempts, lastErr))
}

// backoff computes the delay after failed attempt n (1-based):
// base * 2^(n-1) + random(0, jitter).
func (c *OracleClient) backoff(attempt int) time.Duration {
	delay := c.retry.BackoffBase * (1 << uint(attempt-1))
	if c.retry.BackoffJitter > 0 {
		delay += time.Duration(rand.Int63n(int64(c.retry.BackoffJitter)))
	}
	return delay
}

func failedJudgment(rule Rule, rationale string) Judgment {
	return Judgment{
		RuleID:    rule.ID,
		Pass:      false,
		Rationale: rationale,
		SuggestedFixes: []SuggestedFix{
			{Note: "re-run the check; if the failure persists, verify oracle credentials and quota"},
		},
	}
}

// ParseJudgment extracts the JSON verdict from a raw oracle response. The
// oracle is asked for bare JSON but routinely wraps it in a fenced code
// block or leading prose, so the extraction is layered.
func ParseJudgment(raw string) (Judgment, error) {
	jsonStr := extractJSONBlock(raw)
	if jsonStr == "" {
		jsonStr = extractJSONObject(raw)
	}
	if jsonStr == "" {
		return Judgment{}, fmt.Errorf("no JSON object found in response")
	}

	var j Judgment
	if err := json.Unmarshal([]byte(jsonStr), &j); err != nil {
		return Judgment{}, fmt.Errorf("failed to parse judgment JSON: %w", err)
	}
	return j, nil
}

// extractJSONBlock pulls the payload out of a ```json fenced block.
func extractJSONBlock(s string) string {
	start := strings.Index(s, "```json")
	if start == -1 {
		start = strings.Index(s, "```")
		if start == -1 {
			return ""
		}
	}
	nl := strings.Index(s[start:], "\n")
	if nl == -1 {
		return ""
	}
	body := s[start+nl+1:]
	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

// extractJSONObject returns the first balanced {...} in s.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '"':
			if i == 0 || s[i-1] != '\\' {
				inString = !inString
			}
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
