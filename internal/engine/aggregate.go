package engine

// Aggregate folds per-document results into the final summary. Single
// pass, no hidden state; it trusts each result's precomputed Pass rather
// than re-deriving it from outcomes.
func Aggregate(results []DocumentResult) Summary {
	s := Summary{
		Checked: len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Pass {
			s.Passed++
		}
	}
	s.Failed = s.Checked - s.Passed
	return s
}
