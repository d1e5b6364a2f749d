package app

import "ovino/internal/domain"

// AggregateSentiment reduces raw per-review votes into per-sku summaries.
// Recomputed on every query against the freshest vote data; there is no
// persisted aggregate to invalidate. Skus with zero votes never appear
// (positivity would be undefined).
func AggregateSentiment(votes []domain.SentimentVote) map[int64]domain.SentimentSummary {
	out := make(map[int64]domain.SentimentSummary)
	for _, v := range votes {
		s := out[v.SKU]
		if v.IsPositive {
			s.Pos++
		} else {
			s.Neg++
		}
		out[v.SKU] = s
	}
	for sku, s := range out {
		s.Votes = s.Pos + s.Neg
		s.Positivity = float64(s.Pos) / float64(s.Votes)
		out[sku] = s
	}
	return out
}
