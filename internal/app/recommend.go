package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"ovino/internal/domain"
)

// Recommender maps an external username to a predicted-preference vector
// over the catalog. It never fails a request: any problem with the external
// profile source, or insufficient rating overlap, degrades to an empty
// result, which callers treat as "no personalization".
type Recommender struct {
	profile       domain.ProfileClient
	cache         domain.Cache
	cacheTTL      int // seconds; fetched profiles only, never predictions
	topPercentile float64
	minShared     int
}

func NewRecommender(profile domain.ProfileClient, cache domain.Cache, ttlSec int, topPercentile float64, minShared int) *Recommender {
	if topPercentile <= 0 || topPercentile > 1 {
		topPercentile = 0.3
	}
	if minShared <= 0 {
		minShared = 3
	}
	return &Recommender{profile: profile, cache: cache, cacheTTL: ttlSec, topPercentile: topPercentile, minShared: minShared}
}

// Recommend fetches the user's ratings, finds the nearest known rater by
// squared-error distance on shared items, and returns the top slice of that
// rater's predictions keyed by sku. Items with no known sku are dropped;
// not everything rated externally is sellable here.
func (r *Recommender) Recommend(ctx context.Context, username string, m *domain.RatingMatrix, itemSku map[int64]int64) (map[int64]float64, error) {
	username = NormalizeUsername(username)
	if username == "" || m == nil || m.NumRaters() == 0 {
		return map[int64]float64{}, nil
	}

	userRatings, err := r.userRatings(ctx, username)
	if err != nil {
		log.Warn().Str("username", username).Err(err).Msg("profile fetch failed, skipping personalization")
		return map[int64]float64{}, nil
	}
	if len(userRatings) == 0 {
		return map[int64]float64{}, nil
	}

	// Shared subspace, in stable column order.
	shared := make([]int64, 0, len(userRatings))
	for _, id := range m.Items() {
		if _, ok := userRatings[id]; ok {
			shared = append(shared, id)
		}
	}
	if len(shared) < r.minShared {
		return map[int64]float64{}, nil
	}

	nearest := nearestRater(m, shared, userRatings)
	if nearest == nil {
		return map[int64]float64{}, nil
	}

	// Rank ALL of the nearest rater's columns, not just the shared ones.
	type pred struct {
		item   int64
		rating float64
	}
	ranked := make([]pred, 0, len(m.Items()))
	for _, id := range m.Items() {
		if v, ok := nearest.Ratings[id]; ok {
			ranked = append(ranked, pred{item: id, rating: v})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].rating > ranked[j].rating })

	keep := int(float64(len(ranked)) * r.topPercentile)
	if keep > len(ranked) {
		keep = len(ranked)
	}

	out := make(map[int64]float64, keep)
	for _, p := range ranked[:keep] {
		sku, ok := itemSku[p.item]
		if !ok {
			continue
		}
		out[sku] = roundTenth(clip(p.rating, 1, 5))
	}
	return out, nil
}

// nearestRater returns the first row minimizing the sum of squared rating
// differences over the shared columns. Rows with no rating on any shared
// column carry no signal and are skipped.
func nearestRater(m *domain.RatingMatrix, shared []int64, user map[int64]float64) *domain.RaterRow {
	var best *domain.RaterRow
	bestDist := math.Inf(1)
	rows := m.Rows()
	for i := range rows {
		dist := 0.0
		overlap := 0
		for _, id := range shared {
			rv, ok := rows[i].Ratings[id]
			if !ok {
				continue
			}
			d := rv - user[id]
			dist += d * d
			overlap++
		}
		if overlap == 0 {
			continue
		}
		if dist < bestDist {
			bestDist = dist
			best = &rows[i]
		}
	}
	return best
}

func (r *Recommender) userRatings(ctx context.Context, username string) (map[int64]float64, error) {
	key := fmt.Sprintf("profile:%s", username)
	if r.cache != nil {
		var cached map[int64]float64
		if ok, _ := r.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}
	ratings, err := r.profile.FetchUserRatings(ctx, username)
	if err != nil {
		return nil, err
	}
	if r.cache != nil && len(ratings) > 0 {
		_ = r.cache.Set(ctx, key, ratings, r.cacheTTL)
	}
	return ratings, nil
}

// NormalizeUsername strips any leading path segments, so "users/ana" and
// a pasted profile URL both resolve to "ana".
func NormalizeUsername(u string) string {
	u = strings.TrimSpace(strings.Trim(u, "/"))
	if i := strings.LastIndex(u, "/"); i >= 0 {
		u = u[i+1:]
	}
	return u
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
