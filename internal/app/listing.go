package app

import (
	"context"
	"sort"
	"strings"

	"ovino/internal/domain"
)

const (
	// priceBandTolerance widens an explicit price filter by ±5% so a wine
	// a few cents outside the requested range still shows.
	priceBandTolerance = 0.05

	// Thumbnail URLs come in a low-resolution variant; swapping the size
	// token selects the high-resolution rendition on the same CDN path.
	thumbLowResToken  = "319.319"
	thumbHighResToken = "1280.1280"

	defaultDescription = "No description available."
)

// ListingEngine joins availability, current pricing and aggregated review
// sentiment into one filterable, sortable, paginated candidate set. Pure
// read; every invocation recomputes from the freshest store data.
type ListingEngine struct {
	repo     domain.StoreRepository
	minVotes int // sku eligible only when votes strictly exceed this
	maxLimit int // absolute row cap per page, regardless of PageSize
}

func NewListingEngine(repo domain.StoreRepository, minVotes, maxLimit int) *ListingEngine {
	if minVotes <= 0 {
		minVotes = 8
	}
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &ListingEngine{repo: repo, minVotes: minVotes, maxLimit: maxLimit}
}

// List runs the full pipeline: availability -> price join -> sentiment
// join -> allow-list -> filters -> sort -> paginate -> post-process.
// TotalCount is computed over the filtered set before slicing, so it is
// identical on every page of the same query.
func (e *ListingEngine) List(ctx context.Context, q domain.ListingQuery) (domain.ListingResult, error) {
	skus, err := e.repo.AvailableSKUs(ctx, q.OutletID)
	if err != nil {
		return domain.ListingResult{}, err
	}
	if len(q.AllowSKUs) > 0 {
		skus = intersect(skus, q.AllowSKUs)
	}
	if len(skus) == 0 {
		return domain.ListingResult{Cards: []domain.WineCard{}}, nil
	}

	prices, err := e.repo.CurrentPrices(ctx, skus)
	if err != nil {
		return domain.ListingResult{}, err
	}
	votes, err := e.repo.SentimentVotes(ctx, skus)
	if err != nil {
		return domain.ListingResult{}, err
	}
	sentiment := AggregateSentiment(votes)

	// Keep only skus that survive the price and sentiment joins before
	// paying for the product fetch.
	candidates := skus[:0]
	for _, sku := range skus {
		if _, ok := prices[sku]; !ok {
			continue
		}
		if s, ok := sentiment[sku]; !ok || s.Votes <= e.minVotes {
			continue
		}
		candidates = append(candidates, sku)
	}
	if len(candidates) == 0 {
		return domain.ListingResult{Cards: []domain.WineCard{}}, nil
	}

	products, err := e.repo.ProductsBySKU(ctx, candidates)
	if err != nil {
		return domain.ListingResult{}, err
	}

	keep := rowFilter(q, e.minVotes)
	cards := make([]domain.WineCard, 0, len(products))
	for _, p := range products {
		c := domain.WineCard{
			Product:    p,
			PriceCents: prices[p.SKU].PriceCents,
			Positivity: sentiment[p.SKU].Positivity,
			Votes:      sentiment[p.SKU].Votes,
		}
		if keep(c) {
			cards = append(cards, c)
		}
	}

	sortCards(cards, q.Sort)

	total := len(cards)
	cards = paginate(cards, q.Page, q.PageSize, e.maxLimit)
	for i := range cards {
		postProcess(&cards[i])
	}
	return domain.ListingResult{Cards: cards, TotalCount: total}, nil
}

// rowFilter builds the typed predicate for step 5. The ±5% band applies
// only to bounds the caller set explicitly.
func rowFilter(q domain.ListingQuery, minVotes int) func(domain.WineCard) bool {
	minCents := int64(-1)
	maxCents := int64(-1)
	if q.HasPriceMin {
		minCents = int64(q.PriceMin * (1 - priceBandTolerance) * 100)
	}
	if q.HasPriceMax {
		maxCents = int64(q.PriceMax * (1 + priceBandTolerance) * 100)
	}
	return func(c domain.WineCard) bool {
		if minCents >= 0 && c.PriceCents < minCents {
			return false
		}
		if maxCents >= 0 && c.PriceCents > maxCents {
			return false
		}
		if c.RatingAvg < q.RatingMin {
			return false
		}
		return c.Votes > minVotes
	}
}

// sortCards orders the filtered set by the chosen criterion. SliceStable
// keeps the pre-sort order for ties, matching the stable tie-break contract.
func sortCards(cards []domain.WineCard, o domain.SortOrder) {
	var less func(a, b domain.WineCard) bool
	switch o {
	case domain.SortPositivity:
		less = func(a, b domain.WineCard) bool { return a.Positivity > b.Positivity }
	case domain.SortRating:
		less = func(a, b domain.WineCard) bool { return a.RatingAvg > b.RatingAvg }
	case domain.SortPriceAsc:
		less = func(a, b domain.WineCard) bool { return a.PriceCents < b.PriceCents }
	case domain.SortPriceDesc:
		less = func(a, b domain.WineCard) bool { return a.PriceCents > b.PriceCents }
	case domain.SortCalories:
		less = func(a, b domain.WineCard) bool { return a.Calories < b.Calories }
	default: // SortVotes
		less = func(a, b domain.WineCard) bool { return a.Votes > b.Votes }
	}
	sort.SliceStable(cards, func(i, j int) bool { return less(cards[i], cards[j]) })
}

func paginate(cards []domain.WineCard, page, pageSize, maxLimit int) []domain.WineCard {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxLimit {
		pageSize = maxLimit
	}
	start := (page - 1) * pageSize
	if start >= len(cards) {
		return []domain.WineCard{}
	}
	end := start + pageSize
	if end > len(cards) {
		end = len(cards)
	}
	return cards[start:end]
}

func postProcess(c *domain.WineCard) {
	c.ThumbnailURL = strings.Replace(c.ThumbnailURL, thumbLowResToken, thumbHighResToken, 1)
	if strings.TrimSpace(c.Description) == "" {
		c.Description = defaultDescription
	}
	c.MadeIn = madeIn(c.Region, c.Country)
}

func madeIn(region, country string) string {
	region = strings.TrimSpace(region)
	country = strings.TrimSpace(country)
	if region == "" {
		return country
	}
	if country == "" {
		return region
	}
	return region + ", " + country
}

func intersect(skus, allow []int64) []int64 {
	set := make(map[int64]struct{}, len(allow))
	for _, s := range allow {
		set[s] = struct{}{}
	}
	out := make([]int64, 0, len(skus))
	for _, s := range skus {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
