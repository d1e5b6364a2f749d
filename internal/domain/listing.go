package domain

import "fmt"

// SortOrder is a closed enumeration of listing sort criteria. Earlier
// versions of the catalog encoded these as bare integers whose meaning
// drifted between releases; the numeric form survives only as the legacy
// query parameter handled by SortOrderFromOrdinal.
type SortOrder string

const (
	SortVotes      SortOrder = "votes"      // sentiment vote count, descending
	SortPositivity SortOrder = "positivity" // positive-vote ratio, descending
	SortRating     SortOrder = "rating"     // star-rating average, descending
	SortPriceAsc   SortOrder = "price_asc"
	SortPriceDesc  SortOrder = "price_desc"
	SortCalories   SortOrder = "calories" // ascending
)

// legacyOrdinals is the frozen mapping from the historical numeric sort
// codes to named orders. New meanings get new names, never new numbers.
var legacyOrdinals = map[int]SortOrder{
	1: SortVotes,
	2: SortPositivity,
	3: SortRating,
	4: SortPriceAsc,
	5: SortPriceDesc,
	6: SortCalories,
}

// ParseSortOrder validates a named sort key.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case SortVotes, SortPositivity, SortRating, SortPriceAsc, SortPriceDesc, SortCalories:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// SortOrderFromOrdinal maps a legacy numeric sort code (1..6) to its
// named order.
func SortOrderFromOrdinal(n int) (SortOrder, error) {
	if o, ok := legacyOrdinals[n]; ok {
		return o, nil
	}
	return "", fmt.Errorf("unknown sort ordinal %d", n)
}

// ListingQuery carries one catalog request. Request-scoped; never stored.
// PriceMin/PriceMax are dollars. HasPriceMin/HasPriceMax record whether the
// caller supplied an explicit bound; the tolerance band applies only then.
type ListingQuery struct {
	OutletID    int64
	PriceMin    float64
	PriceMax    float64
	HasPriceMin bool
	HasPriceMax bool
	RatingMin   float64
	Sort        SortOrder
	Page        int // 1-based
	PageSize    int
	AllowSKUs   []int64 // personalization allow-list; empty means unrestricted
}

// ListingResult is one page of ranked wine cards plus the pre-pagination
// total, so TotalCount is stable across pages of the same query.
type ListingResult struct {
	Cards      []WineCard
	TotalCount int
}
