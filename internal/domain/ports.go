package domain

import "context"

// StoreRepository is the read-only view over the externally maintained
// reference tables. The core performs no writes.
type StoreRepository interface {
	ListOutlets(ctx context.Context) ([]Outlet, error)

	// AvailableSKUs returns skus whose latest inventory record at the
	// outlet has quantity > 0.
	AvailableSKUs(ctx context.Context, outletID int64) ([]int64, error)

	// CurrentPrices resolves each sku to its max-ObservedAt snapshot.
	// Skus without any snapshot are absent from the result.
	CurrentPrices(ctx context.Context, skus []int64) (map[int64]PriceSnapshot, error)

	ProductsBySKU(ctx context.Context, skus []int64) ([]Product, error)

	SentimentVotes(ctx context.Context, skus []int64) ([]SentimentVote, error)

	// ItemSkuMap bridges external item ids to skus (products with a
	// known external id only).
	ItemSkuMap(ctx context.Context) (map[int64]int64, error)
}

// ProfileClient fetches a user's historical item ratings from the external
// profile source. An unknown or empty profile yields an empty map.
type ProfileClient interface {
	FetchUserRatings(ctx context.Context, username string) (map[int64]float64, error)
}

// Geocoder resolves a free-form address to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
