package domain

import "time"

// Product is read-only catalog reference data, keyed by SKU.
// ItemID is the product's id in the external rating space (0 when the
// product has never been rated there); it bridges RatingMatrix columns
// to sellable SKUs.
type Product struct {
	SKU          int64
	Name         string
	Varietal     string
	Category     string
	Region       string
	Country      string
	Brand        string
	ThumbnailURL string
	Description  string
	ABV          float64
	Calories     int
	VolumeML     int
	DetailURL    string
	ItemID       int64
	RatingAvg    float64
	RatingCount  int
}

// PriceSnapshot is one timestamped price observation for a SKU. The
// current price of a SKU is the snapshot with the maximum ObservedAt.
type PriceSnapshot struct {
	SKU        int64
	PriceCents int64 // >= 0
	ObservedAt time.Time
}

// InventoryRecord is one timestamped stock observation for a (outlet, sku)
// pair. A product is available at an outlet iff the latest record for the
// pair has Quantity > 0.
type InventoryRecord struct {
	OutletID   int64
	SKU        int64
	Quantity   int
	RecordedAt time.Time
}

// SentimentVote is one classified review: positive or negative price
// sentiment for a SKU.
type SentimentVote struct {
	SKU        int64
	IsPositive bool
}

// SentimentSummary aggregates votes for one SKU.
type SentimentSummary struct {
	Pos        int
	Neg        int
	Votes      int     // Pos + Neg
	Positivity float64 // Pos / Votes; summaries with zero votes are never emitted
}

// WineCard is one row of a listing result: the product joined with its
// current price, sentiment aggregate and derived display fields.
type WineCard struct {
	Product
	PriceCents int64
	MadeIn     string // "region, country", or "country" when region is blank
	Positivity float64
	Votes      int
}
