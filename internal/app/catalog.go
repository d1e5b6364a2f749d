package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ovino/internal/domain"
)

// CatalogService composes the geolocator, recommender and listing engine
// into the single "find the nearest outlet and return its ranked catalog
// page" operation. Idempotent and side-effect free for a fixed data
// snapshot. The rating matrix and item/sku bridge are the only shared
// state; both are immutable after startup, so no locking is needed.
type CatalogService struct {
	geo     *GeoLocator
	engine  *ListingEngine
	rec     *Recommender
	matrix  *domain.RatingMatrix
	itemSku map[int64]int64

	// recommendTimeout bounds the external profile fetch; on expiry the
	// unfiltered catalog is served instead of stalling the response.
	recommendTimeout time.Duration
}

func NewCatalogService(geo *GeoLocator, engine *ListingEngine, rec *Recommender, matrix *domain.RatingMatrix, itemSku map[int64]int64, recommendTimeout time.Duration) *CatalogService {
	if recommendTimeout <= 0 {
		recommendTimeout = 3 * time.Second
	}
	return &CatalogService{
		geo:              geo,
		engine:           engine,
		rec:              rec,
		matrix:           matrix,
		itemSku:          itemSku,
		recommendTimeout: recommendTimeout,
	}
}

// NearbyCatalog validates the query, resolves the closest outlet and the
// optional personalization allow-list concurrently (they are independent),
// then runs the listing pipeline against the outlet. An empty outlet set is
// ErrNoOutletFound; an empty recommendation is simply no personalization.
func (s *CatalogService) NearbyCatalog(ctx context.Context, lat, lng float64, q domain.ListingQuery, username string) (domain.OutletDistance, domain.ListingResult, error) {
	if err := validateQuery(lat, lng, q); err != nil {
		return domain.OutletDistance{}, domain.ListingResult{}, err
	}

	var (
		nearest []domain.OutletDistance
		allow   map[int64]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		nearest, err = s.geo.Nearest(gctx, lat, lng, 1, 0)
		return err
	})
	if username != "" && s.rec != nil {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(gctx, s.recommendTimeout)
			defer cancel()
			picks, err := s.rec.Recommend(rctx, username, s.matrix, s.itemSku)
			if err != nil {
				// Recommend already degrades internally; anything that
				// still escapes must not fail the catalog.
				log.Warn().Err(err).Msg("recommendation skipped")
				return nil
			}
			allow = picks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.OutletDistance{}, domain.ListingResult{}, err
	}
	if len(nearest) == 0 {
		return domain.OutletDistance{}, domain.ListingResult{}, domain.ErrNoOutletFound
	}

	q.OutletID = nearest[0].Outlet.ID
	if len(allow) > 0 {
		q.AllowSKUs = make([]int64, 0, len(allow))
		for sku := range allow {
			q.AllowSKUs = append(q.AllowSKUs, sku)
		}
	}

	res, err := s.engine.List(ctx, q)
	if err != nil {
		return domain.OutletDistance{}, domain.ListingResult{}, err
	}
	return nearest[0], res, nil
}

// validateQuery rejects malformed filters at the boundary instead of
// silently producing an empty result set.
func validateQuery(lat, lng float64, q domain.ListingQuery) error {
	switch {
	case lat < -90 || lat > 90:
		return &domain.ValidationError{Field: "lat", Reason: "must be within [-90, 90]"}
	case lng < -180 || lng > 180:
		return &domain.ValidationError{Field: "lng", Reason: "must be within [-180, 180]"}
	case q.HasPriceMin && q.PriceMin < 0:
		return &domain.ValidationError{Field: "price_min", Reason: "must be >= 0"}
	case q.HasPriceMax && q.PriceMax < 0:
		return &domain.ValidationError{Field: "price_max", Reason: "must be >= 0"}
	case q.HasPriceMin && q.HasPriceMax && q.PriceMax < q.PriceMin:
		return &domain.ValidationError{Field: "price_max", Reason: "must be >= price_min"}
	case q.RatingMin < 0 || q.RatingMin > 5:
		return &domain.ValidationError{Field: "rating_min", Reason: "must be within [0, 5]"}
	case q.Page < 1:
		return &domain.ValidationError{Field: "page", Reason: "must be >= 1"}
	case q.PageSize < 1:
		return &domain.ValidationError{Field: "page_size", Reason: "must be >= 1"}
	}
	if q.Sort != "" {
		if _, err := domain.ParseSortOrder(string(q.Sort)); err != nil {
			return &domain.ValidationError{Field: "sort", Reason: err.Error()}
		}
	}
	return nil
}
