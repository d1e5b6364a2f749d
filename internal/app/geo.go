package app

import (
	"context"
	"math"
	"sort"

	"ovino/internal/domain"
)

const earthRadiusKM = 6371.0

// GeoLocator ranks known outlets by great-circle distance from a query
// coordinate. The outlet set is immutable reference data, so it is cached
// when a cache is supplied.
type GeoLocator struct {
	repo     domain.StoreRepository
	cache    domain.Cache
	cacheTTL int // seconds
}

func NewGeoLocator(repo domain.StoreRepository, cache domain.Cache, ttlSec int) *GeoLocator {
	return &GeoLocator{repo: repo, cache: cache, cacheTTL: ttlSec}
}

// Nearest returns up to maxResults outlets in non-decreasing distance from
// (lat, lng). maxRadiusKM is advisory: outlets beyond it are dropped, except
// the single closest outlet, which is always kept so a far-away user still
// gets a store. maxRadiusKM <= 0 disables the radius entirely. An empty
// outlet set yields an empty slice, not an error.
func (g *GeoLocator) Nearest(ctx context.Context, lat, lng float64, maxResults int, maxRadiusKM float64) ([]domain.OutletDistance, error) {
	outlets, err := g.outlets(ctx)
	if err != nil {
		return nil, err
	}
	if len(outlets) == 0 {
		return []domain.OutletDistance{}, nil
	}

	ranked := make([]domain.OutletDistance, 0, len(outlets))
	for _, o := range outlets {
		ranked = append(ranked, domain.OutletDistance{
			Outlet:     o,
			DistanceKM: Haversine(lat, lng, o.Lat, o.Lng),
		})
	}
	// Stable: equal distances keep the underlying outlet order.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKM < ranked[j].DistanceKM
	})

	if maxRadiusKM > 0 {
		kept := ranked[:1]
		for _, od := range ranked[1:] {
			if od.DistanceKM <= maxRadiusKM {
				kept = append(kept, od)
			}
		}
		ranked = kept
	}
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked, nil
}

func (g *GeoLocator) outlets(ctx context.Context) ([]domain.Outlet, error) {
	const key = "outlets:all"
	if g.cache != nil {
		var cached []domain.Outlet
		if ok, _ := g.cache.Get(ctx, key, &cached); ok {
			return cached, nil
		}
	}
	outlets, err := g.repo.ListOutlets(ctx)
	if err != nil {
		return nil, err
	}
	if g.cache != nil && len(outlets) > 0 {
		_ = g.cache.Set(ctx, key, outlets, g.cacheTTL)
	}
	return outlets, nil
}

// Haversine returns the great-circle distance in km between two
// latitude/longitude pairs given in degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	const degToRad = math.Pi / 180
	la1, lo1 := lat1*degToRad, lng1*degToRad
	la2, lo2 := lat2*degToRad, lng2*degToRad

	sinLat := math.Sin(0.5 * (la2 - la1))
	sinLng := math.Sin(0.5 * (lo2 - lo1))
	h := sinLat*sinLat + math.Cos(la1)*math.Cos(la2)*sinLng*sinLng
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}
