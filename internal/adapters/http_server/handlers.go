package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"ovino/internal/adapters/observability"
	"ovino/internal/app"
	"ovino/internal/domain"
)

type Handlers struct {
	Catalog  *app.CatalogService
	Geo      *app.GeoLocator
	Geocoder domain.Geocoder

	// Fallback coordinate when an address cannot be resolved.
	AnchorLat float64
	AnchorLng float64

	DefaultPageSize int
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/catalog", h.getCatalog)
	s.mux.Get("/v1/outlets/nearest", h.nearestOutlets)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// ---- /v1/catalog ----

type outletJSON struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
	City    string  `json:"city"`
	Phone   string  `json:"phone"`
}

type cardJSON struct {
	SKU          int64   `json:"sku"`
	Name         string  `json:"name"`
	Varietal     string  `json:"varietal,omitempty"`
	Category     string  `json:"category,omitempty"`
	MadeIn       string  `json:"made_in"`
	Brand        string  `json:"brand,omitempty"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Description  string  `json:"description"`
	ABV          float64 `json:"abv"`
	Calories     int     `json:"calories"`
	VolumeML     int     `json:"volume_ml"`
	DetailURL    string  `json:"detail_url,omitempty"`
	PriceCents   int64   `json:"price_cents"`
	Positivity   float64 `json:"positivity"`
	Votes        int     `json:"votes"`
	RatingAvg    float64 `json:"rating_avg"`
	RatingCount  int     `json:"rating_count"`
}

type catalogResponse struct {
	Outlet     outletJSON `json:"outlet"`
	DistanceKM float64    `json:"distance_km"`
	Advisory   string     `json:"advisory,omitempty"`
	Cards      []cardJSON `json:"cards"`
	TotalCount int        `json:"total_count"`
	TotalPages int        `json:"total_pages"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
}

func (h *Handlers) getCatalog(w http.ResponseWriter, r *http.Request) {
	lat, lng, advisory, ok := h.resolveCoordinate(w, r)
	if !ok {
		return
	}

	q, err := h.parseListingQuery(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}
	username := r.URL.Query().Get("username")

	observability.ObserveCatalogQuery(string(q.Sort), username != "")

	od, res, err := h.Catalog.NearbyCatalog(r.Context(), lat, lng, q, username)
	if err != nil {
		var ve *domain.ValidationError
		var de *domain.DataAccessError
		switch {
		case errors.As(err, &ve):
			writeProblem(w, http.StatusBadRequest, "Invalid query", ve.Error())
		case errors.Is(err, domain.ErrNoOutletFound):
			writeProblem(w, http.StatusNotFound, "Not Found", "no outlet near the given location")
		case errors.As(err, &de):
			log.Error().Err(err).Msg("catalog data access failed")
			writeProblem(w, http.StatusBadGateway, "Upstream failure", "store temporarily unavailable")
		default:
			log.Error().Err(err).Msg("catalog query failed")
			writeProblem(w, http.StatusInternalServerError, "Internal error", "")
		}
		return
	}

	resp := catalogResponse{
		Outlet: outletJSON{
			ID:      od.Outlet.ID,
			Name:    od.Outlet.Name,
			Lat:     od.Outlet.Lat,
			Lng:     od.Outlet.Lng,
			Address: od.Outlet.Address,
			City:    od.Outlet.City,
			Phone:   od.Outlet.Phone,
		},
		DistanceKM: od.DistanceKM,
		Advisory:   advisory,
		Cards:      make([]cardJSON, 0, len(res.Cards)),
		TotalCount: res.TotalCount,
		TotalPages: (res.TotalCount + q.PageSize - 1) / q.PageSize,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	for _, c := range res.Cards {
		resp.Cards = append(resp.Cards, cardJSON{
			SKU:          c.SKU,
			Name:         c.Name,
			Varietal:     c.Varietal,
			Category:     c.Category,
			MadeIn:       c.MadeIn,
			Brand:        c.Brand,
			ThumbnailURL: c.ThumbnailURL,
			Description:  c.Description,
			ABV:          c.ABV,
			Calories:     c.Calories,
			VolumeML:     c.VolumeML,
			DetailURL:    c.DetailURL,
			PriceCents:   c.PriceCents,
			Positivity:   c.Positivity,
			Votes:        c.Votes,
			RatingAvg:    c.RatingAvg,
			RatingCount:  c.RatingCount,
		})
	}
	writeJSON(w, r, resp)
}

// resolveCoordinate takes lat/lng directly, or geocodes ?address=. A failed
// geocode falls back to the anchor coordinate with an advisory note rather
// than failing the request.
func (h *Handlers) resolveCoordinate(w http.ResponseWriter, r *http.Request) (lat, lng float64, advisory string, ok bool) {
	qs := r.URL.Query()
	latS, lngS := qs.Get("lat"), qs.Get("lng")
	if latS != "" || lngS != "" {
		var err1, err2 error
		lat, err1 = strconv.ParseFloat(latS, 64)
		lng, err2 = strconv.ParseFloat(lngS, 64)
		if err1 != nil || err2 != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid coordinate", "lat and lng must both be numbers")
			return 0, 0, "", false
		}
		return lat, lng, "", true
	}

	address := qs.Get("address")
	if address == "" {
		writeProblem(w, http.StatusBadRequest, "Missing location", "supply lat/lng or address")
		return 0, 0, "", false
	}
	if h.Geocoder == nil {
		writeProblem(w, http.StatusBadRequest, "Missing location", "address lookup is not configured; supply lat/lng")
		return 0, 0, "", false
	}
	glat, glng, err := h.Geocoder.Geocode(r.Context(), address)
	if err != nil {
		log.Warn().Str("address", address).Err(err).Msg("geocode failed, using anchor")
		return h.AnchorLat, h.AnchorLng, fmt.Sprintf("%q address not found", address), true
	}
	return glat, glng, "", true
}

func (h *Handlers) parseListingQuery(r *http.Request) (domain.ListingQuery, error) {
	qs := r.URL.Query()
	q := domain.ListingQuery{
		Sort:     domain.SortVotes,
		Page:     1,
		PageSize: h.DefaultPageSize,
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}

	if v := qs.Get("price_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, fmt.Errorf("price_min must be a number")
		}
		q.PriceMin, q.HasPriceMin = f, true
	}
	if v := qs.Get("price_max"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, fmt.Errorf("price_max must be a number")
		}
		q.PriceMax, q.HasPriceMax = f, true
	}
	if v := qs.Get("rating_min"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, fmt.Errorf("rating_min must be a number")
		}
		q.RatingMin = f
	}
	if v := qs.Get("sort"); v != "" {
		// Named keys preferred; bare integers accepted for legacy clients.
		if n, err := strconv.Atoi(v); err == nil {
			o, err := domain.SortOrderFromOrdinal(n)
			if err != nil {
				return q, err
			}
			q.Sort = o
		} else {
			o, err := domain.ParseSortOrder(v)
			if err != nil {
				return q, err
			}
			q.Sort = o
		}
	}
	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, fmt.Errorf("page must be an integer >= 1")
		}
		q.Page = n
	}
	if v := qs.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, fmt.Errorf("page_size must be an integer >= 1")
		}
		q.PageSize = n
	}
	return q, nil
}

// ---- /v1/outlets/nearest ----

type nearestOutletJSON struct {
	outletJSON
	DistanceKM float64 `json:"distance_km"`
}

func (h *Handlers) nearestOutlets(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	lat, err1 := strconv.ParseFloat(qs.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(qs.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid coordinate", "lat and lng must both be numbers")
		return
	}
	limit := 3
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 50 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 50")
			return
		}
		limit = n
	}

	nearest, err := h.Geo.Nearest(r.Context(), lat, lng, limit, 0)
	if err != nil {
		log.Error().Err(err).Msg("nearest outlets failed")
		writeProblem(w, http.StatusBadGateway, "Upstream failure", "store temporarily unavailable")
		return
	}

	out := make([]nearestOutletJSON, 0, len(nearest))
	for _, od := range nearest {
		out = append(out, nearestOutletJSON{
			outletJSON: outletJSON{
				ID:      od.Outlet.ID,
				Name:    od.Outlet.Name,
				Lat:     od.Outlet.Lat,
				Lng:     od.Outlet.Lng,
				Address: od.Outlet.Address,
				City:    od.Outlet.City,
				Phone:   od.Outlet.Phone,
			},
			DistanceKM: od.DistanceKM,
		})
	}
	writeJSON(w, r, map[string]any{"outlets": out})
}
