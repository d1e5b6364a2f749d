// Package geocode resolves free-form addresses to coordinates through a
// Nominatim-compatible search endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"ovino/internal/adapters/observability"
	"ovino/internal/domain"
)

type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter // public Nominatim usage policy is 1 req/s
}

func New(base string) *Client {
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 10 * time.Second},
		rl:   rate.NewLimiter(1, 1),
	}
}

// Geocode returns the best-match coordinate for an address, or ErrGeocode
// (wrapped) when nothing matches. Callers fall back to the anchor location.
func (c *Client) Geocode(ctx context.Context, address string) (float64, float64, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return 0, 0, err
	}

	u := fmt.Sprintf("%s/search?format=json&limit=1&q=%s", c.base, url.QueryEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "ovino/1.0")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrGeocode, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("geocode", "search", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("%w: status %d", domain.ErrGeocode, resp.StatusCode)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", domain.ErrGeocode, err)
	}
	if len(hits) == 0 {
		return 0, 0, fmt.Errorf("%w: no results for %q", domain.ErrGeocode, address)
	}

	lat, err1 := strconv.ParseFloat(hits[0].Lat, 64)
	lng, err2 := strconv.ParseFloat(hits[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: malformed coordinate in response", domain.ErrGeocode)
	}
	return lat, lng, nil
}

var _ domain.Geocoder = (*Client)(nil)
