package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpserver "ovino/internal/adapters/http_server"
	"ovino/internal/app"
	"ovino/internal/domain"
)

type memRepo struct {
	outlets  []domain.Outlet
	stock    map[int64][]int64
	prices   map[int64]domain.PriceSnapshot
	products []domain.Product
	votes    []domain.SentimentVote
}

func (f *memRepo) ListOutlets(ctx context.Context) ([]domain.Outlet, error) { return f.outlets, nil }

func (f *memRepo) AvailableSKUs(ctx context.Context, outletID int64) ([]int64, error) {
	return f.stock[outletID], nil
}

func (f *memRepo) CurrentPrices(ctx context.Context, skus []int64) (map[int64]domain.PriceSnapshot, error) {
	out := map[int64]domain.PriceSnapshot{}
	for _, s := range skus {
		if p, ok := f.prices[s]; ok {
			out[s] = p
		}
	}
	return out, nil
}

func (f *memRepo) ProductsBySKU(ctx context.Context, skus []int64) ([]domain.Product, error) {
	want := map[int64]struct{}{}
	for _, s := range skus {
		want[s] = struct{}{}
	}
	var out []domain.Product
	for _, p := range f.products {
		if _, ok := want[p.SKU]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *memRepo) SentimentVotes(ctx context.Context, skus []int64) ([]domain.SentimentVote, error) {
	return f.votes, nil
}

func (f *memRepo) ItemSkuMap(ctx context.Context) (map[int64]int64, error) {
	return map[int64]int64{}, nil
}

type fixedGeocoder struct {
	lat, lng float64
	err      error
}

func (g *fixedGeocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	return g.lat, g.lng, g.err
}

func listingRepo() *memRepo {
	votes := make([]domain.SentimentVote, 0, 10)
	for i := 0; i < 9; i++ {
		votes = append(votes, domain.SentimentVote{SKU: 101, IsPositive: i < 7})
	}
	return &memRepo{
		outlets: []domain.Outlet{{ID: 1, Name: "Downtown", Lat: 43.65, Lng: -79.38, City: "Toronto"}},
		stock:   map[int64][]int64{1: {101}},
		prices: map[int64]domain.PriceSnapshot{
			101: {SKU: 101, PriceCents: 1195, ObservedAt: time.Now()},
		},
		products: []domain.Product{
			{SKU: 101, Name: "Chianti", Region: "Tuscany", Country: "Italy", RatingAvg: 4.0, Calories: 120},
		},
		votes: votes,
	}
}

func newTestServer(repo *memRepo, gc domain.Geocoder) *httptest.Server {
	geo := app.NewGeoLocator(repo, nil, 0)
	engine := app.NewListingEngine(repo, 8, 100)
	catalog := app.NewCatalogService(geo, engine, nil, nil, nil, 0)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Catalog:         catalog,
		Geo:             geo,
		Geocoder:        gc,
		AnchorLat:       49.5,
		AnchorLng:       -84.5,
		DefaultPageSize: 20,
	})
	return httptest.NewServer(srv.Mux())
}

func getJSON(t *testing.T, url string, dst any) *http.Response {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if dst != nil {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res
}

func TestGetCatalog_OK(t *testing.T) {
	ts := newTestServer(listingRepo(), nil)
	defer ts.Close()

	var body struct {
		Outlet struct {
			ID int64 `json:"id"`
		} `json:"outlet"`
		Cards []struct {
			SKU    int64  `json:"sku"`
			MadeIn string `json:"made_in"`
		} `json:"cards"`
		TotalCount int `json:"total_count"`
		TotalPages int `json:"total_pages"`
	}
	res := getJSON(t, ts.URL+"/v1/catalog?lat=43.70&lng=-79.40", &body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if body.Outlet.ID != 1 || body.TotalCount != 1 || body.TotalPages != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.Cards[0].SKU != 101 || body.Cards[0].MadeIn != "Tuscany, Italy" {
		t.Fatalf("unexpected card: %+v", body.Cards[0])
	}
}

func TestGetCatalog_LegacySortOrdinal(t *testing.T) {
	ts := newTestServer(listingRepo(), nil)
	defer ts.Close()

	res := getJSON(t, ts.URL+"/v1/catalog?lat=43.70&lng=-79.40&sort=4", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("legacy ordinal sort rejected: status %d", res.StatusCode)
	}
	res = getJSON(t, ts.URL+"/v1/catalog?lat=43.70&lng=-79.40&sort=9", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown ordinal accepted: status %d", res.StatusCode)
	}
}

func TestGetCatalog_BadInputs(t *testing.T) {
	ts := newTestServer(listingRepo(), nil)
	defer ts.Close()

	for _, qs := range []string{
		"",
		"lat=abc&lng=-79.40",
		"lat=43.70",
		"lat=43.70&lng=-79.40&page=0",
		"lat=43.70&lng=-79.40&sort=bogus",
		"lat=43.70&lng=-79.40&price_min=x",
		"lat=91&lng=-79.40",
	} {
		res := getJSON(t, ts.URL+"/v1/catalog?"+qs, nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("query %q: status %d, want 400", qs, res.StatusCode)
		}
		if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Errorf("query %q: content-type %q", qs, ct)
		}
	}
}

func TestGetCatalog_NoOutlets(t *testing.T) {
	repo := listingRepo()
	repo.outlets = nil
	ts := newTestServer(repo, nil)
	defer ts.Close()

	res := getJSON(t, ts.URL+"/v1/catalog?lat=43.70&lng=-79.40", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", res.StatusCode)
	}
}

func TestGetCatalog_AddressGeocoded(t *testing.T) {
	ts := newTestServer(listingRepo(), &fixedGeocoder{lat: 43.70, lng: -79.40})
	defer ts.Close()

	var body struct {
		Advisory string `json:"advisory"`
		Outlet   struct {
			ID int64 `json:"id"`
		} `json:"outlet"`
	}
	res := getJSON(t, ts.URL+"/v1/catalog?address=100+Queen+St+W", &body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if body.Advisory != "" || body.Outlet.ID != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestGetCatalog_AddressFallsBackToAnchor(t *testing.T) {
	ts := newTestServer(listingRepo(), &fixedGeocoder{err: errors.New("no results")})
	defer ts.Close()

	var body struct {
		Advisory string `json:"advisory"`
	}
	res := getJSON(t, ts.URL+"/v1/catalog?address=nowhere", &body)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("geocode failure must not fail the request: status %d", res.StatusCode)
	}
	if body.Advisory != `"nowhere" address not found` {
		t.Fatalf("advisory = %q", body.Advisory)
	}
}

func TestETag_NotModified(t *testing.T) {
	ts := newTestServer(listingRepo(), nil)
	defer ts.Close()

	url := ts.URL + "/v1/catalog?lat=43.70&lng=-79.40"
	res := getJSON(t, url, nil)
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}

	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("If-None-Match", etag)
	res2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("conditional GET: %v", err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusNotModified {
		t.Fatalf("status %d, want 304", res2.StatusCode)
	}
}

func TestNearestOutlets_LimitValidation(t *testing.T) {
	ts := newTestServer(listingRepo(), nil)
	defer ts.Close()

	res := getJSON(t, ts.URL+"/v1/outlets/nearest?lat=43.70&lng=-79.40&limit=51", nil)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", res.StatusCode)
	}
}
