//go:build integration || !unit

package integration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "ovino/internal/adapters/http_server"
	"ovino/internal/app"
	mysqlrepo "ovino/internal/storage/mysql"
)

const e2eSchemaSQL = `
CREATE TABLE outlets (
  id        BIGINT PRIMARY KEY,
  name      VARCHAR(255) NOT NULL,
  latitude  DOUBLE NOT NULL,
  longitude DOUBLE NOT NULL,
  address   VARCHAR(512) NULL,
  city      VARCHAR(128) NULL,
  phone     VARCHAR(64)  NULL
);
CREATE TABLE products (
  sku           BIGINT PRIMARY KEY,
  name          VARCHAR(512) NOT NULL,
  varietal      VARCHAR(255) NULL,
  category      VARCHAR(255) NULL,
  region        VARCHAR(255) NULL,
  country       VARCHAR(255) NULL,
  brand         VARCHAR(255) NULL,
  thumbnail_url VARCHAR(1024) NULL,
  description   TEXT NULL,
  abv           DOUBLE NULL,
  calories      INT NULL,
  volume_ml     INT NULL,
  detail_url    VARCHAR(1024) NULL,
  item_id       BIGINT NULL,
  rating_avg    DOUBLE NULL,
  rating_count  INT NULL
);
CREATE TABLE inventory_records (
  outlet_id   BIGINT NOT NULL,
  sku         BIGINT NOT NULL,
  quantity    INT NOT NULL,
  recorded_at DATETIME NOT NULL,
  PRIMARY KEY (outlet_id, sku, recorded_at)
);
CREATE TABLE price_snapshots (
  sku         BIGINT NOT NULL,
  price_cents BIGINT NOT NULL,
  observed_at DATETIME NOT NULL,
  PRIMARY KEY (sku, observed_at)
);
CREATE TABLE sentiment_votes (
  id          BIGINT AUTO_INCREMENT PRIMARY KEY,
  sku         BIGINT NOT NULL,
  is_positive TINYINT(1) NOT NULL
);
`

// One outlet near downtown Toronto. Sku 101 has enough votes to list; sku
// 102 is vote-starved and must be filtered out of the catalog.
const e2eSeedSQL = `
INSERT INTO outlets (id, name, latitude, longitude, address, city, phone) VALUES
  (1, 'Downtown', 43.6500, -79.3800, '1 Main St', 'Toronto', '416-555-0101');

INSERT INTO products (sku, name, region, country, abv, calories, volume_ml, item_id, rating_avg, rating_count) VALUES
  (101, 'Chianti Classico', 'Tuscany', 'Italy', 13.5, 120, 750, 9001, 4.0, 210),
  (102, 'Quiet Merlot', NULL, 'France', 13.0, 125, 750, NULL, 3.5, 12);

INSERT INTO inventory_records (outlet_id, sku, quantity, recorded_at) VALUES
  (1, 101, 12, '2026-08-20 09:00:00'),
  (1, 102, 4,  '2026-08-20 09:00:00');

INSERT INTO price_snapshots (sku, price_cents, observed_at) VALUES
  (101, 1050, '2026-08-01 00:00:00'),
  (101, 1195, '2026-08-25 00:00:00'),
  (102, 999,  '2026-08-25 00:00:00');

INSERT INTO sentiment_votes (sku, is_positive) VALUES
  (101, 1), (101, 1), (101, 1), (101, 1), (101, 1), (101, 1), (101, 1),
  (101, 0), (101, 0),
  (102, 1), (102, 0);
`

func startSeededMySQL(t *testing.T) *sql.DB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=ovino",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/ovino?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(e2eSchemaSQL); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	if _, err := db.Exec(e2eSeedSQL); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func newTestServer(db *sql.DB) *httptest.Server {
	repo := mysqlrepo.New(db)
	geo := app.NewGeoLocator(repo, nil, 0)
	engine := app.NewListingEngine(repo, 8, 100)
	catalog := app.NewCatalogService(geo, engine, nil, nil, nil, 0)

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{
		Catalog:         catalog,
		Geo:             geo,
		AnchorLat:       49.5,
		AnchorLng:       -84.5,
		DefaultPageSize: 20,
	})
	return httptest.NewServer(srv.Mux())
}

func TestHTTP_EndToEnd_Catalog(t *testing.T) {
	db := startSeededMySQL(t)
	ts := newTestServer(db)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/catalog?lat=43.70&lng=-79.40")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if et := res.Header.Get("ETag"); et == "" {
		t.Fatalf("missing ETag header")
	}

	var body struct {
		Outlet struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"outlet"`
		DistanceKM float64 `json:"distance_km"`
		Cards      []struct {
			SKU         int64   `json:"sku"`
			MadeIn      string  `json:"made_in"`
			Description string  `json:"description"`
			PriceCents  int64   `json:"price_cents"`
			Positivity  float64 `json:"positivity"`
			Votes       int     `json:"votes"`
		} `json:"cards"`
		TotalCount int `json:"total_count"`
		Page       int `json:"page"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if body.Outlet.ID != 1 || body.Outlet.Name != "Downtown" {
		t.Fatalf("unexpected outlet: %+v", body.Outlet)
	}
	if body.DistanceKM <= 0 || body.DistanceKM > 20 {
		t.Fatalf("distance_km = %v", body.DistanceKM)
	}
	// Sku 102 has 2 votes and must not list.
	if body.TotalCount != 1 || len(body.Cards) != 1 {
		t.Fatalf("total=%d cards=%d, want 1/1", body.TotalCount, len(body.Cards))
	}
	c := body.Cards[0]
	if c.SKU != 101 || c.PriceCents != 1195 || c.Votes != 9 {
		t.Fatalf("unexpected card: %+v", c)
	}
	if c.MadeIn != "Tuscany, Italy" {
		t.Fatalf("made_in = %q", c.MadeIn)
	}
	if c.Description != "No description available." {
		t.Fatalf("description = %q", c.Description)
	}
}

func TestHTTP_EndToEnd_BadSort(t *testing.T) {
	db := startSeededMySQL(t)
	ts := newTestServer(db)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/catalog?lat=43.70&lng=-79.40&sort=ratio")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type %q", ct)
	}
}

func TestHTTP_EndToEnd_NearestOutlets(t *testing.T) {
	db := startSeededMySQL(t)
	ts := newTestServer(db)
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/outlets/nearest?lat=43.70&lng=-79.40&limit=5")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}

	var body struct {
		Outlets []struct {
			ID         int64   `json:"id"`
			DistanceKM float64 `json:"distance_km"`
		} `json:"outlets"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Outlets) != 1 || body.Outlets[0].ID != 1 {
		t.Fatalf("unexpected outlets: %+v", body.Outlets)
	}
}
