package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"ovino/internal/adapters/geocode"
	server "ovino/internal/adapters/http_server"
	"ovino/internal/adapters/observability"
	redisad "ovino/internal/adapters/redis"
	"ovino/internal/adapters/vivino"
	"ovino/internal/app"
	"ovino/internal/domain"
	"ovino/internal/shared"
	"ovino/internal/storage/matrixcsv"
	mysqlrepo "ovino/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Immutable per-process state: rating matrix + item/sku bridge,
	// loaded once and shared read-only across all requests.
	var matrix *domain.RatingMatrix
	if cfg.MatrixPath != "" {
		matrix, err = matrixcsv.Load(cfg.MatrixPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.MatrixPath).Msg("rating matrix load failed")
		}
		log.Info().Int("raters", matrix.NumRaters()).Int("items", len(matrix.Items())).Msg("rating matrix loaded")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	itemSku, err := repo.ItemSkuMap(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("item/sku map load failed")
	}
	log.Info().Int("mapped_items", len(itemSku)).Msg("item/sku bridge loaded")

	ttlSec := int(cfg.CacheTTL.Seconds())
	geo := app.NewGeoLocator(repo, cache, ttlSec)
	engine := app.NewListingEngine(repo, cfg.MinVotes, cfg.MaxLimit)
	profile := vivino.New(cfg.VivinoBase, cfg.VivinoRPS)
	rec := app.NewRecommender(profile, cache, ttlSec, cfg.TopPercentile, cfg.MinSharedItems)
	catalog := app.NewCatalogService(geo, engine, rec, matrix, itemSku, cfg.RecommendTimeout)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Catalog:         catalog,
		Geo:             geo,
		Geocoder:        geocode.New(cfg.GeocodeBase),
		AnchorLat:       cfg.AnchorLat,
		AnchorLng:       cfg.AnchorLng,
		DefaultPageSize: cfg.DefaultPageSize,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
