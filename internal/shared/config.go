package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	VivinoBase  string
	VivinoRPS   int
	GeocodeBase string

	MatrixPath string

	// Listing knobs.
	MinVotes        int // sku eligible only when votes strictly exceed this
	DefaultPageSize int
	MaxLimit        int

	// Recommender knobs.
	TopPercentile    float64
	MinSharedItems   int
	RecommendTimeout time.Duration

	CacheTTL time.Duration

	// Fallback coordinate when geocoding fails.
	AnchorLat float64
	AnchorLng float64
}

func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Info().Msg("loaded .env")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/ovino?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		VivinoBase:  env("VIVINO_BASE_URL", "https://www.vivino.com"),
		VivinoRPS:   atoi("VIVINO_RPS", 2),
		GeocodeBase: env("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),

		MatrixPath: env("RATING_MATRIX_PATH", "data/rating_matrix.csv"),

		MinVotes:        atoi("LISTING_MIN_VOTES", 8),
		DefaultPageSize: atoi("LISTING_PAGE_SIZE", 20),
		MaxLimit:        atoi("LISTING_MAX_LIMIT", 100),

		TopPercentile:    atof("RECOMMEND_TOP_PERCENTILE", 0.3),
		MinSharedItems:   atoi("RECOMMEND_MIN_SHARED", 3),
		RecommendTimeout: time.Duration(atoi("RECOMMEND_TIMEOUT_MS", 3000)) * time.Millisecond,

		CacheTTL: time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,

		AnchorLat: atof("ANCHOR_LAT", 49.5),
		AnchorLng: atof("ANCHOR_LNG", -84.5),
	}
	if c.MatrixPath == "" {
		log.Warn().Msg("RATING_MATRIX_PATH is empty; personalization disabled")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func atof(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
