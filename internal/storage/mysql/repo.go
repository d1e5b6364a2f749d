package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ovino/internal/domain"
)

// Repo is the read-only MySQL view over the externally maintained
// reference tables. The engine never writes.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func dataErr(op string, err error) error {
	return &domain.DataAccessError{Op: op, Err: err}
}

// placeholders returns "?,?,...,?" for n bound values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func int64Args(vals []int64) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

func (r *Repo) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	rows, err := r.db.QueryContext(ctx, listOutletsSQL)
	if err != nil {
		return nil, dataErr("list outlets", err)
	}
	defer rows.Close()

	var out []domain.Outlet
	for rows.Next() {
		var o domain.Outlet
		var address, city, phone sql.NullString
		if err := rows.Scan(&o.ID, &o.Name, &o.Lat, &o.Lng, &address, &city, &phone); err != nil {
			return nil, dataErr("scan outlet", err)
		}
		o.Address = address.String
		o.City = city.String
		o.Phone = phone.String
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("list outlets", err)
	}
	return out, nil
}

func (r *Repo) AvailableSKUs(ctx context.Context, outletID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, availableSKUsSQL, outletID, outletID)
	if err != nil {
		return nil, dataErr("available skus", err)
	}
	defer rows.Close()

	var skus []int64
	for rows.Next() {
		var sku int64
		if err := rows.Scan(&sku); err != nil {
			return nil, dataErr("scan sku", err)
		}
		skus = append(skus, sku)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("available skus", err)
	}
	return skus, nil
}

func (r *Repo) CurrentPrices(ctx context.Context, skus []int64) (map[int64]domain.PriceSnapshot, error) {
	out := make(map[int64]domain.PriceSnapshot, len(skus))
	if len(skus) == 0 {
		return out, nil
	}
	q := fmt.Sprintf(currentPricesSQLTmpl, placeholders(len(skus)))
	rows, err := r.db.QueryContext(ctx, q, int64Args(skus)...)
	if err != nil {
		return nil, dataErr("current prices", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps domain.PriceSnapshot
		if err := rows.Scan(&ps.SKU, &ps.PriceCents, &ps.ObservedAt); err != nil {
			return nil, dataErr("scan price", err)
		}
		out[ps.SKU] = ps
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("current prices", err)
	}
	return out, nil
}

func (r *Repo) ProductsBySKU(ctx context.Context, skus []int64) ([]domain.Product, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(productsBySKUSQLTmpl, placeholders(len(skus)))
	rows, err := r.db.QueryContext(ctx, q, int64Args(skus)...)
	if err != nil {
		return nil, dataErr("products by sku", err)
	}
	defer rows.Close()

	var out []domain.Product
	for rows.Next() {
		var p domain.Product
		var varietal, category, region, country, brand sql.NullString
		var thumb, desc, detail sql.NullString
		var abv, ratingAvg sql.NullFloat64
		var calories, volumeML, ratingCount sql.NullInt64
		var itemID sql.NullInt64
		if err := rows.Scan(
			&p.SKU, &p.Name, &varietal, &category, &region, &country, &brand,
			&thumb, &desc, &abv, &calories, &volumeML, &detail,
			&itemID, &ratingAvg, &ratingCount,
		); err != nil {
			return nil, dataErr("scan product", err)
		}
		p.Varietal = varietal.String
		p.Category = category.String
		p.Region = region.String
		p.Country = country.String
		p.Brand = brand.String
		p.ThumbnailURL = thumb.String
		p.Description = desc.String
		p.ABV = abv.Float64
		p.Calories = int(calories.Int64)
		p.VolumeML = int(volumeML.Int64)
		p.DetailURL = detail.String
		p.ItemID = itemID.Int64
		p.RatingAvg = ratingAvg.Float64
		p.RatingCount = int(ratingCount.Int64)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("products by sku", err)
	}
	return out, nil
}

func (r *Repo) SentimentVotes(ctx context.Context, skus []int64) ([]domain.SentimentVote, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	q := fmt.Sprintf(sentimentVotesSQLTmpl, placeholders(len(skus)))
	rows, err := r.db.QueryContext(ctx, q, int64Args(skus)...)
	if err != nil {
		return nil, dataErr("sentiment votes", err)
	}
	defer rows.Close()

	var out []domain.SentimentVote
	for rows.Next() {
		var v domain.SentimentVote
		if err := rows.Scan(&v.SKU, &v.IsPositive); err != nil {
			return nil, dataErr("scan vote", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("sentiment votes", err)
	}
	return out, nil
}

func (r *Repo) ItemSkuMap(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.db.QueryContext(ctx, itemSkuMapSQL)
	if err != nil {
		return nil, dataErr("item sku map", err)
	}
	defer rows.Close()

	out := map[int64]int64{}
	for rows.Next() {
		var itemID, sku int64
		if err := rows.Scan(&itemID, &sku); err != nil {
			return nil, dataErr("scan item sku", err)
		}
		out[itemID] = sku
	}
	if err := rows.Err(); err != nil {
		return nil, dataErr("item sku map", err)
	}
	return out, nil
}
