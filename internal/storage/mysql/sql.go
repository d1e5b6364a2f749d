package mysql

const listOutletsSQL = `
SELECT id, name, latitude, longitude, address, city, phone
FROM outlets
ORDER BY id
`

// -----------------------------------------------------------------------------
// LATEST-BY-KEY READS
// -----------------------------------------------------------------------------

// Availability is defined by the most recent inventory record per
// (outlet, sku); the max-recorded_at row is selected explicitly via the
// grouped self-join so the window semantics stay testable in isolation.
const availableSKUsSQL = `
SELECT i.sku
FROM inventory_records i
JOIN (
  SELECT sku, MAX(recorded_at) AS recorded_at
  FROM inventory_records
  WHERE outlet_id = ?
  GROUP BY sku
) latest ON latest.sku = i.sku AND latest.recorded_at = i.recorded_at
WHERE i.outlet_id = ? AND i.quantity > 0
ORDER BY i.sku
`

// Current price of a sku = snapshot with the maximum observed_at.
// %s expands to a generated "?,?,..." placeholder list; sku values are
// always bound, never interpolated.
const currentPricesSQLTmpl = `
SELECT p.sku, p.price_cents, p.observed_at
FROM price_snapshots p
JOIN (
  SELECT sku, MAX(observed_at) AS observed_at
  FROM price_snapshots
  WHERE sku IN (%s)
  GROUP BY sku
) latest ON latest.sku = p.sku AND latest.observed_at = p.observed_at
`

const productsBySKUSQLTmpl = `
SELECT sku, name, varietal, category, region, country, brand,
       thumbnail_url, description, abv, calories, volume_ml, detail_url,
       item_id, rating_avg, rating_count
FROM products
WHERE sku IN (%s)
ORDER BY sku
`

const sentimentVotesSQLTmpl = `
SELECT sku, is_positive
FROM sentiment_votes
WHERE sku IN (%s)
`

const itemSkuMapSQL = `
SELECT item_id, sku
FROM products
WHERE item_id IS NOT NULL AND item_id > 0
`
