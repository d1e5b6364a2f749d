package domain

// RaterRow is one known rater's historical star ratings, keyed by external
// item id. Absent cells are structurally absent (missing map keys), never
// sentinel values.
type RaterRow struct {
	RaterID string
	Ratings map[int64]float64 // item id -> rating in [1,5]
}

// RatingMatrix is the dense historical rating table: rows are known raters,
// columns are external item ids. Loaded once at process start and shared
// immutably across requests; safe for unlimited concurrent readers.
type RatingMatrix struct {
	items []int64
	cols  map[int64]struct{}
	rows  []RaterRow
}

func NewRatingMatrix(items []int64, rows []RaterRow) *RatingMatrix {
	cols := make(map[int64]struct{}, len(items))
	for _, id := range items {
		cols[id] = struct{}{}
	}
	return &RatingMatrix{items: items, cols: cols, rows: rows}
}

// Items returns the column ids in their stable load order.
func (m *RatingMatrix) Items() []int64 { return m.items }

// Rows returns rater rows in their stable load order (ties in
// nearest-neighbour distance resolve to the first row).
func (m *RatingMatrix) Rows() []RaterRow { return m.rows }

func (m *RatingMatrix) HasItem(id int64) bool {
	_, ok := m.cols[id]
	return ok
}

func (m *RatingMatrix) NumRaters() int { return len(m.rows) }
