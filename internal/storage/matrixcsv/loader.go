// Package matrixcsv loads the precomputed dense rating matrix from CSV.
//
// Format: header row "rater_id,<item_id>,<item_id>,..."; each following row
// is a rater id and one cell per column. Empty cells are absent ratings and
// stay structurally absent (no sentinel values).
package matrixcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"ovino/internal/domain"
)

func Load(path string) (*domain.RatingMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rating matrix: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*domain.RatingMatrix, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("rating matrix header: %w", err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("rating matrix header needs at least one item column")
	}

	items := make([]int64, 0, len(header)-1)
	for _, col := range header[1:] {
		id, err := strconv.ParseInt(strings.TrimSpace(col), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("rating matrix item column %q: %w", col, err)
		}
		items = append(items, id)
	}

	var rows []domain.RaterRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rating matrix line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("rating matrix line %d: %d cells, want %d", line, len(rec), len(header))
		}
		row := domain.RaterRow{
			RaterID: strings.TrimSpace(rec[0]),
			Ratings: make(map[int64]float64, len(items)),
		}
		for i, cell := range rec[1:] {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue // structurally absent
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("rating matrix line %d col %d: %w", line, i+2, err)
			}
			row.Ratings[items[i]] = v
		}
		rows = append(rows, row)
	}
	return domain.NewRatingMatrix(items, rows), nil
}
