package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
)

// DefaultKey is the storage key the snapshot is kept under.
const DefaultKey = "cabinetCalculatorData"

// ErrMalformedSnapshot is returned when a stored snapshot cannot be parsed.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Entry is one stored row. Row is optional: older snapshots address rows by position.
type Entry struct {
	Row      *int       `json:"row,omitempty"`
	Name     string     `json:"name"`
	Depth    FieldValue `json:"depth"`
	Width    FieldValue `json:"width"`
	Height   FieldValue `json:"height"`
	Quantity FieldValue `json:"quantity"`
}

// Snapshot serialises every non-blank row, ordered by index.
func Snapshot(rows []calculator.EquipmentRow) ([]byte, error) {
	ordered := make([]calculator.EquipmentRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	entries := make([]Entry, 0, len(ordered))
	for _, row := range ordered {
		if row.Blank() {
			continue
		}
		index := row.Index
		entries = append(entries, Entry{
			Row:      &index,
			Name:     row.Name,
			Depth:    dimension(row.Depth),
			Width:    dimension(row.Width),
			Height:   dimension(row.Height),
			Quantity: Number(float64(row.Quantity)),
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Restore rebuilds the full grid from a snapshot. Only non-blank fields are applied and
// entries addressing rows outside 1..RowCount are ignored. A malformed blob yields
// ErrMalformedSnapshot and no rows at all.
func Restore(blob []byte) ([]calculator.EquipmentRow, error) {
	var entries []Entry
	if err := json.Unmarshal(blob, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	rows := calculator.DefaultRows()
	for pos, entry := range entries {
		index := pos + 1
		if entry.Row != nil {
			index = *entry.Row
		}
		if calculator.ValidateIndex(index) != nil {
			continue
		}
		if err := apply(&rows[index-1], entry); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", ErrMalformedSnapshot, pos+1, err)
		}
	}
	return rows, nil
}

func apply(row *calculator.EquipmentRow, entry Entry) error {
	if entry.Name != "" {
		row.Name = entry.Name
	}

	for _, f := range []struct {
		name  string
		value FieldValue
		dst   *float64
	}{
		{"depth", entry.Depth, &row.Depth},
		{"width", entry.Width, &row.Width},
		{"height", entry.Height, &row.Height},
	} {
		if f.value.Blank() {
			continue
		}
		v, err := f.value.Float()
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s: negative value %v", f.name, v)
		}
		*f.dst = v
	}

	if !entry.Quantity.Blank() {
		q, err := entry.Quantity.Float()
		if err != nil {
			return fmt.Errorf("quantity: %w", err)
		}
		if q < 0 || q != math.Trunc(q) || q > calculator.MaxQuantity {
			return fmt.Errorf("quantity: must be an integer between 0 and %d, got %v", calculator.MaxQuantity, q)
		}
		row.Quantity = int(q)
	}
	return nil
}

func dimension(v float64) FieldValue {
	if v == 0 {
		return FieldValue{}
	}
	return Number(v)
}
