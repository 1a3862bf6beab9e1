package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cabinet-calculator/internal/geometry"
)

const (
	// RowCount is the fixed number of equipment rows in a session.
	RowCount = 50
	// DefaultQuantity is the quantity a fresh row starts with.
	DefaultQuantity = 1
	// MaxQuantity caps a row's quantity. With 50 rows that each fit the container, the
	// total stays far below the int64 range for any cabinet-sized container.
	MaxQuantity = 1_000_000
)

// EquipmentRow is one line of the equipment grid, addressed by its 1-based Index.
type EquipmentRow struct {
	Index    int
	Name     string
	Depth    float64
	Width    float64
	Height   float64
	Quantity int
}

// NewRow returns the default (blank) row for the given index.
func NewRow(index int) EquipmentRow {
	return EquipmentRow{Index: index, Quantity: DefaultQuantity}
}

// DefaultRows returns RowCount blank rows indexed 1..RowCount.
func DefaultRows() []EquipmentRow {
	rows := make([]EquipmentRow, RowCount)
	for i := range rows {
		rows[i] = NewRow(i + 1)
	}
	return rows
}

// Dimensions returns the row's item dimensions.
func (r EquipmentRow) Dimensions() geometry.Dimensions {
	return geometry.Dimensions{Depth: r.Depth, Width: r.Width, Height: r.Height}
}

// Empty reports whether no dimension is positive. Quantity and name are ignored.
func (r EquipmentRow) Empty() bool {
	return r.Dimensions().Empty()
}

// Blank reports whether the row still holds nothing but defaults.
func (r EquipmentRow) Blank() bool {
	return strings.TrimSpace(r.Name) == "" &&
		r.Depth == 0 && r.Width == 0 && r.Height == 0 &&
		r.Quantity == DefaultQuantity
}

// RowEvaluation is the outcome of evaluating a single row.
type RowEvaluation struct {
	ItemVolume decimal.Decimal
	Fits       bool
	Empty      bool
}

// RowRef identifies a row that failed the fit check.
type RowRef struct {
	Index int    `json:"index"`
	Name  string `json:"name,omitempty"`
}

// Label returns the row name, or "Row {i}" when the name is blank.
func (r RowRef) Label() string {
	if name := strings.TrimSpace(r.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Row %d", r.Index)
}

// AggregateResult summarises all rows of a session.
// Volume and Containers are always computed from the fitting rows, but callers must go
// through TotalVolume and ContainersNeeded, which refuse to report them while any row fails.
type AggregateResult struct {
	Volume     decimal.Decimal
	Containers int64
	Errors     []RowRef
	Valid      bool
}

// Err returns a *FitViolationError when at least one row does not fit.
func (r AggregateResult) Err() error {
	if r.Valid {
		return nil
	}
	return &FitViolationError{Rows: r.Errors}
}

// TotalVolume returns the summed volume in mm³, or ErrUnmeasurable.
func (r AggregateResult) TotalVolume() (decimal.Decimal, error) {
	if err := r.Err(); err != nil {
		return decimal.Zero, err
	}
	return r.Volume, nil
}

// ContainersNeeded returns the number of containers required, or ErrUnmeasurable.
func (r AggregateResult) ContainersNeeded() (int64, error) {
	if err := r.Err(); err != nil {
		return 0, err
	}
	return r.Containers, nil
}

// Calculator describes the behaviour required from a container calculator.
type Calculator interface {
	Container() geometry.Container
	Evaluate(row EquipmentRow) RowEvaluation
	Aggregate(rows []EquipmentRow) AggregateResult
}
