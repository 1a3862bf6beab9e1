package calculator

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/eugenenazirov/cabinet-calculator/internal/geometry"
)

type binCalculator struct {
	container geometry.Container
	volume    decimal.Decimal
}

// New creates a Calculator for the given container.
func New(c geometry.Container) Calculator {
	return &binCalculator{
		container: c,
		volume:    decimal.NewFromFloat(c.Width).Mul(decimal.NewFromFloat(c.Depth)).Mul(decimal.NewFromFloat(c.Height)),
	}
}

func (c *binCalculator) Container() geometry.Container {
	return c.container
}

func (c *binCalculator) Evaluate(row EquipmentRow) RowEvaluation {
	dims := row.Dimensions()
	if dims.Empty() {
		return RowEvaluation{ItemVolume: decimal.Zero, Fits: true, Empty: true}
	}

	volume := decimal.NewFromFloat(row.Depth).
		Mul(decimal.NewFromFloat(row.Width)).
		Mul(decimal.NewFromFloat(row.Height)).
		Mul(decimal.NewFromInt(int64(row.Quantity)))

	return RowEvaluation{
		ItemVolume: volume,
		Fits:       geometry.Fits(dims, c.container),
	}
}

// Aggregate walks every row; a failing row is recorded and skipped, and the whole result
// is invalidated only after the pass so the complete error list is available.
func (c *binCalculator) Aggregate(rows []EquipmentRow) AggregateResult {
	total := decimal.Zero
	var errs []RowRef

	for _, row := range rows {
		eval := c.Evaluate(row)
		if eval.Empty {
			continue
		}
		if !eval.Fits {
			errs = append(errs, RowRef{Index: row.Index, Name: row.Name})
			continue
		}
		total = total.Add(eval.ItemVolume)
	}

	return AggregateResult{
		Volume:     total,
		Containers: c.containersFor(total),
		Errors:     errs,
		Valid:      len(errs) == 0,
	}
}

func (c *binCalculator) containersFor(total decimal.Decimal) int64 {
	if total.Sign() <= 0 || c.volume.Sign() <= 0 {
		return 0
	}
	q, r := total.QuoRem(c.volume, 0)
	if r.Sign() > 0 {
		q = q.Add(decimal.NewFromInt(1))
	}
	if !q.BigInt().IsInt64() {
		return math.MaxInt64
	}
	return q.IntPart()
}

// ValidateIndex checks that index addresses one of the RowCount rows.
func ValidateIndex(index int) error {
	if index < 1 || index > RowCount {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrRowOutOfRange, index, RowCount)
	}
	return nil
}

// Validate rejects negative or non-finite dimensions and negative quantities.
func (r EquipmentRow) Validate() error {
	if err := ValidateIndex(r.Index); err != nil {
		return err
	}
	for _, v := range []struct {
		field string
		value float64
	}{
		{"depth", r.Depth},
		{"width", r.Width},
		{"height", r.Height},
	} {
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) || v.value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidRow, v.field, v.value)
		}
	}
	if r.Quantity < 0 || r.Quantity > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 0 and %d, got %d", ErrInvalidRow, MaxQuantity, r.Quantity)
	}
	return nil
}
