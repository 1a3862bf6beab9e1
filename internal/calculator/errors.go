package calculator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnmeasurable is returned by the aggregate accessors when a row does not fit the container.
	ErrUnmeasurable = errors.New("total is unmeasurable: equipment exceeds the container")
	// ErrRowOutOfRange is returned when a row index is outside 1..RowCount.
	ErrRowOutOfRange = errors.New("row index out of range")
	// ErrInvalidRow is returned when a row carries negative or non-finite values.
	ErrInvalidRow = errors.New("invalid row values")
)

// FitViolationError lists the rows whose items cannot be oriented to fit the container.
type FitViolationError struct {
	Rows []RowRef
}

func (e *FitViolationError) Error() string {
	labels := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		labels = append(labels, r.Label())
	}
	return fmt.Sprintf("%s: %s", ErrUnmeasurable.Error(), strings.Join(labels, ", "))
}

func (e *FitViolationError) Unwrap() error {
	return ErrUnmeasurable
}
