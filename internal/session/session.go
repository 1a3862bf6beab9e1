package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
	"github.com/eugenenazirov/cabinet-calculator/internal/display"
	"github.com/eugenenazirov/cabinet-calculator/internal/geometry"
	"github.com/eugenenazirov/cabinet-calculator/internal/metrics"
	"github.com/eugenenazirov/cabinet-calculator/internal/persistence"
	"github.com/eugenenazirov/cabinet-calculator/internal/storage"
)

// Presenter receives rendered views after every change.
type Presenter interface {
	RowChanged(view display.RowView)
	SummaryChanged(view display.SummaryView)
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Calculator calculator.Calculator
	Storage    storage.Storage
	Key        string
	Presenter  Presenter
	Formatter  *display.Formatter
	Logger     *zap.Logger
}

// RowInput carries the editable fields of a row.
type RowInput struct {
	Name     string
	Depth    float64
	Width    float64
	Height   float64
	Quantity int
}

// RowUpdate is returned by row edits.
type RowUpdate struct {
	Row        calculator.EquipmentRow
	Evaluation calculator.RowEvaluation
	Result     calculator.AggregateResult
}

// Session is the single owner of the RowCount equipment rows.
type Session struct {
	// saveMu serialises OnTick so snapshots reach storage in the order they were taken.
	saveMu sync.Mutex

	mu        sync.Mutex
	calc      calculator.Calculator
	store     storage.Storage
	key       string
	presenter Presenter
	formatter *display.Formatter
	logger    *zap.Logger

	rows    []calculator.EquipmentRow
	started bool
}

// New builds a session with RowCount blank rows.
func New(opts Options) *Session {
	if opts.Calculator == nil {
		opts.Calculator = calculator.New(geometry.DefaultContainer())
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStorage()
	}
	if opts.Key == "" {
		opts.Key = persistence.DefaultKey
	}
	if opts.Presenter == nil {
		opts.Presenter = nopPresenter{}
	}
	if opts.Formatter == nil {
		opts.Formatter = display.NewFormatter(display.DefaultLocale)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Session{
		calc:      opts.Calculator,
		store:     opts.Storage,
		key:       opts.Key,
		presenter: opts.Presenter,
		formatter: opts.Formatter,
		logger:    opts.Logger.Named("session"),
		rows:      calculator.DefaultRows(),
	}
}

// OnStartup restores the stored snapshot, pushes every row and runs the first
// aggregation. A missing, unreadable or malformed snapshot leaves the defaults in place
// and is only logged.
func (s *Session) OnStartup(ctx context.Context) (calculator.AggregateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return calculator.AggregateResult{}, ErrAlreadyStarted
	}
	s.started = true

	s.restoreLocked(ctx)
	for _, row := range s.rows {
		s.presenter.RowChanged(s.formatter.Row(row, s.calc.Evaluate(row)))
	}
	return s.aggregateLocked(), nil
}

// OnTick writes a snapshot of the current rows, whether or not anything changed.
func (s *Session) OnTick(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	data, err := persistence.Snapshot(s.rows)
	s.mu.Unlock()
	if err != nil {
		metrics.RecordSnapshot(0, err)
		return err
	}

	err = s.store.Set(ctx, s.key, data)
	metrics.RecordSnapshot(len(data), err)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Debug("snapshot written", zap.Int("bytes", len(data)))
	return nil
}

// UpdateRow replaces the row at index and re-aggregates.
func (s *Session) UpdateRow(index int, in RowInput) (RowUpdate, error) {
	row := calculator.EquipmentRow{
		Index:    index,
		Name:     in.Name,
		Depth:    in.Depth,
		Width:    in.Width,
		Height:   in.Height,
		Quantity: in.Quantity,
	}
	if err := row.Validate(); err != nil {
		return RowUpdate{}, err
	}
	return s.replace(row)
}

// ClearRow resets the row at index to its defaults and re-aggregates.
func (s *Session) ClearRow(index int) (RowUpdate, error) {
	if err := calculator.ValidateIndex(index); err != nil {
		return RowUpdate{}, err
	}
	return s.replace(calculator.NewRow(index))
}

func (s *Session) replace(row calculator.EquipmentRow) (RowUpdate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return RowUpdate{}, ErrNotStarted
	}

	s.rows[row.Index-1] = row
	eval := s.calc.Evaluate(row)
	s.presenter.RowChanged(s.formatter.Row(row, eval))
	result := s.aggregateLocked()

	if !eval.Fits {
		s.logger.Info("equipment exceeds container",
			zap.Int("row", row.Index),
			zap.String("name", row.Name),
		)
	}
	return RowUpdate{Row: row, Evaluation: eval, Result: result}, nil
}

// Row returns the row at index with its evaluation.
func (s *Session) Row(index int) (calculator.EquipmentRow, calculator.RowEvaluation, error) {
	if err := calculator.ValidateIndex(index); err != nil {
		return calculator.EquipmentRow{}, calculator.RowEvaluation{}, err
	}
	s.mu.Lock()
	row := s.rows[index-1]
	s.mu.Unlock()
	return row, s.calc.Evaluate(row), nil
}

// Rows returns a copy of all rows in index order.
func (s *Session) Rows() []calculator.EquipmentRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]calculator.EquipmentRow, len(s.rows))
	copy(out, s.rows)
	return out
}

// Summary aggregates the current rows without notifying the presenter.
func (s *Session) Summary() calculator.AggregateResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calc.Aggregate(s.rows)
}

// Container returns the container the session measures against.
func (s *Session) Container() geometry.Container {
	return s.calc.Container()
}

// Calculator returns the calculator rows are evaluated with.
func (s *Session) Calculator() calculator.Calculator {
	return s.calc
}

// Started reports whether OnStartup has run.
func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Session) aggregateLocked() calculator.AggregateResult {
	result := s.calc.Aggregate(s.rows)
	metrics.RecordAggregation(result)
	s.presenter.SummaryChanged(s.formatter.Summary(result))
	return result
}

func (s *Session) restoreLocked(ctx context.Context) {
	blob, err := s.store.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		metrics.RecordRestore(metrics.RestoreEmpty)
		s.logger.Info("no stored snapshot, starting empty", zap.String("key", s.key))
		return
	case err != nil:
		metrics.RecordRestore(metrics.RestoreError)
		s.logger.Warn("failed to read snapshot, starting empty", zap.String("key", s.key), zap.Error(err))
		return
	}

	rows, err := persistence.Restore(blob)
	if err != nil {
		metrics.RecordRestore(metrics.RestoreMalformed)
		s.logger.Warn("discarding malformed snapshot",
			zap.String("key", s.key),
			zap.Int("bytes", len(blob)),
			zap.Error(err),
		)
		return
	}

	copy(s.rows, rows)
	metrics.RecordRestore(metrics.RestoreRestored)

	restored := 0
	for _, row := range s.rows {
		if !row.Blank() {
			restored++
		}
	}
	s.logger.Info("snapshot restored", zap.String("key", s.key), zap.Int("rows", restored))
}

type nopPresenter struct{}

func (nopPresenter) RowChanged(display.RowView)         {}
func (nopPresenter) SummaryChanged(display.SummaryView) {}
