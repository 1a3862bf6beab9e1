package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
	"github.com/eugenenazirov/cabinet-calculator/internal/display"
	"github.com/eugenenazirov/cabinet-calculator/internal/export"
	"github.com/eugenenazirov/cabinet-calculator/internal/session"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const exportFileName = "cabinet-calculator.xlsx"

// Handler exposes the session's rows and results over HTTP.
type Handler struct {
	session *session.Session
	board   *display.Board
	locale  display.Locale
	logger  *zap.Logger

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithLocale sets the locale used when a request carries no usable Accept-Language.
func WithLocale(l display.Locale) HandlerOption {
	return func(h *Handler) {
		h.locale = l
	}
}

// WithHandlerLogger sets the logger used for failures that are not returned to clients.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler over sess. board holds the views the session pushed.
func NewHandler(sess *session.Session, board *display.Board, opts ...HandlerOption) *Handler {
	h := &Handler{
		session: sess,
		board:   board,
		locale:  display.DefaultLocale,
		logger:  zap.NewNop(),
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
		Started:   h.session.Started(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleContainer(w http.ResponseWriter, _ *http.Request) {
	c := h.session.Container()
	writeJSON(w, http.StatusOK, containerResponse{
		Width:  c.Width,
		Depth:  c.Depth,
		Height: c.Height,
		Volume: c.Volume(),
	})
}

func (h *Handler) handleListRows(w http.ResponseWriter, r *http.Request) {
	f := h.formatter(r)
	rows := h.session.Rows()
	views := make([]display.RowView, 0, len(rows))
	calc := h.session.Calculator()
	for _, row := range rows {
		views = append(views, f.Row(row, calc.Evaluate(row)))
	}
	writeJSON(w, http.StatusOK, rowsResponse{Rows: views})
}

func (h *Handler) handleGetRow(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	row, eval, err := h.session.Row(index)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.formatter(r).Row(row, eval))
}

func (h *Handler) handlePutRow(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}

	var req rowRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	update, err := h.session.UpdateRow(index, req.input())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.updateResponse(r, update))
}

func (h *Handler) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	index, ok := parseIndex(w, r)
	if !ok {
		return
	}
	update, err := h.session.ClearRow(index)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.updateResponse(r, update))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	view := h.formatter(r).Summary(h.session.Summary())
	view.Pulse = h.board.Pulse()
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleBoard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, boardResponse{
		Rows:    h.board.Rows(calculator.RowCount),
		Summary: h.board.Summary(),
		Pulse:   h.board.Pulse(),
	})
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.session.OnTick(r.Context()); err != nil {
		if errors.Is(err, session.ErrNotStarted) {
			writeSessionError(w, err)
			return
		}
		h.logger.Error("forced snapshot failed", zap.Error(err), zap.String("request_id", requestIDFromContext(r.Context())))
		writeInternalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, h.session.Rows(), h.session.Calculator(), h.formatter(r)); err != nil {
		h.logger.Error("export failed", zap.Error(err))
		writeInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFileName))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) formatter(r *http.Request) *display.Formatter {
	return display.NewFormatter(display.LocaleFromAcceptLanguage(r.Header.Get("Accept-Language"), h.locale))
}

func (h *Handler) updateResponse(r *http.Request, update session.RowUpdate) rowUpdateResponse {
	f := h.formatter(r)
	summary := f.Summary(update.Result)
	summary.Pulse = h.board.Pulse()
	return rowUpdateResponse{
		Row:     f.Row(update.Row, update.Evaluation),
		Summary: summary,
	}
}

func parseIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid row index", fmt.Sprintf("%q is not an integer", raw))
		return 0, false
	}
	return index, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calculator.ErrRowOutOfRange):
		writeError(w, http.StatusNotFound, "Row not found", err.Error(),
			fmt.Sprintf("Rows are numbered 1 to %d", calculator.RowCount))
	case errors.Is(err, calculator.ErrInvalidRow):
		writeError(w, http.StatusBadRequest, "Invalid row", err.Error())
	case errors.Is(err, session.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "Not ready", err.Error())
	default:
		writeInternalError(w, err)
	}
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// rowRequest leaves absent dimensions at zero and an absent quantity at the default.
type rowRequest struct {
	Name     string  `json:"name"`
	Depth    float64 `json:"depth"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Quantity *int    `json:"quantity"`
}

func (req rowRequest) input() session.RowInput {
	in := session.RowInput{
		Name:     req.Name,
		Depth:    req.Depth,
		Width:    req.Width,
		Height:   req.Height,
		Quantity: calculator.DefaultQuantity,
	}
	if req.Quantity != nil {
		in.Quantity = *req.Quantity
	}
	return in
}

type containerResponse struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
	Volume float64 `json:"volume"`
}

type rowsResponse struct {
	Rows []display.RowView `json:"rows"`
}

type rowUpdateResponse struct {
	Row     display.RowView     `json:"row"`
	Summary display.SummaryView `json:"summary"`
}

type boardResponse struct {
	Rows    []display.RowView   `json:"rows"`
	Summary display.SummaryView `json:"summary"`
	Pulse   uint64              `json:"pulse"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Started   bool      `json:"started"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
