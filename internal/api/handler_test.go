package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/cabinet-calculator/internal/calculator"
	"github.com/eugenenazirov/cabinet-calculator/internal/display"
	"github.com/eugenenazirov/cabinet-calculator/internal/geometry"
	"github.com/eugenenazirov/cabinet-calculator/internal/persistence"
	"github.com/eugenenazirov/cabinet-calculator/internal/session"
	"github.com/eugenenazirov/cabinet-calculator/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) { return nil, storage.ErrNotFound }
func (failingStorage) Set(context.Context, string, []byte) error   { return errors.New("disk full") }

type testEnv struct {
	router  http.Handler
	clock   *controllableClock
	store   storage.Storage
	session *session.Session
	board   *display.Board
}

func setupTestEnv(t *testing.T, store storage.Storage, start bool) testEnv {
	t.Helper()

	logger := zaptest.NewLogger(t)
	board := display.NewBoard()
	sess := session.New(session.Options{
		Calculator: calculator.New(geometry.DefaultContainer()),
		Storage:    store,
		Presenter:  board,
		Logger:     logger,
	})
	if start {
		if _, err := sess.OnStartup(context.Background()); err != nil {
			t.Fatalf("startup failed: %v", err)
		}
	}

	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))
	handler := NewHandler(sess, board, WithClock(clock.Now), WithHandlerLogger(logger))
	router := NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0))

	return testEnv{router: router, clock: clock, store: store, session: sess, board: board}
}

func setupTestRouter(t *testing.T) testEnv {
	t.Helper()
	return setupTestEnv(t, storage.NewMemoryStorage(), true)
}

func do(t *testing.T, router http.Handler, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	body := decode[healthResponse](t, rec)
	if body.Status != "ok" || !body.Started {
		t.Fatalf("unexpected health body: %+v", body)
	}
	if !body.Timestamp.Equal(env.clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", env.clock.Now(), body.Timestamp)
	}
}

func TestContainerEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodGet, "/api/container", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[containerResponse](t, rec)
	if body.Width != 455 || body.Depth != 690 || body.Height != 1260 {
		t.Fatalf("unexpected container: %+v", body)
	}
	if body.Volume != 395_433_000 {
		t.Fatalf("unexpected volume: %g", body.Volume)
	}
}

func TestListRowsReturnsAllRows(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodGet, "/api/rows", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[rowsResponse](t, rec)
	if len(body.Rows) != calculator.RowCount {
		t.Fatalf("expected %d rows, got %d", calculator.RowCount, len(body.Rows))
	}
	for i, row := range body.Rows {
		if row.Index != i+1 || !row.Empty || row.Quantity != 1 {
			t.Fatalf("unexpected default row: %+v", row)
		}
	}
}

func TestPutRowUpdatesSummary(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodPut, "/api/rows/1",
		`{"name":"rack","depth":400,"width":600,"height":1250,"quantity":2}`,
		"Accept-Language", "en-US,en;q=0.9")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decode[rowUpdateResponse](t, rec)
	if body.Row.Index != 1 || body.Row.Name != "rack" || body.Row.Error {
		t.Fatalf("unexpected row: %+v", body.Row)
	}
	if body.Row.VolumeText != "600,000,000" {
		t.Fatalf("unexpected row volume text %q", body.Row.VolumeText)
	}
	if !body.Summary.Valid || body.Summary.ContainersNeeded == nil || *body.Summary.ContainersNeeded != 2 {
		t.Fatalf("unexpected summary: %+v", body.Summary)
	}
	if body.Summary.ContainersNeededText != "2 cabinets" {
		t.Fatalf("unexpected containers text %q", body.Summary.ContainersNeededText)
	}

	rec = do(t, env.router, http.MethodGet, "/api/rows/1", "")
	row := decode[display.RowView](t, rec)
	if row.Depth != 400 || row.Quantity != 2 {
		t.Fatalf("row not stored: %+v", row)
	}
}

func TestPutRowDefaultsQuantity(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodPut, "/api/rows/3", `{"depth":100,"width":100,"height":100}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[rowUpdateResponse](t, rec)
	if body.Row.Quantity != calculator.DefaultQuantity {
		t.Fatalf("expected default quantity, got %d", body.Row.Quantity)
	}
}

func TestPutRowNonFittingMakesSummaryUnmeasurable(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodPut, "/api/rows/2", `{"name":"server","depth":2000,"width":100,"height":100,"quantity":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[rowUpdateResponse](t, rec)
	if !body.Row.Error || body.Row.VolumeText != "収納不可" {
		t.Fatalf("expected failing row, got %+v", body.Row)
	}
	if body.Summary.Valid || body.Summary.TotalVolume != nil || body.Summary.ContainersNeeded != nil {
		t.Fatalf("expected unmeasurable summary, got %+v", body.Summary)
	}
	if body.Summary.TotalVolumeText != "計測不可" || body.Summary.ContainersNeededText != "計測不可" {
		t.Fatalf("unexpected summary texts: %+v", body.Summary)
	}
	if !strings.Contains(body.Summary.Banner, "server") {
		t.Fatalf("banner should name the row, got %q", body.Summary.Banner)
	}
}

func TestPutRowValidation(t *testing.T) {
	env := setupTestRouter(t)

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{name: "InvalidJSON", target: "/api/rows/1", body: `{"depth":`, want: http.StatusBadRequest},
		{name: "UnknownField", target: "/api/rows/1", body: `{"colour":"red"}`, want: http.StatusBadRequest},
		{name: "FractionalQuantity", target: "/api/rows/1", body: `{"quantity":1.5}`, want: http.StatusBadRequest},
		{name: "NegativeDimension", target: "/api/rows/1", body: `{"depth":-1}`, want: http.StatusBadRequest},
		{name: "NegativeQuantity", target: "/api/rows/1", body: `{"quantity":-2}`, want: http.StatusBadRequest},
		{name: "QuantityAboveCap", target: "/api/rows/1", body: `{"depth":1000,"width":600,"height":400,"quantity":1099511627776}`, want: http.StatusBadRequest},
		{name: "IndexNotInteger", target: "/api/rows/one", body: `{}`, want: http.StatusBadRequest},
		{name: "IndexTooLarge", target: "/api/rows/51", body: `{}`, want: http.StatusNotFound},
		{name: "IndexZero", target: "/api/rows/0", body: `{}`, want: http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, env.router, http.MethodPut, tc.target, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetRowOutOfRange(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodGet, "/api/rows/99", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	body := decode[errorResponse](t, rec)
	if body.Suggestion == "" {
		t.Fatalf("expected suggestion to be populated")
	}
}

func TestDeleteRowResetsDefaults(t *testing.T) {
	env := setupTestRouter(t)

	do(t, env.router, http.MethodPut, "/api/rows/5", `{"name":"ups","depth":300,"width":300,"height":300,"quantity":4}`)
	rec := do(t, env.router, http.MethodDelete, "/api/rows/5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := decode[rowUpdateResponse](t, rec)
	if !body.Row.Empty || body.Row.Name != "" || body.Row.Quantity != 1 {
		t.Fatalf("row not cleared: %+v", body.Row)
	}
	if body.Summary.ContainersNeeded == nil || *body.Summary.ContainersNeeded != 0 {
		t.Fatalf("expected zero containers, got %+v", body.Summary)
	}
}

func TestSummaryUsesAcceptLanguage(t *testing.T) {
	env := setupTestRouter(t)

	do(t, env.router, http.MethodPut, "/api/rows/1", `{"depth":1260,"width":690,"height":455}`)

	ja := decode[display.SummaryView](t, do(t, env.router, http.MethodGet, "/api/summary", ""))
	if ja.ContainersNeededText != "1台" {
		t.Fatalf("unexpected ja text %q", ja.ContainersNeededText)
	}
	if ja.TotalVolumeText != "395,433,000 mm³" {
		t.Fatalf("unexpected ja volume %q", ja.TotalVolumeText)
	}

	en := decode[display.SummaryView](t, do(t, env.router, http.MethodGet, "/api/summary", "", "Accept-Language", "en"))
	if en.ContainersNeededText != "1 cabinets" {
		t.Fatalf("unexpected en text %q", en.ContainersNeededText)
	}
	if en.Pulse != env.board.Pulse() {
		t.Fatalf("expected pulse %d, got %d", env.board.Pulse(), en.Pulse)
	}
}

func TestBoardEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	before := env.board.Pulse()
	do(t, env.router, http.MethodPut, "/api/rows/7", `{"depth":10,"width":10,"height":10}`)

	body := decode[boardResponse](t, do(t, env.router, http.MethodGet, "/api/board", ""))
	if len(body.Rows) != calculator.RowCount {
		t.Fatalf("expected %d rows, got %d", calculator.RowCount, len(body.Rows))
	}
	if body.Pulse != before+1 {
		t.Fatalf("expected pulse to advance to %d, got %d", before+1, body.Pulse)
	}
	if body.Rows[6].VolumeText != "1,000" {
		t.Fatalf("unexpected row view: %+v", body.Rows[6])
	}
}

func TestSnapshotEndpointWritesStorage(t *testing.T) {
	env := setupTestRouter(t)

	do(t, env.router, http.MethodPut, "/api/rows/2", `{"name":"nas","depth":200,"width":300,"height":400,"quantity":3}`)
	rec := do(t, env.router, http.MethodPost, "/api/snapshot", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	blob, err := env.store.Get(context.Background(), persistence.DefaultKey)
	if err != nil {
		t.Fatalf("snapshot not stored: %v", err)
	}
	rows, err := persistence.Restore(blob)
	if err != nil {
		t.Fatalf("stored snapshot does not restore: %v", err)
	}
	if rows[1].Name != "nas" || rows[1].Quantity != 3 {
		t.Fatalf("unexpected restored row: %+v", rows[1])
	}
}

func TestSnapshotEndpointStorageFailure(t *testing.T) {
	env := setupTestEnv(t, failingStorage{}, true)

	rec := do(t, env.router, http.MethodPost, "/api/snapshot", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestEndpointsBeforeStartup(t *testing.T) {
	env := setupTestEnv(t, storage.NewMemoryStorage(), false)

	if rec := do(t, env.router, http.MethodPut, "/api/rows/1", `{"depth":1}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for edit before startup, got %d", rec.Code)
	}
	if rec := do(t, env.router, http.MethodPost, "/api/snapshot", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for snapshot before startup, got %d", rec.Code)
	}
	if _, err := env.store.Get(context.Background(), persistence.DefaultKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("nothing should be written before startup, got %v", err)
	}
}

func TestExportEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	do(t, env.router, http.MethodPut, "/api/rows/1", `{"name":"rack","depth":400,"width":600,"height":1250}`)
	rec := do(t, env.router, http.MethodGet, "/api/export.xlsx", "", "Accept-Language", "en")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, exportFileName) {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}

	book, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer func() { _ = book.Close() }()
	value, err := book.GetCellValue("Equipment", "B2")
	if err != nil || value != "rack" {
		t.Fatalf("expected rack in B2, got %q (%v)", value, err)
	}
}

func TestCorsPreflight(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodOptions, "/api/rows/1", "",
		"Origin", "https://example.com",
		"Access-Control-Request-Method", "PUT")

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	env := setupTestRouter(t)

	rec := do(t, env.router, http.MethodGet, "/api/health", "", "X-Request-ID", "test-request-id")
	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}

	rec = do(t, env.router, http.MethodGet, "/api/health", "")
	if got := rec.Header().Get("X-Request-ID"); len(got) != 36 {
		t.Fatalf("expected generated UUID request ID, got %q", got)
	}
}
