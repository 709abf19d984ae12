package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"movimientos/internal/core"
	"movimientos/internal/ledger"
	"movimientos/internal/persist"
	"movimientos/internal/services"
)

type nopSlot struct{}

func (nopSlot) Load(ctx context.Context) ([]core.Transaction, error)   { return nil, nil }
func (nopSlot) Save(ctx context.Context, txs []core.Transaction) error { return nil }

var _ persist.Store = nopSlot{}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := services.NewLedgerService(ledger.New(), nopSlot{}, nil)
	srv := NewServer(":0", svc)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func postForm(srv *Server, path string, form url.Values) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sampleForm() url.Values {
	return url.Values{
		"fecha":     {"2024-03-05"},
		"tipo":      {"ingreso"},
		"categoria": {"Sueldo"},
		"monto":     {"1000"},
	}
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := get(srv, "/")
	if rr.Code != 200 {
		t.Fatalf("index status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Movimientos") {
		t.Fatal("index body missing heading")
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := get(srv, path); rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSaveTransactionValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Wrong method
	if rr := get(srv, "/transactions"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	form := sampleForm()
	form.Set("monto", "abc")
	if rr := postForm(srv, "/transactions", form); rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Invalid kind
	form = sampleForm()
	form.Set("tipo", "transferencia")
	if rr := postForm(srv, "/transactions", form); rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Invalid date
	form = sampleForm()
	form.Set("fecha", "05/03/2024")
	if rr := postForm(srv, "/transactions", form); rr.Code != 422 {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Success
	rr := postForm(srv, "/transactions", sampleForm())
	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "success") {
		t.Fatalf("expected success in body: %s", rr.Body.String())
	}
	if rr.Header().Get("HX-Trigger") != "ledger:changed" {
		t.Fatal("missing ledger:changed trigger")
	}
}

func TestSaveNormalizesExpenseSign(t *testing.T) {
	srv := newTestServer(t)

	form := sampleForm()
	form.Set("tipo", "gasto")
	form.Set("categoria", "Comida")
	form.Set("monto", "50") // typed positive, stored negative
	if rr := postForm(srv, "/transactions", form); rr.Code != 200 {
		t.Fatalf("save: %d", rr.Code)
	}

	rr := get(srv, "/ui/ledger")
	if rr.Code != 200 {
		t.Fatalf("ledger partial: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "-$50,00") {
		t.Fatalf("expense should render negative, body: %s", rr.Body.String())
	}
}

func TestUpdateUnknownTransaction(t *testing.T) {
	srv := newTestServer(t)

	form := sampleForm()
	form.Set("id", "missing")
	if rr := postForm(srv, "/transactions", form); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	srv := newTestServer(t)

	if rr := postForm(srv, "/transactions", sampleForm()); rr.Code != 200 {
		t.Fatalf("save: %d", rr.Code)
	}
	txs := srv.service.List(context.Background())
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}

	rr := postForm(srv, "/transactions/delete", url.Values{"id": {txs[0].ID}})
	if rr.Code != 200 {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := postForm(srv, "/transactions/delete", url.Values{"id": {txs[0].ID}}); rr.Code != http.StatusNotFound {
		t.Fatalf("second delete should 404, got %d", rr.Code)
	}
}

func TestLedgerPartialFiltering(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/transactions", sampleForm())
	food := sampleForm()
	food.Set("tipo", "gasto")
	food.Set("categoria", "Comida")
	food.Set("monto", "50")
	postForm(srv, "/transactions", food)

	rr := get(srv, "/ui/ledger?categoria=Comida")
	if rr.Code != 200 {
		t.Fatalf("partial: %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Comida") || strings.Contains(body, "Sueldo") {
		t.Fatalf("filter not applied: %s", body)
	}
}

func TestLedgerPartialCacheInvalidatedByMutation(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/transactions", sampleForm())
	first := get(srv, "/ui/ledger").Body.String()

	food := sampleForm()
	food.Set("tipo", "gasto")
	food.Set("categoria", "Comida")
	food.Set("monto", "50")
	postForm(srv, "/transactions", food)

	second := get(srv, "/ui/ledger").Body.String()
	if first == second {
		t.Fatal("cached partial served after mutation")
	}
	if !strings.Contains(second, "Comida") {
		t.Fatal("new transaction missing from partial")
	}
}

func TestChartData(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/transactions", sampleForm()) // 2024-03 income 1000
	older := sampleForm()
	older.Set("fecha", "2024-01-10")
	older.Set("tipo", "gasto")
	older.Set("categoria", "Comida")
	older.Set("monto", "200")
	postForm(srv, "/transactions", older)

	rr := get(srv, "/ui/chart-data")
	if rr.Code != 200 {
		t.Fatalf("chart data: %d", rr.Code)
	}

	var data struct {
		Labels   []string  `json:"labels"`
		Ingresos []float64 `json:"ingresos"`
		Gastos   []float64 `json:"gastos"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Labels) != 2 || data.Labels[0] != "2024-01" || data.Labels[1] != "2024-03" {
		t.Fatalf("labels must be ascending months: %v", data.Labels)
	}
	if data.Gastos[0] != 200 || data.Ingresos[1] != 1000 {
		t.Fatalf("unexpected series: %+v", data)
	}
}

func TestExportCSVDownload(t *testing.T) {
	srv := newTestServer(t)
	postForm(srv, "/transactions", sampleForm())

	rr := get(srv, "/export/csv")
	if rr.Code != 200 {
		t.Fatalf("csv export: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "Sueldo") {
		t.Fatal("csv missing transaction")
	}
}

func TestExportPDFDownload(t *testing.T) {
	srv := newTestServer(t)
	postForm(srv, "/transactions", sampleForm())

	rr := get(srv, "/export/pdf")
	if rr.Code != 200 {
		t.Fatalf("pdf export: %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Fatal("response is not a PDF")
	}
}

func TestCriteriaCacheKeyDistinguishesFields(t *testing.T) {
	a := criteriaCacheKey(core.CriteriaFromValues("a", "b|c", "", ""))
	b := criteriaCacheKey(core.CriteriaFromValues("a|b", "c", "", ""))
	if a == b {
		t.Fatalf("distinct criteria share cache key %q", a)
	}

	same := criteriaCacheKey(core.CriteriaFromValues("a", "b|c", "", ""))
	if a != same {
		t.Fatalf("equal criteria must share a key: %q vs %q", a, same)
	}
}

func TestLedgerPartialNotSharedAcrossFilters(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/transactions", sampleForm())
	food := sampleForm()
	food.Set("tipo", "gasto")
	food.Set("categoria", "Comida")
	food.Set("monto", "50")
	postForm(srv, "/transactions", food)

	// Prime the cache with one filter, then query another whose raw field
	// contents could collide under naive key joining.
	first := get(srv, "/ui/ledger?texto=Sueldo&categoria=")
	second := get(srv, "/ui/ledger?texto=&categoria=Comida")
	if second.Code != 200 {
		t.Fatalf("partial: %d", second.Code)
	}
	if !strings.Contains(first.Body.String(), "Sueldo") {
		t.Fatal("first filter missing its match")
	}
	if body := second.Body.String(); !strings.Contains(body, "Comida") || strings.Contains(body, "Sueldo") {
		t.Fatalf("second filter served the wrong view: %s", body)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter()
	defer rl.stop()

	for i := 0; i < 60; i++ {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Fatal("request 61 should be rejected")
	}
	if !rl.allow("5.6.7.8") {
		t.Fatal("other clients must not be affected")
	}
}
