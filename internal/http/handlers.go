package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"movimientos/internal/core"
	"movimientos/internal/export"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		Today      string
		Categories []string
	}{
		Today:      time.Now().Format("2006-01-02"),
		Categories: core.Categories(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleSaveTransaction creates a transaction, or updates it when the form
// carries an id. Either way the amount is re-normalized: the sign is decided
// by the kind, never by the user.
func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato de solicitud inválido</div>`))
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))

	kind, err := core.ParseKind(r.Form.Get("tipo"))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Tipo de movimiento inválido</div>`))
		return
	}

	date, err := core.ParseDate(strings.TrimSpace(r.Form.Get("fecha")))
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Fecha inválida</div>`))
		return
	}

	amount, err := core.NormalizeAmount(r.Form.Get("monto"), kind)
	if err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Monto inválido</div>`))
		return
	}

	tx := core.Transaction{
		ID:           id,
		Date:         date,
		Kind:         kind,
		Category:     sanitizeInput(r.Form.Get("categoria")),
		CategoryNote: sanitizeInput(r.Form.Get("categoriaAclaracion")),
		Amount:       amount,
		Description:  sanitizeInput(r.Form.Get("descripcion")),
	}

	if id == "" {
		_, err = s.service.Add(r.Context(), tx)
	} else {
		err = s.service.Update(r.Context(), id, tx)
	}
	switch {
	case errors.Is(err, core.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<div class="error">Movimiento no encontrado</div>`))
		return
	case errors.Is(err, core.ErrInvalidRecord), errors.Is(err, core.ErrInvalidAmount):
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`<div class="error">Datos inválidos: ` + template.HTMLEscapeString(err.Error()) + `</div>`))
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "Transaction save error", "error", err, "id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error al guardar</div>`))
		return
	}

	s.partialCache.Purge()
	w.Header().Set("HX-Trigger", "ledger:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Movimiento guardado: ` +
		template.HTMLEscapeString(tx.Category) +
		` ` + template.HTMLEscapeString(core.FormatSigned(tx.Amount)) + `</div>`))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Formato de solicitud inválido</div>`))
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`<div class="error">Falta el id del movimiento</div>`))
		return
	}

	if err := s.service.Remove(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<div class="error">Movimiento no encontrado</div>`))
			return
		}
		slog.ErrorContext(r.Context(), "Transaction delete error", "error", err, "id", id)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<div class="error">Error al eliminar</div>`))
		return
	}

	s.partialCache.Purge()
	w.Header().Set("HX-Trigger", "ledger:changed")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<div class="success">Movimiento eliminado</div>`))
}

// handleLedgerPartial renders the filtered, month-grouped ledger fragment.
// Rendered HTML is cached per criteria until the next mutation.
func (s *Server) handleLedgerPartial(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	q := r.URL.Query()
	criteria := core.CriteriaFromValues(q.Get("texto"), q.Get("categoria"), q.Get("desde"), q.Get("hasta"))

	key := criteriaCacheKey(criteria)
	if html, found := s.partialCache.Get(key); found {
		slog.DebugContext(r.Context(), "Ledger partial cache hit", "key", key)
		_, _ = w.Write([]byte(html))
		return
	}

	txs := core.Filter(s.service.List(r.Context()), criteria)
	view := buildLedgerView(txs, criteria)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="ledger"><div class="placeholder">Balance: ` +
			template.HTMLEscapeString(view.Totals.Balance) + `</div></section>`))
		return
	}

	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, "ledger.html", view); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "ledger.html")
		_, _ = w.Write([]byte(`<section id="ledger"><div class="placeholder">Error al cargar movimientos</div></section>`))
		return
	}

	s.partialCache.Set(key, buf.String())
	_, _ = w.Write([]byte(buf.String()))
}

// handleChartData returns the per-month income/expense series consumed by
// the client-side chart, oldest month first.
func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	buckets := core.Group(s.service.List(r.Context()))

	type series struct {
		Labels   []string  `json:"labels"`
		Ingresos []float64 `json:"ingresos"`
		Gastos   []float64 `json:"gastos"`
	}
	data := series{
		Labels:   make([]string, 0, len(buckets)),
		Ingresos: make([]float64, 0, len(buckets)),
		Gastos:   make([]float64, 0, len(buckets)),
	}
	// Buckets arrive newest-first; the chart reads left to right.
	for i := len(buckets) - 1; i >= 0; i-- {
		b := buckets[i]
		data.Labels = append(data.Labels, b.Key.String())
		data.Ingresos = append(data.Ingresos, float64(b.Totals.Income.Cents)/100.0)
		data.Gastos = append(data.Gastos, float64(b.Totals.Expense.Cents)/100.0)
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(r.Context(), "Chart data encode error", "error", err)
	}
}

// handleExportCSV downloads the ledger as a spreadsheet. Filter criteria in
// the query string apply, so a filtered view exports exactly what it shows.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := core.CriteriaFromValues(q.Get("texto"), q.Get("categoria"), q.Get("desde"), q.Get("hasta"))
	txs := core.Filter(s.service.List(r.Context()), criteria)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="movimientos.csv"`)
	if err := export.WriteCSV(w, txs); err != nil {
		slog.ErrorContext(r.Context(), "CSV export error", "error", err)
	}
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := core.CriteriaFromValues(q.Get("texto"), q.Get("categoria"), q.Get("desde"), q.Get("hasta"))
	txs := core.Filter(s.service.List(r.Context()), criteria)

	out, err := export.WritePDF(txs)
	if err != nil {
		slog.ErrorContext(r.Context(), "PDF export error", "error", err)
		http.Error(w, "error al generar el PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="movimientos.pdf"`)
	_, _ = w.Write(out)
}

// criteriaCacheKey renders criteria as an encoded query string so field
// contents can never collide with the field separators.
func criteriaCacheKey(c core.Criteria) string {
	return url.Values{
		"texto":     {c.Text},
		"categoria": {c.Category},
		"desde":     {c.From.ISO()},
		"hasta":     {c.To.ISO()},
	}.Encode()
}

// sanitizeInput trims whitespace and strips control characters except tab,
// newline, carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
