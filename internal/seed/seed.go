// Package seed fetches the bootstrap dataset used to populate an empty
// ledger on first run. Candidates are tried in order and the first URL that
// answers wins; a fully failed fetch is reported to the caller, who treats
// it as a non-fatal "start empty".
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"movimientos/internal/core"
)

type Fetcher struct {
	candidates []string
	client     *http.Client
}

func NewFetcher(candidates []string) *Fetcher {
	return &Fetcher{
		candidates: candidates,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// record is the published dataset shape. Amounts arrive as decimal text
// ("1234.56") and are normalized to signed cents on ingest, so a dataset
// with sloppy signs still loads with the sign its kind dictates.
type record struct {
	ID           string      `json:"id,omitempty"`
	Date         string      `json:"fecha"`
	Kind         string      `json:"tipo"`
	Category     string      `json:"categoria"`
	CategoryNote string      `json:"categoriaAclaracion,omitempty"`
	Amount       json.Number `json:"monto"`
	Description  string      `json:"descripcion,omitempty"`
}

// Fetch tries each candidate URL in order and decodes the first successful
// response. Individual records that fail validation are skipped, not fatal.
func (f *Fetcher) Fetch(ctx context.Context) ([]core.Transaction, error) {
	if len(f.candidates) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, url := range f.candidates {
		data, err := f.fetchOne(ctx, url)
		if err != nil {
			slog.WarnContext(ctx, "Bootstrap candidate failed", "url", url, "error", err)
			lastErr = err
			continue
		}

		txs, err := decode(ctx, data)
		if err != nil {
			slog.WarnContext(ctx, "Bootstrap candidate undecodable", "url", url, "error", err)
			lastErr = err
			continue
		}

		slog.InfoContext(ctx, "Bootstrap dataset fetched", "url", url, "count", len(txs))
		return txs, nil
	}
	return nil, fmt.Errorf("no bootstrap candidate succeeded: %w", lastErr)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := f.client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func decode(ctx context.Context, data []byte) ([]core.Transaction, error) {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode bootstrap dataset: %w", err)
	}

	txs := make([]core.Transaction, 0, len(records))
	for _, r := range records {
		tx, err := r.toTransaction()
		if err != nil {
			slog.WarnContext(ctx, "Skipping invalid bootstrap record", "id", r.ID, "error", err)
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r record) toTransaction() (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	kind, err := core.ParseKind(r.Kind)
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.NormalizeAmount(r.Amount.String(), kind)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:           r.ID,
		Date:         date,
		Kind:         kind,
		Category:     r.Category,
		CategoryNote: r.CategoryNote,
		Amount:       amount,
		Description:  r.Description,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}
