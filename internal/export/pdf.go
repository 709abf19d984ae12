package export

import (
	"bytes"
	"fmt"

	"github.com/phpdave11/gofpdf"

	"movimientos/internal/core"
)

// WritePDF renders the ledger as a month-grouped statement, one section per
// month bucket with its own subtotal, plus an overall balance header.
func WritePDF(txs []core.Transaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Movimientos", false)
	// Core fonts are cp1252; accented Spanish labels need transcoding.
	pdfText := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Movimientos")
	pdf.Ln(12)

	totals := core.Totals(txs)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(60, 8, fmt.Sprintf("Ingresos: %s", pdfText(core.FormatCurrency(totals.Income))))
	pdf.Cell(60, 8, fmt.Sprintf("Gastos: %s", pdfText(core.FormatCurrency(totals.Expense))))
	pdf.Cell(60, 8, fmt.Sprintf("Balance: %s", pdfText(core.FormatCurrency(totals.Balance))))
	pdf.Ln(12)

	for _, bucket := range core.Group(txs) {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.Cell(0, 8, pdfText(bucket.Key.Label()))
		pdf.Ln(8)

		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(25, 7, "Fecha")
		pdf.Cell(20, 7, "Tipo")
		pdf.Cell(40, 7, pdfText("Categoría"))
		pdf.Cell(30, 7, "Monto")
		pdf.Cell(70, 7, pdfText("Descripción"))
		pdf.Ln(7)

		pdf.SetFont("Helvetica", "", 10)
		for _, tx := range bucket.Items {
			category := tx.Category
			if tx.CategoryNote != "" {
				category = fmt.Sprintf("%s (%s)", tx.Category, tx.CategoryNote)
			}
			pdf.Cell(25, 6, core.FormatDate(tx.Date))
			pdf.Cell(20, 6, string(tx.Kind))
			pdf.Cell(40, 6, pdfText(truncate(category, 28)))
			pdf.Cell(30, 6, pdfText(core.FormatSigned(tx.Amount)))
			pdf.Cell(70, 6, pdfText(truncate(tx.Description, 45)))
			pdf.Ln(6)
		}

		pdf.SetFont("Helvetica", "B", 10)
		pdf.Cell(85, 7, "")
		pdf.Cell(30, 7, pdfText(core.FormatCurrency(bucket.Totals.Balance)))
		pdf.Ln(10)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
