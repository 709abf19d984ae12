// Command export renders the persisted ledger to CSV or PDF from the
// command line, without going through the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"movimientos/internal/backend"
	"movimientos/internal/cli"
	"movimientos/internal/export"
)

func main() {
	format := flag.String("format", "csv", "output format: csv or pdf")
	output := flag.String("o", "", "output file (default stdout for csv, movimientos.pdf for pdf)")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	result, err := backend.NewFactory(logger).Create(cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer result.Cleanup()

	// Read straight from the slot; no seeding for a read-only export.
	if err := result.Service.Init(context.Background(), nil); err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}
	txs := result.Service.List(context.Background())

	switch *format {
	case "csv":
		out := os.Stdout
		if *output != "" {
			f, err := os.Create(*output)
			if err != nil {
				logger.Error("Failed to create output file", "error", err, "path", *output)
				os.Exit(1)
			}
			defer f.Close()
			out = f
		}
		if err := export.WriteCSV(out, txs); err != nil {
			logger.Error("CSV export failed", "error", err)
			os.Exit(1)
		}
	case "pdf":
		path := *output
		if path == "" {
			path = "movimientos.pdf"
		}
		data, err := export.WritePDF(txs)
		if err != nil {
			logger.Error("PDF export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			logger.Error("Failed to write output file", "error", err, "path", path)
			os.Exit(1)
		}
		logger.Info("PDF written", "path", path, "transactions", len(txs))
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q (want csv or pdf)\n", *format)
		os.Exit(2)
	}
}
