// Command migrate converts a legacy flat store file (separate products
// and sales collections) into the embedded layout the server reads. It
// is safe to run again over its own output.
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"stocktrack/backend/internal/reconcile"
)

func main() {
	input := flag.String("input", "db.json", "path to the store file to migrate")
	output := flag.String("output", "", "where to write the migrated store (defaults to the input path)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	out := *output
	if out == "" {
		out = *input
	}

	summary, err := reconcile.RunFile(*input, out)
	if err != nil {
		log.Error().Err(err).Str("input", *input).Msg("migration failed, store left untouched")
		os.Exit(1)
	}

	log.Info().
		Str("output", out).
		Int("sales_merged", summary.SalesMerged).
		Int("orphan_sales", summary.OrphanSales).
		Int("matched_products", summary.MatchedProducts).
		Int("legacy_products", summary.LegacyProducts).
		Msg("migration complete")
}
