// Command coupon-import bulk-loads coupons from gzip-compressed CSV files
// into the order service database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-pos/internal/repository"
)

func main() {
	var (
		databaseURL string
		batchSize   int
		expected    uint
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 5000, "coupons per COPY batch")
	flag.UintVar(&expected, "expected", 1_000_000, "expected number of distinct codes, sizes the duplicate filter")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	files := flag.Args()
	if len(files) == 0 {
		slog.Error("usage: coupon-import [flags] coupons1.csv.gz [coupons2.csv.gz ...]")
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, batchSize, expected); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, batchSize int, expected uint) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	imp := newImporter(repository.NewCouponRepository(pool), batchSize, expected)
	if err := imp.seed(ctx); err != nil {
		return errors.Wrap(err, "load existing codes")
	}

	stats, err := imp.run(ctx, files)
	if err != nil {
		return err
	}

	slog.Info("import summary",
		slog.Int64("copied", stats.copied),
		slog.Int64("upserted", stats.upserted),
		slog.Int64("skipped", stats.skipped),
	)
	return nil
}
