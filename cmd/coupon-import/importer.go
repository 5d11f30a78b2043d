package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pos/internal/domain/coupon"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	chunkSize     = 1024
)

// store is the slice of the coupon repository the importer writes through.
type store interface {
	Codes(ctx context.Context, fn func(code string)) error
	CopyNew(ctx context.Context, coupons []coupon.Coupon) (int64, error)
	Upsert(ctx context.Context, c coupon.Coupon) error
}

type importStats struct {
	copied   int64
	upserted int64
	skipped  int64
}

// importer streams coupons into the store. Codes the filter has never seen
// are certainly new and go through COPY in batches; a possible repeat is
// upserted one by one after the pending batch is flushed, so the later row
// wins.
type importer struct {
	store     store
	batchSize int
	seen      *bloom.BloomFilter

	pending []coupon.Coupon
	stats   importStats
}

func newImporter(s store, batchSize int, expected uint) *importer {
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &importer{
		store:     s,
		batchSize: batchSize,
		seen:      bloom.NewWithEstimates(max(expected, 1024), bloomFPR),
	}
}

// seed marks every stored code as seen.
func (imp *importer) seed(ctx context.Context) error {
	var n int
	if err := imp.store.Codes(ctx, func(code string) {
		imp.seen.AddString(code)
		n++
	}); err != nil {
		return err
	}
	slog.Info("loaded existing codes", slog.Int("count", n))
	return nil
}

// run parses files concurrently and writes from a single goroutine, which
// owns the filter and the pending batch.
func (imp *importer) run(ctx context.Context, files []string) (importStats, error) {
	chunks := make(chan []coupon.Coupon, len(files))

	g, ctx := errgroup.WithContext(ctx)
	readers, rctx := errgroup.WithContext(ctx)
	for i, f := range files {
		readers.Go(func() error {
			return streamFile(rctx, i+1, f, chunks)
		})
	}
	g.Go(func() error {
		defer close(chunks)
		return readers.Wait()
	})
	g.Go(func() error {
		for chunk := range chunks {
			if err := imp.write(ctx, chunk); err != nil {
				return err
			}
		}
		return imp.flush(ctx)
	})

	if err := g.Wait(); err != nil {
		return imp.stats, err
	}
	return imp.stats, nil
}

func (imp *importer) write(ctx context.Context, chunk []coupon.Coupon) error {
	for _, c := range chunk {
		if !imp.seen.TestAndAddString(c.Code) {
			imp.pending = append(imp.pending, c)
			if len(imp.pending) >= imp.batchSize {
				if err := imp.flush(ctx); err != nil {
					return err
				}
			}
			continue
		}

		if err := imp.flush(ctx); err != nil {
			return err
		}
		if err := imp.store.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
		imp.stats.upserted++
	}
	return nil
}

func (imp *importer) flush(ctx context.Context) error {
	if len(imp.pending) == 0 {
		return nil
	}
	n, err := imp.store.CopyNew(ctx, imp.pending)
	if err != nil {
		return errors.Wrap(err, "copy coupons")
	}
	imp.stats.copied += n
	imp.pending = imp.pending[:0]
	return nil
}

// streamFile sends the coupons of one gzip CSV file in chunks. Rows that do
// not parse are logged and skipped.
func streamFile(ctx context.Context, idx int, path string, out chan<- []coupon.Coupon) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	var (
		chunk   = make([]coupon.Coupon, 0, chunkSize)
		count   int
		skipped int
	)
	send := func() error {
		if len(chunk) == 0 {
			return nil
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
		chunk = make([]coupon.Coupon, 0, chunkSize)
		return nil
	}

	err = readCoupons(gz, func(line int, c coupon.Coupon, err error) error {
		if err != nil {
			skipped++
			slog.Warn("skipping row", slog.Int("file", idx), slog.Int("line", line), slog.String("error", err.Error()))
			return nil
		}
		chunk = append(chunk, c)
		count++
		if count%progressEvery == 0 {
			slog.Info("read progress", slog.Int("file", idx), slog.Int("coupons", count))
		}
		if len(chunk) == chunkSize {
			return send()
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	if err := send(); err != nil {
		return err
	}

	slog.Info("file complete", slog.Int("file", idx), slog.Int("coupons", count), slog.Int("skipped", skipped))
	return nil
}

// readCoupons parses CSV rows of code,type,value[,min_purchase[,expiry_date[,is_active]]].
// A first row starting with "code" is treated as a header.
func readCoupons(r io.Reader, fn func(line int, c coupon.Coupon, err error) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	for line := 1; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(record[0], "code") {
			continue
		}
		c, perr := parseRecord(record)
		if err := fn(line, c, perr); err != nil {
			return err
		}
	}
}

func parseRecord(record []string) (coupon.Coupon, error) {
	if len(record) < 3 {
		return coupon.Coupon{}, errors.Errorf("want at least 3 fields, got %d", len(record))
	}
	c := coupon.Coupon{
		Code:        strings.TrimSpace(record[0]),
		Kind:        coupon.Kind(strings.ToLower(strings.TrimSpace(record[1]))),
		MinPurchase: decimal.Zero,
		Active:      true,
	}
	if c.Code == "" {
		return c, errors.New("empty code")
	}
	if !c.Kind.Valid() {
		return c, errors.Errorf("unknown type %q", record[1])
	}

	var err error
	if c.Value, err = decimal.NewFromString(strings.TrimSpace(record[2])); err != nil {
		return c, errors.Wrap(err, "value")
	}
	if c.Value.IsNegative() {
		return c, errors.New("value must not be negative")
	}
	if v := field(record, 3); v != "" {
		if c.MinPurchase, err = decimal.NewFromString(v); err != nil {
			return c, errors.Wrap(err, "min_purchase")
		}
	}
	if v := field(record, 4); v != "" {
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return c, errors.Wrap(err, "expiry_date")
		}
		c.ExpiryDate = &t
	}
	if v := field(record, 5); v != "" {
		if c.Active, err = strconv.ParseBool(v); err != nil {
			return c, errors.Wrap(err, "is_active")
		}
	}
	return c, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
