package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-pos/internal/domain/coupon"
)

type fakeStore struct {
	mu       sync.Mutex
	existing []string
	rows     map[string]coupon.Coupon
	batches  [][]string
	upserts  []string
	copyErr  error
}

func newFakeStore(existing ...string) *fakeStore {
	s := &fakeStore{existing: existing, rows: make(map[string]coupon.Coupon)}
	for _, code := range existing {
		s.rows[code] = coupon.Coupon{Code: code, Kind: coupon.KindFixed, Value: decimal.NewFromInt(1)}
	}
	return s
}

func (s *fakeStore) Codes(_ context.Context, fn func(string)) error {
	for _, c := range s.existing {
		fn(c)
	}
	return nil
}

func (s *fakeStore) CopyNew(_ context.Context, coupons []coupon.Coupon) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.copyErr != nil {
		return 0, s.copyErr
	}
	var codes []string
	for _, c := range coupons {
		if _, ok := s.rows[c.Code]; ok {
			return 0, errors.Errorf("duplicate key %s", c.Code)
		}
		s.rows[c.Code] = c
		codes = append(codes, c.Code)
	}
	s.batches = append(s.batches, codes)
	return int64(len(coupons)), nil
}

func (s *fakeStore) Upsert(_ context.Context, c coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[c.Code] = c
	s.upserts = append(s.upserts, c.Code)
	return nil
}

func writeGz(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  string
		want    coupon.Coupon
		wantErr string
	}{
		{
			name:   "minimal percentage",
			record: "WELCOME10,percentage,0.10",
			want:   coupon.Coupon{Code: "WELCOME10", Kind: coupon.KindPercentage, Value: decimal.RequireFromString("0.10"), MinPurchase: decimal.Zero, Active: true},
		},
		{
			name:   "all fields",
			record: "FiveOff, FIXED ,5.00,20.00,,false",
			want:   coupon.Coupon{Code: "FiveOff", Kind: coupon.KindFixed, Value: decimal.RequireFromString("5"), MinPurchase: decimal.RequireFromString("20"), Active: false},
		},
		{name: "too few fields", record: "ONLY,fixed", wantErr: "at least 3 fields"},
		{name: "empty code", record: " ,fixed,1", wantErr: "empty code"},
		{name: "unknown type", record: "X,bogo,1", wantErr: "unknown type"},
		{name: "bad value", record: "X,fixed,five", wantErr: "value"},
		{name: "negative value", record: "X,fixed,-1", wantErr: "must not be negative"},
		{name: "bad expiry", record: "X,fixed,1,0,31/12/2027", wantErr: "expiry_date"},
		{name: "bad active flag", record: "X,fixed,1,0,,maybe", wantErr: "is_active"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRecord(strings.Split(tt.record, ","))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.Code, got.Code)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.True(t, tt.want.Value.Equal(got.Value), "value %s", got.Value)
			assert.True(t, tt.want.MinPurchase.Equal(got.MinPurchase), "min purchase %s", got.MinPurchase)
			assert.Equal(t, tt.want.Active, got.Active)
		})
	}
}

func TestParseRecord_Expiry(t *testing.T) {
	got, err := parseRecord([]string{"SUMMER", "percentage", "0.2", "0", "2027-06-30"})
	require.NoError(t, err)
	require.NotNil(t, got.ExpiryDate)
	assert.Equal(t, "2027-06-30", got.ExpiryDate.Format("2006-01-02"))
}

func TestReadCoupons_HeaderAndBadRows(t *testing.T) {
	input := "code,type,value\nA,fixed,1\nB,bogo,1\nC,percentage,0.5\n"

	var (
		codes []string
		bad   []int
	)
	err := readCoupons(strings.NewReader(input), func(line int, c coupon.Coupon, err error) error {
		if err != nil {
			bad = append(bad, line)
			return nil
		}
		codes = append(codes, c.Code)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, codes)
	assert.Equal(t, []int{3}, bad)
}

func TestImporter_Run(t *testing.T) {
	dir := t.TempDir()
	first := writeGz(t, dir, "a.csv.gz", "code,type,value\nNEW1,fixed,1\nOLD1,fixed,9\nNEW2,percentage,0.1\n")
	second := writeGz(t, dir, "b.csv.gz", "NEW3,fixed,3\nbad row\nNEW1,fixed,7\n")

	s := newFakeStore("OLD1")
	imp := newImporter(s, 2, 1000)
	require.NoError(t, imp.seed(context.Background()))

	stats, err := imp.run(context.Background(), []string{first, second})
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.copied)
	assert.Equal(t, int64(2), stats.upserted)
	assert.ElementsMatch(t, []string{"OLD1", "NEW1"}, s.upserts)

	require.Contains(t, s.rows, "NEW3")
	assert.True(t, decimal.NewFromInt(9).Equal(s.rows["OLD1"].Value), "existing code replaced")
	assert.Len(t, s.rows, 4)
	for _, batch := range s.batches {
		assert.LessOrEqual(t, len(batch), 2)
	}
}

func TestImporter_RepeatWithinBatch(t *testing.T) {
	s := newFakeStore()
	imp := newImporter(s, 100, 1000)

	chunk := []coupon.Coupon{
		{Code: "DUP", Kind: coupon.KindFixed, Value: decimal.NewFromInt(1)},
		{Code: "DUP", Kind: coupon.KindFixed, Value: decimal.NewFromInt(2)},
	}
	require.NoError(t, imp.write(context.Background(), chunk))
	require.NoError(t, imp.flush(context.Background()))

	assert.Equal(t, [][]string{{"DUP"}}, s.batches, "pending batch flushed before the repeat is upserted")
	assert.Equal(t, []string{"DUP"}, s.upserts)
	assert.True(t, decimal.NewFromInt(2).Equal(s.rows["DUP"].Value), "later row wins")
}

func TestImporter_CopyError(t *testing.T) {
	dir := t.TempDir()
	path := writeGz(t, dir, "a.csv.gz", "X,fixed,1\n")

	s := newFakeStore()
	s.copyErr = errors.New("connection reset")
	imp := newImporter(s, 10, 1000)

	_, err := imp.run(context.Background(), []string{path})
	assert.ErrorContains(t, err, "connection reset")
}

func TestImporter_MissingFile(t *testing.T) {
	imp := newImporter(newFakeStore(), 10, 1000)
	_, err := imp.run(context.Background(), []string{filepath.Join(t.TempDir(), "missing.csv.gz")})
	assert.ErrorContains(t, err, "open")
}
