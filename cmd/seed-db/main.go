// Command seed-db loads a reference catalog and a register API key into the
// order service database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-pos/db"
	"github.com/xenking/kart-pos/internal/domain/auth"
	"github.com/xenking/kart-pos/internal/repository"
	"github.com/xenking/kart-pos/internal/server"
)

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to a catalog JSON file (default: embedded catalog)")
	flag.StringVar(&apiKey, "api-key", "", "register API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	data := db.Catalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		var err error
		if data, err = os.ReadFile(catalogFile); err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}
	cat, err := decodeCatalog(data)
	if err != nil {
		return err
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	s := seeder{
		products:  repository.NewProductRepository(pool),
		coupons:   repository.NewCouponRepository(pool),
		customers: repository.NewCustomerRepository(pool),
		loyalty:   repository.NewLoyaltyRepository(pool),
		apikeys:   repository.NewAPIKeyRepository(pool),
	}
	if err := s.seed(ctx, cat); err != nil {
		return err
	}

	if apiKey == "" {
		slog.Warn("no API key given, skipping key seed")
		return nil
	}
	return s.seedAPIKey(ctx, apiKey, pepper)
}

type seeder struct {
	products  *repository.ProductRepository
	coupons   *repository.CouponRepository
	customers *repository.CustomerRepository
	loyalty   *repository.LoyaltyRepository
	apikeys   *repository.APIKeyRepository
}

func (s seeder) seed(ctx context.Context, cat *catalog) error {
	slog.Info("upserting products", slog.Int("count", len(cat.Products)))
	for _, p := range cat.Products {
		id, err := s.products.Upsert(ctx, p)
		if err != nil {
			return errors.Wrap(err, "seed products")
		}
		slog.Info("upserted product", slog.Int64("id", id), slog.String("name", p.Name))
	}

	for _, c := range cat.Coupons {
		if err := s.coupons.Upsert(ctx, c); err != nil {
			return errors.Wrap(err, "seed coupons")
		}
		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("type", string(c.Kind)))
	}

	for _, c := range cat.Customers {
		created, err := s.customers.CreateIfAbsent(ctx, c)
		if err != nil {
			return errors.Wrap(err, "seed customers")
		}
		slog.Info("seeded customer", slog.String("name", c.Name), slog.Bool("created", created))
	}

	if cat.Loyalty != nil {
		if err := s.loyalty.Save(ctx, *cat.Loyalty); err != nil {
			return errors.Wrap(err, "seed loyalty settings")
		}
		slog.Info("saved loyalty settings",
			slog.String("points_per_dollar", cat.Loyalty.PointsPerDollar.String()),
			slog.String("redemption_rate", cat.Loyalty.RedemptionRate.String()),
			slog.Bool("enabled", cat.Loyalty.Enabled),
		)
	}
	return nil
}

func (s seeder) seedAPIKey(ctx context.Context, apiKey, pepper string) error {
	key := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: server.HashKey([]byte(pepper), apiKey),
		Name:    "Default register key",
		Scopes:  []string{auth.ScopeRead, auth.ScopeWrite},
	}
	if err := s.apikeys.Upsert(ctx, key); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	slog.Info("upserted API key", slog.String("id", key.ID), slog.String("name", key.Name))
	return nil
}
