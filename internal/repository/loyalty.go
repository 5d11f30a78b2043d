package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-pos/internal/domain/loyalty"
)

const (
	getLoyaltySettingsSQL = `SELECT points_per_dollar, redemption_rate, is_enabled
		FROM loyalty_settings WHERE id = 1`

	saveLoyaltySettingsSQL = `INSERT INTO loyalty_settings (id, points_per_dollar, redemption_rate, is_enabled)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			points_per_dollar = EXCLUDED.points_per_dollar,
			redemption_rate = EXCLUDED.redemption_rate,
			is_enabled = EXCLUDED.is_enabled`
)

var _ loyalty.Repository = (*LoyaltyRepository)(nil)

// LoyaltyRepository stores the loyalty settings singleton.
type LoyaltyRepository struct {
	pool *pgxpool.Pool
}

// NewLoyaltyRepository returns a LoyaltyRepository that uses the given pool.
func NewLoyaltyRepository(pool *pgxpool.Pool) *LoyaltyRepository {
	return &LoyaltyRepository{pool: pool}
}

// Settings returns the stored settings, or the defaults when the row is missing.
func (r *LoyaltyRepository) Settings(ctx context.Context) (loyalty.Settings, error) {
	var s loyalty.Settings
	err := r.pool.QueryRow(ctx, getLoyaltySettingsSQL).Scan(&s.PointsPerDollar, &s.RedemptionRate, &s.Enabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loyalty.DefaultSettings(), nil
		}
		return s, fmt.Errorf("getting loyalty settings: %w", err)
	}
	return s, nil
}

// Save replaces the settings.
func (r *LoyaltyRepository) Save(ctx context.Context, s loyalty.Settings) error {
	if _, err := r.pool.Exec(ctx, saveLoyaltySettingsSQL, s.PointsPerDollar, s.RedemptionRate, s.Enabled); err != nil {
		return fmt.Errorf("saving loyalty settings: %w", err)
	}
	return nil
}
