// Package loyalty holds the global loyalty program configuration.
package loyalty

import (
	"context"

	"github.com/shopspring/decimal"
)

// Settings is the loyalty program configuration. It is a singleton owned by
// the backend and passed explicitly to pricing.
type Settings struct {
	// PointsPerDollar is the earn rate: points granted per currency unit spent.
	PointsPerDollar decimal.Decimal
	// RedemptionRate is the currency value of one point.
	RedemptionRate decimal.Decimal
	Enabled        bool
}

// DefaultSettings mirrors the backend defaults used before settings load.
func DefaultSettings() Settings {
	return Settings{
		PointsPerDollar: decimal.NewFromInt(1),
		RedemptionRate:  decimal.RequireFromString("0.01"),
		Enabled:         true,
	}
}

// Discount returns the loyalty discount for a point balance.
//
// The balance is multiplied by the earn rate, not the redemption rate. This
// matches the behaviour operators rely on today; switching to RedemptionRate
// is a one-line change here once the product decision is made.
func (s Settings) Discount(points int64) decimal.Decimal {
	if !s.Enabled {
		return decimal.Zero
	}
	return decimal.NewFromInt(points).Mul(s.PointsPerDollar)
}

// Repository provides read access to the loyalty settings.
type Repository interface {
	Settings(ctx context.Context) (Settings, error)
}
