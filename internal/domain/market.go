package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Market is a trading pair. LastPrice is the strike price of the most
// recent trade and is updated in the same commit as that trade.
type Market struct {
	ID              string
	BaseUnit        string
	QuoteUnit       string
	AmountPrecision int32
	PricePrecision  int32
	MakerFee        decimal.Decimal
	TakerFee        decimal.Decimal
	LastPrice       decimal.Decimal
}

// Validate reports whether the market can settle trades: distinct units,
// fee rates in [0, 1) and non-negative precisions.
func (m *Market) Validate() error {
	if m.ID == "" {
		return errors.New("market id is required")
	}
	if m.BaseUnit == "" || m.QuoteUnit == "" || m.BaseUnit == m.QuoteUnit {
		return fmt.Errorf("market %s: base and quote units must be distinct and non-empty", m.ID)
	}
	for name, fee := range map[string]decimal.Decimal{"maker": m.MakerFee, "taker": m.TakerFee} {
		if fee.IsNegative() || fee.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("market %s: %s fee %s out of [0, 1)", m.ID, name, fee)
		}
	}
	if m.AmountPrecision < 0 || m.PricePrecision < 0 {
		return fmt.Errorf("market %s: negative precision", m.ID)
	}
	return nil
}

// MinAmount is the smallest tradable base volume.
func (m *Market) MinAmount() decimal.Decimal {
	return decimal.New(1, -m.AmountPrecision)
}

// QuotePrecision is the number of decimal places kept for quote amounts.
func (m *Market) QuotePrecision() int32 {
	return m.AmountPrecision + m.PricePrecision
}

// TrendFor compares a new strike price with the last traded price.
func (m *Market) TrendFor(price decimal.Decimal) Trend {
	if price.GreaterThanOrEqual(m.LastPrice) {
		return TrendUp
	}
	return TrendDown
}
