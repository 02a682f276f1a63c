package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/olyamironova/trade-execution/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeSettlement_AskMaker(t *testing.T) {
	s := ComputeSettlement(SettlementInput{
		Price:          d("10"),
		Volume:         d("5"),
		Funds:          d("50"),
		MakerFee:       d("0.01"),
		TakerFee:       d("0.02"),
		MakerSide:      domain.Ask,
		BasePrecision:  4,
		QuotePrecision: 8,
	})

	assert.True(t, s.AskDebit.Equal(d("5")))
	assert.True(t, s.BidDebit.Equal(d("50")))
	assert.True(t, s.AskCredit.Equal(d("49.5")), s.AskCredit.String())
	assert.True(t, s.BidCredit.Equal(d("4.9")), s.BidCredit.String())
	assert.True(t, s.AskFee.Equal(d("0.5")))
	assert.True(t, s.BidFee.Equal(d("0.1")))
	assert.True(t, s.MakerFeeAmount().Equal(d("0.5")))
	assert.True(t, s.TakerFeeAmount().Equal(d("0.1")))
}

func TestComputeSettlement_BidMaker(t *testing.T) {
	s := ComputeSettlement(SettlementInput{
		Price:          d("10"),
		Volume:         d("5"),
		Funds:          d("50"),
		MakerFee:       d("0.01"),
		TakerFee:       d("0.02"),
		MakerSide:      domain.Bid,
		BasePrecision:  4,
		QuotePrecision: 8,
	})

	assert.True(t, s.AskFee.Equal(d("1")))
	assert.True(t, s.BidFee.Equal(d("0.05")))
	assert.True(t, s.MakerFeeAmount().Equal(d("0.05")))
	assert.True(t, s.TakerFeeAmount().Equal(d("1")))
}

func TestComputeSettlement_Truncates(t *testing.T) {
	s := ComputeSettlement(SettlementInput{
		Price:          d("3.33"),
		Volume:         d("0.0007"),
		Funds:          d("0.002331"),
		MakerFee:       d("0.0015"),
		TakerFee:       d("0.0025"),
		MakerSide:      domain.Ask,
		BasePrecision:  4,
		QuotePrecision: 6,
	})

	// 0.002331 * 0.0015 = 0.0000034965 -> 0.000003
	assert.True(t, s.AskFee.Equal(d("0.000003")), s.AskFee.String())
	// 0.0007 * 0.0025 = 0.00000175 -> 0
	assert.True(t, s.BidFee.IsZero(), s.BidFee.String())
	assert.True(t, s.BidCredit.Equal(d("0.0007")))
}

func TestProperty_SettlementConservesValue(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		price := decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, "price"), -2)
		volume := decimal.New(rapid.Int64Range(1, 1_000_000).Draw(t, "volume"), -4)
		maker := decimal.New(rapid.Int64Range(0, 999).Draw(t, "maker"), -4)
		taker := decimal.New(rapid.Int64Range(0, 999).Draw(t, "taker"), -4)
		side := rapid.SampledFrom([]domain.Side{domain.Ask, domain.Bid}).Draw(t, "maker_side")

		s := ComputeSettlement(SettlementInput{
			Price: price, Volume: volume, Funds: price.Mul(volume),
			MakerFee: maker, TakerFee: taker, MakerSide: side,
			BasePrecision: 4, QuotePrecision: 6,
		})

		if !s.AskCredit.Add(s.AskFee).Equal(s.BidDebit) {
			t.Fatalf("quote leg: credit %s + fee %s != debit %s", s.AskCredit, s.AskFee, s.BidDebit)
		}
		if !s.BidCredit.Add(s.BidFee).Equal(s.AskDebit) {
			t.Fatalf("base leg: credit %s + fee %s != debit %s", s.BidCredit, s.BidFee, s.AskDebit)
		}
		if s.AskFee.IsNegative() || s.BidFee.IsNegative() || s.AskCredit.IsNegative() || s.BidCredit.IsNegative() {
			t.Fatalf("negative amount in %+v", s)
		}
	})
}
