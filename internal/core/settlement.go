package core

import (
	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/shopspring/decimal"
)

// SettlementInput is everything the fee calculation depends on.
type SettlementInput struct {
	Price          decimal.Decimal
	Volume         decimal.Decimal
	Funds          decimal.Decimal
	MakerFee       decimal.Decimal
	TakerFee       decimal.Decimal
	MakerSide      domain.Side
	BasePrecision  int32
	QuotePrecision int32
}

// Settlement is the money movement of one trade.
//
// The ask member gives AskDebit base from locked and receives AskCredit
// quote; the bid member gives BidDebit quote from locked and receives
// BidCredit base. AskFee (quote) and BidFee (base) go to the exchange.
type Settlement struct {
	AskDebit  decimal.Decimal
	BidDebit  decimal.Decimal
	AskCredit decimal.Decimal
	BidCredit decimal.Decimal
	AskFee    decimal.Decimal
	BidFee    decimal.Decimal
	MakerSide domain.Side
}

// ComputeSettlement splits a trade into debits, credits and fees. Each side
// is charged the maker or taker rate on the currency it receives, truncated
// to that currency's precision.
func ComputeSettlement(in SettlementInput) Settlement {
	askRate, bidRate := in.MakerFee, in.TakerFee
	if in.MakerSide == domain.Bid {
		askRate, bidRate = in.TakerFee, in.MakerFee
	}

	askFee := domain.TruncateFee(in.Funds.Mul(askRate), in.QuotePrecision)
	bidFee := domain.TruncateFee(in.Volume.Mul(bidRate), in.BasePrecision)

	return Settlement{
		AskDebit:  in.Volume,
		BidDebit:  in.Funds,
		AskCredit: in.Funds.Sub(askFee),
		BidCredit: in.Volume.Sub(bidFee),
		AskFee:    askFee,
		BidFee:    bidFee,
		MakerSide: in.MakerSide,
	}
}

func (s Settlement) MakerFeeAmount() decimal.Decimal {
	if s.MakerSide == domain.Bid {
		return s.BidFee
	}
	return s.AskFee
}

func (s Settlement) TakerFeeAmount() decimal.Decimal {
	if s.MakerSide == domain.Bid {
		return s.AskFee
	}
	return s.BidFee
}
