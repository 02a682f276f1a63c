package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Trade is the immutable record of one executed match.
type Trade struct {
	ID          string
	MarketID    string
	AskID       string
	BidID       string
	AskMemberID string
	BidMemberID string
	MakerSide   Side
	Price       decimal.Decimal
	Volume      decimal.Decimal
	Funds       decimal.Decimal
	Trend       Trend
	CreatedAt   time.Time
}

// TradePayload is what gets announced once a trade has committed.
type TradePayload struct {
	TradeID   string          `json:"id"`
	MarketID  string          `json:"market"`
	AskID     string          `json:"ask_id"`
	BidID     string          `json:"bid_id"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Funds     decimal.Decimal `json:"funds"`
	Trend     Trend           `json:"trend"`
	Timestamp int64           `json:"at"`
}

func (t *Trade) Payload() TradePayload {
	return TradePayload{
		TradeID:   t.ID,
		MarketID:  t.MarketID,
		AskID:     t.AskID,
		BidID:     t.BidID,
		Price:     t.Price,
		Volume:    t.Volume,
		Funds:     t.Funds,
		Trend:     t.Trend,
		Timestamp: t.CreatedAt.Unix(),
	}
}
