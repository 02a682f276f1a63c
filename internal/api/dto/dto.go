package dto

import (
	"fmt"
	"time"

	"github.com/olyamironova/trade-execution/internal/core"
	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/shopspring/decimal"
)

// ExecuteRequest is a candidate match from the upstream matcher. Amounts
// are decimal strings.
type ExecuteRequest struct {
	MarketID  string `json:"market" binding:"required"`
	AskID     string `json:"ask_id" binding:"required"`
	BidID     string `json:"bid_id" binding:"required"`
	Price     string `json:"strike_price"`
	Volume    string `json:"volume"`
	Funds     string `json:"funds"`
	MakerSide string `json:"maker_side,omitempty" binding:"omitempty,oneof=ask bid"`
}

// ToCore parses the amounts. Range checks are left to the executor.
func (r ExecuteRequest) ToCore() (core.ExecutionRequest, error) {
	price, err := domain.ParseAmount(r.Price)
	if err != nil {
		return core.ExecutionRequest{}, fmt.Errorf("strike_price: %w", err)
	}
	volume, err := domain.ParseAmount(r.Volume)
	if err != nil {
		return core.ExecutionRequest{}, fmt.Errorf("volume: %w", err)
	}
	funds, err := domain.ParseAmount(r.Funds)
	if err != nil {
		return core.ExecutionRequest{}, fmt.Errorf("funds: %w", err)
	}
	return core.ExecutionRequest{
		MarketID:  r.MarketID,
		AskID:     r.AskID,
		BidID:     r.BidID,
		Price:     price,
		Volume:    volume,
		Funds:     funds,
		MakerSide: domain.Side(r.MakerSide),
	}, nil
}

type Trade struct {
	ID        string          `json:"id"`
	MarketID  string          `json:"market"`
	AskID     string          `json:"ask_id"`
	BidID     string          `json:"bid_id"`
	MakerSide string          `json:"maker_side"`
	Price     decimal.Decimal `json:"price"`
	Volume    decimal.Decimal `json:"volume"`
	Funds     decimal.Decimal `json:"funds"`
	Trend     string          `json:"trend"`
	CreatedAt time.Time       `json:"created_at"`
}

type Order struct {
	ID           string           `json:"id"`
	MarketID     string           `json:"market"`
	Side         string           `json:"side"`
	Type         string           `json:"ord_type"`
	Price        *decimal.Decimal `json:"price"`
	OriginVolume decimal.Decimal  `json:"origin_volume"`
	Volume       decimal.Decimal  `json:"remaining_volume"`
	OriginLocked decimal.Decimal  `json:"origin_locked"`
	Locked       decimal.Decimal  `json:"locked"`
	TradesCount  int64            `json:"trades_count"`
	State        string           `json:"state"`
}

type Fees struct {
	Ask decimal.Decimal `json:"ask_fee"`
	Bid decimal.Decimal `json:"bid_fee"`
}

type ExecuteResponse struct {
	Trade Trade `json:"trade"`
	Ask   Order `json:"ask"`
	Bid   Order `json:"bid"`
	Fees  Fees  `json:"fees"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func FromTrade(t *domain.Trade) Trade {
	return Trade{
		ID:        t.ID,
		MarketID:  t.MarketID,
		AskID:     t.AskID,
		BidID:     t.BidID,
		MakerSide: string(t.MakerSide),
		Price:     t.Price,
		Volume:    t.Volume,
		Funds:     t.Funds,
		Trend:     string(t.Trend),
		CreatedAt: t.CreatedAt,
	}
}

func FromOrder(o *domain.Order) Order {
	out := Order{
		ID:           o.ID,
		MarketID:     o.MarketID,
		Side:         string(o.Side),
		Type:         string(o.Type),
		OriginVolume: o.OriginVolume,
		Volume:       o.Volume,
		OriginLocked: o.OriginLocked,
		Locked:       o.Locked,
		TradesCount:  o.TradesCount,
		State:        string(o.State),
	}
	if o.Price.Valid {
		p := o.Price.Decimal
		out.Price = &p
	}
	return out
}

func FromResult(r *core.ExecutionResult) ExecuteResponse {
	return ExecuteResponse{
		Trade: FromTrade(r.Trade),
		Ask:   FromOrder(r.Ask),
		Bid:   FromOrder(r.Bid),
		Fees:  Fees{Ask: r.Settlement.AskFee, Bid: r.Settlement.BidFee},
	}
}
