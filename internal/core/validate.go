package core

import (
	"fmt"

	"github.com/olyamironova/trade-execution/internal/domain"
)

func reject(req ExecutionRequest, format string, args ...any) error {
	return &domain.TradeExecutionError{
		MarketID: req.MarketID,
		AskID:    req.AskID,
		BidID:    req.BidID,
		Reason:   fmt.Sprintf(format, args...),
	}
}

// validateRequest checks what can be decided from the request alone.
func validateRequest(req ExecutionRequest) error {
	switch {
	case req.MarketID == "" || req.AskID == "" || req.BidID == "":
		return reject(req, "market, ask and bid ids are required")
	case req.AskID == req.BidID:
		return reject(req, "ask and bid are the same order")
	case !req.MakerSide.Valid():
		return reject(req, "invalid maker side %q", req.MakerSide)
	case !req.Price.IsPositive():
		return reject(req, "price %s must be positive", req.Price)
	case !req.Volume.IsPositive():
		return reject(req, "volume %s must be positive", req.Volume)
	case !req.Funds.IsPositive():
		return reject(req, "funds %s must be positive", req.Funds)
	}
	if expected := req.Price.Mul(req.Volume); !req.Funds.Equal(expected) {
		return reject(req, "funds %s do not equal price x volume %s", req.Funds, expected)
	}
	return nil
}

// validateOrders checks the request against the locked order rows. It runs
// before any write in the transaction.
func validateOrders(req ExecutionRequest, m *domain.Market, ask, bid *domain.Order) error {
	if ask.Side != domain.Ask {
		return reject(req, "order %s is not an ask", ask.ID)
	}
	if bid.Side != domain.Bid {
		return reject(req, "order %s is not a bid", bid.ID)
	}
	if ask.MarketID != m.ID || bid.MarketID != m.ID {
		return reject(req, "orders do not belong to market %s", m.ID)
	}
	for _, o := range []*domain.Order{ask, bid} {
		switch o.Type {
		case domain.LimitOrder:
			if !o.Price.Valid {
				return reject(req, "limit order %s has no price", o.ID)
			}
		case domain.MarketOrder:
		default:
			return reject(req, "order %s has unknown type %q", o.ID, o.Type)
		}
	}
	if ask.IsTerminal() || bid.IsTerminal() {
		return reject(req, "ask is %s, bid is %s", ask.State, bid.State)
	}
	if limit := domain.MinDecimal(ask.Volume, bid.Volume); req.Volume.GreaterThan(limit) {
		return reject(req, "volume %s exceeds remaining %s", req.Volume, limit)
	}
	if ask.IsLimit() && ask.Price.Decimal.GreaterThan(req.Price) {
		return reject(req, "ask price %s above strike %s", ask.Price.Decimal, req.Price)
	}
	if bid.IsLimit() && bid.Price.Decimal.LessThan(req.Price) {
		return reject(req, "bid price %s below strike %s", bid.Price.Decimal, req.Price)
	}
	return nil
}
