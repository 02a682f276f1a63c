package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string
type OrderType string
type OrderState string

const (
	Ask         Side       = "ask"
	Bid         Side       = "bid"
	LimitOrder  OrderType  = "limit"
	MarketOrder OrderType  = "market"
	Wait        OrderState = "wait"
	Done        OrderState = "done"
	Cancel      OrderState = "cancel"
)

func (s Side) Valid() bool { return s == Ask || s == Bid }

// Order holds the execution-relevant state of a single order. Volume and
// Locked are the remaining amounts; the Origin fields are fixed at placement.
// Locked is in the base currency for asks and the quote currency for bids.
type Order struct {
	ID           string
	MemberID     string
	MarketID     string
	Side         Side
	Type         OrderType
	Price        decimal.NullDecimal // invalid for market orders
	OriginVolume decimal.Decimal
	Volume       decimal.Decimal
	OriginLocked decimal.Decimal
	Locked       decimal.Decimal
	TradesCount  int64
	State        OrderState
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (o *Order) IsTerminal() bool {
	return o.State == Done || o.State == Cancel
}

func (o *Order) IsLimit() bool {
	return o.Type == LimitOrder && o.Price.Valid
}

// HoldCurrency is the currency the order has locked.
func (o *Order) HoldCurrency(m *Market) string {
	if o.Side == Ask {
		return m.BaseUnit
	}
	return m.QuoteUnit
}

// IncomeCurrency is the currency the order receives when it trades.
func (o *Order) IncomeCurrency(m *Market) string {
	if o.Side == Ask {
		return m.QuoteUnit
	}
	return m.BaseUnit
}

// Strike applies one fill: volume leaves the remaining volume and consumed
// leaves the remaining locked amount.
func (o *Order) Strike(volume, consumed decimal.Decimal) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if consumed.IsNegative() || o.Locked.LessThan(consumed) {
		return &AccountError{
			MemberID: o.MemberID,
			OrderID:  o.ID,
			Op:       OpStrike,
			Amount:   consumed,
			Balance:  o.Locked,
		}
	}
	o.Volume = o.Volume.Sub(volume)
	o.Locked = o.Locked.Sub(consumed)
	o.TradesCount++
	return nil
}

// ReleaseLocked gives part of the remaining locked amount back to the member.
func (o *Order) ReleaseLocked(amount decimal.Decimal) error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	if amount.IsNegative() || o.Locked.LessThan(amount) {
		return &AccountError{
			MemberID: o.MemberID,
			OrderID:  o.ID,
			Op:       OpUnlock,
			Amount:   amount,
			Balance:  o.Locked,
		}
	}
	o.Locked = o.Locked.Sub(amount)
	return nil
}

func (o *Order) MarkDone() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	o.State = Done
	return nil
}

func (o *Order) MarkCancelled() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}
	o.State = Cancel
	return nil
}
