package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrOrderTerminal = errors.New("order is no longer active")
)

// TradeExecutionError rejects a proposed match before anything is mutated.
type TradeExecutionError struct {
	MarketID string
	AskID    string
	BidID    string
	Reason   string
}

func (e *TradeExecutionError) Error() string {
	return fmt.Sprintf("trade execution rejected (market=%s ask=%s bid=%s): %s",
		e.MarketID, e.AskID, e.BidID, e.Reason)
}

// AccountOp names the ledger operation that failed.
type AccountOp string

const (
	OpLock      AccountOp = "lock"
	OpUnlock    AccountOp = "unlock"
	OpSubLocked AccountOp = "sub_locked"
	OpCredit    AccountOp = "credit"
	OpStrike    AccountOp = "strike"
)

// AccountError is returned when a ledger mutation would drive a balance
// below zero or is given a negative amount. OrderID is set when the short
// balance is an order's remaining locked amount rather than an account.
type AccountError struct {
	MemberID string
	Currency string
	OrderID  string
	Op       AccountOp
	Amount   decimal.Decimal
	Balance  decimal.Decimal
}

func (e *AccountError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("order %s of %s: cannot %s %s (locked %s)",
			e.OrderID, e.MemberID, e.Op, e.Amount, e.Balance)
	}
	return fmt.Sprintf("account %s/%s: cannot %s %s (balance %s)",
		e.MemberID, e.Currency, e.Op, e.Amount, e.Balance)
}

// IsTradeExecutionError reports whether err carries a *TradeExecutionError.
func IsTradeExecutionError(err error) bool {
	var te *TradeExecutionError
	return errors.As(err, &te)
}

// IsAccountError reports whether err carries an *AccountError.
func IsAccountError(err error) bool {
	var ae *AccountError
	return errors.As(err, &ae)
}
