package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKey identifies one ledger line.
type AccountKey struct {
	MemberID string
	Currency string
}

// Less orders keys by member then currency. Stores acquire account row
// locks in this order.
func (k AccountKey) Less(o AccountKey) bool {
	if k.MemberID != o.MemberID {
		return k.MemberID < o.MemberID
	}
	return k.Currency < o.Currency
}

func (k AccountKey) String() string {
	return k.MemberID + "/" + strings.ToLower(k.Currency)
}

// Account is a member's balance in a single currency. Balance is the
// available amount; Locked is reserved against open orders.
type Account struct {
	MemberID  string
	Currency  string
	Balance   decimal.Decimal
	Locked    decimal.Decimal
	UpdatedAt time.Time
}

// Key identifies the account row for locking and persistence.
func (a *Account) Key() AccountKey {
	return AccountKey{MemberID: a.MemberID, Currency: a.Currency}
}

func (a *Account) fail(op AccountOp, amount, balance decimal.Decimal) error {
	return &AccountError{
		MemberID: a.MemberID,
		Currency: a.Currency,
		Op:       op,
		Amount:   amount,
		Balance:  balance,
	}
}

// Lock moves amount from available to locked.
func (a *Account) Lock(amount decimal.Decimal) error {
	if amount.IsNegative() || a.Balance.LessThan(amount) {
		return a.fail(OpLock, amount, a.Balance)
	}
	a.Balance = a.Balance.Sub(amount)
	a.Locked = a.Locked.Add(amount)
	return nil
}

// Unlock moves amount from locked back to available.
func (a *Account) Unlock(amount decimal.Decimal) error {
	if amount.IsNegative() || a.Locked.LessThan(amount) {
		return a.fail(OpUnlock, amount, a.Locked)
	}
	a.Locked = a.Locked.Sub(amount)
	a.Balance = a.Balance.Add(amount)
	return nil
}

// SubLocked removes amount from the locked balance. It fails rather than
// clamping when the locked balance is short.
func (a *Account) SubLocked(amount decimal.Decimal) error {
	if amount.IsNegative() || a.Locked.LessThan(amount) {
		return a.fail(OpSubLocked, amount, a.Locked)
	}
	a.Locked = a.Locked.Sub(amount)
	return nil
}

// Credit adds amount to the available balance.
func (a *Account) Credit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return a.fail(OpCredit, amount, a.Balance)
	}
	a.Balance = a.Balance.Add(amount)
	return nil
}
