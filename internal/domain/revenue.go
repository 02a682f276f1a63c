package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Revenue is one fee credit to the exchange. MemberID is the member who
// paid the fee.
type Revenue struct {
	ID        string
	MarketID  string
	TradeID   string
	Currency  string
	MemberID  string
	Credit    decimal.Decimal
	CreatedAt time.Time
}
