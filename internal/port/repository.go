package port

import (
	"context"

	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository is the read side of the store plus the entry point to
// transactions. Lookups of missing rows wrap domain.ErrNotFound.
type Repository interface {
	BeginTx(ctx context.Context) (Tx, error)
	LoadMarket(ctx context.Context, id string) (*domain.Market, error)
	LoadOrder(ctx context.Context, id string) (*domain.Order, error)
	LoadAccount(ctx context.Context, key domain.AccountKey) (*domain.Account, error)
	LoadTrade(ctx context.Context, id string) (*domain.Trade, error)
	CountTrades(ctx context.Context, marketID string) (int64, error)
	RevenueTotal(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Tx is one all-or-nothing unit of work. Lock* calls return copies of rows
// held exclusively until Commit or Rollback; callers must lock the market
// first, then orders, then accounts. Implementations sort ids and keys so
// every transaction acquires rows in the same total order. Accounts missing
// from the store are created with zero balances.
type Tx interface {
	LockMarket(ctx context.Context, id string) (*domain.Market, error)
	LockOrders(ctx context.Context, ids ...string) (map[string]*domain.Order, error)
	LockAccounts(ctx context.Context, keys ...domain.AccountKey) (map[domain.AccountKey]*domain.Account, error)

	SaveMarket(ctx context.Context, m *domain.Market) error
	SaveOrder(ctx context.Context, o *domain.Order) error
	SaveAccount(ctx context.Context, a *domain.Account) error
	InsertTrade(ctx context.Context, t *domain.Trade) error
	InsertRevenue(ctx context.Context, r *domain.Revenue) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
