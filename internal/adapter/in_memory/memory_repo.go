package in_memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/port"
	"github.com/shopspring/decimal"
)

var _ port.Repository = (*MemoryRepo)(nil)

var (
	errTxDone    = errors.New("transaction already finished")
	errLockOrder = errors.New("rows locked out of order: market, orders, accounts")
	errNotLocked = errors.New("row not locked in this transaction")
)

// MemoryRepo keeps rows in maps. Transactions work on copies of the rows
// they lock and write them back on commit, so a rolled back transaction
// leaves no trace.
type MemoryRepo struct {
	mu       sync.Mutex
	markets  map[string]domain.Market
	orders   map[string]domain.Order
	accounts map[domain.AccountKey]domain.Account
	trades   map[string]domain.Trade
	byMarket map[string]int64
	revenues []domain.Revenue

	rows rowLocks
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		markets:  make(map[string]domain.Market),
		orders:   make(map[string]domain.Order),
		accounts: make(map[domain.AccountKey]domain.Account),
		trades:   make(map[string]domain.Trade),
		byMarket: make(map[string]int64),
		rows:     rowLocks{m: make(map[string]*sync.Mutex)},
	}
}

func (r *MemoryRepo) PutMarket(m domain.Market) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markets[m.ID] = m
}

func (r *MemoryRepo) PutOrder(o domain.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
}

func (r *MemoryRepo) PutAccount(a domain.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.Key()] = a
}

// Revenues returns every recorded fee credit in insertion order.
func (r *MemoryRepo) Revenues() []domain.Revenue {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Revenue, len(r.revenues))
	copy(out, r.revenues)
	return out
}

func (r *MemoryRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	return &memTx{
		repo:     r,
		markets:  make(map[string]*domain.Market),
		orders:   make(map[string]*domain.Order),
		accounts: make(map[domain.AccountKey]*domain.Account),
	}, nil
}

func (r *MemoryRepo) LoadMarket(ctx context.Context, id string) (*domain.Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", id, domain.ErrNotFound)
	}
	return &m, nil
}

func (r *MemoryRepo) LoadOrder(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (r *MemoryRepo) LoadAccount(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[key]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", key, domain.ErrNotFound)
	}
	return &a, nil
}

func (r *MemoryRepo) LoadTrade(ctx context.Context, id string) (*domain.Trade, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trades[id]
	if !ok {
		return nil, fmt.Errorf("trade %s: %w", id, domain.ErrNotFound)
	}
	return &t, nil
}

func (r *MemoryRepo) CountTrades(ctx context.Context, marketID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byMarket[marketID], nil
}

func (r *MemoryRepo) RevenueTotal(ctx context.Context, currency string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, rev := range r.revenues {
		if rev.Currency == currency {
			total = total.Add(rev.Credit)
		}
	}
	return total, nil
}

// rowLocks hands out one mutex per row name.
type rowLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *rowLocks) get(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.m[name]
	if !ok {
		mu = &sync.Mutex{}
		l.m[name] = mu
	}
	return mu
}

const (
	phaseNone = iota
	phaseMarket
	phaseOrders
	phaseAccounts
)

type memTx struct {
	repo  *MemoryRepo
	held  []*sync.Mutex
	phase int
	done  bool

	markets  map[string]*domain.Market
	orders   map[string]*domain.Order
	accounts map[domain.AccountKey]*domain.Account
	trades   []domain.Trade
	revenues []domain.Revenue
}

func (tx *memTx) enter(phase int) error {
	if tx.done {
		return errTxDone
	}
	if phase <= tx.phase {
		return errLockOrder
	}
	tx.phase = phase
	return nil
}

func (tx *memTx) lock(name string) {
	mu := tx.repo.rows.get(name)
	mu.Lock()
	tx.held = append(tx.held, mu)
}

func (tx *memTx) LockMarket(ctx context.Context, id string) (*domain.Market, error) {
	if err := tx.enter(phaseMarket); err != nil {
		return nil, err
	}
	tx.lock("market:" + id)
	m, err := tx.repo.LoadMarket(ctx, id)
	if err != nil {
		return nil, err
	}
	tx.markets[id] = m
	return m, nil
}

func (tx *memTx) LockOrders(ctx context.Context, ids ...string) (map[string]*domain.Order, error) {
	if err := tx.enter(phaseOrders); err != nil {
		return nil, err
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]*domain.Order, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		tx.lock("order:" + id)
		o, err := tx.repo.LoadOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		tx.orders[id] = o
		out[id] = o
	}
	return out, nil
}

func (tx *memTx) LockAccounts(ctx context.Context, keys ...domain.AccountKey) (map[domain.AccountKey]*domain.Account, error) {
	if err := tx.enter(phaseAccounts); err != nil {
		return nil, err
	}
	sorted := append([]domain.AccountKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	out := make(map[domain.AccountKey]*domain.Account, len(sorted))
	for _, k := range sorted {
		if _, ok := out[k]; ok {
			continue
		}
		tx.lock("account:" + k.String())
		a, err := tx.repo.LoadAccount(ctx, k)
		if errors.Is(err, domain.ErrNotFound) {
			a = &domain.Account{MemberID: k.MemberID, Currency: k.Currency}
		} else if err != nil {
			return nil, err
		}
		tx.accounts[k] = a
		out[k] = a
	}
	return out, nil
}

func (tx *memTx) SaveMarket(ctx context.Context, m *domain.Market) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.markets[m.ID]; !ok {
		return fmt.Errorf("market %s: %w", m.ID, errNotLocked)
	}
	tx.markets[m.ID] = m
	return nil
}

func (tx *memTx) SaveOrder(ctx context.Context, o *domain.Order) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.orders[o.ID]; !ok {
		return fmt.Errorf("order %s: %w", o.ID, errNotLocked)
	}
	tx.orders[o.ID] = o
	return nil
}

func (tx *memTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.accounts[a.Key()]; !ok {
		return fmt.Errorf("account %s: %w", a.Key(), errNotLocked)
	}
	tx.accounts[a.Key()] = a
	return nil
}

func (tx *memTx) InsertTrade(ctx context.Context, t *domain.Trade) error {
	if tx.done {
		return errTxDone
	}
	tx.trades = append(tx.trades, *t)
	return nil
}

func (tx *memTx) InsertRevenue(ctx context.Context, rev *domain.Revenue) error {
	if tx.done {
		return errTxDone
	}
	tx.revenues = append(tx.revenues, *rev)
	return nil
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.done {
		return errTxDone
	}
	r := tx.repo
	r.mu.Lock()
	for id, m := range tx.markets {
		r.markets[id] = *m
	}
	for id, o := range tx.orders {
		r.orders[id] = *o
	}
	for k, a := range tx.accounts {
		r.accounts[k] = *a
	}
	for _, t := range tx.trades {
		r.trades[t.ID] = t
		r.byMarket[t.MarketID]++
	}
	r.revenues = append(r.revenues, tx.revenues...)
	r.mu.Unlock()
	tx.finish()
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	if tx.done {
		return errTxDone
	}
	tx.finish()
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i].Unlock()
	}
	tx.held = nil
}
