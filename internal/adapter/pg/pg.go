package pg

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/port"
	"github.com/shopspring/decimal"
)

var _ port.Repository = (*PgRepo)(nil)

type PgRepo struct {
	pool *pgxpool.Pool
}

// call Close when finish to work with database.
func NewPgRepo(ctx context.Context, dsn string) (*PgRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &PgRepo{pool: pool}, nil
}

func (p *PgRepo) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PgRepo) BeginTx(ctx context.Context) (port.Tx, error) {
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgTx{tx: tx}, nil
}

func (p *PgRepo) LoadMarket(ctx context.Context, id string) (*domain.Market, error) {
	return scanMarket(p.pool.QueryRow(ctx, selectMarket+` WHERE id = $1`, id), id)
}

func (p *PgRepo) LoadOrder(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(p.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id), id)
}

func (p *PgRepo) LoadAccount(ctx context.Context, key domain.AccountKey) (*domain.Account, error) {
	row := p.pool.QueryRow(ctx, selectAccount+` WHERE member_id = $1 AND currency = $2`, key.MemberID, key.Currency)
	return scanAccount(row, key)
}

func (p *PgRepo) LoadTrade(ctx context.Context, id string) (*domain.Trade, error) {
	var t domain.Trade
	var side, trend, price, volume, funds string
	err := p.pool.QueryRow(ctx, `
SELECT id, market_id, ask_id, bid_id, ask_member_id, bid_member_id, maker_side,
       price::text, volume::text, funds::text, trend, created_at
FROM trades WHERE id = $1`, id).Scan(
		&t.ID, &t.MarketID, &t.AskID, &t.BidID, &t.AskMemberID, &t.BidMemberID, &side,
		&price, &volume, &funds, &trend, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("trade %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	t.MakerSide = domain.Side(side)
	t.Trend = domain.Trend(trend)
	if err := parseDecimals(field{price, &t.Price}, field{volume, &t.Volume}, field{funds, &t.Funds}); err != nil {
		return nil, fmt.Errorf("trade %s: %w", id, err)
	}
	return &t, nil
}

func (p *PgRepo) CountTrades(ctx context.Context, marketID string) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM trades WHERE market_id = $1`, marketID).Scan(&n)
	return n, err
}

func (p *PgRepo) RevenueTotal(ctx context.Context, currency string) (decimal.Decimal, error) {
	var s string
	err := p.pool.QueryRow(ctx, `SELECT COALESCE(SUM(credit), 0)::text FROM revenues WHERE currency = $1`, currency).Scan(&s)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}

// SaveMarket, SaveOrder and SaveAccount outside a transaction are used for
// seeding and by provisioning tools.
func (p *PgRepo) SaveMarket(ctx context.Context, m *domain.Market) error {
	return upsertMarket(ctx, p.pool, m)
}

func (p *PgRepo) SaveOrder(ctx context.Context, o *domain.Order) error {
	return upsertOrder(ctx, p.pool, o)
}

func (p *PgRepo) SaveAccount(ctx context.Context, a *domain.Account) error {
	return upsertAccount(ctx, p.pool, a)
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockMarket(ctx context.Context, id string) (*domain.Market, error) {
	return scanMarket(t.tx.QueryRow(ctx, selectMarket+` WHERE id = $1 FOR UPDATE`, id), id)
}

func (t *pgTx) LockOrders(ctx context.Context, ids ...string) (map[string]*domain.Order, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := make(map[string]*domain.Order, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		o, err := scanOrder(t.tx.QueryRow(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id), id)
		if err != nil {
			return nil, err
		}
		out[id] = o
	}
	return out, nil
}

func (t *pgTx) LockAccounts(ctx context.Context, keys ...domain.AccountKey) (map[domain.AccountKey]*domain.Account, error) {
	sorted := append([]domain.AccountKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Less(sorted[j]) })
	out := make(map[domain.AccountKey]*domain.Account, len(sorted))
	for _, k := range sorted {
		if _, ok := out[k]; ok {
			continue
		}
		_, err := t.tx.Exec(ctx, `
INSERT INTO accounts (member_id, currency, balance, locked, updated_at)
VALUES ($1, $2, 0, 0, NOW())
ON CONFLICT (member_id, currency) DO NOTHING`, k.MemberID, k.Currency)
		if err != nil {
			return nil, err
		}
		row := t.tx.QueryRow(ctx, selectAccount+` WHERE member_id = $1 AND currency = $2 FOR UPDATE`, k.MemberID, k.Currency)
		a, err := scanAccount(row, k)
		if err != nil {
			return nil, err
		}
		out[k] = a
	}
	return out, nil
}

func (t *pgTx) SaveMarket(ctx context.Context, m *domain.Market) error {
	return upsertMarket(ctx, t.tx, m)
}

func (t *pgTx) SaveOrder(ctx context.Context, o *domain.Order) error {
	return upsertOrder(ctx, t.tx, o)
}

func (t *pgTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	return upsertAccount(ctx, t.tx, a)
}

func (t *pgTx) InsertTrade(ctx context.Context, tr *domain.Trade) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO trades(id, market_id, ask_id, bid_id, ask_member_id, bid_member_id, maker_side,
                   price, volume, funds, trend, created_at)
VALUES($1,$2,$3,$4,$5,$6,$7,$8::numeric,$9::numeric,$10::numeric,$11,$12)
`, tr.ID, tr.MarketID, tr.AskID, tr.BidID, tr.AskMemberID, tr.BidMemberID, string(tr.MakerSide),
		tr.Price.String(), tr.Volume.String(), tr.Funds.String(), string(tr.Trend), tr.CreatedAt)
	return err
}

func (t *pgTx) InsertRevenue(ctx context.Context, r *domain.Revenue) error {
	_, err := t.tx.Exec(ctx, `
INSERT INTO revenues(id, market_id, trade_id, currency, member_id, credit, created_at)
VALUES($1,$2,$3,$4,$5,$6::numeric,$7)
`, r.ID, r.MarketID, r.TradeID, r.Currency, r.MemberID, r.Credit.String(), r.CreatedAt)
	return err
}

func (t *pgTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *pgTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }
