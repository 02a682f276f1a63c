package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/shopspring/decimal"
)

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Numerics travel as text so no precision is lost on the way in or out.
const (
	selectMarket = `
SELECT id, base_unit, quote_unit, amount_precision, price_precision,
       maker_fee::text, taker_fee::text, last_price::text
FROM markets`

	selectOrder = `
SELECT id, member_id, market_id, side, ord_type, price::text,
       origin_volume::text, volume::text, origin_locked::text, locked::text,
       trades_count, state, created_at, updated_at
FROM orders`

	selectAccount = `
SELECT member_id, currency, balance::text, locked::text, updated_at
FROM accounts`
)

type field struct {
	text string
	dst  *decimal.Decimal
}

func parseDecimals(fields ...field) error {
	for _, f := range fields {
		d, err := decimal.NewFromString(f.text)
		if err != nil {
			return fmt.Errorf("parse numeric %q: %w", f.text, err)
		}
		*f.dst = d
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return err
}

func scanMarket(row pgx.Row, id string) (*domain.Market, error) {
	var m domain.Market
	var maker, taker, last string
	if err := row.Scan(&m.ID, &m.BaseUnit, &m.QuoteUnit, &m.AmountPrecision, &m.PricePrecision, &maker, &taker, &last); err != nil {
		return nil, notFound(err, "market "+id)
	}
	if err := parseDecimals(field{maker, &m.MakerFee}, field{taker, &m.TakerFee}, field{last, &m.LastPrice}); err != nil {
		return nil, fmt.Errorf("market %s: %w", id, err)
	}
	return &m, nil
}

func scanOrder(row pgx.Row, id string) (*domain.Order, error) {
	var o domain.Order
	var side, typ, state string
	var price *string
	var originVolume, volume, originLocked, locked string
	err := row.Scan(&o.ID, &o.MemberID, &o.MarketID, &side, &typ, &price,
		&originVolume, &volume, &originLocked, &locked,
		&o.TradesCount, &state, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "order "+id)
	}
	o.Side = domain.Side(side)
	o.Type = domain.OrderType(typ)
	o.State = domain.OrderState(state)
	if price != nil {
		d, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("order %s: parse price: %w", id, err)
		}
		o.Price = decimal.NewNullDecimal(d)
	}
	err = parseDecimals(
		field{originVolume, &o.OriginVolume},
		field{volume, &o.Volume},
		field{originLocked, &o.OriginLocked},
		field{locked, &o.Locked},
	)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", id, err)
	}
	return &o, nil
}

func scanAccount(row pgx.Row, key domain.AccountKey) (*domain.Account, error) {
	var a domain.Account
	var balance, locked string
	if err := row.Scan(&a.MemberID, &a.Currency, &balance, &locked, &a.UpdatedAt); err != nil {
		return nil, notFound(err, "account "+key.String())
	}
	if err := parseDecimals(field{balance, &a.Balance}, field{locked, &a.Locked}); err != nil {
		return nil, fmt.Errorf("account %s: %w", key, err)
	}
	return &a, nil
}

func upsertMarket(ctx context.Context, db execer, m *domain.Market) error {
	_, err := db.Exec(ctx, `
INSERT INTO markets(id, base_unit, quote_unit, amount_precision, price_precision, maker_fee, taker_fee, last_price)
VALUES($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric)
ON CONFLICT (id) DO UPDATE SET
  base_unit = EXCLUDED.base_unit,
  quote_unit = EXCLUDED.quote_unit,
  amount_precision = EXCLUDED.amount_precision,
  price_precision = EXCLUDED.price_precision,
  maker_fee = EXCLUDED.maker_fee,
  taker_fee = EXCLUDED.taker_fee,
  last_price = EXCLUDED.last_price
`, m.ID, m.BaseUnit, m.QuoteUnit, m.AmountPrecision, m.PricePrecision,
		m.MakerFee.String(), m.TakerFee.String(), m.LastPrice.String())
	return err
}

func upsertOrder(ctx context.Context, db execer, o *domain.Order) error {
	var price *string
	if o.Price.Valid {
		s := o.Price.Decimal.String()
		price = &s
	}
	_, err := db.Exec(ctx, `
INSERT INTO orders(id, member_id, market_id, side, ord_type, price, origin_volume, volume,
                   origin_locked, locked, trades_count, state, created_at, updated_at)
VALUES($1,$2,$3,$4,$5,$6::numeric,$7::numeric,$8::numeric,$9::numeric,$10::numeric,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
  volume = EXCLUDED.volume,
  locked = EXCLUDED.locked,
  trades_count = EXCLUDED.trades_count,
  state = EXCLUDED.state,
  updated_at = EXCLUDED.updated_at
`, o.ID, o.MemberID, o.MarketID, string(o.Side), string(o.Type), price,
		o.OriginVolume.String(), o.Volume.String(), o.OriginLocked.String(), o.Locked.String(),
		o.TradesCount, string(o.State), o.CreatedAt, o.UpdatedAt)
	return err
}

func upsertAccount(ctx context.Context, db execer, a *domain.Account) error {
	_, err := db.Exec(ctx, `
INSERT INTO accounts(member_id, currency, balance, locked, updated_at)
VALUES($1,$2,$3::numeric,$4::numeric,$5)
ON CONFLICT (member_id, currency) DO UPDATE SET
  balance = EXCLUDED.balance,
  locked = EXCLUDED.locked,
  updated_at = EXCLUDED.updated_at
`, a.MemberID, a.Currency, a.Balance.String(), a.Locked.String(), a.UpdatedAt)
	return err
}
