package pg

import (
	"context"
	"fmt"
)

// schema is the minimal layout the store reads and writes. Production
// databases are migrated by their owning service; EnsureSchema exists for
// development and integration tests.
const schema = `
CREATE TABLE IF NOT EXISTS markets (
  id               TEXT PRIMARY KEY,
  base_unit        TEXT NOT NULL,
  quote_unit       TEXT NOT NULL,
  amount_precision INTEGER NOT NULL DEFAULT 4,
  price_precision  INTEGER NOT NULL DEFAULT 4,
  maker_fee        NUMERIC(17, 16) NOT NULL DEFAULT 0 CHECK (maker_fee >= 0 AND maker_fee < 1),
  taker_fee        NUMERIC(17, 16) NOT NULL DEFAULT 0 CHECK (taker_fee >= 0 AND taker_fee < 1),
  last_price       NUMERIC(32, 16) NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS orders (
  id            TEXT PRIMARY KEY,
  member_id     TEXT NOT NULL,
  market_id     TEXT NOT NULL REFERENCES markets(id),
  side          TEXT NOT NULL CHECK (side IN ('ask', 'bid')),
  ord_type      TEXT NOT NULL CHECK (ord_type IN ('limit', 'market')),
  price         NUMERIC(32, 16),
  origin_volume NUMERIC(32, 16) NOT NULL,
  volume        NUMERIC(32, 16) NOT NULL CHECK (volume >= 0),
  origin_locked NUMERIC(32, 16) NOT NULL,
  locked        NUMERIC(32, 16) NOT NULL CHECK (locked >= 0),
  trades_count  BIGINT NOT NULL DEFAULT 0,
  state         TEXT NOT NULL CHECK (state IN ('wait', 'done', 'cancel')),
  created_at    TIMESTAMPTZ NOT NULL,
  updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
  member_id  TEXT NOT NULL,
  currency   TEXT NOT NULL,
  balance    NUMERIC(32, 16) NOT NULL DEFAULT 0 CHECK (balance >= 0),
  locked     NUMERIC(32, 16) NOT NULL DEFAULT 0 CHECK (locked >= 0),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  PRIMARY KEY (member_id, currency)
);

CREATE TABLE IF NOT EXISTS trades (
  id            TEXT PRIMARY KEY,
  market_id     TEXT NOT NULL REFERENCES markets(id),
  ask_id        TEXT NOT NULL REFERENCES orders(id),
  bid_id        TEXT NOT NULL REFERENCES orders(id),
  ask_member_id TEXT NOT NULL,
  bid_member_id TEXT NOT NULL,
  maker_side    TEXT NOT NULL,
  price         NUMERIC(32, 16) NOT NULL,
  volume        NUMERIC(32, 16) NOT NULL,
  funds         NUMERIC(32, 16) NOT NULL,
  trend         TEXT NOT NULL,
  created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS trades_market_id_idx ON trades (market_id);

CREATE TABLE IF NOT EXISTS revenues (
  id         TEXT PRIMARY KEY,
  market_id  TEXT NOT NULL,
  trade_id   TEXT NOT NULL REFERENCES trades(id),
  currency   TEXT NOT NULL,
  member_id  TEXT NOT NULL,
  credit     NUMERIC(32, 16) NOT NULL CHECK (credit > 0),
  created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS revenues_currency_idx ON revenues (currency);
`

func (p *PgRepo) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("pg: ensure schema: %w", err)
	}
	return nil
}
