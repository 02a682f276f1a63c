package core_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/olyamironova/trade-execution/internal/adapter/in_memory"
	"github.com/olyamironova/trade-execution/internal/core"
	"github.com/olyamironova/trade-execution/internal/domain"
)

type holdings map[string]decimal.Decimal

// totals sums balance, locked and exchange revenue per currency.
func totals(t *rapid.T, repo *in_memory.MemoryRepo) holdings {
	ctx := context.Background()
	out := holdings{}
	for _, cur := range []string{"btc", "usd"} {
		sum := decimal.Zero
		for _, member := range []string{"alice", "bob"} {
			a, err := repo.LoadAccount(ctx, domain.AccountKey{MemberID: member, Currency: cur})
			if err == nil {
				sum = sum.Add(a.Balance).Add(a.Locked)
			}
		}
		rev, err := repo.RevenueTotal(ctx, cur)
		if err != nil {
			t.Fatalf("revenue total: %v", err)
		}
		out[cur] = sum.Add(rev)
	}
	return out
}

func TestProperty_ExecutionConservesCurrency(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		askPrice := rapid.Int64Range(1, 500).Draw(t, "ask_price")
		bidPrice := rapid.Int64Range(askPrice, 600).Draw(t, "bid_price")
		strike := rapid.Int64Range(askPrice, bidPrice).Draw(t, "strike")
		askVol := rapid.Int64Range(1, 10_000).Draw(t, "ask_volume")
		bidVol := rapid.Int64Range(1, 10_000).Draw(t, "bid_volume")
		fill := rapid.Int64Range(1, min(askVol, bidVol)).Draw(t, "fill")
		maker := rapid.Int64Range(0, 50).Draw(t, "maker_fee")
		taker := rapid.Int64Range(0, 50).Draw(t, "taker_fee")

		repo := in_memory.NewMemoryRepo()
		repo.PutMarket(domain.Market{
			ID: "btcusd", BaseUnit: "btc", QuoteUnit: "usd",
			AmountPrecision: 4, PricePrecision: 2,
			MakerFee: decimal.New(maker, -4), TakerFee: decimal.New(taker, -4),
		})

		volume := func(n int64) decimal.Decimal { return decimal.New(n, -4) }
		price := func(n int64) decimal.Decimal { return decimal.New(n, -1) }
		bidLocked := price(bidPrice).Mul(volume(bidVol))

		repo.PutOrder(domain.Order{
			ID: "a1", MemberID: "alice", MarketID: "btcusd", Side: domain.Ask, Type: domain.LimitOrder,
			Price:        decimal.NewNullDecimal(price(askPrice)),
			OriginVolume: volume(askVol), Volume: volume(askVol),
			OriginLocked: volume(askVol), Locked: volume(askVol), State: domain.Wait,
		})
		repo.PutOrder(domain.Order{
			ID: "b1", MemberID: "bob", MarketID: "btcusd", Side: domain.Bid, Type: domain.LimitOrder,
			Price:        decimal.NewNullDecimal(price(bidPrice)),
			OriginVolume: volume(bidVol), Volume: volume(bidVol),
			OriginLocked: bidLocked, Locked: bidLocked, State: domain.Wait,
		})
		repo.PutAccount(domain.Account{MemberID: "alice", Currency: "btc", Locked: volume(askVol)})
		repo.PutAccount(domain.Account{MemberID: "bob", Currency: "usd", Locked: bidLocked})

		before := totals(t, repo)
		exec := core.NewExecutor(repo, nil, nil)

		r := core.ExecutionRequest{
			MarketID: "btcusd", AskID: "a1", BidID: "b1",
			Price: price(strike), Volume: volume(fill),
			Funds: price(strike).Mul(volume(fill)),
		}
		if _, err := exec.Execute(context.Background(), r); err != nil {
			t.Fatalf("execute: %v", err)
		}

		after := totals(t, repo)
		for cur, want := range before {
			if !after[cur].Equal(want) {
				t.Fatalf("%s not conserved: before %s, after %s", cur, want, after[cur])
			}
		}

		ctx := context.Background()
		for _, id := range []string{"a1", "b1"} {
			o, err := repo.LoadOrder(ctx, id)
			if err != nil {
				t.Fatalf("load %s: %v", id, err)
			}
			if o.Volume.IsNegative() || o.Locked.IsNegative() {
				t.Fatalf("order %s went negative: volume %s locked %s", id, o.Volume, o.Locked)
			}
			if o.Volume.GreaterThan(o.OriginVolume) || o.Locked.GreaterThan(o.OriginLocked) {
				t.Fatalf("order %s grew: %+v", id, o)
			}
			if (o.State == domain.Done) != o.Volume.IsZero() {
				t.Fatalf("order %s state %s with volume %s", id, o.State, o.Volume)
			}
		}

		// Each open order still holds exactly its own reserve.
		bid, _ := repo.LoadOrder(ctx, "b1")
		usd, _ := repo.LoadAccount(ctx, domain.AccountKey{MemberID: "bob", Currency: "usd"})
		if !usd.Locked.Equal(bid.Locked) {
			t.Fatalf("bob usd locked %s, bid locked %s", usd.Locked, bid.Locked)
		}
		if bid.State == domain.Wait && bid.Locked.LessThan(price(bidPrice).Mul(bid.Volume)) {
			t.Fatalf("bid reserve %s cannot cover %s at its limit", bid.Locked, bid.Volume)
		}
	})
}

func TestProperty_RejectedExecutionChangesNothing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		vol := rapid.Int64Range(1, 100).Draw(t, "volume")
		over := rapid.Int64Range(1, 100).Draw(t, "over")
		shortLocked := rapid.Bool().Draw(t, "short_locked")

		repo := in_memory.NewMemoryRepo()
		repo.PutMarket(domain.Market{ID: "btcusd", BaseUnit: "btc", QuoteUnit: "usd", AmountPrecision: 4, PricePrecision: 2})
		v := decimal.NewFromInt(vol)
		repo.PutOrder(domain.Order{
			ID: "a1", MemberID: "alice", MarketID: "btcusd", Side: domain.Ask, Type: domain.LimitOrder,
			Price: decimal.NewNullDecimal(decimal.NewFromInt(10)), OriginVolume: v, Volume: v,
			OriginLocked: v, Locked: v, State: domain.Wait,
		})
		repo.PutOrder(domain.Order{
			ID: "b1", MemberID: "bob", MarketID: "btcusd", Side: domain.Bid, Type: domain.LimitOrder,
			Price: decimal.NewNullDecimal(decimal.NewFromInt(10)), OriginVolume: v, Volume: v,
			OriginLocked: v.Mul(decimal.NewFromInt(10)), Locked: v.Mul(decimal.NewFromInt(10)), State: domain.Wait,
		})
		askLocked := v
		if shortLocked {
			askLocked = decimal.Zero
		}
		repo.PutAccount(domain.Account{MemberID: "alice", Currency: "btc", Locked: askLocked})
		repo.PutAccount(domain.Account{MemberID: "bob", Currency: "usd", Locked: v.Mul(decimal.NewFromInt(10))})

		fill := v
		if !shortLocked {
			fill = v.Add(decimal.NewFromInt(over))
		}
		exec := core.NewExecutor(repo, nil, nil)
		_, err := exec.Execute(context.Background(), core.ExecutionRequest{
			MarketID: "btcusd", AskID: "a1", BidID: "b1",
			Price: decimal.NewFromInt(10), Volume: fill, Funds: fill.Mul(decimal.NewFromInt(10)),
		})
		if err == nil {
			t.Fatalf("expected rejection")
		}
		if shortLocked != domain.IsAccountError(err) {
			t.Fatalf("unexpected error kind: %v", err)
		}

		ctx := context.Background()
		n, _ := repo.CountTrades(ctx, "btcusd")
		if n != 0 {
			t.Fatalf("trade recorded on rejection")
		}
		ask, _ := repo.LoadOrder(ctx, "a1")
		if !ask.Volume.Equal(v) || ask.TradesCount != 0 || ask.State != domain.Wait {
			t.Fatalf("ask mutated: %+v", ask)
		}
		usd, _ := repo.LoadAccount(ctx, domain.AccountKey{MemberID: "bob", Currency: "usd"})
		if !usd.Locked.Equal(v.Mul(decimal.NewFromInt(10))) || !usd.Balance.IsZero() {
			t.Fatalf("bob usd mutated: %+v", usd)
		}
		if _, err := repo.LoadAccount(ctx, domain.AccountKey{MemberID: "alice", Currency: "usd"}); err == nil {
			t.Fatalf("income account created on rejection")
		}
	})
}
