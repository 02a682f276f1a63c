package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/port"
)

// ExecutionRequest is a candidate match proposed by the upstream matcher.
// MakerSide names the resting order; it defaults to the ask.
type ExecutionRequest struct {
	MarketID  string
	AskID     string
	BidID     string
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Funds     decimal.Decimal
	MakerSide domain.Side
}

// ExecutionResult carries the trade and both orders as committed.
type ExecutionResult struct {
	Trade      *domain.Trade
	Ask        *domain.Order
	Bid        *domain.Order
	Settlement Settlement
}

// Executor validates and settles proposed matches. It expects at most one
// in-flight execution per market; see Dispatcher.
type Executor struct {
	repo      port.Repository
	publisher port.Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Executor)

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Executor) { e.newID = newID }
}

func NewExecutor(repo port.Repository, publisher port.Publisher, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("executor"),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates the match, settles it in one transaction and announces
// the trade once committed. On error nothing has changed: the error is a
// *domain.TradeExecutionError, a *domain.AccountError, or a store failure.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error) {
	if req.MakerSide == "" {
		req.MakerSide = domain.Ask
	}
	log := e.logger.With(
		zap.String("market", req.MarketID),
		zap.String("ask_id", req.AskID),
		zap.String("bid_id", req.BidID),
		zap.Stringer("price", req.Price),
		zap.Stringer("volume", req.Volume),
	)

	if err := validateRequest(req); err != nil {
		log.Warn("execution rejected", zap.Error(err))
		return nil, err
	}

	var res *ExecutionResult
	err := withTx(ctx, e.repo, func(tx port.Tx) error {
		r, err := e.settle(ctx, tx, req)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		if domain.IsTradeExecutionError(err) || domain.IsAccountError(err) {
			log.Warn("execution rejected", zap.Error(err))
		} else {
			log.Error("execution failed", zap.Error(err))
		}
		return nil, err
	}

	log.Info("trade executed",
		zap.String("trade_id", res.Trade.ID),
		zap.String("trend", string(res.Trade.Trend)),
		zap.String("ask_state", string(res.Ask.State)),
		zap.String("bid_state", string(res.Bid.State)),
	)
	e.publish(ctx, res.Trade)
	return res, nil
}

func (e *Executor) settle(ctx context.Context, tx port.Tx, req ExecutionRequest) (*ExecutionResult, error) {
	market, err := tx.LockMarket(ctx, req.MarketID)
	if err != nil {
		return nil, fmt.Errorf("lock market %s: %w", req.MarketID, err)
	}
	if err := market.Validate(); err != nil {
		return nil, reject(req, "%v", err)
	}
	orders, err := tx.LockOrders(ctx, req.AskID, req.BidID)
	if err != nil {
		return nil, fmt.Errorf("lock orders: %w", err)
	}
	ask, ok := orders[req.AskID]
	if !ok {
		return nil, fmt.Errorf("ask %s: %w", req.AskID, domain.ErrNotFound)
	}
	bid, ok := orders[req.BidID]
	if !ok {
		return nil, fmt.Errorf("bid %s: %w", req.BidID, domain.ErrNotFound)
	}
	if err := validateOrders(req, market, ask, bid); err != nil {
		return nil, err
	}

	s := ComputeSettlement(SettlementInput{
		Price:          req.Price,
		Volume:         req.Volume,
		Funds:          req.Funds,
		MakerFee:       market.MakerFee,
		TakerFee:       market.TakerFee,
		MakerSide:      req.MakerSide,
		BasePrecision:  market.AmountPrecision,
		QuotePrecision: market.QuotePrecision(),
	})

	askHold := domain.AccountKey{MemberID: ask.MemberID, Currency: market.BaseUnit}
	askIncome := domain.AccountKey{MemberID: ask.MemberID, Currency: market.QuoteUnit}
	bidHold := domain.AccountKey{MemberID: bid.MemberID, Currency: market.QuoteUnit}
	bidIncome := domain.AccountKey{MemberID: bid.MemberID, Currency: market.BaseUnit}
	accounts, err := tx.LockAccounts(ctx, askHold, askIncome, bidHold, bidIncome)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}

	if err := accounts[askHold].SubLocked(s.AskDebit); err != nil {
		return nil, err
	}
	if err := accounts[bidHold].SubLocked(s.BidDebit); err != nil {
		return nil, err
	}
	if err := accounts[askIncome].Credit(s.AskCredit); err != nil {
		return nil, err
	}
	if err := accounts[bidIncome].Credit(s.BidCredit); err != nil {
		return nil, err
	}

	now := e.now()
	trade := &domain.Trade{
		ID:          e.newID(),
		MarketID:    market.ID,
		AskID:       ask.ID,
		BidID:       bid.ID,
		AskMemberID: ask.MemberID,
		BidMemberID: bid.MemberID,
		MakerSide:   req.MakerSide,
		Price:       req.Price,
		Volume:      req.Volume,
		Funds:       req.Funds,
		Trend:       market.TrendFor(req.Price),
		CreatedAt:   now,
	}
	market.LastPrice = req.Price
	if err := tx.SaveMarket(ctx, market); err != nil {
		return nil, fmt.Errorf("save market: %w", err)
	}
	if err := tx.InsertTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}

	fees := []struct {
		currency, member string
		amount           decimal.Decimal
	}{
		{market.QuoteUnit, ask.MemberID, s.AskFee},
		{market.BaseUnit, bid.MemberID, s.BidFee},
	}
	for _, f := range fees {
		if !f.amount.IsPositive() {
			continue
		}
		rev := &domain.Revenue{
			ID:        e.newID(),
			MarketID:  market.ID,
			TradeID:   trade.ID,
			Currency:  f.currency,
			MemberID:  f.member,
			Credit:    f.amount,
			CreatedAt: now,
		}
		if err := tx.InsertRevenue(ctx, rev); err != nil {
			return nil, fmt.Errorf("insert revenue: %w", err)
		}
	}

	if err := ask.Strike(req.Volume, s.AskDebit); err != nil {
		return nil, err
	}
	if err := bid.Strike(req.Volume, s.BidDebit); err != nil {
		return nil, err
	}

	// A limit bid reserved funds at its own price; the gap to the strike
	// price is no longer needed for the volume just filled.
	if bid.IsLimit() && req.Price.LessThan(bid.Price.Decimal) {
		unused := bid.Price.Decimal.Sub(req.Price).Mul(req.Volume)
		unused = domain.MinDecimal(unused, bid.Locked)
		if err := release(bid, accounts[bidHold], unused); err != nil {
			return nil, err
		}
	}

	if err := transition(ask, market, req.Price, accounts[askHold]); err != nil {
		return nil, err
	}
	if err := transition(bid, market, req.Price, accounts[bidHold]); err != nil {
		return nil, err
	}

	for _, o := range []*domain.Order{ask, bid} {
		o.UpdatedAt = now
		if err := tx.SaveOrder(ctx, o); err != nil {
			return nil, fmt.Errorf("save order %s: %w", o.ID, err)
		}
	}
	for _, a := range accounts {
		a.UpdatedAt = now
		if err := tx.SaveAccount(ctx, a); err != nil {
			return nil, fmt.Errorf("save account %s: %w", a.Key(), err)
		}
	}

	return &ExecutionResult{Trade: trade, Ask: ask, Bid: bid, Settlement: s}, nil
}

// transition closes an order that is filled, or a market order that can no
// longer pay for the smallest tradable volume, and returns its leftover
// reserve to the member.
func transition(o *domain.Order, m *domain.Market, price decimal.Decimal, hold *domain.Account) error {
	switch {
	case domain.IsExhausted(o.Volume):
		if err := release(o, hold, o.Locked); err != nil {
			return err
		}
		return o.MarkDone()
	case o.Type == domain.MarketOrder && starved(o, m, price):
		if err := release(o, hold, o.Locked); err != nil {
			return err
		}
		return o.MarkCancelled()
	}
	return nil
}

func starved(o *domain.Order, m *domain.Market, price decimal.Decimal) bool {
	need := m.MinAmount()
	if o.Side == domain.Bid {
		need = price.Mul(need)
	}
	return o.Locked.LessThan(need)
}

func release(o *domain.Order, hold *domain.Account, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	if err := o.ReleaseLocked(amount); err != nil {
		return err
	}
	return hold.Unlock(amount)
}

func (e *Executor) publish(ctx context.Context, t *domain.Trade) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishTrade(context.WithoutCancel(ctx), t.Payload()); err != nil {
		e.logger.Error("publish trade failed",
			zap.String("trade_id", t.ID),
			zap.String("market", t.MarketID),
			zap.Error(err),
		)
	}
}
