package in_memory

import (
	"context"
	"sync"

	"github.com/olyamironova/trade-execution/internal/domain"
	"github.com/olyamironova/trade-execution/internal/port"
)

var _ port.Publisher = (*Publisher)(nil)

// Publisher keeps published payloads in memory. Set Err to make every
// publish fail.
type Publisher struct {
	mu       sync.Mutex
	payloads []domain.TradePayload
	latest   map[string]domain.TradePayload
	limit    int
	Err      error
}

// NewPublisher keeps every payload. Meant for tests.
func NewPublisher() *Publisher {
	return &Publisher{latest: make(map[string]domain.TradePayload)}
}

// NewBoundedPublisher keeps only the newest limit payloads, plus the latest
// trade per market.
func NewBoundedPublisher(limit int) *Publisher {
	p := NewPublisher()
	p.limit = limit
	return p
}

func (p *Publisher) PublishTrade(ctx context.Context, payload domain.TradePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.payloads = append(p.payloads, payload)
	if p.limit > 0 && len(p.payloads) > p.limit {
		n := copy(p.payloads, p.payloads[len(p.payloads)-p.limit:])
		clear(p.payloads[n:])
		p.payloads = p.payloads[:n]
	}
	p.latest[payload.MarketID] = payload
	return nil
}

func (p *Publisher) Payloads() []domain.TradePayload {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.TradePayload, len(p.payloads))
	copy(out, p.payloads)
	return out
}

// LatestTrade returns the last payload published for market, or nil.
func (p *Publisher) LatestTrade(ctx context.Context, market string) (*domain.TradePayload, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	payload, ok := p.latest[market]
	if !ok {
		return nil, nil
	}
	return &payload, nil
}
