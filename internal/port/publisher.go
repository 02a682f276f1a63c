package port

import (
	"context"

	"github.com/olyamironova/trade-execution/internal/domain"
)

// Publisher announces committed trades. Delivery is best effort and sits
// outside the settlement transaction.
type Publisher interface {
	PublishTrade(ctx context.Context, p domain.TradePayload) error
}
