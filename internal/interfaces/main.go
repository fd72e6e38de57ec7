package interfaces

import (
	"context"

	"github.com/go-redis/redis_rate/v10"

	"stargift/internal/models"
)

type Limiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) error
}

// WalletConnector is the boundary to the external wallet SDK. The wallet
// session owns the only instance; nothing else talks to the wallet.
type WalletConnector interface {
	// Connect opens the wallet authorization flow and blocks until the
	// user approves or declines.
	Connect(ctx context.Context) (*models.WalletAccount, error)
	Disconnect(ctx context.Context) error
	// SendTransaction submits the request and returns a transaction
	// handle (hash) on approval.
	SendTransaction(ctx context.Context, tx models.WalletTransaction) (string, error)
}
