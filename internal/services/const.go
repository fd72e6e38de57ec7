package services

import (
	"errors"
	"fmt"
	"time"

	"stargift/internal/models"
)

// Purchase pipeline failure taxonomy. Everything the orchestrator reports
// is one of these; nothing leaves it unclassified.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidHandle      = errors.New("invalid recipient handle")
	ErrRecipientNotFound  = errors.New("recipient not found")
	ErrServiceUnavailable = errors.New("billing service unavailable")
	ErrInvalidResponse    = errors.New("malformed billing response")
	ErrNotConnected       = errors.New("wallet not connected")
	ErrWalletRejected     = errors.New("wallet rejected the transaction")
	ErrSubmitInFlight     = errors.New("purchase already in progress")

	// ErrConnectorFatal marks an unrecoverable wallet SDK failure, the
	// session drops to its error state instead of staying connected.
	ErrConnectorFatal = errors.New("wallet connector failure")
)

const (
	CONFIG_RESOLVER_DEBOUNCE_MS  = "RESOLVER_DEBOUNCE_MS"
	CONFIG_FEE_CACHE_TTL_SECONDS = "FEE_CACHE_TTL_SECONDS"

	DEFAULT_RESOLVER_DEBOUNCE_MS  = 500
	DEFAULT_FEE_CACHE_TTL_SECONDS = 300

	CACHE_TTL_5_MINS = 5 * time.Minute

	BILLING_DEFAULT_BASE_URL = "https://api.rhombis.app"

	// the billing service expects a browser profile; requests without one
	// get bounced
	BILLING_USER_AGENT = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36"

	SEARCH_RATE_LIMIT_PER_MINUTE = 30
)

func LockKeyPurchase(userID int64, kind models.ProductKind) string {
	return fmt.Sprintf("purchase:lock:%d:%s", userID, kind)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", key)
}

func formKey(userID int64, kind models.ProductKind) string {
	return fmt.Sprintf("%d:%s", userID, kind)
}
