package models

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// PurchaseIntent is one form session: what the user is about to buy and for
// whom. Reset after a successful submit or when the recipient/product
// changes.
type PurchaseIntent struct {
	Kind      ProductKind        `json:"kind"`
	Amount    int                `json:"amount"` // stars quantity or premium months
	Recipient *ResolvedRecipient `json:"recipient"`
}

func DefaultIntent(kind ProductKind) PurchaseIntent {
	amount := DefaultStarsQuantity
	if kind == ProductPremium {
		amount = DefaultPremiumDuration
	}
	return PurchaseIntent{Kind: kind, Amount: amount}
}

// TransactionQuote is a short-lived transaction descriptor issued by the
// billing service for exactly one submit attempt. Never cached, never
// reused; the wallet/chain rejects it past ValidUntil.
type TransactionQuote struct {
	WalletAddress string `json:"wallet_address"`
	AmountNano    int64  `json:"amount_nano"`
	Payload       string `json:"payload,omitempty"`
	ValidUntil    int64  `json:"valid_until"`
}

// WalletMessage is a single transfer inside a wallet transaction request.
// Amount is the nano amount in its wire string form.
type WalletMessage struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Payload string `json:"payload,omitempty"`
}

// WalletTransaction is the request shape the wallet connector expects.
type WalletTransaction struct {
	ValidUntil int64           `json:"validUntil"`
	Messages   []WalletMessage `json:"messages"`
}

// WalletRequest maps a quote 1:1 onto a wallet transaction request.
func (q TransactionQuote) WalletRequest() WalletTransaction {
	return WalletTransaction{
		ValidUntil: q.ValidUntil,
		Messages: []WalletMessage{
			{
				Address: q.WalletAddress,
				Amount:  strconv.FormatInt(q.AmountNano, 10),
				Payload: q.Payload,
			},
		},
	}
}

// Purchase is the persisted record of a completed purchase.
type Purchase struct {
	bun.BaseModel `bun:"table:purchase"`
	ID            string      `bun:"id,pk" json:"id"`
	UserID        int64       `bun:"user_id" json:"user_id"`
	Kind          ProductKind `bun:"kind" json:"kind"`
	Handle        string      `bun:"handle" json:"handle"`
	BillingID     string      `bun:"billing_id" json:"-"`
	Amount        int         `bun:"amount" json:"amount"`
	AmountNano    int64       `bun:"amount_nano" json:"amount_nano"`
	TxHash        string      `bun:"tx_hash" json:"tx_hash"`
	CreatedAt     time.Time   `bun:"created_at,default:current_timestamp" json:"created_at"`
}
