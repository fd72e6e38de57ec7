package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductKindValid(t *testing.T) {
	assert.True(t, ProductStars.Valid())
	assert.True(t, ProductPremium.Valid())
	assert.False(t, ProductKind("nft").Valid())
	assert.False(t, ProductKind("").Valid())
}

func TestDefaultIntent(t *testing.T) {
	stars := DefaultIntent(ProductStars)
	assert.Equal(t, DefaultStarsQuantity, stars.Amount)
	assert.Nil(t, stars.Recipient)

	premium := DefaultIntent(ProductPremium)
	assert.Equal(t, DefaultPremiumDuration, premium.Amount)
}

func TestValidPremiumDuration(t *testing.T) {
	for _, months := range PremiumDurations {
		assert.True(t, ValidPremiumDuration(months))
	}
	assert.False(t, ValidPremiumDuration(0))
	assert.False(t, ValidPremiumDuration(5))
	assert.False(t, ValidPremiumDuration(24))
}

func TestDisplayPriceUSD(t *testing.T) {
	assert.InDelta(t, 1.5, DisplayPriceUSD(ProductStars, 100, 0), 1e-9)
	assert.InDelta(t, 1.65, DisplayPriceUSD(ProductStars, 100, 0.1), 1e-9)
	assert.InDelta(t, 11.99, DisplayPriceUSD(ProductPremium, 3, 0), 1e-9)
	assert.Zero(t, DisplayPriceUSD(ProductPremium, 5, 0))
}

func TestRecipientQueryHandle(t *testing.T) {
	assert.Equal(t, "alice", RecipientQuery{RawHandle: " @alice "}.Handle())
	assert.Equal(t, "alice", RecipientQuery{RawHandle: "alice"}.Handle())
	assert.Equal(t, "", RecipientQuery{RawHandle: "  @ "}.Handle())
	assert.Equal(t, "", RecipientQuery{RawHandle: ""}.Handle())
}

func TestQuoteWalletRequest(t *testing.T) {
	quote := TransactionQuote{
		WalletAddress: "EQabc",
		AmountNano:    1495000000,
		Payload:       "p",
		ValidUntil:    1700000300,
	}

	assert.Equal(t, WalletTransaction{
		ValidUntil: 1700000300,
		Messages:   []WalletMessage{{Address: "EQabc", Amount: "1495000000", Payload: "p"}},
	}, quote.WalletRequest())
}
