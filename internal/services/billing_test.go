package services

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	http "github.com/Danny-Dasilva/fhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stargift/internal/models"
)

// testBilling points the client at a local httptest server. The fingerprinted
// transport only speaks TLS, so tests swap in a plain one.
func testBilling(t *testing.T, handler nethttp.Handler) *ServiceBilling {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	service := newServiceBilling(server.URL)
	service.client = &http.Client{}
	return service
}

func TestLookupRecipientStars(t *testing.T) {
	var requests int
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests++
		assert.Equal(t, "/stars/recipient", r.URL.Path)
		assert.Equal(t, "alice", r.URL.Query().Get("username"))
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]string{
			"recipient": "r-123",
			"name":      "Alice",
			"photoUrl":  "https://cdn.example/alice.png",
		})
	}))

	recipient, err := service.LookupRecipient(context.Background(), models.ProductStars, "@alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", recipient.Handle)
	assert.Equal(t, "Alice", recipient.DisplayName)
	assert.Equal(t, "r-123", recipient.BillingID)
	require.NotNil(t, recipient.AvatarURL)
	assert.Equal(t, "https://cdn.example/alice.png", *recipient.AvatarURL)
	assert.Equal(t, 1, requests)
}

func TestLookupRecipientEmptyHandle(t *testing.T) {
	var requests int
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		requests++
	}))

	_, err := service.LookupRecipient(context.Background(), models.ProductStars, "  @ ")
	assert.ErrorIs(t, err, ErrInvalidHandle)
	assert.Equal(t, 0, requests)
}

func TestLookupRecipientFoundRule(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		//nolint:errcheck
		json.NewEncoder(w).Encode(map[string]string{"recipient": "r-123", "name": ""})
	}))

	// stars only needs a billable recipient id
	recipient, err := service.LookupRecipient(context.Background(), models.ProductStars, "alice")
	require.NoError(t, err)
	assert.Equal(t, "r-123", recipient.BillingID)

	// premium requires a display name too
	_, err = service.LookupRecipient(context.Background(), models.ProductPremium, "alice")
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestLookupRecipientEmptyBody(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		//nolint:errcheck
		w.Write([]byte(`{}`))
	}))

	_, err := service.LookupRecipient(context.Background(), models.ProductStars, "alice")
	assert.ErrorIs(t, err, ErrRecipientNotFound)
}

func TestLookupRecipientErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", nethttp.StatusNotFound, `{"message":"not found"}`, ErrRecipientNotFound},
		{"no users matched", nethttp.StatusBadRequest, `{"message":"No Telegram users found"}`, ErrRecipientNotFound},
		{"unassigned username", nethttp.StatusBadRequest, `{"error":"There is no username assigned to a user"}`, ErrRecipientNotFound},
		{"bad handle", nethttp.StatusBadRequest, `{"message":"username is too short"}`, ErrInvalidHandle},
		{"server down", nethttp.StatusBadGateway, ``, ErrServiceUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				w.WriteHeader(tc.status)
				//nolint:errcheck
				w.Write([]byte(tc.body))
			}))

			_, err := service.LookupRecipient(context.Background(), models.ProductStars, "alice")
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestQuoteTransaction(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, nethttp.MethodPost, r.Method)
		assert.Equal(t, "/stars/transaction", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "r-123", payload["recipient"])
		assert.Equal(t, float64(100), payload["quantity"])

		//nolint:errcheck
		w.Write([]byte(`{"message":{"address":"EQabc","amount":1495000000,"payload":"p"},"validUntil":1700000300}`))
	}))

	quote, err := service.QuoteTransaction(context.Background(), models.ProductStars, "r-123", 100)
	require.NoError(t, err)
	assert.Equal(t, "EQabc", quote.WalletAddress)
	assert.Equal(t, int64(1495000000), quote.AmountNano)
	assert.Equal(t, "p", quote.Payload)
	assert.Equal(t, int64(1700000300), quote.ValidUntil)
}

func TestQuoteTransactionPremiumMonths(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/premium/transaction", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(6), payload["months"])
		assert.NotContains(t, payload, "quantity")

		// amount arrives as a string on this route
		//nolint:errcheck
		w.Write([]byte(`{"message":{"address":"EQabc","amount":"12000000000"},"validUntil":1700000300}`))
	}))

	quote, err := service.QuoteTransaction(context.Background(), models.ProductPremium, "r-123", 6)
	require.NoError(t, err)
	assert.Equal(t, int64(12000000000), quote.AmountNano)
	assert.Equal(t, "", quote.Payload)
}

func TestQuoteTransactionMalformed(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing message", `{"validUntil":1700000300}`},
		{"missing address", `{"message":{"amount":500},"validUntil":1700000300}`},
		{"missing amount", `{"message":{"address":"EQabc"},"validUntil":1700000300}`},
		{"non-numeric amount", `{"message":{"address":"EQabc","amount":"lots"},"validUntil":1700000300}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
				//nolint:errcheck
				w.Write([]byte(tc.body))
			}))

			_, err := service.QuoteTransaction(context.Background(), models.ProductStars, "r-123", 100)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestQuoteTransactionServiceError(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusServiceUnavailable)
	}))

	_, err := service.QuoteTransaction(context.Background(), models.ProductStars, "r-123", 100)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestNetworkFee(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		assert.Equal(t, "/fee", r.URL.Path)
		//nolint:errcheck
		w.Write([]byte(`{"fee":0.1}`))
	}))

	fee, err := service.NetworkFee(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.1, fee)
}

func TestNetworkFeeUnavailable(t *testing.T) {
	service := testBilling(t, nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.WriteHeader(nethttp.StatusInternalServerError)
	}))

	_, err := service.NetworkFee(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}
