package services

import (
	"context"
	nethttp "net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stargift/internal/models"
)

type quoteStub struct {
	mu     sync.Mutex
	body   string
	quotes int
}

func (s *quoteStub) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	s.mu.Lock()
	s.quotes++
	body := s.body
	s.mu.Unlock()
	//nolint:errcheck
	w.Write([]byte(body))
}

func (s *quoteStub) quoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotes
}

func testPurchaseService(t *testing.T, stub *quoteStub) (*ServicePurchase, *fakeConnector) {
	t.Helper()

	billing := testBilling(t, stub)
	resolver := &ServiceResolver{
		billing:  billing,
		debounce: 20 * time.Millisecond,
		forms:    map[string]*RecipientResolver{},
	}
	connector := newFakeConnector()
	service := &ServicePurchase{
		billing:  billing,
		resolver: resolver,
		session:  NewWalletSession(connector),
		forms:    map[string]*purchaseForm{},
	}
	return service, connector
}

// primeFound puts a form's resolver straight into the found state, the way a
// completed lookup would.
func primeFound(service *ServicePurchase, userID int64, kind models.ProductKind, recipient *models.ResolvedRecipient) {
	form := service.resolver.Form(userID, kind)
	form.mu.Lock()
	form.seq++
	form.resolution = models.Resolution{State: models.ResolutionFound, Recipient: recipient}
	form.mu.Unlock()
}

func aliceRecipient() *models.ResolvedRecipient {
	return &models.ResolvedRecipient{Handle: "alice", DisplayName: "Alice", BillingID: "r-alice"}
}

func TestSubmitBuildsWalletRequestFromQuote(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":1495000000,"payload":"p"},"validUntil":1700000300}`}
	service, connector := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1, Username: "buyer"}

	primeFound(service, user.ID, models.ProductStars, aliceRecipient())
	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	result, err := service.submit(ctx, user, models.ProductStars, 100)
	require.NoError(t, err)

	// the quote rides to the wallet untouched, amount coerced to its wire
	// string form
	require.Equal(t, 1, connector.sentCount())
	assert.Equal(t, models.WalletTransaction{
		ValidUntil: 1700000300,
		Messages:   []models.WalletMessage{{Address: "EQabc", Amount: "1495000000", Payload: "p"}},
	}, connector.sent[0])

	require.NotNil(t, result.Purchase)
	assert.Equal(t, "alice", result.Purchase.Handle)
	assert.Equal(t, 100, result.Purchase.Amount)
	assert.Equal(t, int64(1495000000), result.Purchase.AmountNano)
	assert.Equal(t, "txhash", result.Purchase.TxHash)
	assert.Equal(t, "100 Stars sent to @alice", result.Status)
}

func TestSubmitSuccessResetsForm(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":500},"validUntil":1700000300}`}
	service, _ := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	primeFound(service, user.ID, models.ProductStars, aliceRecipient())
	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	_, err = service.submit(ctx, user, models.ProductStars, 250)
	require.NoError(t, err)

	assert.Equal(t, models.DefaultIntent(models.ProductStars), service.Intent(user.ID, models.ProductStars))
	assert.Equal(t, models.ResolutionIdle, service.resolver.Form(user.ID, models.ProductStars).Resolution().State)
}

func TestSubmitRequiresConnectedWallet(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":500},"validUntil":1700000300}`}
	service, connector := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	primeFound(service, user.ID, models.ProductStars, aliceRecipient())

	// never connected
	_, err := service.submit(ctx, user, models.ProductStars, 100)
	assert.ErrorIs(t, err, ErrNotConnected)

	// explicitly disconnected
	require.NoError(t, service.session.Disconnect(ctx))
	_, err = service.submit(ctx, user, models.ProductStars, 100)
	assert.ErrorIs(t, err, ErrNotConnected)

	// the wallet gate sits before the quote call
	assert.Equal(t, 0, stub.quoteCount())
	assert.Equal(t, 0, connector.sentCount())
}

func TestSubmitRequiresResolvedRecipient(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":500},"validUntil":1700000300}`}
	service, connector := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	_, err = service.submit(ctx, user, models.ProductStars, 100)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, stub.quoteCount())
	assert.Equal(t, 0, connector.sentCount())
}

func TestSubmitAmountValidation(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":500},"validUntil":1700000300}`}
	service, _ := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	primeFound(service, user.ID, models.ProductStars, aliceRecipient())
	primeFound(service, user.ID, models.ProductPremium, aliceRecipient())

	cases := []struct {
		kind   models.ProductKind
		amount int
	}{
		{models.ProductStars, 0},
		{models.ProductStars, -5},
		{models.ProductStars, models.MaxStarsQuantity + 1},
		{models.ProductPremium, 5},
		{models.ProductPremium, 0},
	}
	for _, tc := range cases {
		_, err := service.submit(ctx, user, tc.kind, tc.amount)
		assert.ErrorIs(t, err, ErrInvalidInput, "%s/%d", tc.kind, tc.amount)
	}

	_, err = service.submit(ctx, user, models.ProductKind("bogus"), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Equal(t, 0, stub.quoteCount())
}

func TestSubmitMalformedQuoteHaltsForm(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"amount":500},"validUntil":1700000300}`}
	service, connector := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	primeFound(service, user.ID, models.ProductStars, aliceRecipient())
	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	_, err = service.submit(ctx, user, models.ProductStars, 100)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 0, connector.sentCount())

	// the form stays halted, no second quote goes out until a reset
	_, err = service.submit(ctx, user, models.ProductStars, 100)
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 1, stub.quoteCount())

	intent := service.ResetForm(user.ID, models.ProductStars)
	assert.Equal(t, models.DefaultIntent(models.ProductStars), intent)
}

func TestSubmitWalletRejectionKeepsIntent(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":500},"validUntil":1700000300}`}
	service, connector := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	recipient := aliceRecipient()
	primeFound(service, user.ID, models.ProductStars, recipient)
	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	connector.sendErr = ErrWalletRejected
	_, err = service.submit(ctx, user, models.ProductStars, 500)
	assert.ErrorIs(t, err, ErrWalletRejected)

	// the user retries without re-entering anything
	intent := service.Intent(user.ID, models.ProductStars)
	assert.Equal(t, 500, intent.Amount)
	assert.Equal(t, recipient, intent.Recipient)
	assert.Equal(t, models.ResolutionFound, service.resolver.Form(user.ID, models.ProductStars).Resolution().State)

	connector.sendErr = nil
	result, err := service.submit(ctx, user, models.ProductStars, 500)
	require.NoError(t, err)
	assert.Equal(t, "500 Stars sent to @alice", result.Status)
	assert.Equal(t, models.DefaultIntent(models.ProductStars), service.Intent(user.ID, models.ProductStars))
}

func TestSubmitRefusesOverlap(t *testing.T) {
	ctx := context.Background()
	stub := &quoteStub{body: `{"message":{"address":"EQabc","amount":500},"validUntil":1700000300}`}
	service, connector := testPurchaseService(t, stub)
	user := &models.UserFromAuth{ID: 1}

	primeFound(service, user.ID, models.ProductStars, aliceRecipient())
	_, err := service.session.Connect(ctx)
	require.NoError(t, err)

	form := service.form(user.ID, models.ProductStars)
	service.mu.Lock()
	form.inFlight = true
	service.mu.Unlock()

	_, err = service.submit(ctx, user, models.ProductStars, 100)
	assert.ErrorIs(t, err, ErrSubmitInFlight)
	assert.Equal(t, 0, stub.quoteCount())
	assert.Equal(t, 0, connector.sentCount())

	service.mu.Lock()
	form.inFlight = false
	service.mu.Unlock()

	_, err = service.submit(ctx, user, models.ProductStars, 100)
	require.NoError(t, err)
}
