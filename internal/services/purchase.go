package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"stargift/internal/datastore"
	"stargift/internal/models"
)

// ServicePurchase drives one purchase end to end: validate the intent,
// fetch a quote, build the wallet request and push it through the wallet
// session. One form per (user, product); a form never runs two submits at
// once.
type ServicePurchase struct {
	container *do.Injector
	db        *bun.DB
	rs        *redsync.Redsync
	billing   *ServiceBilling
	resolver  *ServiceResolver
	session   *WalletSession
	bot       *Bot

	mu    sync.Mutex
	forms map[string]*purchaseForm
}

type purchaseForm struct {
	intent   models.PurchaseIntent
	inFlight bool
	// halted is set after the billing service breaks its quote contract;
	// further submits are refused until the user resets the form.
	halted bool
}

type SubmitResult struct {
	Status   string                `json:"status"`
	Purchase *models.Purchase      `json:"purchase"`
	Intent   models.PurchaseIntent `json:"intent"`
}

func NewServicePurchase(container *do.Injector) (*ServicePurchase, error) {
	billing, err := do.Invoke[*ServiceBilling](container)
	if err != nil {
		return nil, err
	}

	resolver, err := do.Invoke[*ServiceResolver](container)
	if err != nil {
		return nil, err
	}

	session, err := do.Invoke[*WalletSession](container)
	if err != nil {
		return nil, err
	}

	db, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	bot, err := do.Invoke[*Bot](container)
	if err != nil {
		return nil, err
	}

	return &ServicePurchase{
		container: container,
		db:        db,
		rs:        rs,
		billing:   billing,
		resolver:  resolver,
		session:   session,
		bot:       bot,
		forms:     map[string]*purchaseForm{},
	}, nil
}

func (service *ServicePurchase) form(userID int64, kind models.ProductKind) *purchaseForm {
	service.mu.Lock()
	defer service.mu.Unlock()

	key := formKey(userID, kind)
	form, ok := service.forms[key]
	if !ok {
		form = &purchaseForm{intent: models.DefaultIntent(kind)}
		service.forms[key] = form
	}
	return form
}

// Search forwards a keystroke to the recipient resolver. Typing again is
// the user's re-action after a contract break, so it also lifts the halt.
func (service *ServicePurchase) Search(ctx context.Context, userID int64, kind models.ProductKind, raw string) (models.Resolution, error) {
	resolution, err := service.resolver.Search(ctx, userID, kind, raw)
	if err != nil {
		return resolution, service.classify(err)
	}

	form := service.form(userID, kind)
	service.mu.Lock()
	form.halted = false
	form.intent.Recipient = resolution.Recipient
	service.mu.Unlock()

	return resolution, nil
}

// ResetForm clears the intent and resolver state for one form session.
func (service *ServicePurchase) ResetForm(userID int64, kind models.ProductKind) models.PurchaseIntent {
	service.resolver.Reset(userID, kind)

	form := service.form(userID, kind)
	service.mu.Lock()
	defer service.mu.Unlock()
	form.intent = models.DefaultIntent(kind)
	form.inFlight = false
	form.halted = false
	return form.intent
}

// Intent reports the form's current purchase intent.
func (service *ServicePurchase) Intent(userID int64, kind models.ProductKind) models.PurchaseIntent {
	form := service.form(userID, kind)
	service.mu.Lock()
	defer service.mu.Unlock()
	return form.intent
}

// Submit runs one purchase attempt: validate, quote, build, send. On
// success the form resets to defaults; on failure the intent stays put so
// the user retries without re-entering anything.
func (service *ServicePurchase) Submit(ctx context.Context, user *models.UserFromAuth, kind models.ProductKind, amount int) (*SubmitResult, error) {
	result, err := service.submit(ctx, user, kind, amount)
	if err != nil {
		return nil, service.classify(err)
	}
	return result, nil
}

func (service *ServicePurchase) submit(ctx context.Context, user *models.UserFromAuth, kind models.ProductKind, amount int) (*SubmitResult, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown product %q", ErrInvalidInput, kind)
	}

	form := service.form(user.ID, kind)

	service.mu.Lock()
	if form.inFlight {
		service.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if form.halted {
		service.mu.Unlock()
		return nil, fmt.Errorf("%w: reset the form to continue", ErrInvalidResponse)
	}
	form.inFlight = true
	service.mu.Unlock()

	defer func() {
		service.mu.Lock()
		form.inFlight = false
		service.mu.Unlock()
	}()

	if service.rs != nil {
		mutex := service.rs.NewMutex(LockKeyPurchase(user.ID, kind))
		if err := mutex.TryLock(); err != nil {
			return nil, ErrSubmitInFlight
		}
		// nolint:errcheck
		defer mutex.Unlock()
	}

	// 1. local validation, nothing reaches the network on failure
	resolution := service.resolver.Form(user.ID, kind).Resolution()
	if resolution.State != models.ResolutionFound || resolution.Recipient == nil {
		return nil, fmt.Errorf("%w: recipient not resolved", ErrInvalidInput)
	}
	recipient := resolution.Recipient

	switch kind {
	case models.ProductStars:
		if amount < models.MinStarsQuantity || amount > models.MaxStarsQuantity {
			return nil, fmt.Errorf("%w: stars quantity must be between %d and %d", ErrInvalidInput, models.MinStarsQuantity, models.MaxStarsQuantity)
		}
	case models.ProductPremium:
		if !models.ValidPremiumDuration(amount) {
			return nil, fmt.Errorf("%w: premium duration must be one of %v months", ErrInvalidInput, models.PremiumDurations)
		}
	}

	service.mu.Lock()
	form.intent = models.PurchaseIntent{Kind: kind, Amount: amount, Recipient: recipient}
	service.mu.Unlock()

	// 2. a disconnected wallet fails fast, before any billing call
	if service.session.Status().State != models.WalletConnected {
		return nil, fmt.Errorf("%w: connect the wallet first", ErrNotConnected)
	}

	// 3. quote; its amount is the only authoritative one, the display
	// price tables never reach the chain
	quote, err := service.billing.QuoteTransaction(ctx, kind, recipient.BillingID, amount)
	if err != nil {
		if errors.Is(err, ErrInvalidResponse) {
			service.mu.Lock()
			form.halted = true
			service.mu.Unlock()
		}
		return nil, err
	}

	// 4. build + send; the quote's expiry rides along untouched, the
	// chain enforces it
	hash, err := service.session.SendTransaction(ctx, quote.WalletRequest())
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		ID:         uuid.NewString(),
		UserID:     user.ID,
		Kind:       kind,
		Handle:     recipient.Handle,
		BillingID:  recipient.BillingID,
		Amount:     amount,
		AmountNano: quote.AmountNano,
		TxHash:     hash,
		CreatedAt:  time.Now().UTC(),
	}

	// the transfer is already on-chain; a bookkeeping failure must not
	// turn a successful purchase into an error
	if service.db != nil {
		if err := datastore.InsertPurchase(ctx, service.db, purchase); err != nil {
			fmt.Println("InsertPurchase", err)
		}
	}

	if service.bot != nil {
		go func() {
			//nolint:errcheck
			service.bot.SendPurchaseReceipt(user.ID, purchase)
		}()
	}

	service.resolver.Reset(user.ID, kind)
	service.mu.Lock()
	form.intent = models.DefaultIntent(kind)
	service.mu.Unlock()

	return &SubmitResult{
		Status:   successMessage(purchase),
		Purchase: purchase,
		Intent:   models.DefaultIntent(kind),
	}, nil
}

// History lists the user's completed purchases.
func (service *ServicePurchase) History(ctx context.Context, userID int64, page, limit int) ([]models.Purchase, int, error) {
	if service.db == nil {
		return nil, 0, nil
	}

	purchases, err := datastore.GetPurchasesByUser(ctx, service.db, userID, page, limit)
	if err != nil {
		return nil, 0, errorx.Wrap(err, errorx.Service)
	}

	count, err := datastore.CountPurchasesByUser(ctx, service.db, userID)
	if err != nil {
		return nil, 0, errorx.Wrap(err, errorx.Service)
	}

	return purchases, count, nil
}

func successMessage(purchase *models.Purchase) string {
	if purchase.Kind == models.ProductPremium {
		return fmt.Sprintf("Premium %d months sent to @%s", purchase.Amount, purchase.Handle)
	}
	return fmt.Sprintf("%d Stars sent to @%s", purchase.Amount, purchase.Handle)
}

// classify maps the pipeline taxonomy onto errorx kinds so the HTTP
// boundary renders them consistently.
func (service *ServicePurchase) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidHandle):
		return errorx.Wrap(err, errorx.Validation)
	case errors.Is(err, ErrRecipientNotFound):
		return errorx.Wrap(err, errorx.NotExist)
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrConnectorFatal):
		return errorx.Wrap(err, errorx.Service)
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrWalletRejected), errors.Is(err, ErrSubmitInFlight):
		return errorx.Wrap(err, errorx.Invalid)
	default:
		return errorx.Wrap(err, errorx.Other)
	}
}
