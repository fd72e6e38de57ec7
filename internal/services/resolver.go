package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/samber/do"

	"stargift/internal/interfaces"
	"stargift/internal/models"
)

const lookupTimeout = 10 * time.Second

// RecipientLookup is the slice of the billing client the resolver needs.
type RecipientLookup interface {
	LookupRecipient(ctx context.Context, kind models.ProductKind, handle string) (*models.ResolvedRecipient, error)
}

type ResolverConfig struct {
	Kind models.ProductKind
	// Debounce is the window of input inactivity before a lookup is
	// dispatched.
	Debounce time.Duration
	// MinHandleLen gates dispatch; shorter handles never reach the
	// network.
	MinHandleLen int
}

func DefaultResolverConfig(kind models.ProductKind) ResolverConfig {
	minLen := models.MinPremiumHandleLen
	if kind == models.ProductStars {
		minLen = models.MinStarsHandleLen
	}
	return ResolverConfig{
		Kind:         kind,
		Debounce:     DEFAULT_RESOLVER_DEBOUNCE_MS * time.Millisecond,
		MinHandleLen: minLen,
	}
}

// RecipientResolver turns a stream of keystrokes into at most one
// in-flight recipient lookup. Every keystroke bumps a sequence number;
// only the response matching the latest sequence may update state, so a
// slow earlier response can never clobber a newer one.
type RecipientResolver struct {
	cfg    ResolverConfig
	lookup RecipientLookup

	mu         sync.Mutex
	timer      *time.Timer
	seq        uint64
	resolution models.Resolution
}

func NewRecipientResolver(cfg ResolverConfig, lookup RecipientLookup) *RecipientResolver {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DEFAULT_RESOLVER_DEBOUNCE_MS * time.Millisecond
	}
	if cfg.MinHandleLen <= 0 {
		cfg.MinHandleLen = models.MinPremiumHandleLen
	}
	return &RecipientResolver{
		cfg:        cfg,
		lookup:     lookup,
		resolution: models.Resolution{State: models.ResolutionIdle},
	}
}

// Input feeds one keystroke's worth of text. A pending dispatch is
// cancelled outright; an in-flight one is invalidated so its late
// response gets dropped.
func (r *RecipientResolver) Input(raw string) {
	handle := models.RecipientQuery{RawHandle: raw}.Handle()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.seq++

	if len(handle) < r.cfg.MinHandleLen {
		r.resolution = models.Resolution{State: models.ResolutionIdle}
		return
	}

	seq := r.seq
	r.resolution = models.Resolution{State: models.ResolutionSearching}
	r.timer = time.AfterFunc(r.cfg.Debounce, func() {
		r.dispatch(seq, handle)
	})
}

func (r *RecipientResolver) dispatch(seq uint64, handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	recipient, err := r.lookup.LookupRecipient(ctx, r.cfg.Kind, handle)

	r.mu.Lock()
	defer r.mu.Unlock()

	// a newer keystroke owns the state now
	if seq != r.seq {
		return
	}

	if err != nil {
		r.resolution = models.Resolution{State: models.ResolutionNotFound}
		return
	}

	r.resolution = models.Resolution{State: models.ResolutionFound, Recipient: recipient}
}

// Resolution returns the current state; the recipient pointer is replaced
// wholesale on every resolution, never mutated.
func (r *RecipientResolver) Resolution() models.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolution
}

func (r *RecipientResolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.seq++
	r.resolution = models.Resolution{State: models.ResolutionIdle}
}

// ServiceResolver hands out one RecipientResolver per (user, product)
// form session and rate limits the keystroke stream.
type ServiceResolver struct {
	container *do.Injector
	billing   *ServiceBilling
	limiter   interfaces.Limiter
	debounce  time.Duration

	mu    sync.Mutex
	forms map[string]*RecipientResolver
}

func NewServiceResolver(container *do.Injector) (*ServiceResolver, error) {
	billing, err := do.Invoke[*ServiceBilling](container)
	if err != nil {
		return nil, err
	}

	limiter, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	debounce := time.Duration(DEFAULT_RESOLVER_DEBOUNCE_MS) * time.Millisecond
	if serviceConfig, err := do.Invoke[*ServiceConfig](container); err == nil {
		ms, _ := serviceConfig.GetIntConfig(context.Background(), CONFIG_RESOLVER_DEBOUNCE_MS, DEFAULT_RESOLVER_DEBOUNCE_MS)
		debounce = time.Duration(ms) * time.Millisecond
	}

	return &ServiceResolver{
		container: container,
		billing:   billing,
		limiter:   limiter,
		debounce:  debounce,
		forms:     map[string]*RecipientResolver{},
	}, nil
}

func (service *ServiceResolver) Form(userID int64, kind models.ProductKind) *RecipientResolver {
	service.mu.Lock()
	defer service.mu.Unlock()

	key := formKey(userID, kind)
	form, ok := service.forms[key]
	if !ok {
		cfg := DefaultResolverConfig(kind)
		cfg.Debounce = service.debounce
		form = NewRecipientResolver(cfg, service.billing)
		service.forms[key] = form
	}
	return form
}

// Search records one keystroke and reports the form's current resolution
// state. The eventual lookup happens after the debounce window, callers
// poll or re-search to observe the outcome.
func (service *ServiceResolver) Search(ctx context.Context, userID int64, kind models.ProductKind, raw string) (models.Resolution, error) {
	if !kind.Valid() {
		return models.Resolution{}, fmt.Errorf("%w: unknown product %q", ErrInvalidInput, kind)
	}

	if service.limiter != nil {
		key := fmt.Sprintf("recipient_search:%d", userID)
		if err := service.limiter.Allow(ctx, key, redis_rate.PerMinute(SEARCH_RATE_LIMIT_PER_MINUTE)); err != nil {
			return models.Resolution{}, err
		}
	}

	form := service.Form(userID, kind)
	form.Input(raw)
	return form.Resolution(), nil
}

func (service *ServiceResolver) Reset(userID int64, kind models.ProductKind) {
	service.Form(userID, kind).Reset()
}
