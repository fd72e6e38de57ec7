package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Danny-Dasilva/CycleTLS/cycletls"
	http "github.com/Danny-Dasilva/fhttp"
	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"

	"stargift/internal/datastore/redis_store"
	"stargift/internal/models"
)

const ja3 = "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-17513,29-23-24,0"

// ServiceBilling is the stateless client for the remote billing service:
// recipient lookup, transaction quotes and the network fee ratio.
type ServiceBilling struct {
	baseURL   string
	userAgent string
	client    *http.Client
	feeClient *httpclient.Client
	redisDB   redis.UniversalClient
}

func NewServiceBilling(container *do.Injector) (*ServiceBilling, error) {
	vs, err := do.InvokeNamed[map[string]string](container, "envs")
	if err != nil {
		return nil, err
	}

	// the fee cache is optional, one-shot tools run without redis
	redisDB, _ := do.InvokeNamed[redis.UniversalClient](container, "redis-db")

	baseURL := vs["BILLING_BASE_URL"]
	if baseURL == "" {
		baseURL = BILLING_DEFAULT_BASE_URL
	}

	service := newServiceBilling(baseURL)
	service.redisDB = redisDB
	return service, nil
}

func newServiceBilling(baseURL string) *ServiceBilling {
	return &ServiceBilling{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: BILLING_USER_AGENT,
		client: &http.Client{
			Transport: cycletls.NewTransport(ja3, BILLING_USER_AGENT),
		},
		feeClient: httpclient.NewClient(httpclient.WithHTTPTimeout(5 * time.Second)),
	}
}

type recipientResponse struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	PhotoURL  string `json:"photoUrl"`
}

type billingError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e billingError) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type quoteResponse struct {
	Message *struct {
		Address string      `json:"address"`
		Amount  json.Number `json:"amount"`
		Payload string      `json:"payload"`
	} `json:"message"`
	ValidUntil int64 `json:"validUntil"`
}

type feeResponse struct {
	Fee float64 `json:"fee"`
}

func (service *ServiceBilling) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	req, err := http.NewRequest(method, service.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, err.Error())
	}
	req = req.WithContext(ctx)

	req.Header.Set("accept", "application/json")
	req.Header.Set("user-agent", service.userAgent)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	res, err := service.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, err.Error())
	}
	defer res.Body.Close()

	responseText, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, err.Error())
	}

	return res.StatusCode, responseText, nil
}

// LookupRecipient resolves a handle into a billable recipient. The handle
// must be non-empty after stripping any leading @.
func (service *ServiceBilling) LookupRecipient(ctx context.Context, kind models.ProductKind, handle string) (*models.ResolvedRecipient, error) {
	handle = models.RecipientQuery{RawHandle: handle}.Handle()
	if handle == "" {
		return nil, fmt.Errorf("%w: empty handle", ErrInvalidHandle)
	}

	path := fmt.Sprintf("/%s/recipient?username=%s", kind, url.QueryEscape(handle))
	status, body, err := service.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		var apiErr billingError
		//nolint:errcheck
		json.Unmarshal(body, &apiErr)
		return nil, classifyLookupError(status, apiErr.text(), handle)
	}

	var data recipientResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, err.Error())
	}

	// The service sometimes answers 200 with empty fields instead of 404.
	// Stars only needs a billable recipient id; premium additionally
	// requires a display name before the match counts.
	if data.Recipient == "" || (kind == models.ProductPremium && data.Name == "") {
		return nil, fmt.Errorf("%w: @%s", ErrRecipientNotFound, handle)
	}

	recipient := &models.ResolvedRecipient{
		Handle:      handle,
		DisplayName: data.Name,
		BillingID:   data.Recipient,
	}
	if data.PhotoURL != "" {
		photo := data.PhotoURL
		recipient.AvatarURL = &photo
	}
	return recipient, nil
}

func classifyLookupError(status int, message, handle string) error {
	switch {
	case status == nethttp.StatusNotFound:
		return fmt.Errorf("%w: @%s", ErrRecipientNotFound, handle)
	case status == nethttp.StatusBadRequest:
		if strings.Contains(message, "username assigned to a user") ||
			strings.Contains(message, "No Telegram users found") {
			return fmt.Errorf("%w: @%s", ErrRecipientNotFound, handle)
		}
		return fmt.Errorf("%w: %s", ErrInvalidHandle, handle)
	default:
		if message == "" {
			message = fmt.Sprintf("HTTP %d", status)
		}
		return fmt.Errorf("%w: %s", ErrServiceUnavailable, message)
	}
}

// QuoteTransaction asks the billing service to price one purchase. The
// returned descriptor is consumed exactly once and never cached; its
// amount is the authoritative on-chain amount.
func (service *ServiceBilling) QuoteTransaction(ctx context.Context, kind models.ProductKind, billingID string, amount int) (*models.TransactionQuote, error) {
	payload := map[string]any{"recipient": billingID}
	switch kind {
	case models.ProductStars:
		payload["quantity"] = amount
	case models.ProductPremium:
		payload["months"] = amount
	default:
		return nil, fmt.Errorf("%w: unknown product %q", ErrInvalidInput, kind)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}

	status, responseText, err := service.doRequest(ctx, http.MethodPost, fmt.Sprintf("/%s/transaction", kind), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		var apiErr billingError
		//nolint:errcheck
		json.Unmarshal(responseText, &apiErr)
		message := apiErr.text()
		if message == "" {
			message = fmt.Sprintf("HTTP %d", status)
		}
		return nil, fmt.Errorf("%w: %s", ErrServiceUnavailable, message)
	}

	var data quoteResponse
	if err := json.Unmarshal(responseText, &data); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, err.Error())
	}

	// never assume the descriptor shape, the service has shipped partial
	// payloads before
	if data.Message == nil {
		return nil, fmt.Errorf("%w: missing message", ErrInvalidResponse)
	}
	if data.Message.Address == "" {
		return nil, fmt.Errorf("%w: missing wallet address", ErrInvalidResponse)
	}
	if data.Message.Amount.String() == "" {
		return nil, fmt.Errorf("%w: missing amount", ErrInvalidResponse)
	}

	amountNano, err := data.Message.Amount.Int64()
	if err != nil {
		return nil, fmt.Errorf("%w: bad amount %q", ErrInvalidResponse, data.Message.Amount.String())
	}

	return &models.TransactionQuote{
		WalletAddress: data.Message.Address,
		AmountNano:    amountNano,
		Payload:       data.Message.Payload,
		ValidUntil:    data.ValidUntil,
	}, nil
}

// NetworkFee fetches the current fee ratio. Best effort: callers treat an
// error as "fee unknown", never as fatal.
func (service *ServiceBilling) NetworkFee(ctx context.Context) (float64, error) {
	headers := nethttp.Header{}
	headers.Set("accept", "application/json")

	res, err := service.feeClient.Get(service.baseURL+"/fee", headers)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrServiceUnavailable, err.Error())
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return 0, fmt.Errorf("%w: HTTP %d", ErrServiceUnavailable, res.StatusCode)
	}

	var data feeResponse
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidResponse, err.Error())
	}

	return data.Fee, nil
}

// CachedNetworkFee reads the fee through redis so keystroke-frequency
// callers do not hammer the billing service. Misses fall back to a live
// fetch; the cron keeps the cache warm.
func (service *ServiceBilling) CachedNetworkFee(ctx context.Context) (float64, error) {
	if service.redisDB != nil {
		cached, err := redis_store.GetNetworkFee(ctx, service.redisDB)
		if err == nil {
			return cached.Ratio, nil
		}
	}

	ratio, err := service.NetworkFee(ctx)
	if err != nil {
		return 0, err
	}

	if service.redisDB != nil {
		//nolint:errcheck
		redis_store.SetNetworkFee(ctx, service.redisDB, &redis_store.NetworkFee{
			Ratio:     ratio,
			FetchedAt: time.Now().UTC(),
		}, CACHE_TTL_5_MINS)
	}

	return ratio, nil
}
