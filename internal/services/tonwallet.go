package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
	"github.com/tonkeeper/tongo/wallet"

	"stargift/internal/models"
)

const sendConfirmationWait = 15 * time.Second

// TonConnector drives the treasury TON wallet through tongo's liteapi.
// It implements interfaces.WalletConnector; the wallet session is the
// only caller.
type TonConnector struct {
	seed string

	mu     sync.Mutex
	client *liteapi.Client
	wallet *wallet.Wallet
}

func NewTonConnector(seed string) *TonConnector {
	return &TonConnector{seed: seed}
}

func (c *TonConnector) Connect(ctx context.Context) (*models.WalletAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wallet == nil {
		client, err := liteapi.NewClientWithDefaultMainnet()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConnectorFatal, err.Error())
		}

		w, err := wallet.DefaultWalletFromSeed(c.seed, client)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrConnectorFatal, err.Error())
		}

		c.client = client
		c.wallet = &w
	}

	// a dead lite server connection shows up here, not at send time
	if _, err := c.wallet.GetBalance(ctx); err != nil {
		return nil, fmt.Errorf("wallet unavailable: %s", err.Error())
	}

	return &models.WalletAccount{
		Address: c.wallet.GetAddress().String(),
		Chain:   "-239",
		AppName: "treasury",
	}, nil
}

func (c *TonConnector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client = nil
	c.wallet = nil
	return nil
}

func (c *TonConnector) SendTransaction(ctx context.Context, tx models.WalletTransaction) (string, error) {
	c.mu.Lock()
	w := c.wallet
	c.mu.Unlock()

	if w == nil {
		return "", fmt.Errorf("%w: no wallet", ErrConnectorFatal)
	}

	messages := make([]wallet.Sendable, 0, len(tx.Messages))
	for _, m := range tx.Messages {
		message, err := buildTonMessage(m)
		if err != nil {
			return "", err
		}
		messages = append(messages, message)
	}

	hash, err := w.SendV2(ctx, sendConfirmationWait, messages...)
	if err != nil {
		return "", fmt.Errorf("send error: %s", err.Error())
	}

	return hash.Hex(), nil
}

func buildTonMessage(m models.WalletMessage) (wallet.Message, error) {
	address, err := ton.ParseAccountID(m.Address)
	if err != nil {
		return wallet.Message{}, fmt.Errorf("bad destination address: %s", err.Error())
	}

	amount, err := strconv.ParseInt(m.Amount, 10, 64)
	if err != nil {
		return wallet.Message{}, fmt.Errorf("bad amount %q: %s", m.Amount, err.Error())
	}

	var body *boc.Cell
	if m.Payload != "" {
		raw, err := base64.StdEncoding.DecodeString(m.Payload)
		if err != nil {
			raw, err = base64.RawStdEncoding.DecodeString(m.Payload)
		}
		if err != nil {
			return wallet.Message{}, fmt.Errorf("decode payload error: %s", err.Error())
		}

		cells, err := boc.DeserializeBoc(raw)
		if err != nil {
			return wallet.Message{}, fmt.Errorf("deserialize BOC error: %s", err.Error())
		}
		if len(cells) < 1 {
			return wallet.Message{}, fmt.Errorf("empty payload BOC")
		}
		body = cells[0]
	}

	return wallet.Message{
		Amount:  tlb.Grams(amount),
		Address: address,
		Body:    body,
		Code:    nil,
		Data:    nil,
		Bounce:  false,
		Mode:    3,
	}, nil
}
