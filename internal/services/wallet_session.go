package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stargift/internal/interfaces"
	"stargift/internal/models"
)

// WalletSession owns the single process-wide connection to the external
// wallet. All mutation funnels through its methods; every other component
// observes via Subscribe. Operations are serialized, there is never more
// than one connect or send in flight.
type WalletSession struct {
	connector interfaces.WalletConnector

	opMu sync.Mutex // serializes connect/disconnect/send

	mu      sync.RWMutex // guards status + subscribers
	status  models.WalletStatus
	subs    map[int]chan models.WalletStatus
	nextSub int
}

func NewWalletSession(connector interfaces.WalletConnector) *WalletSession {
	return &WalletSession{
		connector: connector,
		status:    models.WalletStatus{State: models.WalletUninitialized},
		subs:      map[int]chan models.WalletStatus{},
	}
}

// Status returns the current connection status.
func (s *WalletSession) Status() models.WalletStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Subscribe registers for status broadcasts. The returned cancel func
// must be called when the consumer goes away.
func (s *WalletSession) Subscribe() (<-chan models.WalletStatus, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan models.WalletStatus, 16)
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *WalletSession) setStatus(state models.WalletState, account *models.WalletAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = models.WalletStatus{State: state, Account: account}
	for _, ch := range s.subs {
		select {
		case ch <- s.status:
		default: // slow consumer, it can re-read Status()
		}
	}
}

// Connect opens the wallet authorization flow. A no-op when a connection
// already exists; concurrent callers queue up and get the existing
// connection rather than a second one.
func (s *WalletSession) Connect(ctx context.Context) (*models.WalletAccount, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if status := s.Status(); status.State.Active() {
		return status.Account, nil
	}

	s.setStatus(models.WalletConnecting, nil)

	account, err := s.connector.Connect(ctx)
	if err != nil {
		if errors.Is(err, ErrConnectorFatal) {
			s.setStatus(models.WalletError, nil)
		} else {
			s.setStatus(models.WalletDisconnected, nil)
		}
		return nil, err
	}

	s.setStatus(models.WalletConnected, account)
	return account, nil
}

// Disconnect drops the connection and clears the cached account. Also the
// way out of the error state.
func (s *WalletSession) Disconnect(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	var err error
	if s.Status().State.Active() {
		err = s.connector.Disconnect(ctx)
	}
	s.setStatus(models.WalletDisconnected, nil)
	return err
}

// SendTransaction submits a wallet transaction request. Only valid while
// connected; a declined transaction keeps the connection, only an
// unrecoverable connector failure drops the session into its error state.
func (s *WalletSession) SendTransaction(ctx context.Context, tx models.WalletTransaction) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	status := s.Status()
	if status.State != models.WalletConnected {
		return "", fmt.Errorf("%w: session is %s", ErrNotConnected, status.State)
	}

	s.setStatus(models.WalletSending, status.Account)

	hash, err := s.connector.SendTransaction(ctx, tx)
	if err != nil {
		if errors.Is(err, ErrConnectorFatal) {
			s.setStatus(models.WalletError, status.Account)
			return "", err
		}
		s.setStatus(models.WalletConnected, status.Account)
		return "", fmt.Errorf("%w: %s", ErrWalletRejected, err.Error())
	}

	s.setStatus(models.WalletConnected, status.Account)
	return hash, nil
}
