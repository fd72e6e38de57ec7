package models

// WalletState is the wallet session's connection state machine.
type WalletState string

const (
	WalletUninitialized WalletState = "uninitialized"
	WalletDisconnected  WalletState = "disconnected"
	WalletConnecting    WalletState = "connecting"
	WalletConnected     WalletState = "connected"
	WalletSending       WalletState = "sending"
	WalletError         WalletState = "error"
)

// Active reports whether the session holds a usable connection.
func (s WalletState) Active() bool {
	return s == WalletConnected || s == WalletSending
}

// WalletAccount identifies the connected wallet.
type WalletAccount struct {
	Address string `json:"address"`
	Chain   string `json:"chain,omitempty"`
	AppName string `json:"app_name,omitempty"`
}

// WalletStatus is what the session broadcasts to subscribers on every
// state change.
type WalletStatus struct {
	State   WalletState    `json:"state"`
	Account *WalletAccount `json:"account,omitempty"`
}

type TonDomain struct {
	LengthBytes uint32 `json:"lengthBytes"`
	Value       string `json:"value"`
}

type TonMessageInfo struct {
	Timestamp int64     `json:"timestamp"`
	Domain    TonDomain `json:"domain"`
	Signature string    `json:"signature"`
	Payload   string    `json:"payload"`
	StateInit string    `json:"state_init"`
}

// TonProof is the TON Connect ownership proof a client submits when
// attaching its wallet.
type TonProof struct {
	Address string         `json:"address"`
	Nonce   string         `json:"nonce"`
	Proof   TonMessageInfo `json:"proof"`
}

type TonProofMessage struct {
	Workchain int32
	Address   []byte
	Timstamp  int64
	Domain    TonDomain
	Signature []byte
	Payload   string
	StateInit string
}
