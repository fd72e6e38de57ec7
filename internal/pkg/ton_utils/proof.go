package ton_utils

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"

	"stargift/internal/datastore/redis_store"
	"stargift/internal/models"

	"encoding/base64"
	"encoding/binary"
)

const (
	tonProofPrefix   = "ton-proof-item-v2/"
	tonConnectPrefix = "ton-connect"
	expirationTime   = 24 * 60 * 60
	nonceExpiration  = 6 * time.Hour
)

func nonceKey(address, nonce string) string {
	return fmt.Sprintf("nonce:%s:%s", address, nonce)
}

func SignatureVerify(pubkey ed25519.PublicKey, message, signature []byte) bool {
	return ed25519.Verify(pubkey, message, signature)
}

func ParseTonProofMessage(tp *models.TonProof) (*models.TonProofMessage, error) {
	var msg models.TonProofMessage

	addr, err := tongo.ParseAddress(tp.Address)
	if err != nil {
		return nil, err
	}
	sig, err := base64.StdEncoding.DecodeString(tp.Proof.Signature)
	if err != nil {
		return nil, err
	}

	msg.Workchain = addr.ID.Workchain
	msg.Address = addr.ID.Address[:]
	msg.Domain = tp.Proof.Domain
	msg.Timstamp = tp.Proof.Timestamp
	msg.Signature = sig
	msg.Payload = tp.Proof.Payload
	msg.StateInit = tp.Proof.StateInit
	return &msg, nil
}

func CreateMessage(message *models.TonProofMessage) ([]byte, error) {
	wc := make([]byte, 4)
	binary.BigEndian.PutUint32(wc, uint32(message.Workchain))

	ts := make([]byte, 8)
	binary.LittleEndian.PutUint64(ts, uint64(message.Timstamp))

	dl := make([]byte, 4)
	binary.LittleEndian.PutUint32(dl, message.Domain.LengthBytes)
	m := []byte(tonProofPrefix)
	m = append(m, wc...)
	m = append(m, message.Address...)
	m = append(m, dl...)
	m = append(m, []byte(message.Domain.Value)...)
	m = append(m, ts...)
	m = append(m, []byte(message.Payload)...)
	messageHash := sha256.Sum256(m)
	fullMes := []byte{0xff, 0xff}
	fullMes = append(fullMes, []byte(tonConnectPrefix)...)
	fullMes = append(fullMes, messageHash[:]...)
	res := sha256.Sum256(fullMes)
	return res[:], nil
}

// walletV1V3Data is the data cell layout shared by wallet contracts v1-v3.
type walletV1V3Data struct {
	Seqno     uint32
	PublicKey tlb.Bits256
}

// walletV4Data carries an extra subwallet id before the key.
type walletV4Data struct {
	Seqno       uint32
	SubWalletID uint32
	PublicKey   tlb.Bits256
}

// ParseStateInit extracts the wallet's ed25519 public key from the
// base64-encoded state init the client submits with its proof.
func ParseStateInit(stateInit string) (ed25519.PublicKey, error) {
	cells, err := boc.DeserializeBocBase64(stateInit)
	if err != nil {
		return nil, err
	}
	if len(cells) != 1 {
		return nil, errors.New("invalid state init boc")
	}

	var init tlb.StateInit
	if err := tlb.Unmarshal(cells[0], &init); err != nil {
		return nil, err
	}
	if !init.Data.Exists {
		return nil, errors.New("state init data is empty")
	}

	data := init.Data.Value.Value

	var v4 walletV4Data
	if err := tlb.Unmarshal(&data, &v4); err == nil {
		return v4.PublicKey[:], nil
	}

	data.ResetCounters()
	var v3 walletV1V3Data
	if err := tlb.Unmarshal(&data, &v3); err != nil {
		return nil, fmt.Errorf("unsupported wallet data layout: %w", err)
	}
	return v3.PublicKey[:], nil
}

// CompareStateInitWithAddress verifies the state init actually hashes to
// the claimed account address.
func CompareStateInitWithAddress(address tongo.AccountID, stateInit string) (bool, error) {
	cells, err := boc.DeserializeBocBase64(stateInit)
	if err != nil {
		return false, err
	}
	if len(cells) != 1 {
		return false, errors.New("invalid state init boc")
	}

	hash, err := cells[0].Hash()
	if err != nil {
		return false, err
	}

	return bytes.Equal(hash, address.Address[:]), nil
}

func CheckProof(ctx context.Context, dbRedis redis.UniversalClient, address tongo.AccountID, domain string, nonce string, tonProofReq *models.TonProofMessage) (bool, error) {
	if len(nonce) != 12 {
		return false, errors.New("invalid nonce")
	}

	if ok, err := CompareStateInitWithAddress(address, tonProofReq.StateInit); err != nil || !ok {
		return ok, err
	}

	pubKey, err := ParseStateInit(tonProofReq.StateInit)
	if err != nil {
		log.Printf("parse wallet state init error: %v\n", err)
		return false, err
	}

	if time.Now().After(time.Unix(tonProofReq.Timstamp, 0).Add(time.Duration(expirationTime) * time.Second)) {
		return false, errors.New("proof has been expired")
	}

	key := nonceKey(address.String(), nonce)
	n, err := redis_store.GetProofNonce(ctx, dbRedis, key)
	if err == nil && n != "" {
		return false, errors.New("used nonce")
	}

	err = redis_store.SetProofNonce(ctx, dbRedis, key, nonce, nonceExpiration)
	if err != nil {
		return false, err
	}

	if tonProofReq.Domain.Value != domain {
		return false, fmt.Errorf("wrong domain: %v", tonProofReq.Domain)
	}

	mes, err := CreateMessage(tonProofReq)
	if err != nil {
		return false, err
	}

	return SignatureVerify(pubKey, mes, tonProofReq.Signature), nil
}
