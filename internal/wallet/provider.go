// Package wallet replaces a browser wallet extension: a key-backed account
// provider with change notifications, a signer for contract calls and the
// session that remembers which account the user connected.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docverify/internal/common"
	"github.com/dmitrijs2005/docverify/internal/ledger"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
)

var ErrNoAccount = errors.New("no account loaded")

// Provider is the account source the application talks to.
type Provider interface {
	// RequestAccounts asks the user to authorize the application.
	RequestAccounts(ctx context.Context) ([]ethcommon.Address, error)
	// Accounts lists authorized accounts without prompting.
	Accounts(ctx context.Context) ([]ethcommon.Address, error)
	SubscribeAccounts(ch chan<- []ethcommon.Address) event.Subscription
	Signer(ctx context.Context) (ledger.Transactor, error)
}

// KeyProvider serves a single local key.
type KeyProvider struct {
	mu         sync.RWMutex
	key        *ecdsa.PrivateKey
	authorized bool
	backend    Backend
	chainID    *big.Int

	feed event.Feed
}

var _ Provider = (*KeyProvider)(nil)

// NewKeyProvider creates a provider. backend may be nil when no node is
// configured; Signer then fails. A nil chainID is fetched from the node.
func NewKeyProvider(key *ecdsa.PrivateKey, backend Backend, chainID *big.Int) *KeyProvider {
	return &KeyProvider{key: key, backend: backend, chainID: chainID}
}

func (p *KeyProvider) address() (ethcommon.Address, bool) {
	if p.key == nil {
		return ethcommon.Address{}, false
	}
	return crypto.PubkeyToAddress(p.key.PublicKey), true
}

func (p *KeyProvider) RequestAccounts(context.Context) ([]ethcommon.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	addr, ok := p.address()
	if !ok {
		return nil, ErrNoAccount
	}
	p.authorized = true
	return []ethcommon.Address{addr}, nil
}

func (p *KeyProvider) Accounts(context.Context) ([]ethcommon.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	addr, ok := p.address()
	if !ok || !p.authorized {
		return []ethcommon.Address{}, nil
	}
	return []ethcommon.Address{addr}, nil
}

func (p *KeyProvider) SubscribeAccounts(ch chan<- []ethcommon.Address) event.Subscription {
	return p.feed.Subscribe(ch)
}

// SetKey switches the account. Authorized subscribers see the new list.
func (p *KeyProvider) SetKey(key *ecdsa.PrivateKey) {
	p.mu.Lock()
	p.key = key
	authorized := p.authorized
	accounts := []ethcommon.Address{}
	if addr, ok := p.address(); ok && authorized {
		accounts = append(accounts, addr)
	}
	p.mu.Unlock()

	if authorized {
		p.feed.Send(accounts)
	}
}

// Forget drops the key. Subscribers see an empty account list.
func (p *KeyProvider) Forget() {
	p.mu.Lock()
	p.key = nil
	was := p.authorized
	p.authorized = false
	p.mu.Unlock()

	if was {
		p.feed.Send([]ethcommon.Address{})
	}
}

// Revoke withdraws the authorization, like locking the wallet.
func (p *KeyProvider) Revoke() {
	p.mu.Lock()
	was := p.authorized
	p.authorized = false
	p.mu.Unlock()

	if was {
		p.feed.Send([]ethcommon.Address{})
	}
}

func (p *KeyProvider) Signer(ctx context.Context) (ledger.Transactor, error) {
	p.mu.RLock()
	key, authorized, backend, chainID := p.key, p.authorized, p.backend, p.chainID
	p.mu.RUnlock()

	if key == nil || !authorized {
		return nil, fmt.Errorf("wallet not connected: %w", common.ErrNoProvider)
	}
	if backend == nil {
		return nil, errors.New("no ledger node configured")
	}
	if chainID == nil || chainID.Sign() == 0 {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("chain id: %w", err)
		}
		chainID = id
		p.mu.Lock()
		p.chainID = id
		p.mu.Unlock()
	}
	return NewKeySigner(key, chainID, backend), nil
}

// SignText signs msg with the authorized key.
func (p *KeyProvider) SignText(msg []byte) ([]byte, ethcommon.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	addr, ok := p.address()
	if !ok || !p.authorized {
		return nil, ethcommon.Address{}, fmt.Errorf("wallet not connected: %w", common.ErrNoProvider)
	}
	sig, err := NewKeySigner(p.key, nil, nil).SignText(msg)
	return sig, addr, err
}

// LoadKey reads a private key from a hex string or, when hexKey is empty, a
// keystore file whose passphrase is obtained from passphrase.
func LoadKey(hexKey, keystorePath string, passphrase func() ([]byte, error)) (*ecdsa.PrivateKey, error) {
	if hexKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", common.ErrInput)
		}
		return key, nil
	}
	if keystorePath == "" {
		return nil, ErrNoAccount
	}

	keyJSON, err := os.ReadFile(keystorePath)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	k, err := keystore.DecryptKey(keyJSON, string(pass))
	if err != nil {
		return nil, fmt.Errorf("decrypt keystore: %w", err)
	}
	return k.PrivateKey, nil
}
