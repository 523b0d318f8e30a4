package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/docverify/internal/cryptox"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Backend is the node connection a signer needs. *ethclient.Client and the
// simulated backend client satisfy it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	TransactionByHash(ctx context.Context, hash ethcommon.Hash) (*types.Transaction, bool, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// KeySigner sends raw contract calls signed by a local key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	from    ethcommon.Address
	chainID *big.Int
	backend Backend

	mu      sync.Mutex
	pending map[ethcommon.Hash]*types.Transaction
}

func NewKeySigner(key *ecdsa.PrivateKey, chainID *big.Int, backend Backend) *KeySigner {
	return &KeySigner{
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
		backend: backend,
		pending: make(map[ethcommon.Hash]*types.Transaction),
	}
}

func (s *KeySigner) From() ethcommon.Address { return s.from }

func (s *KeySigner) Transact(ctx context.Context, to ethcommon.Address, data []byte) (ethcommon.Hash, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return ethcommon.Hash{}, err
	}
	opts.Context = ctx

	contract := bind.NewBoundContract(to, abi.ABI{}, s.backend, s.backend, s.backend)
	tx, err := contract.RawTransact(opts, data)
	if err != nil {
		return ethcommon.Hash{}, err
	}

	s.mu.Lock()
	s.pending[tx.Hash()] = tx
	s.mu.Unlock()

	return tx.Hash(), nil
}

func (s *KeySigner) WaitMined(ctx context.Context, hash ethcommon.Hash) (*types.Receipt, error) {
	s.mu.Lock()
	tx, ok := s.pending[hash]
	s.mu.Unlock()

	if !ok {
		var err error
		tx, _, err = s.backend.TransactionByHash(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
		}
	}

	receipt, err := bind.WaitMined(ctx, s.backend, tx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.pending, hash)
	s.mu.Unlock()

	return receipt, nil
}

// SignText signs msg the way personal_sign does.
func (s *KeySigner) SignText(msg []byte) ([]byte, error) {
	return cryptox.SignText(s.key, msg)
}
