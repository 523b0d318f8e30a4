package wallet

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/docverify/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// Session tracks the connected address and keeps it in step with the
// provider's account list.
type Session struct {
	provider Provider
	store    AddressStore
	logger   logging.Logger

	mu        sync.RWMutex
	current   ethcommon.Address
	connected bool
}

func NewSession(provider Provider, store AddressStore, logger logging.Logger) *Session {
	if store == nil {
		store = noopStore{}
	}
	return &Session{provider: provider, store: store, logger: logger.With("module", "wallet")}
}

// CurrentAddress returns the connected address, if any.
func (s *Session) CurrentAddress() (ethcommon.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.connected
}

func (s *Session) set(addr ethcommon.Address) {
	s.mu.Lock()
	s.current, s.connected = addr, true
	s.mu.Unlock()
}

func (s *Session) clear() {
	s.mu.Lock()
	s.current, s.connected = ethcommon.Address{}, false
	s.mu.Unlock()
}

// Connect asks the provider for accounts and adopts the first one.
func (s *Session) Connect(ctx context.Context) (ethcommon.Address, error) {
	accounts, err := s.provider.RequestAccounts(ctx)
	if err != nil {
		return ethcommon.Address{}, err
	}
	if len(accounts) == 0 {
		return ethcommon.Address{}, ErrNoAccount
	}

	addr := accounts[0]
	s.set(addr)
	if err := s.store.Save(ctx, addr); err != nil {
		s.logger.Warn(ctx, "failed to persist wallet address", "error", err)
	}
	s.logger.Info(ctx, "wallet connected", "address", addr.Hex())
	return addr, nil
}

// Disconnect forgets the address locally. The provider keeps its
// authorization.
func (s *Session) Disconnect(ctx context.Context) error {
	s.clear()
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	s.logger.Info(ctx, "wallet disconnected")
	return nil
}

// Restore reconnects silently on startup. An address is adopted only when
// the provider still lists accounts and a previous session was saved.
func (s *Session) Restore(ctx context.Context) (ethcommon.Address, bool) {
	accounts, err := s.provider.Accounts(ctx)
	if err != nil {
		s.logger.Warn(ctx, "wallet restore failed", "error", err)
		s.clear()
		return ethcommon.Address{}, false
	}

	if len(accounts) == 0 {
		s.clear()
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warn(ctx, "failed to clear wallet address", "error", err)
		}
		return ethcommon.Address{}, false
	}

	_, saved, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Warn(ctx, "failed to load wallet address", "error", err)
		s.clear()
		return ethcommon.Address{}, false
	}
	if !saved {
		return ethcommon.Address{}, false
	}

	addr := accounts[0]
	s.set(addr)
	if err := s.store.Save(ctx, addr); err != nil {
		s.logger.Warn(ctx, "failed to persist wallet address", "error", err)
	}
	return addr, true
}

// Watch follows account changes until ctx is done or the subscription is
// closed. An empty list disconnects; a different first account becomes
// current.
func (s *Session) Watch(ctx context.Context) event.Subscription {
	ch := make(chan []ethcommon.Address, 4)
	sub := s.provider.SubscribeAccounts(ch)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()

		for {
			select {
			case accounts := <-ch:
				s.onAccounts(ctx, accounts)
			case err := <-sub.Err():
				return err
			case <-quit:
				return nil
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func (s *Session) onAccounts(ctx context.Context, accounts []ethcommon.Address) {
	if len(accounts) == 0 {
		s.clear()
		if err := s.store.Clear(ctx); err != nil {
			s.logger.Warn(ctx, "failed to clear wallet address", "error", err)
		}
		s.logger.Info(ctx, "wallet accounts removed, disconnected")
		return
	}

	cur, ok := s.CurrentAddress()
	if ok && cur == accounts[0] {
		return
	}
	s.set(accounts[0])
	if err := s.store.Save(ctx, accounts[0]); err != nil {
		s.logger.Warn(ctx, "failed to persist wallet address", "error", err)
	}
	s.logger.Info(ctx, "wallet account changed", "address", accounts[0].Hex())
}
