package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/docverify/internal/filex"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

// AddressStore remembers the last connected address between runs. Its
// presence means the user has not disconnected on purpose.
type AddressStore interface {
	Load(ctx context.Context) (ethcommon.Address, bool, error)
	Save(ctx context.Context, addr ethcommon.Address) error
	Clear(ctx context.Context) error
}

type noopStore struct{}

func (noopStore) Load(context.Context) (ethcommon.Address, bool, error) {
	return ethcommon.Address{}, false, nil
}
func (noopStore) Save(context.Context, ethcommon.Address) error { return nil }
func (noopStore) Clear(context.Context) error                   { return nil }

// FileAddressStore keeps the address in a small JSON file.
type FileAddressStore struct {
	path string
}

func NewFileAddressStore(path string) *FileAddressStore {
	return &FileAddressStore{path: path}
}

type sessionFile struct {
	WalletAddress string `json:"wallet_address"`
}

func (s *FileAddressStore) Load(context.Context) (ethcommon.Address, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return ethcommon.Address{}, false, nil
	}
	if err != nil {
		return ethcommon.Address{}, false, fmt.Errorf("read session: %w", err)
	}

	var f sessionFile
	if err := json.Unmarshal(b, &f); err != nil {
		return ethcommon.Address{}, false, fmt.Errorf("parse session: %w", err)
	}
	if !ethcommon.IsHexAddress(f.WalletAddress) {
		return ethcommon.Address{}, false, nil
	}
	return ethcommon.HexToAddress(f.WalletAddress), true, nil
}

func (s *FileAddressStore) Save(_ context.Context, addr ethcommon.Address) error {
	b, err := json.Marshal(sessionFile{WalletAddress: addr.Hex()})
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(s.path, b, 0o600)
}

func (s *FileAddressStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// redisCmdable is the part of the go-redis client the store needs.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisAddressStore keeps the address under a Redis key, so several CLI
// hosts can share one session.
type RedisAddressStore struct {
	client redisCmdable
	key    string
	ttl    time.Duration
}

func NewRedisAddressStore(client redisCmdable, key string, ttl time.Duration) *RedisAddressStore {
	if key == "" {
		key = "docverify:wallet_address"
	}
	return &RedisAddressStore{client: client, key: key, ttl: ttl}
}

func (s *RedisAddressStore) Load(ctx context.Context) (ethcommon.Address, bool, error) {
	v, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return ethcommon.Address{}, false, nil
	}
	if err != nil {
		return ethcommon.Address{}, false, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	if !ethcommon.IsHexAddress(v) {
		return ethcommon.Address{}, false, nil
	}
	return ethcommon.HexToAddress(v), true, nil
}

func (s *RedisAddressStore) Save(ctx context.Context, addr ethcommon.Address) error {
	if err := s.client.Set(ctx, s.key, addr.Hex(), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisAddressStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}
