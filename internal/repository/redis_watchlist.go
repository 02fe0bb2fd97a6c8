package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"

	"LTPCoach/internal/domain/models"
	domrepo "LTPCoach/internal/domain/repository"
)

// RedisWatchlist implements WatchlistStore on a Redis set. The watchlist
// survives restarts so a monitor comes back up tracking the same symbols.
type RedisWatchlist struct {
	rdb *redis.Client
	key string
}

func NewRedisWatchlist(rdb *redis.Client, key string) *RedisWatchlist {
	if key == "" {
		key = "ltpcoach:watchlist"
	}
	return &RedisWatchlist{rdb: rdb, key: key}
}

func (w *RedisWatchlist) AddSymbol(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("watchlist add: empty symbol")
	}
	if err := w.rdb.SAdd(ctx, w.key, symbol).Err(); err != nil {
		return fmt.Errorf("watchlist add %s: %w", symbol, err)
	}
	return nil
}

func (w *RedisWatchlist) RemoveSymbol(ctx context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if err := w.rdb.SRem(ctx, w.key, symbol).Err(); err != nil {
		return fmt.Errorf("watchlist remove %s: %w", symbol, err)
	}
	return nil
}

func (w *RedisWatchlist) ListSymbols(ctx context.Context) ([]string, error) {
	symbols, err := w.rdb.SMembers(ctx, w.key).Result()
	if err != nil {
		return nil, fmt.Errorf("watchlist list: %w", err)
	}
	sort.Strings(symbols)
	return symbols, nil
}

var _ domrepo.WatchlistStore = (*RedisWatchlist)(nil)

// MemoryWatchlist is the store used when Redis is disabled: the watchlist
// lives for the process only, seeded from config.
type MemoryWatchlist struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

func NewMemoryWatchlist(seed []string) *MemoryWatchlist {
	w := &MemoryWatchlist{symbols: make(map[string]struct{}, len(seed))}
	for _, s := range seed {
		if s = models.NormalizeSymbol(s); s != "" {
			w.symbols[s] = struct{}{}
		}
	}
	return w
}

func (w *MemoryWatchlist) AddSymbol(_ context.Context, symbol string) error {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("watchlist add: empty symbol")
	}
	w.mu.Lock()
	w.symbols[symbol] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *MemoryWatchlist) RemoveSymbol(_ context.Context, symbol string) error {
	w.mu.Lock()
	delete(w.symbols, models.NormalizeSymbol(symbol))
	w.mu.Unlock()
	return nil
}

func (w *MemoryWatchlist) ListSymbols(_ context.Context) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, 0, len(w.symbols))
	for s := range w.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

var _ domrepo.WatchlistStore = (*MemoryWatchlist)(nil)
