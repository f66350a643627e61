package gate

import (
	"context"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

const warQuotaKey = "war:quota"

// WarPool is the global admission counter for the opening-instant rush. It
// prefers an atomic Redis DECR; without Redis it falls back to an in-process
// atomic counter so the service still works standalone.
type WarPool struct {
	client *redis.Client
	memory int64
	useMem bool
}

// NewWarPool builds the pool and seeds the counter. Seeding uses SetNX so a
// restart never refills a partially drained pool.
func NewWarPool(ctx context.Context, client *redis.Client, seed int64) (*WarPool, error) {
	pool := &WarPool{client: client, memory: seed, useMem: client == nil}
	if client != nil {
		if err := client.SetNX(ctx, warQuotaKey, seed, 0).Err(); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// Take atomically consumes one slot and returns the remaining count. A
// negative result means the pool was already drained; the caller treats it as
// a failed claim and no slot is consumed in aggregate terms, since exactly
// quota many callers observe a non-negative result.
func (p *WarPool) Take(ctx context.Context) (int64, error) {
	if p.useMem {
		return atomic.AddInt64(&p.memory, -1), nil
	}
	return p.client.Decr(ctx, warQuotaKey).Result()
}

// Remaining reports the current counter value, floored at zero for display.
func (p *WarPool) Remaining(ctx context.Context) (int64, error) {
	var value int64
	if p.useMem {
		value = atomic.LoadInt64(&p.memory)
	} else {
		v, err := p.client.Get(ctx, warQuotaKey).Int64()
		if err == redis.Nil {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		value = v
	}
	if value < 0 {
		return 0, nil
	}
	return value, nil
}

// Reset restores the counter; the administrative reset between operating days.
func (p *WarPool) Reset(ctx context.Context, quota int64) error {
	if p.useMem {
		atomic.StoreInt64(&p.memory, quota)
		return nil
	}
	return p.client.Set(ctx, warQuotaKey, quota, 0).Err()
}
