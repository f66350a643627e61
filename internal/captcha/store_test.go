package captcha

import (
	"context"
	"strconv"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client), mr
}

func TestRedisStoreConsumeOnce(t *testing.T) {
	store, _ := setupRedisStore(t)
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	ch, err := svc.IssueMath(ctx)
	if err != nil {
		t.Fatalf("issue math: %v", err)
	}

	ok, err := svc.Verify(ctx, KindMath, ch.Token, strconv.Itoa(ch.A+ch.B))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected verify to succeed")
	}

	ok, err = svc.Verify(ctx, KindMath, ch.Token, strconv.Itoa(ch.A+ch.B))
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if ok {
		t.Fatal("token verified twice against redis store")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := setupRedisStore(t)
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	ch, err := svc.IssueMath(ctx)
	if err != nil {
		t.Fatalf("issue math: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	ok, err := svc.Verify(ctx, KindMath, ch.Token, strconv.Itoa(ch.A+ch.B))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expired token verified")
	}
}

func TestRedisStoreUnknownToken(t *testing.T) {
	store, _ := setupRedisStore(t)

	if _, err := store.Consume(context.Background(), "no-such-token"); err != ErrTokenConsumed {
		t.Fatalf("expected ErrTokenConsumed, got %v", err)
	}
}
