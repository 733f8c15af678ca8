package settlement_test

import (
	"context"
	"testing"
	"time"

	"skins-service/internal/service/settlement"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisLockerExcludesSecondHolder(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	first := settlement.NewRedisLocker(rdb, time.Minute)
	second := settlement.NewRedisLocker(rdb, time.Minute)

	if ok, err := first.Acquire(ctx, 1); err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if ok, err := second.Acquire(ctx, 1); err != nil || ok {
		t.Fatalf("expected second acquire to fail, got %v %v", ok, err)
	}
	if err := first.Release(ctx, 1); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if ok, err := second.Acquire(ctx, 1); err != nil || !ok {
		t.Fatalf("expected acquire after release, got %v %v", ok, err)
	}
}

func TestRedisLockerReleaseKeepsNewerHolder(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	slow := settlement.NewRedisLocker(rdb, time.Second)
	next := settlement.NewRedisLocker(rdb, time.Minute)

	if ok, err := slow.Acquire(ctx, 1); err != nil || !ok {
		t.Fatalf("expected acquire, got %v %v", ok, err)
	}
	mr.FastForward(2 * time.Second)
	if ok, err := next.Acquire(ctx, 1); err != nil || !ok {
		t.Fatalf("expected acquire after expiry, got %v %v", ok, err)
	}

	if err := slow.Release(ctx, 1); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if !mr.Exists("settle:lock:1") {
		t.Fatalf("expired holder released the newer lock")
	}

	if err := next.Release(ctx, 1); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if mr.Exists("settle:lock:1") {
		t.Fatalf("expected lock to be released")
	}
}
