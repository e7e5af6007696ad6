package rdx

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobconnect/models"
)

func TestMemoryKVExpiry(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	if err := kv.Set(ctx, "otp:1", "hash", time.Minute); err != nil {
		t.Fatal(err)
	}
	if v, err := kv.Get(ctx, "otp:1"); err != nil || v != "hash" {
		t.Fatalf("expected hit, got %q %v", v, err)
	}

	now = now.Add(time.Minute)
	if _, err := kv.Get(ctx, "otp:1"); !errors.Is(err, ErrMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}
}

func TestNameCache(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	if got := CachedName(ctx, kv, "u1"); got != "" {
		t.Fatalf("expected empty on miss, got %q", got)
	}
	_ = CacheName(ctx, kv, "u1", "Asha Menon")
	if got := CachedName(ctx, kv, "u1"); got != "Asha Menon" {
		t.Fatalf("expected cached name, got %q", got)
	}
	_ = ForgetName(ctx, kv, "u1")
	if got := CachedName(ctx, kv, "u1"); got != "" {
		t.Fatalf("expected empty after forget, got %q", got)
	}
}

type countingUsers struct {
	calls int
}

func (c *countingUsers) GetUser(_ context.Context, id string) (*models.User, error) {
	c.calls++
	return &models.User{ID: id, FirstName: "Ravi", LastName: "Kumar"}, nil
}

func TestNameOfCachesLookups(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	users := &countingUsers{}

	for i := 0; i < 3; i++ {
		name, err := NameOf(ctx, kv, users, "u9")
		if err != nil || name != "Ravi Kumar" {
			t.Fatalf("NameOf = %q, %v", name, err)
		}
	}
	if users.calls != 1 {
		t.Fatalf("expected one lookup, got %d", users.calls)
	}

	if _, err := NameOf(ctx, nil, users, "u9"); err != nil {
		t.Fatal(err)
	}
	if users.calls != 2 {
		t.Fatalf("nil kv should bypass cache, calls=%d", users.calls)
	}
}

func TestMemoryKVIncr(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := kv.Incr(ctx, "otp:1:attempts", time.Minute)
		if err != nil || n != want {
			t.Fatalf("incr = %d, %v; want %d", n, err, want)
		}
	}
	// ttl is fixed at creation
	now = now.Add(59 * time.Second)
	if n, _ := kv.Incr(ctx, "otp:1:attempts", time.Minute); n != 4 {
		t.Fatalf("incr before expiry = %d", n)
	}
	now = now.Add(2 * time.Second)
	if n, _ := kv.Incr(ctx, "otp:1:attempts", time.Minute); n != 1 {
		t.Fatalf("incr after expiry = %d", n)
	}
}
