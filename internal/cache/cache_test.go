// cache_test.go holds integration tests for the gallery cache. Tests are
// skipped when Valkey is not reachable.
package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client, err := ConnectValkey(addr, os.Getenv("VALKEY_PASSWORD"))
	if err != nil {
		t.Skipf("skipping integration test: valkey not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGalleryCacheRoundTrip(t *testing.T) {
	client := testClient(t)
	gc := NewGalleryCache(client, time.Minute)
	ctx := context.Background()

	key := "s=diwali|c=festival|o=latest"
	body := []byte(`{"posters":[]}`)

	if _, ok := gc.Get(ctx, key); ok {
		gc.InvalidateAll(ctx)
	}

	gc.Set(ctx, key, body)
	got, ok := gc.Get(ctx, key)
	if !ok {
		t.Fatal("expected cache hit after Set")
	}
	if string(got) != string(body) {
		t.Errorf("got %q, want %q", got, body)
	}
}

func TestGalleryCacheInvalidateAll(t *testing.T) {
	client := testClient(t)
	gc := NewGalleryCache(client, time.Minute)
	ctx := context.Background()

	gc.Set(ctx, "s=|c=|o=latest", []byte("a"))
	gc.Set(ctx, "s=|c=|o=popular", []byte("b"))

	gc.InvalidateAll(ctx)

	if _, ok := gc.Get(ctx, "s=|c=|o=latest"); ok {
		t.Error("expected miss after InvalidateAll")
	}
	if _, ok := gc.Get(ctx, "s=|c=|o=popular"); ok {
		t.Error("expected miss after InvalidateAll")
	}
}

func TestGalleryCacheMiss(t *testing.T) {
	client := testClient(t)
	gc := NewGalleryCache(client, time.Minute)

	if _, ok := gc.Get(context.Background(), "s=never-set|c=|o=latest"); ok {
		t.Error("expected miss for unknown key")
	}
}
