// valkey_test.go holds integration tests for the Valkey-backed feed.
// Tests are skipped when Valkey is not reachable.
package feed

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"posterpress/internal/cache"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client, err := cache.ConnectValkey(addr, os.Getenv("VALKEY_PASSWORD"))
	if err != nil {
		t.Skipf("skipping integration test: valkey not reachable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestValkeyPublishSubscribe(t *testing.T) {
	v := NewValkey(testClient(t))
	ctx := context.Background()

	events, release, err := v.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer release()

	if err := v.Publish(ctx, Insert(samplePoster(9))); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case e := <-events:
		if e.Op != OpInsert || e.ID != 9 {
			t.Errorf("got op=%q id=%d, want insert/9", e.Op, e.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

// TestValkeyReleaseIdempotent verifies releasing a subscription from
// several goroutines at once tears it down exactly once: consumers
// commonly defer the release and also call it on their own shutdown
// path.
func TestValkeyReleaseIdempotent(t *testing.T) {
	v := NewValkey(testClient(t))

	events, release, err := v.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release()
		}()
	}
	wg.Wait()
	release()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("unexpected event after release")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event channel not closed after release")
	}
}
