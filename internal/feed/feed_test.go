package feed

import (
	"context"
	"testing"
	"time"

	"posterpress/internal/models"
)

func samplePoster(id int64) *models.Poster {
	return &models.Poster{
		ID:          id,
		Title:       "Diwali Wishes",
		Category:    models.CategoryFestival,
		DownloadURL: "https://cdn.example.com/thumbnails/1-diwali.png",
		CreatedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

// TestEventValidate covers the tagged-union consistency rules.
func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{name: "insert with poster", event: Insert(samplePoster(1))},
		{name: "update with poster", event: Update(samplePoster(2))},
		{name: "delete with id", event: Delete(3)},
		{name: "insert without poster", event: Event{Op: OpInsert, ID: 1}, wantErr: true},
		{name: "update without poster", event: Event{Op: OpUpdate, ID: 1}, wantErr: true},
		{name: "delete without id", event: Event{Op: OpDelete}, wantErr: true},
		{name: "unknown op", event: Event{Op: "truncate", ID: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestEventRoundTrip verifies wire encoding preserves the payload.
func TestEventRoundTrip(t *testing.T) {
	orig := Update(samplePoster(7))
	data, err := orig.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Op != OpUpdate || got.ID != 7 {
		t.Errorf("got op=%q id=%d, want update/7", got.Op, got.ID)
	}
	if got.Poster == nil || got.Poster.Title != "Diwali Wishes" {
		t.Errorf("poster payload lost: %+v", got.Poster)
	}
}

// TestUnmarshalRejectsGarbage verifies bad payloads fail instead of
// producing half-formed events.
func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Unmarshal([]byte(`{"op":"insert","id":1}`)); err == nil {
		t.Error("expected error for insert without poster")
	}
}

// TestBusDeliversInOrder verifies each subscriber sees events in publish order.
func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	events, release, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer release()

	for i := int64(1); i <= 3; i++ {
		if err := bus.Publish(ctx, Insert(samplePoster(i))); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	for want := int64(1); want <= 3; want++ {
		select {
		case e := <-events:
			if e.ID != want {
				t.Errorf("got event id %d, want %d", e.ID, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", want)
		}
	}
}

// TestBusReleaseStopsDelivery verifies an unsubscribed consumer no longer
// blocks publishers.
func TestBusReleaseStopsDelivery(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	_, release, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	release()
	release() // releasing twice is safe

	// Fill past the channel buffer; must not block with the sub gone.
	for i := int64(0); i < 40; i++ {
		if err := bus.Publish(ctx, Delete(i + 1)); err != nil {
			t.Fatalf("Publish after release: %v", err)
		}
	}
}

// TestBusContextCancelReleases verifies context cancellation detaches the
// subscriber without an explicit release call.
func TestBusContextCancelReleases(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	if _, _, err := bus.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()

	// Give the cancellation goroutine a moment to run.
	deadline := time.Now().Add(time.Second)
	for bus.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
