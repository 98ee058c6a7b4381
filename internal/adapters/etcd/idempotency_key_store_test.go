package etcd

import (
	"context"
	"testing"
	"time"

	"github.com/modelport/modelport/internal/data/models"
)

func TestMemoryIdempotencyRoundTrip(t *testing.T) {
	store := NewMemoryIdempotencyKeyStore(time.Hour)
	ctx := context.Background()

	record := models.IdempotencyRecord{
		RequestHash:  "abc123",
		StatusCode:   202,
		ResponseBody: []byte(`{"name":"resnet-ep"}`),
		ContentType:  "application/json",
	}
	if err := store.Put(ctx, "int/endpoints", "key-1", record); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, err := store.Get(ctx, "int/endpoints", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.RequestHash != "abc123" || got.StatusCode != 202 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Scopes do not bleed into each other.
	miss, err := store.Get(ctx, "prod/endpoints", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected miss for other scope, got %+v", miss)
	}
}

func TestMemoryIdempotencyExpiresAfterTTL(t *testing.T) {
	store := NewMemoryIdempotencyKeyStore(time.Minute)
	ctx := context.Background()

	base := time.Now()
	store.now = func() time.Time { return base }
	if err := store.Put(ctx, "int/endpoints", "key-1", models.IdempotencyRecord{RequestHash: "abc"}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	store.now = func() time.Time { return base.Add(30 * time.Second) }
	got, err := store.Get(ctx, "int/endpoints", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatalf("expected record within ttl")
	}

	store.now = func() time.Time { return base.Add(2 * time.Minute) }
	got, err = store.Get(ctx, "int/endpoints", "key-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected record to expire after ttl, got %+v", got)
	}
}
