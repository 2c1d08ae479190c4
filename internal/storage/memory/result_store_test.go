package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/storage"
)

func bundle(table, filters, policy uint64) *domain.ResultBundle {
	return &domain.ResultBundle{
		Key:     domain.ResultKey{TableVersion: table, FilterVersion: filters, PolicyVersion: policy},
		Metrics: &domain.TradingMetrics{NumTrades: int(table + filters + policy)},
	}
}

func TestResultStore_PublishAndGet(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	if _, err := store.Current(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on empty store, got %v", err)
	}

	b := bundle(1, 1, 1)
	if err := store.Publish(ctx, b); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got != b {
		t.Errorf("Current returned a different bundle")
	}

	if _, err := store.Get(ctx, b.Key); err != nil {
		t.Errorf("Get with current key failed: %v", err)
	}
	if _, err := store.Get(ctx, domain.ResultKey{TableVersion: 2, FilterVersion: 1, PolicyVersion: 1}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for other key, got %v", err)
	}
}

func TestResultStore_RejectsStale(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	if err := store.Publish(ctx, bundle(2, 1, 3)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	err := store.Publish(ctx, bundle(2, 1, 2))
	if !errors.Is(err, storage.ErrStaleVersion) {
		t.Errorf("Expected ErrStaleVersion, got %v", err)
	}

	// Same key republished is allowed.
	if err := store.Publish(ctx, bundle(2, 1, 3)); err != nil {
		t.Errorf("Republish of same key failed: %v", err)
	}
	if err := store.Publish(ctx, bundle(3, 1, 3)); err != nil {
		t.Errorf("Publish of newer key failed: %v", err)
	}
}

func TestResultStore_InvalidInput(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	if err := store.Publish(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil bundle, got %v", err)
	}
	if err := store.Publish(ctx, &domain.ResultBundle{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for bundle without metrics, got %v", err)
	}
}

func TestResultStore_Invalidate(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	if err := store.Publish(ctx, bundle(1, 1, 1)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := store.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if _, err := store.Current(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Invalidate, got %v", err)
	}
}

func TestResultStore_ConcurrentReaders(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(2)
		go func(v uint64) {
			defer wg.Done()
			_ = store.Publish(ctx, bundle(v, 1, 1))
		}(uint64(i))
		go func() {
			defer wg.Done()
			_, _ = store.Current(ctx)
		}()
	}
	wg.Wait()

	got, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("Current failed: %v", err)
	}
	if got.Key.TableVersion != 20 {
		t.Errorf("Expected newest table version 20, got %d", got.Key.TableVersion)
	}
}
