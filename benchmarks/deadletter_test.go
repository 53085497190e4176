package benchmarks

import (
	"context"
	"os"
	"testing"

	"github.com/randalmurphal/shardbus/pkg/shardbus/deadletter"
)

// OrderPayload represents a larger event payload for realistic benchmarks.
type OrderPayload struct {
	ID       string
	Items    []int
	Metadata map[string]string
	Shipping struct {
		Street string
		City   string
		Codes  []string
	}
}

// BenchmarkMemoryStore_Append measures in-memory dead letter writes.
func BenchmarkMemoryStore_Append(b *testing.B) {
	store := deadletter.NewMemoryStore()
	ctx := context.Background()
	payload := createOrderPayload()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := deadletter.NewRecord("order.created", payload, "billing", "charge declined", 2)
		_ = store.Append(ctx, rec)
	}
}

// BenchmarkMemoryStore_List measures listing from a populated store.
func BenchmarkMemoryStore_List(b *testing.B) {
	store := deadletter.NewMemoryStore()
	ctx := context.Background()
	payload := createOrderPayload()
	for i := 0; i < 1000; i++ {
		_ = store.Append(ctx, deadletter.NewRecord("order.created", payload, "billing", "charge declined", 2))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.List(ctx, 100)
	}
}

// BenchmarkSQLiteStore_Append measures SQLite dead letter writes.
func BenchmarkSQLiteStore_Append(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()

	ctx := context.Background()
	payload := createOrderPayload()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := deadletter.NewRecord("order.created", payload, "billing", "charge declined", 2)
		_ = store.Append(ctx, rec)
	}
}

// BenchmarkSQLiteStore_Get measures SQLite record lookup by ID.
func BenchmarkSQLiteStore_Get(b *testing.B) {
	store, cleanup := createSQLiteStore(b)
	defer cleanup()

	ctx := context.Background()
	rec := deadletter.NewRecord("order.created", createOrderPayload(), "billing", "charge declined", 2)
	_ = store.Append(ctx, rec)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = store.Get(ctx, rec.ID)
	}
}

// BenchmarkNewRecord measures payload serialization overhead.
func BenchmarkNewRecord(b *testing.B) {
	payload := createOrderPayload()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = deadletter.NewRecord("order.created", payload, "billing", "charge declined", 2)
	}
}

// Helper functions

func createOrderPayload() OrderPayload {
	return OrderPayload{
		ID:    "order-9001",
		Items: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		Metadata: map[string]string{
			"channel":  "web",
			"currency": "USD",
			"region":   "us-east-1",
		},
		Shipping: struct {
			Street string
			City   string
			Codes  []string
		}{
			Street: "1 Main St",
			City:   "Springfield",
			Codes:  []string{"A1", "B2", "C3"},
		},
	}
}

func createSQLiteStore(b *testing.B) (*deadletter.SQLiteStore, func()) {
	b.Helper()
	tmpFile, err := os.CreateTemp("", "bench-*.db")
	if err != nil {
		b.Fatal(err)
	}
	tmpFile.Close()

	store, err := deadletter.NewSQLiteStore(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		b.Fatal(err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}
