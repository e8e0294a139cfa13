//go:build integration

package inventory

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/sondv/phone-orders/internal/postgres"
)

// Jalankan dengan: go test -tags integration ./internal/inventory
// TEST_POSTGRES_DSN menunjuk DB yang sudah memuat db/schema.sql.

func testLedger(t *testing.T) (*Ledger, context.Context) {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(db.Close)
	return &Ledger{DB: db}, ctx
}

func seedProduct(t *testing.T, l *Ledger, ctx context.Context, qty int) int64 {
	t.Helper()
	var id int64
	err := l.DB.QueryRow(ctx, `
		INSERT INTO products(name, price_cents) VALUES ('integration-stock-test', 10000)
		RETURNING id`).Scan(&id)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := l.DB.Exec(ctx, `INSERT INTO inventory(product_id, quantity) VALUES ($1,$2)`, id, qty); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	t.Cleanup(func() {
		_, _ = l.DB.Exec(context.Background(), `DELETE FROM inventory_log WHERE product_id=$1`, id)
		_, _ = l.DB.Exec(context.Background(), `DELETE FROM inventory WHERE product_id=$1`, id)
		_, _ = l.DB.Exec(context.Background(), `DELETE FROM products WHERE id=$1`, id)
	})
	return id
}

// Decrement konkuren melebihi stok: jumlah yang lolos tepat sebanyak
// stok awal, sisanya ditolak, dan kuantitas tidak pernah negatif.
func TestAdjust_ConcurrentNeverNegative(t *testing.T) {
	l, ctx := testLedger(t)
	const stock = 10
	pid := seedProduct(t, l, ctx, stock)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 2*stock; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := l.Adjust(ctx, pid, -1, "order-create", 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != stock || rejected != stock {
		t.Errorf("succeeded=%d rejected=%d, want %d/%d", succeeded, rejected, stock, stock)
	}

	rec, err := l.Get(ctx, pid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Quantity != 0 {
		t.Errorf("final quantity = %d, want 0", rec.Quantity)
	}

	// satu baris log per adjust yang lolos, nol untuk yang ditolak
	entries, err := l.History(ctx, pid, 2*stock)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != stock {
		t.Errorf("log entries = %d, want %d", len(entries), stock)
	}
	for _, e := range entries {
		if e.NewQty < 0 {
			t.Errorf("log has negative quantity: %+v", e)
		}
		if e.NewQty != e.OldQty-1 {
			t.Errorf("non-serialized log entry: %+v", e)
		}
	}
}
