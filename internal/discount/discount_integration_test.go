//go:build integration

package discount

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sondv/phone-orders/internal/postgres"
)

// Jalankan dengan: go test -tags integration ./internal/discount
// TEST_POSTGRES_DSN menunjuk DB yang sudah memuat db/schema.sql.

// Satu kode, banyak checkout berlomba: tepat satu transaksi boleh commit
// dengan kode terpakai, sisanya kena ErrAlreadyUsed.
func TestApplyInTx_ConcurrentSingleUse(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	code := "RACE-" + uuid.NewString()[:8]
	now := time.Now().UTC()
	if _, err := db.Exec(ctx, `
		INSERT INTO discount_codes(code, percentage, min_order_cents, valid_from, valid_to)
		VALUES ($1, 10, 0, $2, $3)`, code, now.Add(-time.Hour), now.Add(time.Hour)); err != nil {
		t.Fatalf("seed code: %v", err)
	}
	defer func() { _, _ = db.Exec(context.Background(), `DELETE FROM discount_codes WHERE code=$1`, code) }()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := db.BeginTx(ctx, pgx.TxOptions{})
			if err != nil {
				t.Errorf("begin: %v", err)
				return
			}
			defer func() { _ = tx.Rollback(ctx) }()

			_, err = ApplyInTx(ctx, tx, code, 50000, now)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				if err := tx.Commit(ctx); err != nil {
					t.Errorf("commit: %v", err)
					return
				}
				succeeded++
			case errors.Is(err, ErrAlreadyUsed):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != 7 {
		t.Errorf("succeeded=%d rejected=%d, want 1/7", succeeded, rejected)
	}

	var used bool
	if err := db.QueryRow(ctx, `SELECT used FROM discount_codes WHERE code=$1`, code).Scan(&used); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !used {
		t.Error("code must be marked used after the winning commit")
	}
}
