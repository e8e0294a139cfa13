package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
)

type Record struct {
	ProductID int64
	Quantity  int
	UpdatedAt time.Time
}

type LogEntry struct {
	ID        int64
	ProductID int64
	OldQty    int
	NewQty    int
	Reason    string
	ActorID   int64
	CreatedAt time.Time
}

// Ledger adalah satu-satunya jalur mutasi stok. Tiap Adjust menulis
// tepat satu baris inventory_log dalam transaksi yang sama.
type Ledger struct{ DB *pgxpool.Pool }

// Adjust menerapkan delta (+/-) pada stok produk dalam transaksinya sendiri.
func (l *Ledger) Adjust(ctx context.Context, productID int64, delta int, reason string, actorID int64) (*Record, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rec, err := AdjustInTx(ctx, tx, productID, delta, reason, actorID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// AdjustInTx: varian untuk dikomposisikan ke transaksi order.
// Lock baris inventory (FOR UPDATE) supaya adjust konkuren per produk
// terserialisasi — dua decrement tidak bisa sama-sama lolos lewat nol.
func AdjustInTx(ctx context.Context, tx pgx.Tx, productID int64, delta int, reason string, actorID int64) (*Record, error) {
	var old int
	err := tx.QueryRow(ctx, `SELECT quantity FROM inventory WHERE product_id=$1 FOR UPDATE`, productID).Scan(&old)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, err
	}

	newQty := old + delta
	if newQty < 0 {
		return nil, fmt.Errorf("%w: product=%d have=%d want=%d", ErrInsufficientStock, productID, old, -delta)
	}

	rec := &Record{ProductID: productID, Quantity: newQty}
	err = tx.QueryRow(ctx, `
		UPDATE inventory SET quantity=$2, updated_at=now()
		WHERE product_id=$1
		RETURNING updated_at`, productID, newQty).Scan(&rec.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO inventory_log(product_id, old_qty, new_qty, reason, actor_id)
		VALUES ($1,$2,$3,$4,$5)`, productID, old, newQty, reason, actorID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (l *Ledger) Get(ctx context.Context, productID int64) (*Record, error) {
	var rec Record
	err := l.DB.QueryRow(ctx, `SELECT product_id, quantity, updated_at FROM inventory WHERE product_id=$1`, productID).
		Scan(&rec.ProductID, &rec.Quantity, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (l *Ledger) History(ctx context.Context, productID int64, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.DB.Query(ctx, `
		SELECT id, product_id, old_qty, new_qty, reason, actor_id, created_at
		FROM inventory_log WHERE product_id=$1
		ORDER BY id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.ProductID, &e.OldQty, &e.NewQty, &e.Reason, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
