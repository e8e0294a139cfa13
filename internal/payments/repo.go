package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrAlreadyExists     = errors.New("payment already exists for order")
	ErrNotFound          = errors.New("payment not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid payment status transition")
)

type Payment struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	Method        Method     `json:"method"`
	Status        Status     `json:"status"`
	ExternalTxnID *string    `json:"external_txn_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Repo struct{ DB *pgxpool.Pool }

const paymentCols = `id, order_id, method, status, external_txn_id, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.Method, &p.Status, &p.ExternalTxnID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create membuat payment PENDING untuk order. UNIQUE(order_id) di skema
// menolak payment kedua — tidak pernah di-merge diam-diam.
func (r *Repo) Create(ctx context.Context, orderID int64, method Method) (*Payment, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO payments(order_id, method, status)
		VALUES ($1, $2, $3)
		RETURNING `+paymentCols, orderID, method, StatusPending)
	p, err := scanPayment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation pada order_id
				return nil, fmt.Errorf("%w: order=%d", ErrAlreadyExists, orderID)
			case "23503": // foreign_key_violation
				return nil, fmt.Errorf("%w: order=%d", ErrOrderNotFound, orderID)
			}
		}
		return nil, err
	}
	return p, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE id=$1`, id))
}

func (r *Repo) GetByOrderID(ctx context.Context, orderID int64) (*Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE order_id=$1`, orderID))
}

func (r *Repo) GetByExternalTxnID(ctx context.Context, txnID string) (*Payment, error) {
	return scanPayment(r.DB.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE external_txn_id=$1`, txnID))
}

// UpdateStatus idempotent per externalTxnID: kalau txn id yang tersimpan
// sudah sama dengan yang masuk, tidak ada transisi yang diterapkan ulang
// (proteksi callback duplikat) — return state sekarang, applied=false.
func (r *Repo) UpdateStatus(ctx context.Context, orderID int64, status Status, externalTxnID string) (*Payment, bool, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE order_id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, false, err
	}

	if externalTxnID != "" && cur.ExternalTxnID != nil && *cur.ExternalTxnID == externalTxnID {
		return cur, false, nil // duplikat, no-op
	}

	if !CanTransition(cur.Status, status) {
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, status)
	}

	var txn *string
	if externalTxnID != "" {
		txn = &externalTxnID
	} else {
		txn = cur.ExternalTxnID
	}
	updated, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments SET status=$2, external_txn_id=$3, updated_at=now()
		WHERE order_id=$1
		RETURNING `+paymentCols, orderID, status, txn))
	if err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

// Override: jalur exceptional admin — boleh memaksa transisi apa pun,
// tapi selalu meninggalkan jejak di payment_audit. Caller wajib log warn.
func (r *Repo) Override(ctx context.Context, orderID int64, status Status, externalTxnID string, actorID int64) (*Payment, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cur, err := scanPayment(tx.QueryRow(ctx, `SELECT `+paymentCols+` FROM payments WHERE order_id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return nil, err
	}

	var txn *string
	if externalTxnID != "" {
		txn = &externalTxnID
	} else {
		txn = cur.ExternalTxnID
	}
	updated, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments SET status=$2, external_txn_id=$3, updated_at=now()
		WHERE order_id=$1
		RETURNING `+paymentCols, orderID, status, txn))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO payment_audit(payment_id, old_status, new_status, actor_id)
		VALUES ($1,$2,$3,$4)`, cur.ID, cur.Status, status, actorID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}
