package discount

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound      = errors.New("discount code not found")
	ErrAlreadyUsed   = errors.New("discount code already used")
	ErrNotYetActive  = errors.New("discount code not yet active")
	ErrExpired       = errors.New("discount code expired")
	ErrMinimumNotMet = errors.New("order below discount minimum")
	ErrNotStackable  = errors.New("discount cannot stack with active promotion")
)

type Code struct {
	ID            int64
	Code          string
	Percentage    int
	MinOrderCents int64
	ValidFrom     time.Time
	ValidTo       time.Time
	Used          bool
}

type Result struct {
	ID          int64
	Code        string
	Percentage  int
	AmountCents int64
}

// Validate menjalankan cek sesuai urutan bisnis: exists -> used ->
// window [from, to) -> minimum. Tiap kegagalan error-nya berbeda.
func Validate(d *Code, subtotalCents int64, now time.Time) error {
	if d == nil {
		return ErrNotFound
	}
	if d.Used {
		return ErrAlreadyUsed
	}
	if now.Before(d.ValidFrom) {
		return ErrNotYetActive
	}
	if !now.Before(d.ValidTo) {
		return ErrExpired
	}
	if subtotalCents < d.MinOrderCents {
		return fmt.Errorf("%w: need %d, have %d", ErrMinimumNotMet, d.MinOrderCents, subtotalCents)
	}
	return nil
}

// Amount = subtotal * pct / 100, integer minor unit. Dibatasi maksimal
// sebesar subtotal supaya total akhir tidak pernah turun di bawah ongkir.
func Amount(subtotalCents int64, percentage int) int64 {
	if subtotalCents <= 0 || percentage <= 0 {
		return 0
	}
	amt := subtotalCents * int64(percentage) / 100
	if amt > subtotalCents {
		amt = subtotalCents
	}
	return amt
}

// ApplyInTx memvalidasi lalu menandai kode terpakai DI DALAM transaksi
// pemanggil. Kalau persist order gagal, rollback ikut membatalkan flag
// used — inilah jaminan single-use di bawah checkout konkuren (baris
// kode di-lock FOR UPDATE, pemenang cuma satu).
func ApplyInTx(ctx context.Context, tx pgx.Tx, code string, subtotalCents int64, now time.Time) (*Result, error) {
	var d Code
	err := tx.QueryRow(ctx, `
		SELECT id, code, percentage, min_order_cents, valid_from, valid_to, used
		FROM discount_codes WHERE code=$1 FOR UPDATE`, code).
		Scan(&d.ID, &d.Code, &d.Percentage, &d.MinOrderCents, &d.ValidFrom, &d.ValidTo, &d.Used)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := Validate(&d, subtotalCents, now); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE discount_codes SET used=TRUE WHERE id=$1`, d.ID); err != nil {
		return nil, err
	}

	return &Result{
		ID:          d.ID,
		Code:        d.Code,
		Percentage:  d.Percentage,
		AmountCents: Amount(subtotalCents, d.Percentage),
	}, nil
}
