package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sondv/phone-orders/internal/catalog"
	"github.com/sondv/phone-orders/internal/discount"
	"github.com/sondv/phone-orders/internal/identity"
	"github.com/sondv/phone-orders/internal/inventory"
)

var (
	ErrValidation = errors.New("invalid order request")
	ErrNotFound   = errors.New("order not found")
	ErrNotPending = errors.New("order is not pending")
	ErrForbidden  = errors.New("not allowed to act on this order")
)

const (
	ReasonOrderCreate = "order-create"
	ReasonOrderCancel = "order-cancel"
)

type Repo struct{ DB *pgxpool.Pool }

// ValidateInput: bentuk request harus benar sebelum menyentuh DB.
// Duplikat product id ditolak supaya urutan lock tetap deterministik.
func ValidateInput(in CreateOrderInput) error {
	if len(in.Lines) == 0 {
		return fmt.Errorf("%w: no lines", ErrValidation)
	}
	seen := make(map[int64]bool, len(in.Lines))
	for _, l := range in.Lines {
		if l.ProductID <= 0 {
			return fmt.Errorf("%w: bad product id %d", ErrValidation, l.ProductID)
		}
		if l.Qty < 1 {
			return fmt.Errorf("%w: qty must be >= 1 for product %d", ErrValidation, l.ProductID)
		}
		if seen[l.ProductID] {
			return fmt.Errorf("%w: duplicate product %d", ErrValidation, l.ProductID)
		}
		seen[l.ProductID] = true
	}
	if in.Shipping.FeeCents < 0 {
		return fmt.Errorf("%w: negative shipping fee", ErrValidation)
	}
	if in.Shipping.Address == "" || in.Shipping.PhoneNumber == "" {
		return fmt.Errorf("%w: missing shipping address/phone", ErrValidation)
	}
	return nil
}

// FinalTotal = subtotal - diskon + ongkir. Diskon sudah di-cap maksimal
// subtotal, jadi hasilnya tidak pernah di bawah ongkir.
func FinalTotal(subtotalCents, discountCents, shippingCents int64) int64 {
	return subtotalCents - discountCents + shippingCents
}

// CreateOrder menjalankan seluruh checkout dalam SATU transaksi:
// lock & kurangi stok (urut ascending product id, cegah deadlock),
// snapshot harga, apply diskon (tandai used), persist order+lines+
// shipping. Gagal di titik mana pun -> rollback mengembalikan semua
// reservasi stok dan flag diskon sekaligus.
func (r *Repo) CreateOrder(ctx context.Context, ownerID int64, in CreateOrderInput) (*Order, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	lines := make([]LineInput, len(in.Lines))
	copy(lines, in.Lines)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	now := time.Now().UTC()

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		outLines []Line
		subtotal int64
	)
	for _, l := range lines {
		var p catalog.Product
		err := tx.QueryRow(ctx, `
			SELECT id, name, price_cents, promo_price_cents, promo_starts_at, promo_ends_at
			FROM products WHERE id=$1`, l.ProductID).
			Scan(&p.ID, &p.Name, &p.PriceCents, &p.PromoPriceCents, &p.PromoStartsAt, &p.PromoEndsAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id=%d", catalog.ErrNotFound, l.ProductID)
		}
		if err != nil {
			return nil, err
		}

		// Promo aktif + kode diskon = tidak boleh stacking.
		if in.DiscountCode != "" && p.PromoActive(now) {
			return nil, fmt.Errorf("%w: product %q is on promotion", discount.ErrNotStackable, p.Name)
		}

		if _, err := inventory.AdjustInTx(ctx, tx, l.ProductID, -l.Qty, ReasonOrderCreate, ownerID); err != nil {
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: product %q", inventory.ErrInsufficientStock, p.Name)
			}
			return nil, err
		}

		price := p.ResolvedPrice(now)
		subtotal += price * int64(l.Qty)
		outLines = append(outLines, Line{
			ProductID:   l.ProductID,
			ProductName: p.Name,
			Qty:         l.Qty,
			PriceCents:  price,
		})
	}

	var (
		discountID    *int64
		discountCents int64
	)
	if in.DiscountCode != "" {
		res, err := discount.ApplyInTx(ctx, tx, in.DiscountCode, subtotal, now)
		if err != nil {
			return nil, err
		}
		discountID = &res.ID
		discountCents = res.AmountCents
	}

	total := FinalTotal(subtotal, discountCents, in.Shipping.FeeCents)

	order := &Order{
		OwnerID:       ownerID,
		Status:        StatusPending,
		TotalCents:    total,
		DiscountID:    discountID,
		DiscountCents: discountCents,
		Shipping:      in.Shipping,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(owner_id, status, total_cents, discount_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id, created_at`, ownerID, order.Status, total, discountID).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i := range outLines {
		err := tx.QueryRow(ctx, `
			INSERT INTO order_lines(order_id, product_id, product_name, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id`,
			order.ID, outLines[i].ProductID, outLines[i].ProductName, outLines[i].Qty, outLines[i].PriceCents).
			Scan(&outLines[i].ID)
		if err != nil {
			return nil, err
		}
	}
	order.Lines = outLines

	if _, err := tx.Exec(ctx, `
		INSERT INTO shipping_info(order_id, address, phone_number, carrier, fee_cents, estimated_delivery)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		order.ID, in.Shipping.Address, in.Shipping.PhoneNumber, in.Shipping.Carrier,
		in.Shipping.FeeCents, in.Shipping.EstimatedDelivery); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder: hanya PENDING, oleh pemilik atau staff. Stok dikembalikan
// lewat ledger (increment kompensasi per line) dalam transaksi yang sama.
func (r *Repo) CancelOrder(ctx context.Context, orderID int64, actor identity.Principal) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		ownerID int64
		status  Status
	)
	err = tx.QueryRow(ctx, `SELECT owner_id, status FROM orders WHERE id=$1 FOR UPDATE`, orderID).
		Scan(&ownerID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	if !actor.CanActOn(ownerID) {
		return nil, ErrForbidden
	}
	if status != StatusPending {
		return nil, fmt.Errorf("%w: status=%s", ErrNotPending, status)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusCancelled); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `SELECT product_id, qty FROM order_lines WHERE order_id=$1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, err
	}
	type lq struct {
		pid int64
		qty int
	}
	var recs []lq
	for rows.Next() {
		var x lq
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return nil, err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, x := range recs {
		if _, err := inventory.AdjustInTx(ctx, tx, x.pid, x.qty, ReasonOrderCancel, actor.UserID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

// Confirm dipanggil dispatcher saat payment PAID. Idempotent: order yang
// sudah CONFIRMED dibiarkan apa adanya.
func (r *Repo) Confirm(ctx context.Context, orderID int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status Status
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, orderID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: id=%d", ErrNotFound, orderID)
	}
	if err != nil {
		return err
	}

	if status == StatusConfirmed {
		return tx.Commit(ctx)
	}
	if !CanTransition(status, StatusConfirmed) {
		return fmt.Errorf("%w: status=%s", ErrNotPending, status)
	}

	if _, err := tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`,
		orderID, StatusConfirmed); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) Owner(ctx context.Context, orderID int64) (int64, error) {
	var ownerID int64
	err := r.DB.QueryRow(ctx, `SELECT owner_id FROM orders WHERE id=$1`, orderID).Scan(&ownerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: id=%d", ErrNotFound, orderID)
	}
	return ownerID, err
}

func (r *Repo) Get(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT o.id, o.owner_id, o.status, o.total_cents, o.discount_id, o.created_at,
		       s.address, s.phone_number, s.carrier, s.fee_cents, s.estimated_delivery
		FROM orders o JOIN shipping_info s ON s.order_id = o.id
		WHERE o.id=$1`, orderID).
		Scan(&o.ID, &o.OwnerID, &o.Status, &o.TotalCents, &o.DiscountID, &o.CreatedAt,
			&o.Shipping.Address, &o.Shipping.PhoneNumber, &o.Shipping.Carrier,
			&o.Shipping.FeeCents, &o.Shipping.EstimatedDelivery)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, product_name, qty, price_cents
		FROM order_lines WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.ProductName, &l.Qty, &l.PriceCents); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// diskon direkonstruksi dari invariant: total = subtotal - diskon + ongkir
	var subtotal int64
	for _, l := range o.Lines {
		subtotal += l.PriceCents * int64(l.Qty)
	}
	o.DiscountCents = subtotal + o.Shipping.FeeCents - o.TotalCents
	return &o, nil
}
