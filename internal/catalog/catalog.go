package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sondv/phone-orders/internal/redisx"
)

var ErrNotFound = errors.New("product not found")

type Product struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	PriceCents      int64      `json:"price_cents"`
	PromoPriceCents *int64     `json:"promo_price_cents,omitempty"`
	PromoStartsAt   *time.Time `json:"promo_starts_at,omitempty"`
	PromoEndsAt     *time.Time `json:"promo_ends_at,omitempty"`
}

// PromoActive: window [starts, ends) dan harga promo terisi.
func (p *Product) PromoActive(now time.Time) bool {
	return p.PromoPriceCents != nil && p.PromoStartsAt != nil && p.PromoEndsAt != nil &&
		!now.Before(*p.PromoStartsAt) && now.Before(*p.PromoEndsAt)
}

// ResolvedPrice: harga promo kalau window aktif, selain itu harga list.
// Dipanggil di dalam transaksi order — hasilnya di-snapshot ke order line.
func (p *Product) ResolvedPrice(now time.Time) int64 {
	if p.PromoActive(now) {
		return *p.PromoPriceCents
	}
	return p.PriceCents
}

// Store membaca katalog dari Postgres dengan cache Redis ber-TTL di depan.
// Cache hanya untuk jalur baca (listing/display); transaksi order selalu
// baca fresh dari DB. Redis boleh nil (cache off).
type Store struct {
	DB    *pgxpool.Pool
	Redis *redis.Client
}

func (s *Store) Get(ctx context.Context, id int64) (*Product, error) {
	if s.Redis != nil {
		key := fmt.Sprintf(redisx.KeyProduct, id)
		if raw, err := s.Redis.Get(ctx, key).Result(); err == nil && raw != "" {
			var p Product
			if json.Unmarshal([]byte(raw), &p) == nil {
				return &p, nil
			}
		}
	}

	p, err := s.getDB(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if b, err := json.Marshal(p); err == nil {
			_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyProduct, id), b, redisx.TTLProduct).Err()
		}
	}
	return p, nil
}

func (s *Store) getDB(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, price_cents, promo_price_cents, promo_starts_at, promo_ends_at
		FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.PromoPriceCents, &p.PromoStartsAt, &p.PromoEndsAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Invalidate membuang entri cache produk (dipanggil sweeper & admin CRUD).
func (s *Store) Invalidate(ctx context.Context, ids ...int64) {
	if s.Redis == nil {
		return
	}
	for _, id := range ids {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyProduct, id)).Err()
	}
}
