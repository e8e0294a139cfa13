package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/metrics"
)

// Sweeper membersihkan promo yang sudah lewat endDate secara periodik.
// Idempotent dan aman jalan bersamaan dengan checkout: harga order
// di-snapshot saat order dibuat, bukan dibaca ulang.
type Sweeper struct {
	Store    *Store
	Log      *zap.Logger
	Interval time.Duration
}

func (s *Sweeper) Run(ctx context.Context) {
	iv := s.Interval
	if iv <= 0 {
		iv = 5 * time.Minute
	}
	t := time.NewTicker(iv)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.ClearExpired(ctx)
			if err != nil {
				s.Log.Warn("promo sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.Log.Info("expired promotions cleared", zap.Int("count", n))
			}
		}
	}
}

// ClearExpired menghapus field promo untuk semua produk yang window-nya
// sudah berakhir, lalu membuang entri cache produk terkait.
func (s *Sweeper) ClearExpired(ctx context.Context) (int, error) {
	rows, err := s.Store.DB.Query(ctx, `
		UPDATE products
		SET promo_price_cents=NULL, promo_starts_at=NULL, promo_ends_at=NULL, updated_at=now()
		WHERE promo_ends_at IS NOT NULL AND promo_ends_at <= now()
		RETURNING id`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	s.Store.Invalidate(ctx, ids...)
	metrics.PromosSwept.Add(float64(len(ids)))
	return len(ids), nil
}
