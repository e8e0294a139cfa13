package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/sondv/phone-orders/internal/kafka"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/redisx"
)

// Service mengubah event order/payment final jadi notifikasi.
// Konsumsi satu arah: tidak pernah menulis balik ke core.
type Service struct {
	Redis       *redis.Client
	Log         *zap.Logger
	ServiceName string
}

// HandleOrderConfirmed: dipasang sebagai handler consumer.
func (s *Service) HandleOrderConfirmed(ctx context.Context, m kafkago.Message) error {
	env, ok, err := s.decode(ctx, m, orders.EventOrderConfirmed)
	if err != nil || !ok {
		return err
	}
	p, err := kafkax.UnwrapPayload[orders.OrderConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}
	// Stand-in untuk email/SMS ke pelanggan.
	s.Log.Info("order confirmation notification",
		zap.Int64("order_id", p.OrderID),
		zap.Int64("owner_id", p.OwnerID))
	return nil
}

func (s *Service) HandlePaymentStatus(ctx context.Context, m kafkago.Message) error {
	env, ok, err := s.decode(ctx, m, orders.EventPaymentStatusChanged)
	if err != nil || !ok {
		return err
	}
	p, err := kafkax.UnwrapPayload[orders.PaymentStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	s.Log.Info("payment status notification",
		zap.Int64("order_id", p.OrderID),
		zap.Int64("payment_id", p.PaymentID),
		zap.String("method", p.Method),
		zap.String("status", p.Status))
	return nil
}

// decode: unmarshal envelope, filter tipe event, dedup via Redis (event_id).
func (s *Service) decode(ctx context.Context, m kafkago.Message, want string) (*orders.Envelope, bool, error) {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return nil, false, err
	}
	if env.EventType != want {
		return nil, false, nil // ignore
	}

	if s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
		exists, _ := redisx.Exists(ctx, s.Redis, dkey)
		if exists {
			return nil, false, nil
		}
		_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return &env, true, nil
}
