package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/gateway"
	"github.com/sondv/phone-orders/internal/identity"
	kafkax "github.com/sondv/phone-orders/internal/kafka"
	"github.com/sondv/phone-orders/internal/metrics"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/payments"
	"github.com/sondv/phone-orders/internal/redisx"
)

var ErrInvalidReference = errors.New("invalid transaction reference")

// Response code IPN per kontrak gateway.
const (
	IPNCodeSuccess      = "00"
	IPNCodeNotFound     = "01"
	IPNCodeConfirmed    = "02"
	IPNCodeInvalidHash  = "97"
	IPNCodeUnknownError = "99"
)

// Halaman redirect untuk callback browser.
const (
	returnSuccessPath = "/order-confirmation"
	returnFailedPath  = "/payment-failed"
)

type IPNResult struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

type PaymentStore interface {
	GetByID(ctx context.Context, id int64) (*payments.Payment, error)
	UpdateStatus(ctx context.Context, orderID int64, status payments.Status, externalTxnID string) (*payments.Payment, bool, error)
}

type OrderStore interface {
	Confirm(ctx context.Context, orderID int64) error
	Owner(ctx context.Context, orderID int64) (int64, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Deduper adalah fast-path dedup callback. Mark hanya boleh dipanggil
// setelah seluruh efek callback (termasuk konfirmasi order) selesai:
// begitu sebuah txn ditandai, callback berikutnya di-ack tanpa diproses.
type Deduper interface {
	Seen(ctx context.Context, method payments.Method, txnID string) bool
	Mark(ctx context.Context, method payments.Method, txnID string)
}

// RedisDedup menyimpan tanda dedup di redis dengan TTL.
type RedisDedup struct{ C *redis.Client }

func (d RedisDedup) Seen(ctx context.Context, method payments.Method, txnID string) bool {
	ok, _ := redisx.Exists(ctx, d.C, fmt.Sprintf(redisx.KeyCallbackDedup, method, txnID))
	return ok
}

func (d RedisDedup) Mark(ctx context.Context, method payments.Method, txnID string) {
	_ = d.C.Set(ctx, fmt.Sprintf(redisx.KeyCallbackDedup, method, txnID), "1", redisx.TTLDedup).Err()
}

// Dispatcher menerima callback gateway, minta adapter memverifikasi,
// lalu menggerakkan payment + konfirmasi order. Dedup hanya fast-path;
// kebenaran idempotency ada di payment store (external txn id).
type Dispatcher struct {
	Adapters gateway.Registry
	Payments PaymentStore
	Orders   OrderStore
	Dedup    Deduper // boleh nil
	// Producer per topic; boleh nil (event publishing best-effort).
	ProducerConfirmed Publisher
	ProducerPayment   Publisher
	Log               *zap.Logger
	Service           string
}

// HandleIPN memproses notifikasi server-to-server. Selalu mengembalikan
// response terstruktur yang deterministik supaya gateway tidak retry
// callback yang gagal permanen.
func (d *Dispatcher) HandleIPN(ctx context.Context, method payments.Method, params map[string]string) IPNResult {
	adapter, err := d.Adapters.For(method)
	if err != nil {
		return IPNResult{RspCode: IPNCodeUnknownError, Message: "Unknown payment method"}
	}

	if err := adapter.VerifyCallback(params); err != nil {
		// Log reference yang ditolak, jangan pernah secret/hash input.
		d.Log.Warn("gateway callback rejected",
			zap.String("gateway", string(method)),
			zap.String("txn_ref", adapter.ParseOutcome(params).TxnRef),
			zap.Error(err))
		metrics.CallbackResults.WithLabelValues(string(method), "invalid_signature").Inc()
		return IPNResult{RspCode: IPNCodeInvalidHash, Message: "Invalid secure hash"}
	}

	out := adapter.ParseOutcome(params)

	paymentID, err := parseRef(out.TxnRef)
	if err != nil {
		d.Log.Warn("invalid transaction reference", zap.String("txn_ref", out.TxnRef))
		metrics.CallbackResults.WithLabelValues(string(method), "invalid_reference").Inc()
		return IPNResult{RspCode: IPNCodeNotFound, Message: "Invalid transaction reference"}
	}

	if d.seen(ctx, method, out.ExternalTxnID) {
		return IPNResult{RspCode: IPNCodeSuccess, Message: "success"}
	}

	p, err := d.Payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payments.ErrNotFound) {
			metrics.CallbackResults.WithLabelValues(string(method), "not_found").Inc()
			return IPNResult{RspCode: IPNCodeNotFound, Message: "Payment not found"}
		}
		return IPNResult{RspCode: IPNCodeUnknownError, Message: "Unknown error"}
	}

	status := payments.StatusFailed
	if out.Success {
		status = payments.StatusPaid
	}

	updated, applied, err := d.Payments.UpdateStatus(ctx, p.OrderID, status, out.ExternalTxnID)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidTransition) {
			// Payment sudah terminal dengan txn lain — konflik, bukan retryable.
			d.Log.Warn("callback for finalized payment",
				zap.Int64("payment_id", p.ID),
				zap.String("status", string(p.Status)),
				zap.String("txn_ref", out.TxnRef))
			metrics.CallbackResults.WithLabelValues(string(method), "conflict").Inc()
			return IPNResult{RspCode: IPNCodeConfirmed, Message: conflictMessage(p.Status)}
		}
		d.Log.Error("payment update failed", zap.Int64("payment_id", p.ID), zap.Error(err))
		return IPNResult{RspCode: IPNCodeUnknownError, Message: "Unknown error"}
	}

	if !applied {
		// Callback duplikat: state tidak berubah. Confirm tetap diulang
		// (idempotent) — retry sebelumnya bisa saja gagal di langkah ini.
		if updated.Status == payments.StatusPaid {
			if err := d.Orders.Confirm(ctx, p.OrderID); err != nil {
				d.Log.Error("order confirm failed", zap.Int64("order_id", p.OrderID), zap.Error(err))
				return IPNResult{RspCode: IPNCodeUnknownError, Message: "Unknown error"}
			}
		}
		metrics.CallbackResults.WithLabelValues(string(method), "duplicate").Inc()
		return IPNResult{RspCode: IPNCodeSuccess, Message: "success"}
	}

	if status == payments.StatusPaid {
		if err := d.Orders.Confirm(ctx, p.OrderID); err != nil {
			// Payment sudah PAID; biarkan gateway retry supaya konfirmasi
			// (idempotent) bisa diulang.
			d.Log.Error("order confirm failed", zap.Int64("order_id", p.OrderID), zap.Error(err))
			return IPNResult{RspCode: IPNCodeUnknownError, Message: "Unknown error"}
		}
		metrics.OrdersConfirmed.Inc()
		d.publishConfirmed(p.OrderID)
	}

	d.publishPaymentStatus(updated)
	d.mark(ctx, method, out.ExternalTxnID)
	metrics.CallbackResults.WithLabelValues(string(method), "ok").Inc()
	return IPNResult{RspCode: IPNCodeSuccess, Message: "success"}
}

// HandleReturn memproses redirect browser. Verifikasi signature sama
// persis dengan IPN, plus cek principal memang pemilik order-nya.
// Hasilnya selalu URL redirect yang deterministik.
func (d *Dispatcher) HandleReturn(ctx context.Context, principal identity.Principal, method payments.Method, params map[string]string) string {
	adapter, err := d.Adapters.For(method)
	if err != nil {
		return failedURL("unknown-method")
	}

	if err := adapter.VerifyCallback(params); err != nil {
		d.Log.Warn("return callback rejected",
			zap.String("gateway", string(method)),
			zap.String("txn_ref", adapter.ParseOutcome(params).TxnRef))
		metrics.CallbackResults.WithLabelValues(string(method), "invalid_signature").Inc()
		return failedURL("invalid-signature")
	}

	out := adapter.ParseOutcome(params)

	paymentID, err := parseRef(out.TxnRef)
	if err != nil {
		return failedURL("invalid-reference")
	}

	p, err := d.Payments.GetByID(ctx, paymentID)
	if err != nil {
		return failedURL("payment-not-found")
	}

	ownerID, err := d.Orders.Owner(ctx, p.OrderID)
	if err != nil || !principal.CanActOn(ownerID) {
		return failedURL("forbidden")
	}

	if !out.Success {
		if _, _, err := d.Payments.UpdateStatus(ctx, p.OrderID, payments.StatusFailed, out.ExternalTxnID); err != nil &&
			!errors.Is(err, payments.ErrInvalidTransition) {
			d.Log.Error("payment update failed", zap.Int64("payment_id", p.ID), zap.Error(err))
		}
		return failedURL(out.Code)
	}

	updated, applied, err := d.Payments.UpdateStatus(ctx, p.OrderID, payments.StatusPaid, out.ExternalTxnID)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidTransition) {
			return failedURL("finalized")
		}
		return failedURL("error")
	}

	if applied {
		d.publishPaymentStatus(updated)
		if err := d.Orders.Confirm(ctx, p.OrderID); err != nil {
			// Jangan tandai dedup: IPN untuk txn ini masih harus bisa
			// mengulang konfirmasi (idempotent) lewat jalur duplikat.
			d.Log.Error("order confirm failed", zap.Int64("order_id", p.OrderID), zap.Error(err))
		} else {
			metrics.OrdersConfirmed.Inc()
			d.publishConfirmed(p.OrderID)
			d.mark(ctx, method, out.ExternalTxnID)
		}
	}
	metrics.CallbackResults.WithLabelValues(string(method), "ok").Inc()
	return fmt.Sprintf("%s?txnRef=%d", returnSuccessPath, paymentID)
}

func parseRef(ref string) (int64, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return id, nil
}

func failedURL(code string) string {
	return fmt.Sprintf("%s?code=%s", returnFailedPath, code)
}

// conflictMessage: pesan "02" mengikuti state terminal yang sebenarnya.
func conflictMessage(s payments.Status) string {
	switch s {
	case payments.StatusPaid:
		return "Order already confirmed"
	case payments.StatusFailed:
		return "Payment already failed"
	case payments.StatusAwaitingDelivery:
		return "Payment awaiting delivery"
	default:
		return "Payment already finalized"
	}
}

func (d *Dispatcher) seen(ctx context.Context, method payments.Method, txnID string) bool {
	if d.Dedup == nil || txnID == "" {
		return false
	}
	return d.Dedup.Seen(ctx, method, txnID)
}

func (d *Dispatcher) mark(ctx context.Context, method payments.Method, txnID string) {
	if d.Dedup == nil || txnID == "" {
		return
	}
	d.Dedup.Mark(ctx, method, txnID)
}

func (d *Dispatcher) publishConfirmed(orderID int64) {
	if d.ProducerConfirmed == nil {
		return
	}
	ownerID, _ := d.Orders.Owner(context.Background(), orderID)
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      d.Service,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(orders.OrderConfirmedPayload{OrderID: orderID, OwnerID: ownerID}),
	}
	d.ProducerConfirmed.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (d *Dispatcher) publishPaymentStatus(p *payments.Payment) {
	if d.ProducerPayment == nil || p == nil {
		return
	}
	ext := ""
	if p.ExternalTxnID != nil {
		ext = *p.ExternalTxnID
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventPaymentStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      d.Service,
		CorrelationID: strconv.FormatInt(p.OrderID, 10),
		Payload: kafkax.MustMarshal(orders.PaymentStatusChangedPayload{
			OrderID:       p.OrderID,
			PaymentID:     p.ID,
			Method:        string(p.Method),
			Status:        string(p.Status),
			ExternalTxnID: ext,
		}),
	}
	d.ProducerPayment.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
