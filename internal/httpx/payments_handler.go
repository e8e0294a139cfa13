package httpx

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/gateway"
	"github.com/sondv/phone-orders/internal/identity"
	kafkax "github.com/sondv/phone-orders/internal/kafka"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/payments"
	"github.com/sondv/phone-orders/internal/reconcile"
)

type PaymentsHandler struct {
	Payments   *payments.Repo
	Orders     *orders.Repo
	Adapters   gateway.Registry
	Dispatcher *reconcile.Dispatcher
	// Producer untuk event status payment (COD & override lewat sini,
	// callback gateway dipublikasikan oleh dispatcher).
	ProducerPayment *kafkax.Producer
	Log             *zap.Logger
	Service         string
}

type CreatePaymentReq struct {
	OrderID int64           `json:"order_id"`
	Method  payments.Method `json:"method"`
}

type PaymentURLResp struct {
	PaymentURL string `json:"payment_url"`
}

type OverrideReq struct {
	Status        payments.Status `json:"status"`
	ExternalTxnID string          `json:"external_txn_id,omitempty"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payments", h.createPayment)
	r.Get("/payments/url/{orderID}", h.getPaymentURL)
	r.Get("/payments/by-transaction/{txnRef}", h.getByTransaction)
	r.Get("/payments/vnpay/return", h.vnpayReturn)
	r.Post("/payments/vnpay/ipn", h.vnpayIPN)
	r.Get("/payments/momo/return", h.momoReturn)
	r.Post("/payments/momo/ipn", h.momoIPN)
	r.Get("/payments/{orderID}", h.getPayment)
	r.Put("/payments/{orderID}", h.overrideStatus)
}

// createPayment membuat payment untuk order milik principal lalu
// mengembalikan URL pembayaran. COD tidak lewat gateway: langsung
// AWAITING_DELIVERY, order tetap PENDING sampai konfirmasi terima barang.
func (h *PaymentsHandler) createPayment(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var req CreatePaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if !req.Method.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown payment method"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Orders.Get(ctx, req.OrderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !principal.CanActOn(order.OwnerID) {
		writeErr(w, orders.ErrForbidden)
		return
	}

	p, err := h.Payments.Create(ctx, order.ID, req.Method)
	if err != nil {
		writeErr(w, err)
		return
	}

	if req.Method == payments.MethodCOD {
		updated, _, err := h.Payments.UpdateStatus(ctx, order.ID, payments.StatusAwaitingDelivery, "")
		if err != nil {
			writeErr(w, err)
			return
		}
		h.publishPaymentStatus(r, updated)
		writeJSON(w, http.StatusOK, PaymentURLResp{PaymentURL: "/order-confirmation"})
		return
	}

	url, err := h.buildPayURL(ctx, r, p, order)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentURLResp{PaymentURL: url})
}

// getPaymentURL membangun ulang URL bayar untuk payment yang sudah ada
// (user balik lagi dari halaman gateway tanpa menyelesaikan pembayaran).
func (h *PaymentsHandler) getPaymentURL(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !principal.CanActOn(order.OwnerID) {
		writeErr(w, orders.ErrForbidden)
		return
	}

	p, err := h.Payments.GetByOrderID(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if p.Method == payments.MethodCOD {
		writeJSON(w, http.StatusOK, PaymentURLResp{PaymentURL: "/order-confirmation"})
		return
	}
	if p.Status.Terminal() {
		writeErr(w, payments.ErrInvalidTransition)
		return
	}

	url, err := h.buildPayURL(ctx, r, p, order)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaymentURLResp{PaymentURL: url})
}

func (h *PaymentsHandler) buildPayURL(ctx context.Context, r *http.Request, p *payments.Payment, order *orders.Order) (string, error) {
	adapter, err := h.Adapters.For(p.Method)
	if err != nil {
		return "", err
	}
	url, err := adapter.BuildPayURL(gateway.PayRequest{
		PaymentID:   p.ID,
		OrderID:     order.ID,
		AmountCents: order.TotalCents,
		ClientIP:    clientIP(r),
		Now:         time.Now(),
	})
	if err != nil {
		return "", err
	}
	// PENDING -> PROCESSING begitu user diarahkan ke gateway.
	if p.Status == payments.StatusPending {
		if _, _, err := h.Payments.UpdateStatus(ctx, p.OrderID, payments.StatusProcessing, ""); err != nil {
			return "", err
		}
	}
	return url, nil
}

func (h *PaymentsHandler) getPayment(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Payments.GetByOrderID(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	ownerID, err := h.Orders.Owner(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !principal.CanActOn(ownerID) {
		writeErr(w, orders.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PaymentsHandler) getByTransaction(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	txnRef := chi.URLParam(r, "txnRef")
	if txnRef == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing txnRef"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Payments.GetByExternalTxnID(ctx, txnRef)
	if err != nil {
		writeErr(w, err)
		return
	}
	ownerID, err := h.Orders.Owner(ctx, p.OrderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !principal.CanActOn(ownerID) {
		writeErr(w, orders.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// overrideStatus: jalur exceptional khusus admin, boleh memaksa transisi
// apa pun. Selalu dicatat (payment_audit + log warn), bukan alur normal.
func (h *PaymentsHandler) overrideStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !principal.IsAdmin() {
		writeErr(w, orders.ErrForbidden)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		writeErr(w, err)
		return
	}

	var req OverrideReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Payments.Override(ctx, orderID, req.Status, req.ExternalTxnID, principal.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.Log.Warn("payment status overridden",
		zap.Int64("order_id", orderID),
		zap.String("status", string(req.Status)),
		zap.Int64("actor_id", principal.UserID))
	h.publishPaymentStatus(r, p)
	writeJSON(w, http.StatusOK, p)
}

// ---- Callback gateway ----

func (h *PaymentsHandler) vnpayReturn(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, payments.MethodVNPay)
}

func (h *PaymentsHandler) momoReturn(w http.ResponseWriter, r *http.Request) {
	h.handleReturn(w, r, payments.MethodMomo)
}

func (h *PaymentsHandler) handleReturn(w http.ResponseWriter, r *http.Request, method payments.Method) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dest := h.Dispatcher.HandleReturn(ctx, principal, method, callbackParams(r))
	http.Redirect(w, r, dest, http.StatusFound)
}

func (h *PaymentsHandler) vnpayIPN(w http.ResponseWriter, r *http.Request) {
	h.handleIPN(w, r, payments.MethodVNPay)
}

func (h *PaymentsHandler) momoIPN(w http.ResponseWriter, r *http.Request) {
	h.handleIPN(w, r, payments.MethodMomo)
}

// IPN server-to-server: tanpa principal, keabsahan murni dari signature.
// Response selalu 200 dengan body {RspCode, Message} sesuai kontrak.
func (h *PaymentsHandler) handleIPN(w http.ResponseWriter, r *http.Request, method payments.Method) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res := h.Dispatcher.HandleIPN(ctx, method, callbackParams(r))
	writeJSON(w, http.StatusOK, res)
}

func (h *PaymentsHandler) publishPaymentStatus(r *http.Request, p *payments.Payment) {
	if h.ProducerPayment == nil || p == nil {
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
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(p.OrderID, 10),
		Payload: kafkax.MustMarshal(orders.PaymentStatusChangedPayload{
			OrderID:       p.OrderID,
			PaymentID:     p.ID,
			Method:        string(p.Method),
			Status:        string(p.Status),
			ExternalTxnID: ext,
		}),
	}
	h.ProducerPayment.Publish(orders.PartitionKey(p.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventPaymentStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// callbackParams meratakan query + form jadi map key->value pertama,
// bentuk yang dipakai adapter untuk verifikasi.
func callbackParams(r *http.Request) map[string]string {
	_ = r.ParseForm()
	out := make(map[string]string, len(r.Form))
	for k, vs := range r.Form {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
