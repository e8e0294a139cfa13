package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/sondv/phone-orders/internal/discount"
	"github.com/sondv/phone-orders/internal/identity"
	"github.com/sondv/phone-orders/internal/inventory"
	kafkax "github.com/sondv/phone-orders/internal/kafka"
	"github.com/sondv/phone-orders/internal/metrics"
	"github.com/sondv/phone-orders/internal/orders"
	"github.com/sondv/phone-orders/internal/redisx"
)

type OrdersHandler struct {
	Repo *orders.Repo
	// Producer per topic (writer kafka terikat ke satu topic).
	ProducerCreated   *kafkax.Producer
	ProducerCancelled *kafkax.Producer
	Redis             *redis.Client
	Log               *zap.Logger
	Service           string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.createOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Repo.CreateOrder(ctx, principal.UserID, in)
	if err != nil {
		switch {
		case errors.Is(err, inventory.ErrInsufficientStock):
			metrics.StockRejections.Inc()
		case errors.Is(err, discount.ErrAlreadyUsed):
			metrics.DiscountRejections.WithLabelValues("already_used").Inc()
		case errors.Is(err, discount.ErrExpired):
			metrics.DiscountRejections.WithLabelValues("expired").Inc()
		case errors.Is(err, discount.ErrNotStackable):
			metrics.DiscountRejections.WithLabelValues("not_stackable").Inc()
		case errors.Is(err, discount.ErrMinimumNotMet):
			metrics.DiscountRejections.WithLabelValues("minimum_not_met").Inc()
		}
		writeErr(w, err)
		return
	}
	metrics.OrdersCreated.Inc()

	h.cacheStatus(ctx, order.ID, order.Status)
	h.publishOrderEvent(r, h.ProducerCreated, orders.EventOrderCreated, order.ID, orders.OrderCreatedPayload{
		OrderID:       order.ID,
		OwnerID:       order.OwnerID,
		Lines:         toLinePayloads(order.Lines),
		TotalCents:    order.TotalCents,
		DiscountCents: order.DiscountCents,
	})

	writeJSON(w, http.StatusCreated, order)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	order, err := h.Repo.CancelOrder(ctx, orderID, principal)
	if err != nil {
		writeErr(w, err)
		return
	}
	metrics.OrdersCancelled.Inc()

	h.cacheStatus(ctx, order.ID, order.Status)
	h.publishOrderEvent(r, h.ProducerCancelled, orders.EventOrderCancelled, order.ID, orders.OrderCancelledPayload{
		OrderID: order.ID,
		OwnerID: order.OwnerID,
		ActorID: principal.UserID,
	})

	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := identity.FromRequest(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	orderID, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	order, err := h.Repo.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !principal.CanActOn(order.OwnerID) {
		writeErr(w, orders.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	order, err := h.Repo.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, order.ID, order.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": order.Status})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID int64, status orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, status), redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publishOrderEvent(r *http.Request, prod *kafkax.Producer, eventType string, orderID int64, payload any) {
	if prod == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	prod.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func toLinePayloads(lines []orders.Line) []orders.LinePayload {
	out := make([]orders.LinePayload, 0, len(lines))
	for _, l := range lines {
		out = append(out, orders.LinePayload{ProductID: l.ProductID, Qty: l.Qty, PriceCents: l.PriceCents})
	}
	return out
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s", orders.ErrValidation, name)
	}
	return id, nil
}
