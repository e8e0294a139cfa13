package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "orders", Name: "created_total",
		Help: "Orders successfully created.",
	})
	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "orders", Name: "cancelled_total",
		Help: "Orders cancelled by owner or staff.",
	})
	OrdersConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "orders", Name: "confirmed_total",
		Help: "Orders confirmed after successful payment.",
	})
	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "inventory", Name: "stock_rejections_total",
		Help: "Checkouts rejected for insufficient stock.",
	})
	DiscountRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "orders", Name: "discount_rejections_total",
		Help: "Discount codes rejected at checkout, by reason.",
	}, []string{"reason"})
	CallbackResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "payments", Name: "callback_results_total",
		Help: "Gateway callback outcomes, by gateway and result.",
	}, []string{"gateway", "result"})
	PromosSwept = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "shop", Subsystem: "catalog", Name: "promos_swept_total",
		Help: "Expired promotions cleared by the sweeper.",
	})
)
