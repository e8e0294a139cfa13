package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%d"

	// Cache produk (read-mostly): product:{product_id} -> JSON produk
	KeyProduct = "product:%d"

	// Dedup callback gateway: dedup:callback:{method}:{txn_id}
	KeyCallbackDedup = "dedup:callback:%s:%s"

	// Dedup event processing di notifier: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLProduct     = 10 * time.Minute
	TTLDedup       = 48 * time.Hour
)
