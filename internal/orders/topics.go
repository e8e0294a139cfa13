package orders

import "strconv"

const (
	TopicOrderCreated   = "shop.order.created"
	TopicOrderConfirmed = "shop.order.confirmed"
	TopicOrderCancelled = "shop.order.cancelled"
	TopicPaymentStatus  = "shop.payment.status"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID int64) []byte {
	return []byte(strconv.FormatInt(orderID, 10))
}
