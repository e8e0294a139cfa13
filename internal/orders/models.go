package orders

import "time"

type Order struct {
	ID            int64     `json:"id"`
	OwnerID       int64     `json:"owner_id"`
	Status        Status    `json:"status"`
	TotalCents    int64     `json:"total_cents"`
	DiscountID    *int64    `json:"discount_id,omitempty"`
	DiscountCents int64     `json:"discount_cents"`
	Lines         []Line    `json:"lines"`
	Shipping      Shipping  `json:"shipping"`
	CreatedAt     time.Time `json:"created_at"`
}

// Line menyimpan snapshot nama & harga saat pembelian — repricing
// belakangan di katalog tidak boleh mengubah order lama.
type Line struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Qty         int    `json:"qty"`
	PriceCents  int64  `json:"price_cents"`
}

type Shipping struct {
	Address           string     `json:"address"`
	PhoneNumber       string     `json:"phone_number"`
	Carrier           string     `json:"carrier"`
	FeeCents          int64      `json:"fee_cents"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
}

type LineInput struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

type CreateOrderInput struct {
	Lines        []LineInput `json:"lines"`
	DiscountCode string      `json:"discount_code,omitempty"`
	Shipping     Shipping    `json:"shipping"`
}
