package cart

import "time"

const AggregateType = "Cart"

const (
	EventItemAdded       = "ItemAddedToCart"
	EventQuantityChanged = "ItemQuantityChanged"
	EventItemRemoved     = "ItemRemovedFromCart"
	EventCartCleared     = "CartCleared"
)

type ItemAddedToCart struct {
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Price     int       `json:"price"`
	AddedAt   time.Time `json:"added_at"`
}

type ItemQuantityChanged struct {
	CartID      string    `json:"cart_id"`
	ProductID   string    `json:"product_id"`
	Delta       int       `json:"delta"`
	NewQuantity int       `json:"new_quantity"`
	ChangedAt   time.Time `json:"changed_at"`
}

type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"` // units returned to stock
	RemovedAt time.Time `json:"removed_at"`
}

type CartCleared struct {
	CartID    string    `json:"cart_id"`
	Restored  int       `json:"restored"`
	ClearedAt time.Time `json:"cleared_at"`
}
