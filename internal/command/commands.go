package command

// Cart Commands
type AddToCart struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ChangeQuantity struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
}

type RemoveFromCart struct {
	ProductID string `json:"product_id"`
}

type ClearCart struct{}
