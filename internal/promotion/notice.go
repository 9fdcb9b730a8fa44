package promotion

import (
	"fmt"
	"time"
)

type Kind string

const (
	KindLightning  Kind = "lightning"
	KindSuggestion Kind = "suggestion"
)

// Notice describes a promotion that has just changed a product's price.
type Notice struct {
	Kind          Kind      `json:"kind"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	BasePrice     int       `json:"base_price"`
	PreviousPrice int       `json:"previous_price"`
	Price         int       `json:"price"`
	Percent       int       `json:"percent"`
	At            time.Time `json:"at"`
}

// Message renders the storefront alert for the notice.
func (n Notice) Message() string {
	switch n.Kind {
	case KindLightning:
		return fmt.Sprintf("⚡번개세일! %s이(가) %d%% 할인 중입니다!", n.ProductName, n.Percent)
	case KindSuggestion:
		return fmt.Sprintf("💝 %s은(는) 어떠세요? 지금 구매하시면 %d%% 추가 할인!", n.ProductName, n.Percent)
	}
	return fmt.Sprintf("%s: %d원", n.ProductName, n.Price)
}
