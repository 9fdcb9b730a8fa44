package promotion

import "time"

const AggregateType = "Promotion"

const (
	EventLightningSaleStarted  = "LightningSaleStarted"
	EventSuggestionSaleStarted = "SuggestionSaleStarted"
)

// SaleStarted is the journal payload for both promotion events.
type SaleStarted struct {
	SessionID     string    `json:"session_id"`
	ProductID     string    `json:"product_id"`
	ProductName   string    `json:"product_name"`
	BasePrice     int       `json:"base_price"`
	PreviousPrice int       `json:"previous_price"`
	NewPrice      int       `json:"new_price"`
	Percent       int       `json:"percent"`
	StartedAt     time.Time `json:"started_at"`
}

// EventType maps a notice kind to its journal event type.
func EventType(k Kind) string {
	if k == KindSuggestion {
		return EventSuggestionSaleStarted
	}
	return EventLightningSaleStarted
}

// NewSaleStarted builds the journal payload for a notice.
func NewSaleStarted(sessionID string, n Notice) SaleStarted {
	return SaleStarted{
		SessionID:     sessionID,
		ProductID:     n.ProductID,
		ProductName:   n.ProductName,
		BasePrice:     n.BasePrice,
		PreviousPrice: n.PreviousPrice,
		NewPrice:      n.Price,
		Percent:       n.Percent,
		StartedAt:     n.At,
	}
}

// NoticeFromEvent rebuilds a notice from a journal payload.
func NoticeFromEvent(eventType string, e SaleStarted) (Notice, bool) {
	var kind Kind
	switch eventType {
	case EventLightningSaleStarted:
		kind = KindLightning
	case EventSuggestionSaleStarted:
		kind = KindSuggestion
	default:
		return Notice{}, false
	}
	return Notice{
		Kind:          kind,
		ProductID:     e.ProductID,
		ProductName:   e.ProductName,
		BasePrice:     e.BasePrice,
		PreviousPrice: e.PreviousPrice,
		Price:         e.NewPrice,
		Percent:       e.Percent,
		At:            e.StartedAt,
	}, true
}
