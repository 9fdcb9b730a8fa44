package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/promo-cart/internal/promotion"
	"github.com/redis/go-redis/v9"
)

// DefaultFeedSize is how many alerts a feed keeps when none is configured.
const DefaultFeedSize = 20

// Alert is a rendered promotion notice.
type Alert struct {
	Kind        promotion.Kind `json:"kind"`
	ProductID   string         `json:"product_id"`
	ProductName string         `json:"product_name"`
	Price       int            `json:"price"`
	Percent     int            `json:"percent"`
	Message     string         `json:"message"`
	At          time.Time      `json:"at"`
}

func NewAlert(n promotion.Notice) Alert {
	return Alert{
		Kind:        n.Kind,
		ProductID:   n.ProductID,
		ProductName: n.ProductName,
		Price:       n.Price,
		Percent:     n.Percent,
		Message:     n.Message(),
		At:          n.At,
	}
}

// Feed keeps the most recent alerts, newest first.
type Feed interface {
	Push(ctx context.Context, a Alert) error
	Recent(ctx context.Context) ([]Alert, error)
}

// MemoryFeed is a fixed-size ring of alerts.
type MemoryFeed struct {
	mu     sync.Mutex
	alerts []Alert
	next   int
	full   bool
}

func NewMemoryFeed(size int) *MemoryFeed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &MemoryFeed{alerts: make([]Alert, size)}
}

func (f *MemoryFeed) Push(_ context.Context, a Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts[f.next] = a
	f.next = (f.next + 1) % len(f.alerts)
	if f.next == 0 {
		f.full = true
	}
	return nil
}

func (f *MemoryFeed) Recent(_ context.Context) ([]Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.next
	if f.full {
		n = len(f.alerts)
	}
	out := make([]Alert, 0, n)
	for i := 1; i <= n; i++ {
		idx := (f.next - i + len(f.alerts)) % len(f.alerts)
		out = append(out, f.alerts[idx])
	}
	return out, nil
}

// RedisFeed keeps alerts in a capped Redis list so several processes can
// share one feed.
type RedisFeed struct {
	client redis.Cmdable
	key    string
	size   int
}

func NewRedisFeed(client redis.Cmdable, key string, size int) *RedisFeed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &RedisFeed{client: client, key: key, size: size}
}

func (f *RedisFeed) Push(ctx context.Context, a Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = f.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, f.key, data)
		pipe.LTrim(ctx, f.key, 0, int64(f.size-1))
		return nil
	})
	if err != nil {
		return fmt.Errorf("push alert: %w", err)
	}
	return nil
}

func (f *RedisFeed) Recent(ctx context.Context) ([]Alert, error) {
	raw, err := f.client.LRange(ctx, f.key, 0, int64(f.size-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read alerts: %w", err)
	}
	out := make([]Alert, 0, len(raw))
	for _, r := range raw {
		var a Alert
		if err := json.Unmarshal([]byte(r), &a); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}
