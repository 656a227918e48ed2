package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/mykafka"
)

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

const (
	topicUser    = mykafka.TopicUser
	topicCart    = mykafka.TopicCart
	topicProduct = mykafka.TopicProduct
	topicOrder   = mykafka.TopicOrder
)

type UserEvent struct {
	Type   string `json:"type"`
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

type CartEvent struct {
	Type      string          `json:"type"`
	UserID    uint            `json:"user_id"`
	CartID    uint            `json:"cart_id"`
	ProductID uint            `json:"product_id,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
	Total     decimal.Decimal `json:"total"`
}

type ProductEvent struct {
	Type      string `json:"type"`
	ProductID uint   `json:"product_id"`
	Name      string `json:"name,omitempty"`
}

type OrderEvent struct {
	Type    string          `json:"type"`
	OrderID uint            `json:"order_id"`
	UserID  uint            `json:"user_id"`
	Total   decimal.Decimal `json:"total"`
}

// publish runs after commit; delivery failures never fail the operation.
func publish(ctx context.Context, p EventPublisher, topic, key string, event any) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "topic", topic, "key", key, "error", err)
	}
}
