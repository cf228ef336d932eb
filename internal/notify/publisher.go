package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/time/rate"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the body consumers of the notifications exchange receive.
type Message struct {
	Template  string         `json:"template"`
	Recipient string         `json:"recipient"`
	Data      map[string]any `json:"data,omitempty"`
	SentAt    time.Time      `json:"sentAt"`
}

// Publisher sends templated notifications to a topic exchange, routed by
// template name. Sends are paced so a webhook burst cannot flood the broker.
type Publisher struct {
	ch       Channel
	exchange string
	limiter  *rate.Limiter
	timeout  time.Duration
}

func NewPublisher(ch Channel, exchange string, perSecond float64) (*Publisher, error) {
	if exchange == "" {
		exchange = "notifications"
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		limiter:  rate.NewLimiter(limit, burst),
		timeout:  5 * time.Second,
	}, nil
}

func (p *Publisher) Notify(ctx context.Context, template, recipient string, data map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notification rate wait: %w", err)
	}
	body, err := json.Marshal(Message{Template: template, Recipient: recipient, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, template, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// LogNotifier stands in when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, template, recipient string, _ map[string]any) error {
	log.Printf("[NOTIFY] action=%s recipient=%s msg=broker not configured, message dropped", template, recipient)
	return nil
}
