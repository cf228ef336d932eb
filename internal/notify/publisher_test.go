package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	err       error
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	f.declared = append(f.declared, name+"/"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, exchange+":"+key)
	f.published = append(f.published, msg)
	return nil
}

func TestNotifyRoutesByTemplate(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewPublisher(ch, "", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "notifications/topic" {
		t.Fatalf("exchange not declared: %v", ch.declared)
	}

	if err := p.Notify(context.Background(), "booking_confirmed", "jane@example.com", map[string]any{"bookingId": "b-1"}); err != nil {
		t.Fatalf("notify error: %v", err)
	}
	if len(ch.keys) != 1 || ch.keys[0] != "notifications:booking_confirmed" {
		t.Fatalf("unexpected routing %v", ch.keys)
	}
	var msg Message
	if err := json.Unmarshal(ch.published[0].Body, &msg); err != nil {
		t.Fatalf("body is not json: %v", err)
	}
	if msg.Recipient != "jane@example.com" || msg.Data["bookingId"] != "b-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if ch.published[0].DeliveryMode != amqp.Persistent {
		t.Fatalf("notifications must be persistent")
	}
}

func TestNotifyReturnsBrokerError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p, _ := NewPublisher(ch, "notifications", 0)
	if err := p.Notify(context.Background(), "booking_extended", "a@b.c", nil); err == nil {
		t.Fatalf("expected broker error to surface")
	}
}
