package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPRelay routes events through a topic exchange, using the channel name as routing key.
// Each subscription binds its own exclusive, auto-deleted queue.
type AMQPRelay struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPRelay(url, exchange string) (*AMQPRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPRelay{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *AMQPRelay) Name() string { return "amqp" }

func (r *AMQPRelay) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := marshalPayload(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.ch.PublishWithContext(
		publishCtx,
		r.exchange,
		channel,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Type:        event,
			Body:        raw,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to rabbitmq: %w", err)
	}

	return nil
}

func (r *AMQPRelay) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	ch, err := r.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(q.Name, channel, r.exchange, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("bind queue to %s: %w", channel, err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("start consuming: %w", err)
	}

	sub := newSubscription(func() { _ = ch.Close() })

	go func() {
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if !sub.deliver(ctx, Message{Channel: d.RoutingKey, Event: d.Type, Payload: d.Body}) {
					return
				}
			}
		}
	}()

	return sub, nil
}

func (r *AMQPRelay) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil {
		_ = r.ch.Close()
	}
	return r.conn.Close()
}
