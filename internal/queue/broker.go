package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/jonathan/resume-analyzer/internal/config"
)

// Broker publishes jobs and status updates and consumes jobs over one AMQP
// connection.
type Broker struct {
	conn     *amqp.Connection
	queue    string
	exchange string

	mu  sync.Mutex
	pub *amqp.Channel
}

// Dial connects to RabbitMQ and declares the job queue and status exchange.
func Dial(cfg config.QueueConfig) (*Broker, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing rabbitmq url")
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error dialling rabbitmq: %w", err)
	}
	b := &Broker{conn: conn, queue: cfg.JobQueue, exchange: cfg.StatusExchange}
	if err := b.declare(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return b, nil
}

func (b *Broker) declare() error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		b.queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	err = ch.ExchangeDeclare(
		b.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	b.pub = ch
	return nil
}

// PublishJob enqueues an analysis job as a persistent message.
func (b *Broker) PublishJob(_ context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	return b.publish("", b.queue, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// PublishStatus sends a status update to the status exchange.
func (b *Broker) PublishStatus(_ context.Context, update StatusUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	return b.publish(b.exchange, "job."+update.JobID.String(), amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   update.Timestamp,
		Body:        body,
	})
}

func (b *Broker) publish(exchange, key string, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.pub.Publish(exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to %q: %w", key, err)
	}
	return nil
}

// Consume opens a channel with the given prefetch and streams job
// deliveries until ctx is cancelled or the connection drops.
func (b *Broker) Consume(ctx context.Context, prefetch int) (<-chan Delivery, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}
	msgs, err := ch.Consume(
		b.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("error consuming rabbitmq messages: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer func() { _ = ch.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				d := NewDelivery(m.Body,
					func() error { return m.Ack(false) },
					func(requeue bool) error { return m.Nack(false, requeue) })
				select {
				case out <- d:
				case <-ctx.Done():
					_ = m.Nack(false, true)
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the publish channel and the connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	if b.pub != nil {
		_ = b.pub.Close()
	}
	b.mu.Unlock()
	return b.conn.Close()
}
