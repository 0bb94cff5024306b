package rabbit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// NoticeType marks messages carrying an app.AutoDeclineNotice.
const NoticeType = "events.auto-decline"

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Queue    string
	// Prefetch limits unacknowledged deliveries per consumer, 0 means no limit.
	Prefetch int
}

// Provider owns one connection and channel bound to a durable queue.
type Provider struct {
	uri      amqp.URI
	queue    string
	prefetch int

	conn    *amqp.Connection
	channel *amqp.Channel
}

func New(config Config) *Provider {
	return &Provider{
		uri: amqp.URI{
			Scheme:   "amqp",
			Host:     config.Host,
			Port:     config.Port,
			Username: config.User,
			Password: config.Password,
			Vhost:    "/",
		},
		queue:    config.Queue,
		prefetch: config.Prefetch,
	}
}

func (r *Provider) Connect() error {
	var err error
	if r.conn, err = amqp.Dial(r.uri.String()); err != nil {
		return fmt.Errorf("failed to dial rabbit %s:%d: %w", r.uri.Host, r.uri.Port, err)
	}
	if r.channel, err = r.conn.Channel(); err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if r.prefetch > 0 {
		if err = r.channel.Qos(r.prefetch, 0, false); err != nil {
			return fmt.Errorf("failed to set prefetch: %w", err)
		}
	}
	// durable, not auto-deleted, shared
	if _, err = r.channel.QueueDeclare(r.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %q: %w", r.queue, err)
	}
	return nil
}

func (r *Provider) Close() {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		r.conn.Close()
	}
}

// Publish sends a persistent notice message to the queue.
func (r *Provider) Publish(body []byte) error {
	if r.channel == nil {
		return fmt.Errorf("publish to %q: not connected", r.queue)
	}
	return r.channel.Publish("", r.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         NoticeType,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Handler processes one delivery. A returned error rejects the message
// without requeueing it.
type Handler func(msg amqp.Delivery) error

// Consume acknowledges each delivery after handle returns. It stops when ctx
// is done or the broker closes the delivery channel.
func (r *Provider) Consume(ctx context.Context, handle Handler) error {
	msgs, err := r.channel.Consume(r.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume %q: %w", r.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel of %q closed", r.queue)
			}
			if err := handle(m); err != nil {
				log.WithField("message", m.MessageId).Warnf("message rejected: %v", err)
				if err := m.Nack(false, false); err != nil {
					log.Errorf("failed to reject message: %v", err)
				}
				continue
			}
			if err := m.Ack(false); err != nil {
				log.Errorf("failed to ack message: %v", err)
			}
		}
	}
}
