package queue

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue side-effect tasks travel on.
const DefaultQueue = "frontdesk.sidefx"

// Publisher publishes tasks to RabbitMQ. The connection is dialled lazily
// and redialled after any failure.
type Publisher struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher does not dial; the first Enqueue does.
func NewPublisher(url, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Publisher{url: url, queue: queue}
}

// Enqueue publishes t as a persistent message.
func (p *Publisher) Enqueue(ctx context.Context, t Task) error {
	body, err := t.encode()
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensure(); err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    t.ID,
		Type:         string(t.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish %s failed: %v", t.Kind, err)
		p.reset()
		return err
	}
	return nil
}

func (p *Publisher) ensure() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	// Durable so tasks survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
