package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumer connects to RabbitMQ, declares the durable task queue and
// hands every delivery to p. It reconnects with exponential backoff and
// returns only when ctx is cancelled.
//
// A failed task is requeued once; a second failure (Redelivered set) is
// rejected so a poison message cannot spin the worker. A task leased by
// another worker is always requeued.
func StartConsumer(ctx context.Context, url, queue string, p *Processor) error {
	if queue == "" {
		queue = DefaultQueue
	}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("sidefx-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, queue, p)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("sidefx-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, p *Processor) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("sidefx-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handleDelivery(ctx, d, p)
		}
	}
}

func handleDelivery(ctx context.Context, d amqp.Delivery, p *Processor) {
	t, err := decodeTask(d.Body)
	if err != nil {
		log.Printf("sidefx-consumer: malformed task dropped: %v", err)
		_ = d.Nack(false, false)
		return
	}
	tctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := p.Process(tctx, t); err != nil {
		if errors.Is(err, ErrInFlight) {
			// wait for the holder to finish or its lease to lapse
			sleep(ctx, time.Second)
			_ = d.Nack(false, true)
			return
		}
		log.Printf("sidefx-consumer: task %s (%s) failed: %v", t.ID, t.Kind, err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
