package queue

import (
	"context"
	"log"
	"time"
)

// Inline runs tasks in-process. With Async set each task runs on its own
// goroutine with a detached context, so the caller never waits on it.
type Inline struct {
	P     *Processor
	Async bool
}

func (i Inline) Enqueue(ctx context.Context, t Task) error {
	if !i.Async {
		return i.P.Process(ctx, t)
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := i.P.Process(bg, t); err != nil {
			log.Printf("sidefx: inline task %s (%s) failed: %v", t.ID, t.Kind, err)
		}
	}()
	return nil
}

// Enqueuer is what Fallback composes.
type Enqueuer interface {
	Enqueue(ctx context.Context, t Task) error
}

// Fallback publishes through Primary and, when the broker is unreachable,
// runs the task through Secondary instead of losing it.
type Fallback struct {
	Primary   Enqueuer
	Secondary Enqueuer
}

func (f Fallback) Enqueue(ctx context.Context, t Task) error {
	if f.Primary != nil {
		err := f.Primary.Enqueue(ctx, t)
		if err == nil {
			return nil
		}
		log.Printf("sidefx: broker unavailable for %s, running inline: %v", t.Kind, err)
	}
	return f.Secondary.Enqueue(ctx, t)
}
