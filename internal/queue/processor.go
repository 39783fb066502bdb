package queue

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/restaurant-frontdesk/internal/external"
)

// ClaimState is the outcome of Deduper.Claim.
type ClaimState int

const (
	// Claimed: the caller holds a lease on the task and must run it.
	Claimed ClaimState = iota
	// Completed: the task already ran to completion.
	Completed
	// InFlight: another worker holds an unexpired lease.
	InFlight
)

// ErrInFlight is returned by Process while another worker holds the task's
// lease. The delivery should be retried later.
var ErrInFlight = errors.New("task is being processed elsewhere")

// Deduper tracks task IDs so at-least-once delivery runs each task once. A
// claim is a lease: a worker that dies mid-task loses it when it expires
// and the redelivered task runs again.
type Deduper interface {
	Claim(ctx context.Context, id string) (ClaimState, error)
	// Complete records a successful run.
	Complete(ctx context.Context, id string) error
	// Release drops a lease so a failed task can be retried at once.
	Release(ctx context.Context, id string) error
}

// Processor routes tasks to the external collaborators.
type Processor struct {
	Guests   external.GuestStats
	Payments external.Payments
	Notifier external.Notifier
	Dedupe   Deduper // optional
}

// Process runs one task. A completed task is skipped; one leased by another
// worker returns ErrInFlight.
func (p *Processor) Process(ctx context.Context, t Task) error {
	dedupe := p.Dedupe != nil && t.ID != ""
	if dedupe {
		state, err := p.Dedupe.Claim(ctx, t.ID)
		switch {
		case err != nil:
			log.Printf("sidefx: dedupe claim %s failed: %v; processing anyway", t.ID, err)
			dedupe = false
		case state == Completed:
			return nil
		case state == InFlight:
			return ErrInFlight
		}
	}
	if err := p.run(ctx, t); err != nil {
		if dedupe {
			_ = p.Dedupe.Release(ctx, t.ID)
		}
		return err
	}
	if dedupe {
		if err := p.Dedupe.Complete(ctx, t.ID); err != nil {
			log.Printf("sidefx: mark %s done: %v", t.ID, err)
		}
	}
	return nil
}

func (p *Processor) run(ctx context.Context, t Task) error {
	switch t.Kind {
	case KindGuestStats:
		if p.Guests == nil || t.GuestID == 0 {
			return nil
		}
		return p.Guests.UpdateStats(ctx, t.GuestID)
	case KindReleaseHold:
		if p.Payments == nil || t.PaymentRef == "" {
			return nil
		}
		return p.Payments.ReleaseHold(ctx, t.PaymentRef)
	case KindCancelled:
		if p.Notifier == nil {
			return nil
		}
		return p.Notifier.NotifyCancelled(ctx, t.Notice)
	case KindModified:
		if p.Notifier == nil {
			return nil
		}
		return p.Notifier.NotifyModified(ctx, t.Notice)
	case KindStaff:
		if p.Notifier == nil {
			return nil
		}
		return p.Notifier.NotifyStaff(ctx, t.Event, t.Notice)
	}
	return fmt.Errorf("unknown task kind %q", t.Kind)
}
