package service

import (
	"context"
	"log"

	"github.com/iliyamo/restaurant-frontdesk/internal/external"
	"github.com/iliyamo/restaurant-frontdesk/internal/localtime"
	"github.com/iliyamo/restaurant-frontdesk/internal/model"
	"github.com/iliyamo/restaurant-frontdesk/internal/queue"
)

// dispatch queues a side effect after the primary write committed. Failures
// are logged and swallowed; the request's cancellation does not reach the
// enqueue.
func dispatch(ctx context.Context, q Enqueuer, t queue.Task) {
	if q == nil {
		return
	}
	if err := q.Enqueue(context.WithoutCancel(ctx), t); err != nil {
		log.Printf("sidefx: enqueue %s for reservation %d failed: %v", t.Kind, t.Notice.ReservationID, err)
	}
}

func noticeFor(r model.Reservation, detail string) external.Notice {
	return external.Notice{
		ReservationID: r.ID,
		Code:          r.Code,
		GuestName:     r.GuestName,
		GuestPhone:    r.GuestPhone,
		GuestEmail:    r.GuestEmail,
		Date:          r.Date,
		Time:          localtime.FormatClock(r.Time),
		PartySize:     r.PartySize,
		Detail:        detail,
	}
}

func staffTask(event string, r model.Reservation, detail string) queue.Task {
	t := queue.NewTask(queue.KindStaff, noticeFor(r, detail))
	t.Event = event
	return t
}
