// Package queue carries side effects of reservation transitions to a
// background worker: task payloads, the RabbitMQ publisher and consumer,
// the idempotent processor and an in-process fallback.
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-frontdesk/internal/external"
)

// Kind names a side effect.
type Kind string

const (
	KindGuestStats  Kind = "guest.update_stats"
	KindReleaseHold Kind = "payment.release_hold"
	KindCancelled   Kind = "notify.cancelled"
	KindModified    Kind = "notify.modified"
	KindStaff       Kind = "notify.staff"
)

// Task is one side effect. ID is the idempotency key: a redelivered task
// with an ID that was already processed is acknowledged without running.
type Task struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	GuestID    uint64          `json:"guest_id,omitempty"`
	PaymentRef string          `json:"payment_ref,omitempty"`
	Event      string          `json:"event,omitempty"`
	Notice     external.Notice `json:"notice"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewTask stamps a fresh ID and creation time.
func NewTask(kind Kind, n external.Notice) Task {
	return Task{ID: uuid.NewString(), Kind: kind, Notice: n, CreatedAt: time.Now().UTC()}
}

func (t Task) encode() ([]byte, error) { return json.Marshal(t) }

func decodeTask(body []byte) (Task, error) {
	var t Task
	err := json.Unmarshal(body, &t)
	return t, err
}
