package activity

import (
	"time"

	"github.com/aileana/walletcore/internal/core/logger"
	"github.com/google/uuid"
)

// Event is one audit notification: wallet_created, wallet_credited,
// wallet_debited, transfer_completed and the like.
type Event struct {
	UserID     uuid.UUID
	WalletID   uuid.UUID
	Action     string
	Reference  string
	Detail     string
	OccurredAt time.Time
}

// Notifier delivers activity events for observability. Delivery is
// fire-and-forget: Notify never blocks and a full buffer drops the event,
// so a slow or failing audit sink can never affect a mutation outcome.
type Notifier struct {
	events chan Event
	done   chan struct{}
	log    logger.Logger
}

func NewNotifier(bufferSize int, log logger.Logger) *Notifier {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	n := &Notifier{
		events: make(chan Event, bufferSize),
		done:   make(chan struct{}),
		log:    log,
	}
	go n.run()
	return n
}

func (n *Notifier) run() {
	defer close(n.done)
	for event := range n.events {
		n.log.Info("activity",
			logger.StringField("action", event.Action),
			logger.StringField("user_id", event.UserID.String()),
			logger.StringField("wallet_id", event.WalletID.String()),
			logger.StringField("reference", event.Reference),
			logger.StringField("detail", event.Detail),
			logger.StringField("occurred_at", event.OccurredAt.UTC().Format(time.RFC3339)),
		)
	}
}

// Notify enqueues an event without blocking the caller.
func (n *Notifier) Notify(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	select {
	case n.events <- event:
	default:
		n.log.Warn("activity buffer full, event dropped",
			logger.StringField("action", event.Action))
	}
}

// Close drains pending events and stops the worker.
func (n *Notifier) Close() {
	close(n.events)
	<-n.done
}
