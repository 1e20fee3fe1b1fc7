package application

import (
	"log/slog"
	"sync"
)

// Kind identifies what a broadcast notification carries.
type Kind string

const (
	KindNewEvent   Kind = "new_event"
	KindNewSummary Kind = "new_summary"
	KindReset      Kind = "reset"
)

// Notification is one fan-out message delivered to live subscribers.
type Notification struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload"`
}

const subscriberBuffer = 16

// Notifier broadcasts pipeline notifications to all live subscribers.
// Delivery is best-effort: a subscriber that cannot keep up (its buffer is
// full, typically a dead connection) is dropped without interrupting
// delivery to the rest.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Notification
	nextID int
}

// NewNotifier creates a Notifier with no subscribers.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan Notification)}
}

// Subscribe registers a new live subscriber. The returned cancel function
// must be called when the subscriber disconnects; the channel is closed by
// the notifier, never by the subscriber.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++

	ch := make(chan Notification, subscriberBuffer)
	n.subs[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// Broadcast delivers a notification to every subscriber. Ordering across
// subscribers is not guaranteed.
func (n *Notifier) Broadcast(kind Kind, payload any) {
	note := Notification{Kind: kind, Payload: payload}

	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subs {
		select {
		case ch <- note:
		default:
			// Subscriber stopped draining; treat as dead.
			delete(n.subs, id)
			close(ch)
			slog.Debug("dropped stalled subscriber", "subscriber", id)
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
