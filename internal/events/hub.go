// Package events fans tracker transitions and notifications out to the
// live subscribers of each operator.
package events

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/svennapp/svennProductsFE/internal/tracker"
)

const DefaultBuffer = 64

var (
	subscribersGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "events_subscribers",
		Help: "Number of connected event subscribers",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "events_dropped_subscribers_total",
		Help: "Subscribers disconnected because they fell behind",
	})
)

type Kind string

const (
	KindTransition   Kind = "transition"
	KindNotification Kind = "notification"
)

// Message is one item delivered to subscribers. Exactly one of Transition
// and Notification is set.
type Message struct {
	Kind         Kind                  `json:"kind"`
	Transition   *tracker.Event        `json:"transition,omitempty"`
	Notification *tracker.Notification `json:"notification,omitempty"`
}

// Subscription receives messages on C until it is closed, either by
// Unsubscribe or because the subscriber fell behind.
type Subscription struct {
	C <-chan Message

	ch      chan Message
	subject string
	hub     *Hub
	once    sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.hub.remove(s)
}

// Hub routes messages by operator subject. Publish never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe(subject string) *Subscription {
	ch := make(chan Message, h.buffer)
	sub := &Subscription{C: ch, ch: ch, subject: subject, hub: h}

	h.mu.Lock()
	set, ok := h.subs[subject]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[subject] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	subscribersGauge.Inc()
	return sub
}

// Publish delivers m to every subscriber of subject. A subscriber whose
// buffer is full is dropped.
func (h *Hub) Publish(subject string, m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[subject] {
		select {
		case sub.ch <- m:
		default:
			droppedTotal.Inc()
			h.removeLocked(sub)
		}
	}
}

// Subscribers returns the number of live subscriptions for subject.
func (h *Hub) Subscribers(subject string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[subject])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *Subscription) {
	sub.once.Do(func() {
		set := h.subs[sub.subject]
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.subject)
		}
		close(sub.ch)
		subscribersGauge.Dec()
	})
}

// Notifier adapts the hub to tracker.Notifier for one operator.
func (h *Hub) Notifier(subject string) tracker.Notifier {
	return &notifier{hub: h, subject: subject}
}

type notifier struct {
	hub     *Hub
	subject string
}

func (n *notifier) Transition(ev tracker.Event) {
	n.hub.Publish(n.subject, Message{Kind: KindTransition, Transition: &ev})
}

func (n *notifier) Notify(note tracker.Notification) {
	n.hub.Publish(n.subject, Message{Kind: KindNotification, Notification: &note})
}
