package status

import (
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"ringer/ring"
)

type subscriber struct {
	ch    chan ring.Event
	types map[ring.EventType]bool
}

// Broker fans ring events out to subscribers.
type Broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[*subscriber]struct{})}
}

// Subscribe registers a subscriber for the given event types.
// Empty types means all.
func (b *Broker) Subscribe(types []ring.EventType) *Subscription {
	sub := &subscriber{ch: make(chan ring.Event, 64), types: make(map[ring.EventType]bool)}
	for _, t := range types {
		sub.types[t] = true
	}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return &Subscription{broker: b, sub: sub}
}

func (b *Broker) Publish(ev ring.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		if len(sub.types) > 0 && !sub.types[ev.Type] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Drop if subscriber is slow.
		}
	}
}

func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// ServeWS upgrades the connection and streams events as JSON.
func (b *Broker) ServeWS(w http.ResponseWriter, r *http.Request, types []ring.EventType) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "closing")

	sub := b.Subscribe(types)
	defer sub.Close()

	// CloseRead handles pings and cancels ctx when the client goes away
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub.Chan():
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

// Subscription represents an active broker subscription.
type Subscription struct {
	broker *Broker
	sub    *subscriber
	once   sync.Once
}

func (s *Subscription) Chan() <-chan ring.Event {
	return s.sub.ch
}

// Close removes the subscription.
func (s *Subscription) Close() {
	if s == nil || s.broker == nil || s.sub == nil {
		return
	}
	s.once.Do(func() {
		s.broker.mu.Lock()
		delete(s.broker.subs, s.sub)
		s.broker.mu.Unlock()
		close(s.sub.ch)
	})
}
