package view

import (
	"log/slog"
	"sync"
)

// Event types, one per view slot plus the activity log.
const (
	EventSummary  = "summary"
	EventWANIP    = "wan_ip"
	EventWAN      = "wan"
	EventClients  = "clients"
	EventNetworks = "networks"
	EventSession  = "session"
	EventAuto     = "auto"
	EventInternet = "internet"
	EventLog      = "log"
)

// Event is a change to one view slot. Seq grows by one per published
// event, so a subscriber that sees a gap knows it missed an update.
type Event struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Data any    `json:"data"`
}

// Listener is a callback for view events.
type Listener func(Event)

// Feed fans view changes out to listeners.
type Feed struct {
	mu     sync.RWMutex
	bySlot map[string]map[uint64]Listener
	all    map[uint64]Listener
	nextID uint64
	seq    uint64
	logger *slog.Logger
}

func newFeed(logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		bySlot: make(map[string]map[uint64]Listener),
		all:    make(map[uint64]Listener),
		logger: logger,
	}
}

// Subscribe registers fn for one event type.
// Returns an unsubscribe function.
func (f *Feed) Subscribe(eventType string, fn Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	if f.bySlot[eventType] == nil {
		f.bySlot[eventType] = make(map[uint64]Listener)
	}
	f.bySlot[eventType][id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.bySlot[eventType], id)
	}
}

// SubscribeAll registers fn for every event type.
// Returns an unsubscribe function.
func (f *Feed) SubscribeAll(fn Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.all[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.all, id)
	}
}

// Publish stamps ev with the next sequence number and hands it to every
// matching listener.
// Listeners are called synchronously; a panicking listener is recovered.
func (f *Feed) Publish(ev Event) {
	f.mu.Lock()
	f.seq++
	ev.Seq = f.seq
	listeners := make([]Listener, 0, len(f.bySlot[ev.Type])+len(f.all))
	for _, fn := range f.bySlot[ev.Type] {
		listeners = append(listeners, fn)
	}
	for _, fn := range f.all {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("view listener panic", "type", ev.Type, "seq", ev.Seq, "panic", r)
				}
			}()
			fn(ev)
		}()
	}
}
