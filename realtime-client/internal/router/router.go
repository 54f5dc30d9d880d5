// Package router deduplicates inbound events and fans them out to the
// subscribers of each auction topic. Every topic keeps the visible list of
// events it has accepted, seeded from history and grown by live traffic.
package router

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aaronwang/auction-client/shared/models"
)

// Handler receives accepted events for a topic
type Handler func(event *models.Event)

// State is the load state of a topic's timeline
type State int

// State constants. A timeline starts Loading and becomes Populated on its
// first visible event, whether from history or live. A load that finishes
// with nothing visible settles on Empty.
const (
	StateLoading State = iota
	StateEmpty
	StatePopulated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateEmpty:
		return "empty"
	case StatePopulated:
		return "populated"
	}
	return "unknown"
}

// Timeline is a snapshot of a topic's visible events
type Timeline struct {
	TopicID string
	Events  []models.Event
	Loaded  bool
	Err     string
}

// State returns the load state of the snapshot
func (t Timeline) State() State {
	return stateOf(t.Loaded, len(t.Events))
}

func stateOf(loaded bool, events int) State {
	switch {
	case events > 0:
		return StatePopulated
	case !loaded:
		return StateLoading
	default:
		return StateEmpty
	}
}

// Stats counts what a topic has seen
type Stats struct {
	TopicID     string `json:"topicId"`
	Subscribers int    `json:"subscribers"`
	Events      int    `json:"events"`
	Dispatched  int    `json:"dispatched"`
	Suppressed  int    `json:"suppressed"`
	Dropped     int    `json:"dropped"`
	Loaded      bool   `json:"loaded"`
	State       string `json:"state"`
}

type subscription struct {
	id int
	fn Handler
}

type topic struct {
	id          string
	subscribers []subscription
	events      []*models.Event
	seen        map[models.Fingerprint]struct{}
	loaded      bool
	loadErr     string

	dispatched int
	suppressed int
	dropped    int
}

func newTopic(id string) *topic {
	return &topic{id: id, seen: make(map[models.Fingerprint]struct{})}
}

// admit records e in the visible list unless a message with the same
// fingerprint is already there
func (t *topic) admit(e *models.Event) bool {
	if e.Kind == models.EventKindMessage {
		fp := e.Fingerprint()
		if _, dup := t.seen[fp]; dup {
			return false
		}
		t.seen[fp] = struct{}{}
	}
	t.events = append(t.events, e)
	return true
}

// Router routes events to per-auction subscribers
type Router struct {
	logger   zerolog.Logger
	onAccept Handler

	mu     sync.Mutex
	topics map[string]*topic
	nextID int
}

// Option configures a Router
type Option func(*Router)

// WithLogger sets the router logger
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Router) { r.logger = logger.With().Str("component", "router").Logger() }
}

// WithAcceptHook registers fn to run after the subscribers of every
// accepted live event
func WithAcceptHook(fn Handler) Option {
	return func(r *Router) { r.onAccept = fn }
}

// New creates an empty Router
func New(opts ...Option) *Router {
	r := &Router{
		logger: zerolog.Nop(),
		topics: make(map[string]*topic),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) topicLocked(id string) *topic {
	t, ok := r.topics[id]
	if !ok {
		t = newTopic(id)
		r.topics[id] = t
	}
	return t
}

// Subscribe registers h for topicID. The returned function removes
// exactly this registration and may be called more than once.
func (r *Router) Subscribe(topicID string, h Handler) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	t := r.topicLocked(topicID)
	t.subscribers = append(t.subscribers, subscription{id: id, fn: h})
	r.mu.Unlock()

	r.logger.Debug().Str("topic", topicID).Int("subscription", id).Msg("Subscribed")

	var once sync.Once
	return func() {
		once.Do(func() { r.unsubscribe(topicID, id) })
	}
}

func (r *Router) unsubscribe(topicID string, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[topicID]
	if !ok {
		return
	}
	for i, s := range t.subscribers {
		if s.id == id {
			// copy so a snapshot held by an in-flight dispatch stays intact
			t.subscribers = append(t.subscribers[:i:i], t.subscribers[i+1:]...)
			break
		}
	}
	if len(t.subscribers) == 0 {
		t.subscribers = nil
	}
	r.logger.Debug().Str("topic", topicID).Int("subscription", id).Msg("Unsubscribed")
}

// Dispatch delivers e to the subscribers of its auction. It reports false
// when e duplicates a visible message or nobody is subscribed; otherwise
// e is appended to the timeline and every current subscriber is called
// synchronously in registration order.
func (r *Router) Dispatch(e *models.Event) bool {
	if e == nil || e.AuctionID == "" {
		return false
	}

	r.mu.Lock()
	t, ok := r.topics[e.AuctionID]
	if !ok || len(t.subscribers) == 0 {
		if ok {
			t.dropped++
		}
		r.mu.Unlock()
		r.logger.Debug().Str("topic", e.AuctionID).Msg("No subscribers, dropping event")
		return false
	}
	if !t.admit(e) {
		t.suppressed++
		r.mu.Unlock()
		r.logger.Debug().Str("topic", e.AuctionID).Str("sender", e.Sender).Msg("Suppressed duplicate event")
		return false
	}
	t.dispatched++
	subscribers := t.subscribers
	r.mu.Unlock()

	for _, s := range subscribers {
		s.fn(e)
	}
	if r.onAccept != nil {
		r.onAccept(e)
	}
	return true
}

// Merge seeds topicID with historical events, skipping any whose
// fingerprint is already visible, and marks the topic loaded. The visible
// list is kept ordered by timestamp. It returns the number of events added.
func (r *Router) Merge(topicID string, events []*models.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.topicLocked(topicID)
	added := 0
	for _, e := range events {
		if e != nil && t.admit(e) {
			added++
		}
	}
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].Timestamp.Before(t.events[j].Timestamp)
	})
	t.loaded = true
	t.loadErr = ""
	return added
}

// MarkLoaded ends the loading phase of topicID, recording err if the
// history could not be fetched
func (r *Router) MarkLoaded(topicID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.topicLocked(topicID)
	t.loaded = true
	if err != nil {
		t.loadErr = err.Error()
	}
}

// Timeline returns a snapshot of topicID's visible events
func (r *Router) Timeline(topicID string) Timeline {
	r.mu.Lock()
	defer r.mu.Unlock()

	tl := Timeline{TopicID: topicID}
	t, ok := r.topics[topicID]
	if !ok {
		return tl
	}
	tl.Loaded = t.loaded
	tl.Err = t.loadErr
	tl.Events = make([]models.Event, len(t.events))
	for i, e := range t.events {
		tl.Events[i] = *e
	}
	return tl
}

// Stats returns counters for topicID
func (r *Router) Stats(topicID string) Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{TopicID: topicID, State: StateLoading.String()}
	t, ok := r.topics[topicID]
	if !ok {
		return s
	}
	s.Subscribers = len(t.subscribers)
	s.Events = len(t.events)
	s.Dispatched = t.dispatched
	s.Suppressed = t.suppressed
	s.Dropped = t.dropped
	s.Loaded = t.loaded
	s.State = stateOf(t.loaded, len(t.events)).String()
	return s
}

// Topics returns the ids of all known topics in sorted order
func (r *Router) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.topics))
	for id := range r.topics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
