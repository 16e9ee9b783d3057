// Package service implements the subscription registry.
//
// The registry tracks which live connections are interested in which
// subjects and fans mutation events out to them. Delivery is decoupled from
// publishing: each connection owns a bounded pending ring drained by its own
// goroutine, so a slow consumer can never stall the dispatcher or its peers.
// When a ring overflows the oldest pending event is dropped and the next
// flush leads with a gap frame so the client knows to re-fetch
package service

import (
	"sync"

	json "github.com/goccy/go-json"

	perr "lightbox/internal/platform/errors"
	"lightbox/internal/platform/logger"
	"lightbox/internal/services/stream/domain"
)

// Config tunes the registry
type Config struct {
	// QueueDepth bounds the per-connection pending ring; defaults to 64
	QueueDepth int
}

// Registry implements domain.SubscriberPort and domain.PublisherPort
type Registry struct {
	cfg Config
	log *logger.Logger

	mu        sync.Mutex
	conns     map[string]*conn
	bySubject map[string]map[string]*conn
	seqs      map[string]uint64
}

// New constructs a registry
func New(cfg Config) *Registry {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	return &Registry{
		cfg:       cfg,
		log:       logger.Named("stream"),
		conns:     make(map[string]*conn),
		bySubject: make(map[string]map[string]*conn),
		seqs:      make(map[string]uint64),
	}
}

// conn is one live connection. subjects is guarded by the registry lock;
// everything below mu is guarded by the conn lock
type conn struct {
	id       string
	push     domain.PushFunc
	subjects map[string]struct{}

	mu     sync.Mutex
	ring   []domain.Event
	head   int
	count  int
	gap    bool
	closed bool
	high   map[string]uint64

	wake chan struct{}
	done chan struct{}
}

// Connect registers a connection and starts its delivery loop. The push
// func runs on that loop; when it returns an error the connection is dropped
func (r *Registry) Connect(connID string, push domain.PushFunc) error {
	if connID == "" || push == nil {
		return perr.New(perr.ErrorCodeInvalidArgument, "connect requires a connection id and push func")
	}
	c := &conn{
		id:       connID,
		push:     push,
		subjects: make(map[string]struct{}),
		ring:     make([]domain.Event, r.cfg.QueueDepth),
		high:     make(map[string]uint64),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	r.mu.Lock()
	if _, dup := r.conns[connID]; dup {
		r.mu.Unlock()
		return perr.Newf(perr.ErrorCodeDuplicateKey, "connection %s already registered", connID)
	}
	r.conns[connID] = c
	r.mu.Unlock()
	connsGauge.Inc()

	go r.deliver(c)
	return nil
}

// Subscribe adds a subject to a connection. Subscribing twice is a no-op;
// unknown connections are ignored (the connection raced a drop)
func (r *Registry) Subscribe(connID, subject string) {
	if subject == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	if _, dup := c.subjects[subject]; dup {
		return
	}
	c.subjects[subject] = struct{}{}
	m := r.bySubject[subject]
	if m == nil {
		m = make(map[string]*conn)
		r.bySubject[subject] = m
	}
	m[connID] = c
}

// Unsubscribe removes a subject from a connection
func (r *Registry) Unsubscribe(connID, subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(c.subjects, subject)
	if m := r.bySubject[subject]; m != nil {
		delete(m, connID)
		if len(m) == 0 {
			delete(r.bySubject, subject)
		}
	}
}

// DropConn removes a connection and all of its subscriptions in one step
// under the registry lock, then stops its delivery loop. Safe to call more
// than once
func (r *Registry) DropConn(connID string) {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if ok {
		delete(r.conns, connID)
		for subject := range c.subjects {
			if m := r.bySubject[subject]; m != nil {
				delete(m, connID)
				if len(m) == 0 {
					delete(r.bySubject, subject)
				}
			}
		}
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	connsGauge.Dec()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	close(c.done)
}

// Publish assigns the subject's next sequence number and enqueues the event
// on every subscribed connection. It never blocks on delivery; the payload
// is marshalled once and shared across connections
func (r *Registry) Publish(subject, kind string, payload any) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			r.log.Warn().Err(err).Str("subject", subject).Str("kind", kind).Msg("fanout payload marshal failed")
			return
		}
		raw = b
	}

	// Sequencing and enqueueing stay under the registry lock so ring order
	// always matches sequence order per subject
	r.mu.Lock()
	seq := r.seqs[subject] + 1
	r.seqs[subject] = seq
	ev := domain.Event{Subject: subject, Kind: kind, Seq: seq, Payload: raw}
	for _, c := range r.bySubject[subject] {
		c.enqueue(ev)
	}
	r.mu.Unlock()
}

// Conns reports the number of live connections
func (r *Registry) Conns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Close drops every connection
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.DropConn(id)
	}
}

// enqueue adds an event to the pending ring. Events at or below the
// subject's high-water mark are discarded so a redelivered event can reach a
// connection at most once. A full ring sheds its oldest event and records a
// gap
func (c *conn) enqueue(ev domain.Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if ev.Subject != "" {
		if hw, ok := c.high[ev.Subject]; ok && ev.Seq <= hw {
			c.mu.Unlock()
			return
		}
		c.high[ev.Subject] = ev.Seq
	}
	if c.count == len(c.ring) {
		c.ring[c.head] = domain.Event{}
		c.head = (c.head + 1) % len(c.ring)
		c.count--
		c.gap = true
		shedTotal.Inc()
	}
	c.ring[(c.head+c.count)%len(c.ring)] = ev
	c.count++
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// deliver drains one connection's ring in order, leading with a gap frame
// when events were shed. A push failure drops the connection
func (r *Registry) deliver(c *conn) {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
	drain:
		for {
			c.mu.Lock()
			if c.closed {
				c.mu.Unlock()
				return
			}
			var ev domain.Event
			switch {
			case c.gap:
				c.gap = false
				ev = domain.Event{Kind: domain.KindGap}
			case c.count > 0:
				ev = c.ring[c.head]
				c.ring[c.head] = domain.Event{}
				c.head = (c.head + 1) % len(c.ring)
				c.count--
			default:
				c.mu.Unlock()
				break drain
			}
			c.mu.Unlock()

			if err := c.push(ev); err != nil {
				r.DropConn(c.id)
				return
			}
			deliveredTotal.Inc()
		}
	}
}
