// Package sse implements a Server-Sent Events broker for live editor updates.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types published by the editor session.
const (
	TypeDocumentUpdated    = "document.updated"
	TypePreferencesUpdated = "preferences.updated"
	TypeLayoutUpdated      = "layout.updated"
)

// Defaults for NewBroker.
const (
	DefaultThrottle  = 50 * time.Millisecond
	DefaultHeartbeat = 30 * time.Second
)

// clientBuffer is the per-subscriber backlog; slower clients drop events.
const clientBuffer = 64

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Option configures a Broker.
type Option func(*Broker)

// WithThrottle sets the minimum spacing of PublishThrottled events per type.
func WithThrottle(d time.Duration) Option {
	return func(b *Broker) {
		if d > 0 {
			b.throttle = d
		}
	}
}

// WithHeartbeat sets how often idle streams receive a comment line so
// proxies keep the connection open. Zero disables it.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// WithReplay sets a source of events written to each new stream before
// live events, so late clients start from the current state.
func WithReplay(fn func() []Event) Option {
	return func(b *Broker) { b.replay = fn }
}

// Broker fans events out to SSE clients.
//
// A single goroutine owns the client set, the per-type throttle state and
// the event sequence. Public methods talk to it over channels.
type Broker struct {
	throttle  time.Duration
	heartbeat time.Duration
	replay    func() []Event

	joinCh  chan chan []byte
	leaveCh chan chan []byte
	sendCh  chan outgoing
	countCh chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

type outgoing struct {
	event     Event
	throttled bool
}

// NewBroker creates a broker and starts its loop. Call Close to stop it.
func NewBroker(opts ...Option) *Broker {
	b := &Broker{
		throttle:  DefaultThrottle,
		heartbeat: DefaultHeartbeat,
		joinCh:    make(chan chan []byte),
		leaveCh:   make(chan chan []byte),
		sendCh:    make(chan outgoing, 256),
		countCh:   make(chan chan int),
		stopCh:    make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	go b.loop()
	return b
}

// encode frames an event. id is omitted when zero.
func encode(id uint64, ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if id > 0 {
		buf.WriteString("id: ")
		buf.WriteString(strconv.FormatUint(id, 10))
		buf.WriteByte('\n')
	}
	buf.WriteString("event: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func (b *Broker) loop() {
	defer close(b.stopped)

	var (
		seq      uint64
		clients  = make(map[chan []byte]struct{})
		lastSent = make(map[string]time.Time)
		pending  = make(map[string]Event)
		timer    *time.Timer
		flush    <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	fanOut := func(ev Event) {
		seq++
		msg, err := encode(seq, ev)
		if err != nil {
			return
		}
		for ch := range clients {
			select {
			case ch <- msg:
			default:
				// Full buffer; the client misses this one.
			}
		}
	}

	schedule := func(d time.Duration) {
		if timer == nil {
			timer = time.NewTimer(d)
			flush = timer.C
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.joinCh:
			clients[ch] = struct{}{}

		case ch := <-b.leaveCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case out := <-b.sendCh:
			if !out.throttled {
				fanOut(out.event)
				continue
			}
			typ := out.event.Type
			now := time.Now()
			if wait := b.throttle - now.Sub(lastSent[typ]); wait > 0 {
				// Only the newest survives the window.
				pending[typ] = out.event
				schedule(wait)
				continue
			}
			delete(pending, typ)
			lastSent[typ] = now
			fanOut(out.event)

		case <-flush:
			timer, flush = nil, nil
			now := time.Now()
			for typ, ev := range pending {
				if now.Sub(lastSent[typ]) < b.throttle {
					continue
				}
				delete(pending, typ)
				lastSent[typ] = now
				fanOut(ev)
			}
			if len(pending) > 0 {
				schedule(b.throttle)
			}

		case resp := <-b.countCh:
			resp <- len(clients)
		}
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a client. The channel is closed by Unsubscribe or
// Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.joinCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.leaveCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.countCh <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	b.send(outgoing{event: event})
}

// PublishThrottled sends event at most once per throttle interval for its
// type. Events inside the interval are coalesced and the latest is
// delivered when it ends, so subscribers always see the final value.
func (b *Broker) PublishThrottled(event Event) {
	b.send(outgoing{event: event, throttled: true})
}

func (b *Broker) send(out outgoing) {
	if b.closed.Load() {
		return
	}
	select {
	case b.sendCh <- out:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	if b.replay != nil {
		for _, ev := range b.replay() {
			if msg, err := encode(0, ev); err == nil {
				_, _ = w.Write(msg)
			}
		}
	}
	flusher.Flush()

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
