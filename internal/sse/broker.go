// Package sse streams index events to HTTP clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event types.
const (
	EventRebuildStarted    = "pages.rebuild.started"
	EventRebuildFinished   = "pages.rebuild.finished"
	EventPagesUpdated      = "pages.updated"
	EventNotificationError = "notification.error"
)

const (
	clientBuffer = 64
	historySize  = 32
	keepAlive    = 25 * time.Second
)

// Event is one message for connected clients.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// frame is an encoded event and its stream id.
type frame struct {
	id  uint64
	raw []byte
}

// hub is the broker state. Only the broker loop touches it.
type hub struct {
	clients     map[chan []byte]struct{}
	history     []frame
	seq         uint64
	updatedMin  time.Duration
	lastUpdated time.Time
}

func (h *hub) emit(typ string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	h.seq++
	f := frame{id: h.seq, raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, typ, payload))}

	h.history = append(h.history, f)
	if n := len(h.history); n > historySize {
		h.history = append([]frame(nil), h.history[n-historySize:]...)
	}
	for ch := range h.clients {
		deliver(ch, f.raw)
	}
}

// rebuild emits a lifecycle event. A finished rebuild is followed by at most
// one pages.updated per updatedMin.
func (h *hub) rebuild(finished bool, data interface{}, now time.Time) {
	if !finished {
		h.emit(EventRebuildStarted, data)
		return
	}
	h.emit(EventRebuildFinished, data)
	if now.Sub(h.lastUpdated) >= h.updatedMin {
		h.lastUpdated = now
		h.emit(EventPagesUpdated, map[string]string{})
	}
}

// replay sends the retained frames newer than lastID to ch.
func (h *hub) replay(ch chan []byte, lastID uint64) {
	for _, f := range h.history {
		if f.id > lastID {
			deliver(ch, f.raw)
		}
	}
}

// deliver drops the message when the client is not keeping up.
func deliver(ch chan []byte, msg []byte) {
	select {
	case ch <- msg:
	default:
	}
}

// Broker fans events out to subscribers. A single loop owns the hub; public
// methods queue operations on it.
type Broker struct {
	ops     chan func(*hub)
	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker. updatedThrottle is the minimum interval between
// two pages.updated events.
func NewBroker(updatedThrottle time.Duration) *Broker {
	if updatedThrottle <= 0 {
		updatedThrottle = 2 * time.Second
	}
	b := &Broker{
		ops:     make(chan func(*hub), 256),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	h := &hub{clients: make(map[chan []byte]struct{}), updatedMin: updatedThrottle}
	go b.loop(h)
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.stopped)
	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do queues op. It reports false once the broker is closed.
func (b *Broker) do(op func(*hub)) bool {
	if b.closed.Load() {
		return false
	}
	select {
	case b.ops <- op:
		return true
	case <-b.stopped:
		return false
	}
}

// Close stops the loop and closes every subscriber channel.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client that receives events from now on.
func (b *Broker) Subscribe() chan []byte {
	return b.subscribe(false, 0)
}

// SubscribeFrom registers a client and first replays the retained events
// with an id above lastID.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	return b.subscribe(true, lastID)
}

func (b *Broker) subscribe(replay bool, lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	added := make(chan struct{})
	ok := b.do(func(h *hub) {
		h.clients[ch] = struct{}{}
		if replay {
			h.replay(ch, lastID)
		}
		close(added)
	})
	if !ok {
		close(ch)
		return ch
	}
	select {
	case <-added:
	case <-b.stopped:
		select {
		case <-added:
			// Registered before the loop stopped, which closed ch.
		default:
			close(ch)
		}
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	if !b.do(func(h *hub) { resp <- len(h.clients) }) {
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
	b.do(func(h *hub) { h.emit(event.Type, event.Data) })
}

// PublishRebuild publishes a rebuild lifecycle event.
func (b *Broker) PublishRebuild(finished bool, data interface{}) {
	now := time.Now()
	b.do(func(h *hub) { h.rebuild(finished, data, now) })
}

// ServeHTTP streams events to one client (GET /api/events). A Last-Event-ID
// header resumes the stream from the retained history.
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
	flusher.Flush()

	var ch chan []byte
	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		ch = b.SubscribeFrom(lastID)
	} else {
		ch = b.Subscribe()
	}
	defer b.Unsubscribe(ch)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
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
