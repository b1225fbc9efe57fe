package rpc

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/tolelom/scorechain/events"
	"github.com/tolelom/scorechain/internal/obslog"
)

const (
	streamBuffer       = 64
	streamWriteTimeout = 5 * time.Second
)

type subscriber struct {
	ch     chan events.Event
	filter map[events.EventType]bool // nil → every event
}

func (s *subscriber) wants(t events.EventType) bool {
	return s.filter == nil || s.filter[t]
}

// Stream fans chain events out to websocket clients. A client whose buffer
// fills up is disconnected rather than allowed to stall event delivery.
type Stream struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
	log    *zap.Logger
}

// NewStream creates a Stream fed by every event emitter delivers.
func NewStream(emitter *events.Emitter) *Stream {
	s := &Stream{
		subs: make(map[*subscriber]struct{}),
		log:  obslog.L().Named("stream"),
	}
	emitter.SubscribeAll(s.broadcast)
	return s
}

// Clients returns the number of connected subscribers.
func (s *Stream) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close disconnects every subscriber.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for sub := range s.subs {
		close(sub.ch)
		delete(s.subs, sub)
	}
}

func (s *Stream) broadcast(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !sub.wants(ev.Type) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			s.log.Warn("dropping slow subscriber", zap.String("event", string(ev.Type)))
			close(sub.ch)
			delete(s.subs, sub)
		}
	}
}

func (s *Stream) add(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.subs[sub] = struct{}{}
	return true
}

func (s *Stream) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[sub]; ok {
		close(sub.ch)
		delete(s.subs, sub)
	}
}

// ServeHTTP upgrades the request to a websocket and streams events as JSON
// text frames. "?type=a,b" restricts the feed to the listed event types.
func (s *Stream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sub := &subscriber{ch: make(chan events.Event, streamBuffer)}
	if q := r.URL.Query().Get("type"); q != "" {
		sub.filter = make(map[events.EventType]bool)
		for _, t := range strings.Split(q, ",") {
			sub.filter[events.EventType(strings.TrimSpace(t))] = true
		}
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	if !s.add(sub) {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer s.remove(sub)

	// The feed is one-way; CloseRead discards client frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.ch:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "subscriber dropped")
				return
			}
			if err := s.write(ctx, conn, ev); err != nil {
				s.log.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Stream) write(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, ev)
}
