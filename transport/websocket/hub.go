package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wricardo/blockbingo/game/service"
	"github.com/wricardo/blockbingo/logging"
)

var log = logging.MustGetLogger("websocket")

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingInterval = idleTimeout * 9 / 10
	readLimit    = 512
	outboxSize   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is one update pushed to the subscribers of a session
type Message struct {
	SessionID string             `json:"session_id"`
	Event     string             `json:"event"`
	Plan      *service.PlanEvent `json:"plan,omitempty"`
	Data      interface{}        `json:"data,omitempty"`
}

// subscriber is one connection watching one session
type subscriber struct {
	hub     *Hub
	conn    *websocket.Conn
	outbox  chan []byte
	session string
}

type countQuery struct {
	session string
	reply   chan int
}

// Hub fans plan updates out to the subscribers of each session. The topic
// map is only touched by the Run goroutine.
type Hub struct {
	topics  map[string]map[*subscriber]struct{}
	publish chan *Message
	join    chan *subscriber
	leave   chan *subscriber
	count   chan countQuery
	stop    chan struct{}
}

// NewHub creates a hub; call Run to start it
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*subscriber]struct{}),
		publish: make(chan *Message),
		join:    make(chan *subscriber),
		leave:   make(chan *subscriber),
		count:   make(chan countQuery),
		stop:    make(chan struct{}),
	}
}

// Run processes joins, leaves and messages until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.join:
			h.add(sub)
		case sub := <-h.leave:
			h.remove(sub)
		case msg := <-h.publish:
			h.deliver(msg)
		case q := <-h.count:
			q.reply <- len(h.topics[q.session])
		case <-h.stop:
			for _, subs := range h.topics {
				for sub := range subs {
					h.remove(sub)
				}
			}
			return
		}
	}
}

// Stop ends Run and disconnects every subscriber
func (h *Hub) Stop() {
	close(h.stop)
}

// Clients returns the number of subscribers of a session
func (h *Hub) Clients(sessionID string) int {
	reply := make(chan int, 1)
	select {
	case h.count <- countQuery{session: sessionID, reply: reply}:
		return <-reply
	case <-h.stop:
		return 0
	}
}

// ServeWS upgrades the request and subscribes the connection to a session
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		hub:     h,
		conn:    conn,
		outbox:  make(chan []byte, outboxSize),
		session: sessionID,
	}
	select {
	case h.join <- sub:
	case <-h.stop:
		conn.Close()
		return
	}

	go sub.write()
	go sub.read()
}

// BroadcastPlan sends a plan event to every subscriber of its session
func (h *Hub) BroadcastPlan(event *service.PlanEvent) {
	h.send(&Message{
		SessionID: event.SessionID,
		Event:     event.Type,
		Plan:      event,
	})
}

// BroadcastEvent sends a named event with arbitrary data to a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.send(&Message{SessionID: sessionID, Event: event, Data: data})
}

// send hands a message to Run. Messages sent after Stop are dropped.
func (h *Hub) send(msg *Message) {
	select {
	case h.publish <- msg:
	case <-h.stop:
	}
}

func (h *Hub) add(sub *subscriber) {
	subs := h.topics[sub.session]
	if subs == nil {
		subs = make(map[*subscriber]struct{})
		h.topics[sub.session] = subs
	}
	subs[sub] = struct{}{}
	log.Debugf("session %s: subscriber joined, %d watching", sub.session, len(subs))
}

// remove closes the subscriber's outbox once; the writer then closes the socket
func (h *Hub) remove(sub *subscriber) {
	subs := h.topics[sub.session]
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	close(sub.outbox)
	if len(subs) == 0 {
		delete(h.topics, sub.session)
	}
	log.Debugf("session %s: subscriber left, %d watching", sub.session, len(subs))
}

// deliver queues a message on every outbox of its session. A full outbox
// means the subscriber stopped reading and it is dropped.
func (h *Hub) deliver(msg *Message) {
	subs := h.topics[msg.SessionID]
	if len(subs) == 0 {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("failed to encode %s event: %v", msg.Event, err)
		return
	}
	for sub := range subs {
		select {
		case sub.outbox <- payload:
		default:
			log.Warningf("session %s: dropping slow subscriber", sub.session)
			h.remove(sub)
		}
	}
}

// read discards incoming frames, keeping the idle deadline fresh on pongs,
// and leaves the hub when the peer goes away
func (s *subscriber) read() {
	defer func() {
		select {
		case s.hub.leave <- s:
		case <-s.hub.stop:
		}
		s.conn.Close()
	}()

	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warningf("session %s: read failed: %v", s.session, err)
			}
			return
		}
	}
}

// write sends each queued message as its own text frame and pings the peer
// while idle
func (s *subscriber) write() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case payload, open := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !open {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
