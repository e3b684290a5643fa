package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
	"github.com/janpfeifer/GoShed/internal/lobby"
	"github.com/janpfeifer/GoShed/internal/room"
)

var (
	ErrRateLimited = errors.New("too many messages, slow down")
	ErrNoRoom      = errors.New("join or create a room first")
)

// outboxSize is the number of outbound messages buffered per connection
// before new ones are dropped.
const outboxSize = 256

const writeTimeout = 5 * time.Second

// ServerState holds the live connections and the room registry.
type ServerState struct {
	Address  string // Address the server listens on, once started.
	Registry *lobby.Registry

	cfg Config

	mu      sync.RWMutex
	clients map[string]*client
}

// client is one websocket connection.
type client struct {
	id      string
	conn    *websocket.Conn
	outbox  chan game.WsMessage
	limiter *rate.Limiter

	// room the connection is seated in, nil if none. Only the read loop touches it.
	room *room.Room
}

// NewServerState creates the server state. Rooms run until ctx is done.
func NewServerState(ctx context.Context, cfg Config) *ServerState {
	s := &ServerState{
		cfg:     cfg,
		clients: make(map[string]*client),
	}
	s.Registry = lobby.New(ctx, cfg.Lobby, s)
	return s
}

// Deliver queues msg for the connection connID. It never blocks: messages to
// unknown connections, or to connections whose outbox is full, are dropped.
func (s *ServerState) Deliver(connID string, msg game.WsMessage) {
	s.mu.RLock()
	c, found := s.clients[connID]
	s.mu.RUnlock()
	if !found {
		return
	}
	select {
	case c.outbox <- msg:
	default:
		klog.Warningf("client %s: outbox full, dropping %s message", connID, msg.Type)
	}
}

func (s *ServerState) sendError(connID string, err error) {
	s.Deliver(connID, game.MustWsMessage(game.MsgTypeError, game.ErrorMessage{Message: err.Error()}))
}

// HandleRooms lists the public rooms waiting for players.
func (s *ServerState) HandleRooms(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Registry.Public()); err != nil {
		klog.Errorf("failed to encode room list: %v", err)
	}
}

// HandleWS upgrades the request to a websocket and serves it until it closes.
func (s *ServerState) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		klog.Errorf("websocket accept failed: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &client{
		id:      uuid.NewString(),
		conn:    conn,
		outbox:  make(chan game.WsMessage, outboxSize),
		limiter: rate.NewLimiter(s.cfg.MsgRate, s.cfg.MsgBurst),
	}
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
	}()
	klog.V(1).Infof("client %s: connected from %s", c.id, r.RemoteAddr)

	go func() {
		defer cancel()
		s.writePump(ctx, c)
	}()
	s.readPump(ctx, c)

	if c.room != nil {
		c.room.Disconnect(c.id)
	}
	klog.V(1).Infof("client %s: disconnected", c.id)
	conn.Close(websocket.StatusNormalClosure, "")
}

// writePump sends the outbox and keepalive pings until ctx is done or a write fails.
func (s *ServerState) writePump(ctx context.Context, c *client) {
	interval := s.cfg.PingInterval
	if interval <= 0 {
		interval = DefaultConfig().PingInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.outbox:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				klog.V(1).Infof("client %s: write failed: %v", c.id, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				klog.V(1).Infof("client %s: ping failed: %v", c.id, err)
				return
			}
		}
	}
}

// readPump reads and dispatches inbound messages until the connection fails.
func (s *ServerState) readPump(ctx context.Context, c *client) {
	for {
		var msg game.WsMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				if ctx.Err() == nil {
					klog.V(1).Infof("client %s: read failed: %v", c.id, err)
				}
			}
			return
		}
		if !c.limiter.Allow() {
			s.sendError(c.id, ErrRateLimited)
			continue
		}
		payload, err := msg.Parse()
		if err != nil {
			s.sendError(c.id, err)
			continue
		}
		s.dispatch(ctx, c, payload)
	}
}

// dispatch handles the room-less messages itself and forwards the rest to the
// client's room.
func (s *ServerState) dispatch(ctx context.Context, c *client, payload any) {
	switch m := payload.(type) {
	case *game.CreateMessage:
		if strings.TrimSpace(m.Name) == "" {
			s.sendError(c.id, room.ErrNameRequired)
			return
		}
		r, err := s.Registry.Create(m.Seats, m.Public, m.TurnTimer)
		if err != nil {
			s.sendError(c.id, err)
			return
		}
		s.enter(ctx, c, r, m.Name)

	case *game.JoinMessage:
		r, err := s.Registry.Lookup(m.Code)
		if err != nil {
			s.sendError(c.id, err)
			return
		}
		s.enter(ctx, c, r, m.Name)

	case *game.LeaveMessage:
		if c.room != nil {
			c.room.Submit(c.id, m)
			c.room = nil
		}

	default:
		if c.room == nil {
			s.sendError(c.id, ErrNoRoom)
			return
		}
		if !c.room.Submit(c.id, payload) {
			c.room = nil
			s.sendError(c.id, room.ErrRoomClosed)
		}
	}
}

// enter seats the client in r under name, leaving the room it was in, if another one.
func (s *ServerState) enter(ctx context.Context, c *client, r *room.Room, name string) {
	if c.room != nil && c.room != r {
		c.room.Submit(c.id, &game.LeaveMessage{})
		c.room = nil
	}
	if _, err := r.Join(ctx, c.id, name); err != nil {
		s.sendError(c.id, err)
		return
	}
	c.room = r
}
