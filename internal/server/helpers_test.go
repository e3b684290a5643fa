package server

import (
	"context"
	"net"
	"net/http"
	"testing"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/janpfeifer/GoShed/internal/game"
)

// wsClient is a test websocket client speaking the game protocol.
type wsClient struct {
	t    *testing.T
	ctx  context.Context
	name string
	conn *websocket.Conn
}

func dial(t *testing.T, ctx context.Context, url, name string, opts *websocket.DialOptions) *wsClient {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, opts)
	if err != nil {
		t.Fatalf("%s: dial error: %v", name, err)
	}
	return &wsClient{t: t, ctx: ctx, name: name, conn: conn}
}

func (c *wsClient) send(msgType game.MessageType, payload any) {
	c.t.Helper()
	msg, err := game.NewWsMessage(msgType, payload)
	if err != nil {
		c.t.Fatalf("%s: %v", c.name, err)
	}
	if err := wsjson.Write(c.ctx, c.conn, msg); err != nil {
		c.t.Fatalf("%s: failed to send %s: %v", c.name, msgType, err)
	}
}

// until reads messages until one of msgType arrives and returns its parsed payload.
func (c *wsClient) until(msgType game.MessageType) any {
	c.t.Helper()
	for {
		var msg game.WsMessage
		if err := wsjson.Read(c.ctx, c.conn, &msg); err != nil {
			c.t.Fatalf("%s: failed waiting for %s: %v", c.name, msgType, err)
		}
		if msg.Type != msgType {
			continue
		}
		p, err := msg.Parse()
		if err != nil {
			c.t.Fatalf("%s: failed to parse %s: %v", c.name, msgType, err)
		}
		return p
	}
}

// stateWhere reads state messages until one satisfies pred.
func (c *wsClient) stateWhere(pred func(*game.StateMessage) bool) *game.StateMessage {
	c.t.Helper()
	for {
		state := c.until(game.MsgTypeState).(*game.StateMessage)
		if pred(state) {
			return state
		}
	}
}

func (c *wsClient) errorMessage() string {
	c.t.Helper()
	return c.until(game.MsgTypeError).(*game.ErrorMessage).Message
}

// drain discards everything the server sends until the connection closes.
func (c *wsClient) drain() {
	go func() {
		for {
			var msg game.WsMessage
			if err := wsjson.Read(c.ctx, c.conn, &msg); err != nil {
				return
			}
		}
	}()
}

// pipeListener serves HTTP connections over net.Pipe
type pipeListener struct {
	ch   chan net.Conn
	done chan struct{}
}

func newPipeListener() *pipeListener {
	return &pipeListener{ch: make(chan net.Conn, 10), done: make(chan struct{})}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.ch:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	return nil
}

func (l *pipeListener) Addr() net.Addr { return &net.TCPAddr{} }

// dialOptions makes websocket.Dial connect through the listener.
func (l *pipeListener) dialOptions() *websocket.DialOptions {
	return &websocket.DialOptions{
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					cli, srv := net.Pipe()
					l.ch <- srv
					return cli, nil
				},
			},
		},
	}
}
