package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/lobby"
)

// Config of the server.
type Config struct {
	Addr string // Address to listen on; empty picks a free port on localhost.

	Lobby lobby.Config

	MsgRate      rate.Limit    // Inbound messages per second allowed per connection.
	MsgBurst     int           // Burst of inbound messages allowed per connection.
	PingInterval time.Duration // Keepalive ping period of every websocket.
}

// DefaultConfig returns the configuration used by the server binary.
func DefaultConfig() Config {
	return Config{
		Lobby:        lobby.DefaultConfig(),
		MsgRate:      10,
		MsgBurst:     20,
		PingInterval: 30 * time.Second,
	}
}

// Run starts the server and blocks until the context is canceled.
// If started is not nil, the server state is sent to it once the server is
// listening.
func Run(ctx context.Context, cfg Config, started chan<- *ServerState) error {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", addr, err)
	}

	serverState := NewServerState(ctx, cfg)
	serverState.Address = listener.Addr().String()
	go serverState.Registry.Run(ctx)

	srv := &http.Server{
		Handler:     serverState.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		klog.Infof("Server started on %s", serverState.Address)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("Server error: %v", err)
		}
	}()
	if started != nil {
		started <- serverState
	}

	<-ctx.Done()

	// Graceful shutdown with 5 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	klog.Infof("Shutting down server...")
	return srv.Shutdown(shutdownCtx)
}

// Handler returns the HTTP routes of the server.
func (s *ServerState) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWS)
	mux.HandleFunc("GET /rooms", s.HandleRooms)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
