package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
	"github.com/janpfeifer/GoShed/internal/room"
	"github.com/janpfeifer/GoShed/internal/server"
)

var (
	defaults = server.DefaultConfig()

	flagAddr           = flag.String("addr", "", "Address to listen on (default: $PORT on all interfaces, or auto-port on localhost)")
	flagTurnTimerMax   = flag.Int("turn-timer-max", defaults.Lobby.MaxTurnTimer, "Longest turn timer, in seconds, a room may ask for")
	flagRoomMaxAge     = flag.Duration("room-max-age", defaults.Lobby.MaxAge, "Rooms older than this are destroyed")
	flagEmptyRoomGrace = flag.Duration("empty-room-grace", defaults.Lobby.EmptyGrace, "Rooms without connected players for this long are destroyed")
	flagSweepInterval  = flag.Duration("sweep-interval", defaults.Lobby.SweepInterval, "How often stale rooms are looked for")
	flagReconnectGrace = flag.Duration("reconnect-grace", room.DefaultReconnectGrace, "How long a dropped connection keeps its seat")
	flagBotDelay       = flag.Duration("bot-delay", room.DefaultBotDelay, "Delay before a bot plays its turn")
	flagMsgRate        = flag.Float64("msg-rate", float64(defaults.MsgRate), "Inbound messages per second allowed per connection")
	flagMsgBurst       = flag.Int("msg-burst", defaults.MsgBurst, "Burst of inbound messages allowed per connection")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	cfg := defaults
	cfg.Addr = *flagAddr
	if cfg.Addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Addr = ":" + port
		}
	}
	cfg.Lobby.MaxTurnTimer = *flagTurnTimerMax
	cfg.Lobby.MaxAge = *flagRoomMaxAge
	cfg.Lobby.EmptyGrace = *flagEmptyRoomGrace
	cfg.Lobby.SweepInterval = *flagSweepInterval
	cfg.Lobby.Room.ReconnectGrace = *flagReconnectGrace
	cfg.Lobby.Room.BotDelay = *flagBotDelay
	cfg.MsgRate = rate.Limit(*flagMsgRate)
	cfg.MsgBurst = *flagMsgBurst

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := make(chan *server.ServerState, 1)
	go func() {
		state := <-started
		fmt.Printf("GoShed %s server listening on ws://%s/ws\n", game.Version, state.Address)
	}()

	start := time.Now()
	if err := server.Run(ctx, cfg, started); err != nil {
		klog.Fatal(err)
	}
	klog.Infof("Server stopped after %s", time.Since(start).Round(time.Second))
	klog.Flush()
}
