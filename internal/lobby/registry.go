// Package lobby keeps the registry of live rooms: it allocates room codes,
// creates and looks up rooms, lists the public ones and sweeps stale rooms.
package lobby

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/janpfeifer/GoShed/internal/game"
	"github.com/janpfeifer/GoShed/internal/room"
)

// Config of the registry.
type Config struct {
	MaxAge        time.Duration // Rooms older than this are destroyed.
	EmptyGrace    time.Duration // Rooms without any connected player for this long are destroyed.
	SweepInterval time.Duration // How often stale rooms are looked for.
	MaxTurnTimer  int           // Longest turn timer a room may ask for, in seconds.

	// Room holds the timing knobs applied to every new room. Seats, Public,
	// TurnTimer and Rand are set per room.
	Room room.Options
}

// DefaultConfig returns the configuration used by the server binary.
func DefaultConfig() Config {
	return Config{
		MaxAge:        6 * time.Hour,
		EmptyGrace:    2 * time.Minute,
		SweepInterval: time.Minute,
		MaxTurnTimer:  120,
	}
}

// CodeLength is the number of characters of a room code.
const CodeLength = 4

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Registry owns the live rooms, indexed by code. It is safe for concurrent use.
type Registry struct {
	ctx       context.Context
	cfg       Config
	deliverer room.Deliverer

	mu    sync.RWMutex
	rooms map[string]*room.Room
}

// New creates an empty registry. Rooms it creates run until they close or ctx is done.
func New(ctx context.Context, cfg Config, deliverer room.Deliverer) *Registry {
	return &Registry{
		ctx:       ctx,
		cfg:       cfg,
		deliverer: deliverer,
		rooms:     make(map[string]*room.Room),
	}
}

// Create validates the options of a create_room request, then creates and
// starts a room under a fresh code. The room is empty: the creator joins it
// like anybody else.
func (g *Registry) Create(seats int, public bool, turnTimer int) (*room.Room, error) {
	if seats != 0 && (seats < game.MinSeats || seats > game.MaxSeats) {
		return nil, fmt.Errorf("%w: %d seats, want 0 or %d to %d", ErrInvalidOptions, seats, game.MinSeats, game.MaxSeats)
	}
	if turnTimer < 0 || (g.cfg.MaxTurnTimer > 0 && turnTimer > g.cfg.MaxTurnTimer) {
		return nil, fmt.Errorf("%w: turn timer of %ds", ErrInvalidOptions, turnTimer)
	}
	opts := g.cfg.Room
	opts.Seats = seats
	opts.Public = public
	opts.TurnTimer = turnTimer
	opts.Rand = nil

	g.mu.Lock()
	code := g.newCode()
	r := room.New(code, opts, g.deliverer, g.remove)
	g.rooms[code] = r
	n := len(g.rooms)
	g.mu.Unlock()

	klog.Infof("lobby: room %s created (seats=%d, public=%v, turn timer=%ds), %d rooms live", code, seats, public, turnTimer, n)
	go r.Run(g.ctx)
	return r, nil
}

// newCode returns a code not used by any live room. g.mu must be held.
func (g *Registry) newCode() string {
	var sb strings.Builder
	for {
		sb.Reset()
		for range CodeLength {
			sb.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
		}
		if _, found := g.rooms[sb.String()]; !found {
			return sb.String()
		}
	}
}

// remove is called by a room once it has shut down.
func (g *Registry) remove(code string) {
	g.mu.Lock()
	delete(g.rooms, code)
	n := len(g.rooms)
	g.mu.Unlock()
	klog.Infof("lobby: room %s destroyed, %d rooms live", code, n)
}

// Lookup returns the live room with the given code. Codes are case-insensitive.
func (g *Registry) Lookup(code string) (*room.Room, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	g.mu.RLock()
	r, found := g.rooms[code]
	g.mu.RUnlock()
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrRoomNotFound, code)
	}
	return r, nil
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

func (g *Registry) summaries() []room.Summary {
	g.mu.RLock()
	defer g.mu.RUnlock()
	summaries := make([]room.Summary, 0, len(g.rooms))
	for _, r := range g.rooms {
		summaries = append(summaries, r.Summary())
	}
	return summaries
}

// Public lists the public rooms still waiting for players, oldest first.
func (g *Registry) Public() []room.Summary {
	summaries := slices.DeleteFunc(g.summaries(), func(s room.Summary) bool {
		return !s.Public || s.Closed || s.Phase != game.PhaseLobby || s.Full()
	})
	slices.SortFunc(summaries, func(a, b room.Summary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return summaries
}

// staleReason tells why a room should be destroyed at now, or "" if it should not.
func (g *Registry) staleReason(s room.Summary, now time.Time) string {
	switch {
	case s.Closed:
		return ""
	case g.cfg.MaxAge > 0 && now.Sub(s.CreatedAt) > g.cfg.MaxAge:
		return "room too old"
	case s.Phase == game.PhaseGameOver && s.Connected == 0:
		return "game over and nobody left"
	case !s.EmptySince.IsZero() && now.Sub(s.EmptySince) > g.cfg.EmptyGrace:
		return "room empty"
	}
	return ""
}

// Sweep asks every stale room to close and returns their codes. Rooms leave
// the registry once they have shut down.
func (g *Registry) Sweep(now time.Time) []string {
	var stale []string
	for _, s := range g.summaries() {
		reason := g.staleReason(s, now)
		if reason == "" {
			continue
		}
		r, err := g.Lookup(s.Code)
		if err != nil {
			continue
		}
		r.Close(reason)
		stale = append(stale, s.Code)
	}
	slices.Sort(stale)
	if len(stale) > 0 {
		klog.V(1).Infof("lobby: sweeping %v", stale)
	}
	return stale
}

// Run sweeps stale rooms every SweepInterval until ctx is done.
func (g *Registry) Run(ctx context.Context) {
	interval := g.cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultConfig().SweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			g.Sweep(now)
		}
	}
}
