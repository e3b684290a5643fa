package lobby

import (
	"context"
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janpfeifer/GoShed/internal/game"
)

type nopDeliverer struct {
	mu    sync.Mutex
	count int
}

func (d *nopDeliverer) Deliver(string, game.WsMessage) {
	d.mu.Lock()
	d.count++
	d.mu.Unlock()
}

func newTestRegistry(ctx context.Context) *Registry {
	return New(ctx, DefaultConfig(), &nopDeliverer{})
}

func TestCreateAndLookup(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)

		r, err := g.Create(2, true, 30)
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9A-Z]{4}$`, r.Code())
		assert.Equal(t, 1, g.Len())

		found, err := g.Lookup(" " + r.Code() + " ")
		require.NoError(t, err)
		assert.Same(t, r, found)

		found, err = g.Lookup(strings.ToLower(r.Code()))
		require.NoError(t, err)
		assert.Same(t, r, found)

		_, err = g.Lookup("????")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})
}

func TestCreateValidation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)

		for _, seats := range []int{-1, 1, 5} {
			_, err := g.Create(seats, false, 0)
			assert.ErrorIs(t, err, ErrInvalidOptions, "seats=%d", seats)
		}
		for _, timer := range []int{-5, 121} {
			_, err := g.Create(2, false, timer)
			assert.ErrorIs(t, err, ErrInvalidOptions, "turn timer=%d", timer)
		}
		assert.Zero(t, g.Len())

		for _, seats := range []int{0, 2, 3, 4} {
			_, err := g.Create(seats, false, 0)
			assert.NoError(t, err, "seats=%d", seats)
		}
		assert.Equal(t, 4, g.Len())
	})
}

func TestCodesAreUnique(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)

		codes := map[string]bool{}
		for range 200 {
			r, err := g.Create(0, false, 0)
			require.NoError(t, err)
			require.False(t, codes[r.Code()], "duplicate code %s", r.Code())
			codes[r.Code()] = true
		}
	})
}

func TestPublicListing(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)

		first, err := g.Create(2, true, 0)
		require.NoError(t, err)
		time.Sleep(time.Second)
		second, err := g.Create(0, true, 0)
		require.NoError(t, err)
		_, err = g.Create(2, false, 0)
		require.NoError(t, err)

		_, err = first.Join(ctx, "c1", "Ann")
		require.NoError(t, err)
		synctest.Wait()

		public := g.Public()
		require.Len(t, public, 2)
		assert.Equal(t, first.Code(), public[0].Code)
		assert.Equal(t, 1, public[0].Seated)
		assert.Equal(t, second.Code(), public[1].Code)

		// A full room starts and is no longer listed.
		_, err = first.Join(ctx, "c2", "Bob")
		require.NoError(t, err)
		synctest.Wait()
		public = g.Public()
		require.Len(t, public, 1)
		assert.Equal(t, second.Code(), public[0].Code)
	})
}

func TestSweepEmptyRooms(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)

		empty, err := g.Create(2, false, 0)
		require.NoError(t, err)
		occupied, err := g.Create(0, false, 0)
		require.NoError(t, err)
		_, err = occupied.Join(ctx, "c1", "Ann")
		require.NoError(t, err)
		synctest.Wait()

		assert.Empty(t, g.Sweep(time.Now()))

		time.Sleep(DefaultConfig().EmptyGrace + time.Second)
		assert.Equal(t, []string{empty.Code()}, g.Sweep(time.Now()))
		synctest.Wait()

		<-empty.Done()
		_, err = g.Lookup(empty.Code())
		assert.ErrorIs(t, err, ErrRoomNotFound)
		_, err = g.Lookup(occupied.Code())
		assert.NoError(t, err)
	})
}

func TestSweepOldRooms(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)
		go g.Run(ctx)

		r, err := g.Create(0, false, 0)
		require.NoError(t, err)
		_, err = r.Join(ctx, "c1", "Ann")
		require.NoError(t, err)

		time.Sleep(DefaultConfig().MaxAge - time.Minute)
		synctest.Wait()
		assert.Equal(t, 1, g.Len())

		time.Sleep(2 * DefaultConfig().SweepInterval)
		synctest.Wait()
		assert.Zero(t, g.Len())
		assert.True(t, r.Summary().Closed)
	})
}

func TestRoomLeavesRegistryWhenAbandoned(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		g := newTestRegistry(ctx)

		r, err := g.Create(0, false, 0)
		require.NoError(t, err)
		_, err = r.Join(ctx, "c1", "Ann")
		require.NoError(t, err)
		r.Submit("c1", &game.LeaveMessage{})
		synctest.Wait()

		assert.Zero(t, g.Len())
	})
}
