package universe

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

type fakeProject struct {
	count int
}

func (f *fakeProject) UniverseCount() int { return f.count }

func testLogger() logger.Logger {
	return logger.NewLoggerWithOutput(config.DefaultConfig(), io.Discard)
}

func newTestRuntime(t *testing.T, universeCount int) (*Runtime, *coordination.Shutdown, *coordination.Adapt, func()) {
	t.Helper()

	log := testLogger()
	sd := coordination.NewShutdown(log)
	ad := coordination.NewAdapt(log)
	project := &fakeProject{count: universeCount}

	rt := NewRuntime(sd, ad, project, log)

	ctx, cancel := context.WithCancel(context.Background())
	go rt.Run(ctx)

	return rt, sd, ad, cancel
}

func drainUntil(t *testing.T, ch <-chan dmx.UniverseUpdate, predicate func(dmx.UniverseUpdate) bool, timeout time.Duration) dmx.UniverseUpdate {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case u := <-ch:
			if predicate(u) {
				return u
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching update")
		}
	}
}

func Test_Subscribe_ReceivesEntireSnapshot(t *testing.T) {
	rt, _, _, cancel := newTestRuntime(t, 1)
	defer cancel()

	ch, unsub := rt.Subscribe()
	defer unsub()

	update := drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateEntire }, time.Second)
	assert.Equal(t, dmx.UniverseID(1), update.Universe)
	assert.Equal(t, dmx.Universe{}, update.Entire)
}

func Test_UpdateThenResend_ReflectsWrittenValue(t *testing.T) {
	rt, _, _, cancel := newTestRuntime(t, 1)
	defer cancel()

	ch, unsub := rt.Subscribe()
	defer unsub()

	// drain the initial Entire from Subscribe's implicit ResendUniverses
	drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateEntire }, time.Second)

	rt.Cmd(dmx.UpdateDataCommand(dmx.SingleUpdate(dmx.FixtureAddress{Universe: 1, Address: 5}, 200)))
	drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateSingle }, time.Second)

	rt.Cmd(dmx.ResendUniverseCommand(1))
	entire := drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateEntire }, time.Second)

	v, ok := entire.Entire.Slot(5)
	require.True(t, ok)
	assert.Equal(t, byte(200), v)
}

func Test_UniversesAdapt_ResizesAndZeroes(t *testing.T) {
	rt, _, adapt, cancel := newTestRuntime(t, 3)
	defer cancel()

	ch, unsub := rt.Subscribe()
	defer unsub()

	drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateEntire }, time.Second)

	rt.Cmd(dmx.UpdateDataCommand(dmx.SingleUpdate(dmx.FixtureAddress{Universe: 1, Address: 1}, 9)))
	drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateSingle }, time.Second)

	adapt.Notify(coordination.ScopeUniverses)

	seen := map[dmx.UniverseID]bool{}
	deadline := time.After(time.Second)
	for len(seen) < 3 {
		select {
		case u := <-ch:
			if u.Kind == dmx.UpdateEntire {
				assert.Equal(t, dmx.Universe{}, u.Entire)
				seen[u.Universe] = true
			}
		case <-deadline:
			t.Fatalf("timed out, only saw %d of 3 universes", len(seen))
		}
	}

	assert.Equal(t, 3, rt.UniverseCount())
}

func Test_ResendUniverse_OutOfRange_DoesNotPublish(t *testing.T) {
	rt, _, _, cancel := newTestRuntime(t, 1)
	defer cancel()

	ch, unsub := rt.Subscribe()
	defer unsub()

	drainUntil(t, ch, func(u dmx.UniverseUpdate) bool { return u.Kind == dmx.UpdateEntire }, time.Second)

	rt.Cmd(dmx.ResendUniverseCommand(99))

	select {
	case u := <-ch:
		t.Fatalf("unexpected publication for out-of-range universe: %+v", u)
	case <-time.After(50 * time.Millisecond):
	}
}

func Test_SubscribeUniverse_FiltersByUniverse(t *testing.T) {
	rt, _, _, cancel := newTestRuntime(t, 2)
	defer cancel()

	sub := rt.SubscribeUniverse(2)
	defer sub.Close()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	update, ok := sub.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, dmx.UniverseID(2), update.Universe)
}

func Test_SubscribeUniverse_CollapsesManyToOwnChunks(t *testing.T) {
	rt, _, _, cancel := newTestRuntime(t, 2)
	defer cancel()

	sub := rt.SubscribeUniverse(2)
	defer sub.Close()

	ctx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()

	// drain the initial Entire from Subscribe's implicit ResendUniverses
	update, ok := sub.Recv(ctx)
	require.True(t, ok)
	require.Equal(t, dmx.UpdateEntire, update.Kind)

	// one batch spanning both universes: the subscriber must retain only its own chunks
	rt.Cmd(dmx.UpdateDataCommand(dmx.ManyUpdate([]dmx.UpdateChunk{
		{Address: dmx.FixtureAddress{Universe: 1, Address: 1}, Value: 10},
		{Address: dmx.FixtureAddress{Universe: 2, Address: 2}, Value: 20},
		{Address: dmx.FixtureAddress{Universe: 1, Address: 3}, Value: 30},
		{Address: dmx.FixtureAddress{Universe: 2, Address: 4}, Value: 40},
	})))

	update, ok = sub.Recv(ctx)
	require.True(t, ok)
	require.Equal(t, dmx.UpdateMany, update.Kind)
	require.Len(t, update.Many, 2)
	assert.Equal(t, dmx.FixtureAddress{Universe: 2, Address: 2}, update.Many[0].Address)
	assert.Equal(t, byte(20), update.Many[0].Value)
	assert.Equal(t, dmx.FixtureAddress{Universe: 2, Address: 4}, update.Many[1].Address)
	assert.Equal(t, byte(40), update.Many[1].Value)

	// both universes' arrays were mutated by the same batch
	snap, inRange := rt.Snapshot(1)
	require.True(t, inRange)
	v, _ := snap.Slot(3)
	assert.Equal(t, byte(30), v)
}

func Test_Module(t *testing.T) {
	assert.NotNil(t, Module)
}
