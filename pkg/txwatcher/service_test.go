package txwatcher_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/peertrade-network/peertrade-daemon/pkg/txwatcher"
)

type fakeDepthSource struct {
	depths map[string]int
	lock   sync.Mutex
}

func newFakeDepthSource() *fakeDepthSource {
	return &fakeDepthSource{depths: map[string]int{}}
}

func (s *fakeDepthSource) setDepth(txHash string, depth int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.depths[txHash] = depth
}

func (s *fakeDepthSource) ConfirmationDepth(
	ctx context.Context, txHash string,
) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.depths[txHash], nil
}

func newTestWatcher(source txwatcher.DepthSource) txwatcher.Service {
	return txwatcher.NewService(txwatcher.Opts{
		Source:            source,
		Interval:          10 * time.Millisecond,
		RequestsPerSecond: 1000,
	})
}

func waitForEvent(t *testing.T, watcher txwatcher.Service) txwatcher.Event {
	t.Helper()
	select {
	case event := <-watcher.EventChannel():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("no event within deadline")
		return txwatcher.Event{}
	}
}

func TestWatchTxEmitsOnDepthChange(t *testing.T) {
	source := newFakeDepthSource()
	watcher := newTestWatcher(source)
	defer watcher.Stop()

	watcher.WatchTx("tx1")
	require.True(t, watcher.IsWatching("tx1"))

	// the initial observation reports the current depth, 0 included
	event := waitForEvent(t, watcher)
	require.Equal(t, "tx1", event.TxHash)
	require.Equal(t, 0, event.Confirmations)

	source.setDepth("tx1", 2)
	event = waitForEvent(t, watcher)
	require.Equal(t, "tx1", event.TxHash)
	require.Equal(t, 2, event.Confirmations)
}

func TestWatchTxDoesNotRepeatUnchangedDepth(t *testing.T) {
	source := newFakeDepthSource()
	source.setDepth("tx1", 1)
	watcher := newTestWatcher(source)
	defer watcher.Stop()

	watcher.WatchTx("tx1")
	event := waitForEvent(t, watcher)
	require.Equal(t, 1, event.Confirmations)

	select {
	case event := <-watcher.EventChannel():
		t.Fatalf("unexpected event at unchanged depth: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatchTxIsIdempotent(t *testing.T) {
	source := newFakeDepthSource()
	watcher := newTestWatcher(source)
	defer watcher.Stop()

	watcher.WatchTx("tx1")
	watcher.WatchTx("tx1")

	waitForEvent(t, watcher)
	select {
	case event := <-watcher.EventChannel():
		t.Fatalf("duplicate observation: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnwatchTx(t *testing.T) {
	source := newFakeDepthSource()
	watcher := newTestWatcher(source)
	defer watcher.Stop()

	watcher.WatchTx("tx1")
	waitForEvent(t, watcher)

	watcher.UnwatchTx("tx1")
	require.False(t, watcher.IsWatching("tx1"))

	source.setDepth("tx1", 5)
	select {
	case event := <-watcher.EventChannel():
		t.Fatalf("event after unwatch: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopClosesEventChannel(t *testing.T) {
	source := newFakeDepthSource()
	watcher := newTestWatcher(source)

	watcher.WatchTx("tx1")
	waitForEvent(t, watcher)
	watcher.Stop()

	_, open := <-watcher.EventChannel()
	require.False(t, open)
}
