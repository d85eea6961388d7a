package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu   sync.Mutex
	puts []string
	data map[string][]byte
	fail bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) Put(ctx context.Context, hallId, collection string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("store unavailable")
	}
	f.puts = append(f.puts, collection)
	f.data[hallId+"/"+collection] = append([]byte{}, data...)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, hallId, collection string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[hallId+"/"+collection], nil
}

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

type fakePub struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakePub) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subjects)
}

type counterState struct {
	mu    sync.Mutex
	local int
}

func (c *counterState) set(v int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local = v
}

func (c *counterState) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.local
}

func (c *counterState) register(s *Syncer, name string) {
	s.Register(name,
		func() ([]byte, error) { return json.Marshal(c.get()) },
		func(data []byte) error {
			var v int
			if err := json.Unmarshal(data, &v); err != nil {
				return err
			}
			c.set(v)
			return nil
		})
}

func TestDebounceCollapsesBursts(t *testing.T) {
	remote := newFakeStore()
	cache := newFakeStore()
	pub := &fakePub{}
	state := &counterState{}

	s := New("hall-1", remote, cache, pub, 20*time.Millisecond)
	state.register(s, "counter")

	for i := 1; i <= 5; i++ {
		state.set(i)
		s.Dirty("counter")
	}

	// the cache is written through on every mutation
	assert.Equal(t, 5, cache.putCount())

	// the remote sees one collapsed write with the final value
	require.Eventually(t, func() bool { return remote.putCount() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, remote.putCount())

	data, _ := remote.Get(context.Background(), "hall-1", "counter")
	assert.Equal(t, "5", string(data))

	assert.Equal(t, 1, pub.count())
}

func TestEchoSuppression(t *testing.T) {
	remote := newFakeStore()
	cache := newFakeStore()
	pub := &fakePub{}
	state := &counterState{}

	s := New("hall-1", remote, cache, pub, 5*time.Millisecond)
	state.register(s, "counter")

	state.set(7)
	s.Dirty("counter")
	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, time.Millisecond)

	// the echo of our own publish must not clobber newer local state
	state.set(8)
	s.HandleRemote("counter", []byte("7"))
	assert.Equal(t, 8, state.get())

	// a genuine remote update after the echo is applied
	s.HandleRemote("counter", []byte("42"))
	assert.Equal(t, 42, state.get())
}

func TestRemoteFailureKeepsLocalState(t *testing.T) {
	remote := newFakeStore()
	remote.fail = true
	cache := newFakeStore()
	pub := &fakePub{}
	state := &counterState{}

	s := New("hall-1", remote, cache, pub, 5*time.Millisecond)
	state.register(s, "counter")

	state.set(3)
	s.Dirty("counter")
	time.Sleep(30 * time.Millisecond)

	// no publish on a failed remote write, and the local value stands
	assert.Equal(t, 0, pub.count())
	assert.Equal(t, 3, state.get())

	// the failed write did not suppress anything: the next remote
	// snapshot is applied normally
	s.HandleRemote("counter", []byte("9"))
	assert.Equal(t, 9, state.get())

	// the cache still has the optimistic value
	data, _ := cache.Get(context.Background(), "hall-1", "counter")
	assert.Equal(t, "3", string(data))
}

func TestRestorePrefersRemoteOverCache(t *testing.T) {
	remote := newFakeStore()
	cache := newFakeStore()
	state := &counterState{}

	require.NoError(t, cache.Put(context.Background(), "hall-1", "counter", []byte("1")))
	require.NoError(t, remote.Put(context.Background(), "hall-1", "counter", []byte("2")))

	s := New("hall-1", remote, cache, &fakePub{}, time.Millisecond)
	state.register(s, "counter")
	s.Restore(context.Background())

	assert.Equal(t, 2, state.get())
}

func TestRestoreFallsBackToCache(t *testing.T) {
	remote := newFakeStore() // empty
	cache := newFakeStore()
	state := &counterState{}

	require.NoError(t, cache.Put(context.Background(), "hall-1", "counter", []byte("5")))

	s := New("hall-1", remote, cache, &fakePub{}, time.Millisecond)
	state.register(s, "counter")
	s.Restore(context.Background())

	assert.Equal(t, 5, state.get())
}

func TestFlushPushesPendingWrites(t *testing.T) {
	remote := newFakeStore()
	cache := newFakeStore()
	pub := &fakePub{}
	state := &counterState{}

	// long debounce so nothing flushes on its own
	s := New("hall-1", remote, cache, pub, time.Hour)
	state.register(s, "counter")

	state.set(11)
	s.Dirty("counter")
	assert.Equal(t, 0, remote.putCount())

	s.Flush()
	assert.Equal(t, 1, remote.putCount())
	assert.Equal(t, 1, pub.count())

	assert.Equal(t, Subject("hall-1", "counter"), pub.subjects[0])
}

func TestSubjectShape(t *testing.T) {
	assert.Equal(t, "hall.snapshot.hall-1.sessions", Subject("hall-1", "sessions"))
}
