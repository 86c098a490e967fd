package chat

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	id   string
	name string
	fail bool

	mu       sync.Mutex
	received [][]byte
}

func newFakeSub(id, name string) *fakeSub {
	return &fakeSub{id: id, name: name}
}

func (f *fakeSub) ID() string   { return f.id }
func (f *fakeSub) Name() string { return f.name }

func (f *fakeSub) Deliver(payload []byte) error {
	if f.fail {
		return errors.New("broken pipe")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, payload)
	return nil
}

func (f *fakeSub) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func TestRegistry_BroadcastIsRoomScoped(t *testing.T) {
	r := NewRegistry(nil)
	a1, a2 := newFakeSub("a1", "alice"), newFakeSub("a2", "bob")
	b1 := newFakeSub("b1", "carol")
	r.Register(a1, "5-2")
	r.Register(a2, "5-2")
	r.Register(b1, "9-1")

	n := r.Broadcast("5-2", []byte("hello"))

	assert.Equal(t, 2, n)
	assert.Equal(t, 1, a1.count())
	assert.Equal(t, 1, a2.count())
	assert.Equal(t, 0, b1.count())
}

func TestRegistry_ReRegisterDoesNotDuplicate(t *testing.T) {
	r := NewRegistry(nil)
	s := newFakeSub("a1", "alice")
	r.Register(s, "5-2")
	r.Register(s, "5-2")

	assert.Equal(t, 1, r.Count("5-2"))
	r.Broadcast("5-2", []byte("x"))
	assert.Equal(t, 1, s.count())
}

func TestRegistry_FailingSubscriberDoesNotBlockOthers(t *testing.T) {
	r := NewRegistry(nil)
	bad := newFakeSub("bad", "mallory")
	bad.fail = true
	good := newFakeSub("good", "alice")
	r.Register(bad, "5-2")
	r.Register(good, "5-2")

	n := r.Broadcast("5-2", []byte("x"))

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, good.count())
}

func TestRegistry_UnregisterDropsEmptyRooms(t *testing.T) {
	r := NewRegistry(nil)
	s := newFakeSub("a1", "alice")
	r.Register(s, "5-2")
	require.Equal(t, 1, r.roomCount())

	r.Unregister(s, "5-2")
	assert.Equal(t, 0, r.Count("5-2"))
	assert.Equal(t, 0, r.roomCount())
	assert.Equal(t, 0, r.Broadcast("5-2", []byte("x")))

	// unknown room and repeated unregister are no-ops
	r.Unregister(s, "5-2")
	r.Unregister(s, "1-1")
}

func TestRegistry_Members(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(newFakeSub("1", "bob"), "5-2")
	r.Register(newFakeSub("2", "alice"), "5-2")
	r.Register(newFakeSub("3", "bob"), "5-2")

	assert.Equal(t, []string{"alice", "bob"}, r.Members("5-2"))
	assert.Equal(t, []string{}, r.Members("9-1"))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			room := fmt.Sprintf("%d-1", i%5)
			s := newFakeSub(fmt.Sprintf("c%d", i), "user")
			r.Register(s, room)
			r.Broadcast(room, []byte("ping"))
			r.Members(room)
			r.Unregister(s, room)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, r.roomCount())
}
