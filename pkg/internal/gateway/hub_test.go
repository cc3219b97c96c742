package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"git.solsynth.dev/hypernet/channels/pkg/internal/models"
	"github.com/alicebob/miniredis/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []models.UnifiedCommand
}

func (v *fakeConn) WriteMessage(_ int, data []byte) error {
	var task models.UnifiedCommand
	if err := jsoniter.Unmarshal(data, &task); err != nil {
		return err
	}
	v.mu.Lock()
	v.frames = append(v.frames, task)
	v.mu.Unlock()
	return nil
}

func (v *fakeConn) actions() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return lo.Map(v.frames, func(item models.UnifiedCommand, _ int) string { return item.Action })
}

func (v *fakeConn) last() models.UnifiedCommand {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.frames) == 0 {
		return models.UnifiedCommand{}
	}
	return v.frames[len(v.frames)-1]
}

func ping(action string) models.UnifiedCommand {
	return models.UnifiedCommand{Action: action}
}

func TestHubRooms(t *testing.T) {
	hub := NewHub(nil)

	alice, bob := &fakeConn{}, &fakeConn{}
	a := hub.Register(1, alice)
	b := hub.Register(2, bob)
	hub.Subscribe(5, a)
	hub.Subscribe(5, b)
	assert.True(t, hub.IsSubscribed(5, 2))

	hub.Broadcast(5, ping("first"))
	assert.Equal(t, []string{"first"}, alice.actions())
	assert.Equal(t, []string{"first"}, bob.actions())

	hub.EvictUser(5, 2)
	assert.False(t, hub.IsSubscribed(5, 2))
	hub.Broadcast(5, ping("second"))
	assert.Equal(t, []string{"first", "second"}, alice.actions())
	assert.Equal(t, []string{"first"}, bob.actions())

	hub.PushUser(2, ping("direct"))
	assert.Equal(t, []string{"first", "direct"}, bob.actions())

	hub.CloseRoom(5, ping("closed"))
	hub.Broadcast(5, ping("ignored"))
	assert.Equal(t, []string{"first", "second", "closed"}, alice.actions())
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub(nil)

	conn := &fakeConn{}
	client := hub.Register(1, conn)
	hub.Subscribe(3, client)
	hub.Subscribe(4, client)

	hub.Unregister(client)
	assert.False(t, hub.IsSubscribed(3, 1))
	assert.False(t, hub.IsSubscribed(4, 1))

	hub.PushUser(1, ping("gone"))
	assert.Empty(t, conn.actions())
}

func TestHubRelay(t *testing.T) {
	mr := miniredis.RunT(t)

	newNode := func() *Hub {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return NewHub(rdb)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	origin, remote := newNode(), newNode()
	require.NoError(t, origin.StartRelay(ctx))
	require.NoError(t, remote.StartRelay(ctx))

	local, far := &fakeConn{}, &fakeConn{}
	origin.Subscribe(7, origin.Register(1, local))
	farClient := remote.Register(2, far)
	remote.Subscribe(7, farClient)

	origin.Broadcast(7, ping("hello"))
	require.Eventually(t, func() bool { return len(far.actions()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "hello", far.last().Action)

	origin.PushUser(2, ping("direct"))
	require.Eventually(t, func() bool { return len(far.actions()) == 2 }, 2*time.Second, 10*time.Millisecond)

	origin.EvictUser(7, 2)
	require.Eventually(t, func() bool { return !remote.IsSubscribed(7, 2) }, 2*time.Second, 10*time.Millisecond)

	// The origin already delivered locally and skips its own envelopes
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"hello"}, local.actions())
}
