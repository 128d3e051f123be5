package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient builds a client without a real socket; hub code only
// touches the send channel and user id
func newTestClient(h *Hub, userID string) *Client {
	return NewClient(h, nil, userID)
}

func receivedPush(t *testing.T, c *Client) *domain.Push {
	t.Helper()
	select {
	case data := <-c.send:
		var push domain.Push
		require.NoError(t, json.Unmarshal(data, &push))
		return &push
	default:
		return nil
	}
}

func TestHub_SendToUserFansOutToAllDevices(t *testing.T) {
	h := NewHub(nil)
	phone := newTestClient(h, "alice")
	laptop := newTestClient(h, "alice")
	other := newTestClient(h, "bob")
	h.addClient(phone)
	h.addClient(laptop)
	h.addClient(other)

	h.deliver(&targetedPush{
		UserID: "alice",
		Push:   domain.NewUserPush(domain.ActionInviteCreated, "hi"),
	})

	assert.NotNil(t, receivedPush(t, phone), "every device of the user receives the push")
	assert.NotNil(t, receivedPush(t, laptop))
	assert.Nil(t, receivedPush(t, other), "other users receive nothing")
}

func TestHub_SendToChannelMembersExcludesSender(t *testing.T) {
	h := NewHub(nil)
	alice := newTestClient(h, "alice")
	bob := newTestClient(h, "bob")
	carol := newTestClient(h, "carol")
	h.addClient(alice)
	h.addClient(bob)
	h.addClient(carol)

	h.deliver(&targetedPush{
		MemberIDs: []string{"alice", "bob"},
		Exclude:   "alice",
		Push:      domain.NewChannelPush(domain.ActionMessageCreated, 7, "payload"),
	})

	assert.Nil(t, receivedPush(t, alice), "sender is excluded")
	got := receivedPush(t, bob)
	require.NotNil(t, got)
	assert.Equal(t, domain.ActionMessageCreated, got.Action)
	assert.Equal(t, int64(7), got.ChannelID)
	assert.Nil(t, receivedPush(t, carol), "non-members receive nothing")
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	h := NewHub(nil)
	clients := []*Client{
		newTestClient(h, "alice"),
		newTestClient(h, "bob"),
		newTestClient(h, "carol"),
	}
	for _, c := range clients {
		h.addClient(c)
	}

	h.deliver(&targetedPush{
		Push: domain.NewBroadcastPush(domain.ActionAlertCreated, "lockdown"),
	})

	for _, c := range clients {
		got := receivedPush(t, c)
		require.NotNil(t, got, "broadcast must reach %s", c.UserID())
		assert.Equal(t, domain.ScopeBroadcast, got.Scope)
	}
}

// A dead connection (full send buffer) is pruned mid-broadcast and the
// remaining targets still receive the push
func TestHub_DeadConnectionPrunedWithoutAbortingBroadcast(t *testing.T) {
	h := NewHub(nil)
	dead := newTestClient(h, "alice")
	alive := newTestClient(h, "bob")
	h.addClient(dead)
	h.addClient(alive)

	// Saturate the dead client's buffer so the next write fails
	for i := 0; i < cap(dead.send); i++ {
		dead.send <- []byte("x")
	}

	h.deliver(&targetedPush{
		Push: domain.NewBroadcastPush(domain.ActionAlertCreated, "drill"),
	})

	assert.False(t, h.IsOnline("alice"), "saturated connection is pruned")
	assert.NotNil(t, receivedPush(t, alive), "delivery continues past the dead connection")
}

func TestHub_ConnectDisconnectCallbacks(t *testing.T) {
	h := NewHub(nil)

	var connects, disconnects []string
	h.OnConnect(func(userID string) { connects = append(connects, userID) })
	h.OnDisconnect(func(userID string) { disconnects = append(disconnects, userID) })

	phone := newTestClient(h, "alice")
	laptop := newTestClient(h, "alice")
	h.addClient(phone)
	h.addClient(laptop)
	assert.Equal(t, []string{"alice"}, connects, "only the first connection fires onConnect")

	h.removeClient(phone)
	assert.Empty(t, disconnects, "a remaining session keeps the user connected")

	h.removeClient(laptop)
	assert.Equal(t, []string{"alice"}, disconnects, "last connection closing fires onDisconnect")
	assert.False(t, h.IsOnline("alice"))
}

// The connect/disconnect hooks dispatch from inside the run loop. With a
// saturated push queue that dispatch must drop rather than block, or a
// single connect would wedge the hub forever.
func TestHub_HookDispatchNeverBlocksOnFullQueue(t *testing.T) {
	h := NewHub(nil)
	h.OnConnect(func(userID string) {
		h.BroadcastAll(domain.NewBroadcastPush(domain.ActionPresenceUpdated, userID))
	})

	for i := 0; i < cap(h.broadcast); i++ {
		h.broadcast <- &targetedPush{Push: domain.NewBroadcastPush(domain.ActionAlertCreated, i)}
	}

	done := make(chan struct{})
	go func() {
		h.addClient(newTestClient(h, "alice"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("addClient blocked on the full push queue")
	}
	assert.True(t, h.IsOnline("alice"))
}

func TestHub_RunLoopDelivery(t *testing.T) {
	h := NewHub(nil)
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, "alice")
	h.Register(c)

	h.SendToUser("alice", domain.NewUserPush(domain.ActionPresenceUpdated, "online"))

	select {
	case data := <-c.send:
		var push domain.Push
		require.NoError(t, json.Unmarshal(data, &push))
		assert.Equal(t, domain.ActionPresenceUpdated, push.Action)
	case <-time.After(time.Second):
		t.Fatal("push was not delivered through the run loop")
	}
}

func TestHub_Counters(t *testing.T) {
	h := NewHub(nil)
	h.addClient(newTestClient(h, "alice"))
	h.addClient(newTestClient(h, "alice"))
	h.addClient(newTestClient(h, "bob"))

	assert.Equal(t, 3, h.ConnectionCount())
	assert.ElementsMatch(t, []string{"alice", "bob"}, h.OnlineUserIDs())
}
