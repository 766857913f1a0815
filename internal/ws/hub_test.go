package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/fathima-sithara/context-chat-service/internal/room"
)

func testHub() *Hub {
	return NewHub(zap.NewNop().Sugar())
}

func testClient() *Client {
	return &Client{
		id:     "test",
		send:   make(chan []byte, sendBuffer),
		joined: make(map[string]struct{}),
		log:    zap.NewNop().Sugar(),
	}
}

func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case frame := <-c.send:
			var env Envelope
			require.NoError(t, json.Unmarshal(frame, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestJoinInvalidTokenRejectedWithErrorEvent(t *testing.T) {
	h := testHub()
	c := testClient()

	err := h.Join(c, "not-a-room")
	require.Error(t, err)

	events := drain(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, "joinError", events[0].Event)
	assert.Empty(t, c.joined)
}

func TestBroadcastScopedToRoom(t *testing.T) {
	h := testHub()
	r1 := room.Name(primitive.NewObjectID())
	r2 := room.Name(primitive.NewObjectID())

	sub1, sub2 := testClient(), testClient()
	require.NoError(t, h.Join(sub1, r1))
	require.NoError(t, h.Join(sub2, r2))

	h.Broadcast(r1, "newMessage", map[string]string{"text": "hi"})

	assert.Len(t, drain(t, sub1), 1)
	assert.Empty(t, drain(t, sub2))
}

func TestBroadcastNoSubscribersIsNoOp(t *testing.T) {
	h := testHub()
	// must not panic or error on an empty room
	h.Broadcast(room.Name(primitive.NewObjectID()), "newMessage", "payload")
}

func TestBroadcastPreservesOrderPerSubscriber(t *testing.T) {
	h := testHub()
	r := room.Name(primitive.NewObjectID())
	c := testClient()
	require.NoError(t, h.Join(c, r))

	for i := 0; i < 10; i++ {
		h.Broadcast(r, "newMessage", i)
	}

	events := drain(t, c)
	require.Len(t, events, 10)
	for i, env := range events {
		var n int
		require.NoError(t, json.Unmarshal(env.Data, &n))
		assert.Equal(t, i, n)
	}
}

func TestJoinIdempotent(t *testing.T) {
	h := testHub()
	r := room.Name(primitive.NewObjectID())
	c := testClient()

	require.NoError(t, h.Join(c, r))
	require.NoError(t, h.Join(c, r))
	assert.Equal(t, 1, h.RoomSize(r))

	h.Broadcast(r, "newMessage", "once")
	assert.Len(t, drain(t, c), 1)
}

func TestLeaveIdempotentAndInvalidTokenIgnored(t *testing.T) {
	h := testHub()
	r := room.Name(primitive.NewObjectID())
	c := testClient()

	h.Leave(c, r) // never joined
	h.Leave(c, "not-a-room")

	require.NoError(t, h.Join(c, r))
	h.Leave(c, r)
	h.Leave(c, r)
	assert.Equal(t, 0, h.RoomSize(r))
	assert.Empty(t, drain(t, c))
}

func TestRemoveDropsAllSubscriptions(t *testing.T) {
	h := testHub()
	r1 := room.Name(primitive.NewObjectID())
	r2 := room.Name(primitive.NewObjectID())
	c := testClient()
	require.NoError(t, h.Join(c, r1))
	require.NoError(t, h.Join(c, r2))

	h.Remove(c)

	assert.Equal(t, 0, h.RoomSize(r1))
	assert.Equal(t, 0, h.RoomSize(r2))
	h.Broadcast(r1, "newMessage", "gone")
	assert.Empty(t, drain(t, c))
}

func TestConcurrentJoinLeaveBroadcast(t *testing.T) {
	h := testHub()
	r := room.Name(primitive.NewObjectID())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			c := testClient()
			_ = h.Join(c, r)
			h.Leave(c, r)
		}
	}()
	for i := 0; i < 200; i++ {
		h.Broadcast(r, "newMessage", i)
	}
	<-done
}
