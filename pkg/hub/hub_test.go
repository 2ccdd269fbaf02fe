package hub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/internal/log"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test", log.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	return h, cancel
}

func fakeClient(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.add(c)
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestEncode(t *testing.T) {
	msg, err := Encode(KindSession, map[string]bool{"isProcessing": true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"session","data":{"isProcessing":true}}`, string(msg.Data))

	_, err = Encode(KindVoice, make(chan int))
	assert.Error(t, err)
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h, _ := startHub(t)
	a := fakeClient(h, 4)
	b := fakeClient(h, 4)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(KindVoice, map[string]string{"state": "listening"}))

	for _, c := range []*Client{a, b} {
		var env struct {
			Type string            `json:"type"`
			Data map[string]string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(receive(t, c).Data, &env))
		assert.Equal(t, KindVoice, env.Type)
		assert.Equal(t, "listening", env.Data["state"])
	}
}

func TestUnregisterClosesClient(t *testing.T) {
	h, _ := startHub(t)
	c := fakeClient(h, 1)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.remove(c)
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)

	_, ok := <-c.send
	assert.False(t, ok)
}

func TestSlowClientIsDropped(t *testing.T) {
	h, _ := startHub(t)
	slow := fakeClient(h, 1)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	h.Broadcast(Message{Data: []byte("1")})
	h.Broadcast(Message{Data: []byte("2")})

	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	assert.Equal(t, "1", string(receive(t, slow).Data))
}

func TestShutdownClosesClients(t *testing.T) {
	h, cancel := startHub(t)
	c := fakeClient(h, 1)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	<-h.Done()

	assert.False(t, h.IsRunning())
	_, ok := <-c.send
	assert.False(t, ok)

	// Registration after shutdown does not block.
	assert.False(t, h.add(&Client{hub: h, send: make(chan Message, 1)}))
}
