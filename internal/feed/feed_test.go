package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgeclaim/engine/internal/store"
)

func TestEncodeParseRoundTrip(t *testing.T) {
	data, err := Encode(Event{
		Type: TypeWallet,
		Data: store.WalletState{Connected: true, Address: "0xABCD...1234"},
	})
	require.NoError(t, err)

	env, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, TypeWallet, env.Type)

	var w store.WalletState
	require.NoError(t, env.Decode(&w))
	assert.True(t, w.Connected)
	assert.Equal(t, "0xABCD...1234", w.Address)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte("not json"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"data":{}}`))
	assert.Error(t, err, "missing type")
}

func TestDecodeWithoutData(t *testing.T) {
	data, err := Encode(Event{Type: TypeSelection})
	require.NoError(t, err)

	env, err := Parse(data)
	require.NoError(t, err)
	assert.Error(t, env.Decode(&SelectionEvent{}))
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		event Event
		want  string
	}{
		{Event{TypeWallet, store.WalletState{Connected: true, Address: "0x1"}}, "wallet connected 0x1"},
		{Event{TypeWallet, store.WalletState{Connecting: true}}, "wallet connecting"},
		{Event{TypeSelection, SelectionEvent{
			Selected:   []string{"a", "b"},
			Decisions:  map[string]store.StakingDecision{"a": {OfferID: "a", WillStake: true}},
			Processing: true,
		}}, "selection 2 offers, 1 staking (processing)"},
		{Event{TypeSettlement, SettlementEvent{
			Strategy: "claim-all", Outcome: "partial", Succeeded: 1200, Failed: 1,
		}}, "settlement claim-all partial: 1,200 succeeded, 1 failed, 0 staked"},
		{Event{TypeNotification, NotificationEvent{Type: "error", Title: "All claims failed", Description: "Please try again"}},
			"ERROR | All claims failed | Please try again"},
	}

	for _, tc := range cases {
		data, err := Encode(tc.event)
		require.NoError(t, err)
		env, err := Parse(data)
		require.NoError(t, err)
		assert.Equal(t, tc.want, Describe(env))
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHubBroadcast(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: TypeSettlement, Data: SettlementEvent{Strategy: "multi-chain", Outcome: "success", Succeeded: 2}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := Parse(msg)
	require.NoError(t, err)
	assert.Equal(t, TypeSettlement, env.Type)

	var s SettlementEvent
	require.NoError(t, env.Decode(&s))
	assert.Equal(t, "multi-chain", s.Strategy)
	assert.Equal(t, 2, s.Succeeded)
}

func TestHubUnregistersClosedClient(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListenerReceivesEvents(t *testing.T) {
	hub, srv := startHub(t)

	out := make(chan Envelope, 10)
	l := NewListener(wsURL(srv), out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)
	defer l.Stop()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: TypeNotification, Data: NotificationEvent{ID: "n1", Type: "success", Title: "done"}})

	select {
	case env := <-out:
		assert.Equal(t, TypeNotification, env.Type)
		var n NotificationEvent
		require.NoError(t, env.Decode(&n))
		assert.Equal(t, "n1", n.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestListenerFiltersTypes(t *testing.T) {
	hub, srv := startHub(t)

	out := make(chan Envelope, 10)
	l := NewListener(wsURL(srv), out, TypeSettlement)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)
	defer l.Stop()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 && l.Connected() }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: TypeWallet, Data: map[string]bool{"connected": true}})
	hub.Publish(Event{Type: TypeSettlement, Data: SettlementEvent{Strategy: "claim-all", Outcome: "success", Succeeded: 1}})

	select {
	case env := <-out:
		assert.Equal(t, TypeSettlement, env.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for settlement event")
	}
	assert.Empty(t, out)
}

func TestListenerStopIsIdempotent(t *testing.T) {
	l := NewListener("ws://127.0.0.1:1", make(chan Envelope, 1))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l.Start(ctx)
	l.Stop()
	l.Stop()
	assert.False(t, l.Connected())
}

func TestWaitBackoffGrows(t *testing.T) {
	l := NewListener("ws://unused", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // return immediately

	l.waitBackoff(ctx)
	assert.Equal(t, 2*time.Second, l.backoff)

	for i := 0; i < 10; i++ {
		l.waitBackoff(ctx)
	}
	assert.Equal(t, MaxBackoff, l.backoff)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
