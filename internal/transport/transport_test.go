package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/relay-loadgen/internal/model"
	"github.com/and161185/relay-loadgen/internal/relay"
	"github.com/and161185/relay-loadgen/internal/scenario"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, ws, origin string }{
		{"https://relay.example", "wss://relay.example", "https://relay.example"},
		{"http://127.0.0.1:7777", "ws://127.0.0.1:7777", "http://127.0.0.1:7777"},
		{"wss://relay.example/ws", "wss://relay.example/ws", "https://relay.example/ws"},
		{"ws://localhost:1", "ws://localhost:1", "http://localhost:1"},
		{"relay.example", "wss://relay.example", "https://relay.example"},
	}
	for _, tc := range cases {
		ws, origin := NormalizeURL(tc.in)
		if ws != tc.ws || origin != tc.origin {
			t.Fatalf("%s: got (%s, %s), want (%s, %s)", tc.in, ws, origin, tc.ws, tc.origin)
		}
	}
}

func TestConn_RoundTripWithRelay(t *testing.T) {
	t.Parallel()

	rl := relay.New(zaptest.NewLogger(t))
	srv := httptest.NewServer(rl.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, srv.URL)
	require.NoError(t, err)
	defer conn.Close()
	require.True(t, strings.HasPrefix(conn.URL, "ws://"))

	g, err := scenario.New(scenario.Config{})
	require.NoError(t, err)

	pub, err := g.Publish(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Send(pub))
	reply, err := conn.Receive()
	require.NoError(t, err)
	require.Equal(t, model.RelayOK, reply.Type)
	require.Equal(t, pub.Event.ID, reply.EventID)
	require.True(t, reply.Accepted, reply.Message)

	sub, err := g.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Send(sub))
	reply, err = conn.Receive()
	require.NoError(t, err)
	require.Equal(t, model.RelayEOSE, reply.Type)
	require.Equal(t, sub.SubscriptionID, reply.SubscriptionID)

	require.NoError(t, conn.SendRaw([]byte(`not json`)))
	reply, err = conn.Receive()
	require.NoError(t, err)
	require.Equal(t, model.RelayNotice, reply.Type)

	require.Equal(t, int64(1), rl.Stats().Accepted)
}

func TestDial_Unreachable(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Dial(ctx, "ws://127.0.0.1:1"); err == nil {
		t.Fatalf("want dial error")
	}
}
