package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/game/gametest"
	"github.com/DoyleJ11/llm-among-us/internal/types"
)

// pushServer accepts push connections and hands each to script.
func pushServer(t *testing.T, script func(ctx context.Context, gameID string, c *websocket.Conn)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/{gameID}", func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = c.CloseNow() }()
		script(r.Context(), r.PathValue("gameID"), c)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestTransport(t *testing.T, baseURL string) *Transport {
	t.Helper()
	return newTestTransportWith(t, Options{BaseURL: baseURL})
}

func newTestTransportWith(t *testing.T, opts Options) *Transport {
	t.Helper()
	opts.Log = zaptest.NewLogger(t)
	tr := New(context.Background(), opts)
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func next(t *testing.T, tr *Transport) Event {
	t.Helper()
	select {
	case ev := <-tr.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport event")
		return nil
	}
}

func TestTransport_DeliversPushesAndSkipsJunk(t *testing.T) {
	srv := pushServer(t, func(ctx context.Context, gameID string, c *websocket.Conn) {
		snap := gametest.InProgress(gameID, 1, game.PhaseCoding)
		frames := [][]byte{
			[]byte(`{"type":"chat","data":{}}`),
			[]byte(`not json`),
			[]byte(`{"type":"game_state_update"}`),
			[]byte(`{"type":"game_state_update","data":{"gameId":"x"}}`),
			gametest.Frame(t, snap),
		}
		for _, f := range frames {
			if err := c.Write(ctx, websocket.MessageText, f); err != nil {
				return
			}
		}
		// Hold the connection until the client leaves.
		_, _, _ = c.Read(ctx)
	})
	tr := newTestTransport(t, wsURL(srv))

	id := tr.Connect("g1")
	require.NotZero(t, id)

	opened, ok := next(t, tr).(Opened)
	require.True(t, ok)
	assert.Equal(t, Opened{ConnID: id, GameID: "g1"}, opened)

	pushed, ok := next(t, tr).(Pushed)
	require.True(t, ok, "junk frames must be skipped, not surfaced")
	assert.Equal(t, id, pushed.ConnID)
	assert.Equal(t, "g1", pushed.Snapshot.GameID)
	assert.Equal(t, game.PhaseCoding, pushed.Snapshot.CurrentPhase)

	tr.Disconnect()
	closed, ok := next(t, tr).(Closed)
	require.True(t, ok)
	assert.Equal(t, id, closed.ConnID)
}

// chatFrame is a frame of a type the client ignores, padded to size bytes.
func chatFrame(size int) []byte {
	head := `{"type":"chat","data":"`
	tail := `"}`
	return []byte(head + strings.Repeat("x", size-len(head)-len(tail)) + tail)
}

func TestTransport_LargeFramesDoNotEndSession(t *testing.T) {
	srv := pushServer(t, func(ctx context.Context, gameID string, c *websocket.Conn) {
		// Past the websocket library's own 32 KiB default.
		_ = c.Write(ctx, websocket.MessageText, chatFrame(64<<10))
		_ = c.Write(ctx, websocket.MessageText, gametest.Frame(t, gametest.Lobby(gameID)))
		_, _, _ = c.Read(ctx)
	})
	tr := newTestTransport(t, wsURL(srv))

	tr.Connect("g1")
	require.IsType(t, Opened{}, next(t, tr))

	pushed, ok := next(t, tr).(Pushed)
	require.True(t, ok, "an oversized frame must not end the connection")
	assert.Equal(t, "g1", pushed.Snapshot.GameID)
}

func TestTransport_ReadLimitExceededFails(t *testing.T) {
	srv := pushServer(t, func(ctx context.Context, gameID string, c *websocket.Conn) {
		_ = c.Write(ctx, websocket.MessageText, chatFrame(4<<10))
		_ = c.Write(ctx, websocket.MessageText, gametest.Frame(t, gametest.Lobby(gameID)))
		_, _, _ = c.Read(ctx)
	})
	tr := newTestTransportWith(t, Options{BaseURL: wsURL(srv), ReadLimit: 1 << 10})

	id := tr.Connect("g1")
	require.IsType(t, Opened{}, next(t, tr))

	failed, ok := next(t, tr).(Failed)
	require.True(t, ok)
	assert.Equal(t, id, failed.ConnID)
	assert.ErrorIs(t, failed.Err, game.ErrConnectionFailed)
}

func TestTransport_Keepalive(t *testing.T) {
	pings := make(chan types.ClientFrame, 2)
	srv := pushServer(t, func(ctx context.Context, gameID string, c *websocket.Conn) {
		for range 2 {
			var f types.ClientFrame
			if err := wsjson.Read(ctx, c, &f); err != nil {
				return
			}
			pings <- f
			if err := wsjson.Write(ctx, c, types.PushFrame{Type: types.FramePong}); err != nil {
				return
			}
		}
		_ = c.Write(ctx, websocket.MessageText, gametest.Frame(t, gametest.Lobby(gameID)))
		_, _, _ = c.Read(ctx)
	})
	tr := newTestTransportWith(t, Options{BaseURL: wsURL(srv), PingInterval: 10 * time.Millisecond})

	id := tr.Connect("g1")
	require.IsType(t, Opened{}, next(t, tr))

	// Pongs are skipped: the next event is the push that follows them.
	pushed, ok := next(t, tr).(Pushed)
	require.True(t, ok)
	assert.Equal(t, id, pushed.ConnID)

	require.Len(t, pings, 2)
	for range 2 {
		assert.Equal(t, types.ClientFrame{Type: types.FramePing}, <-pings)
	}
}

func TestTransport_ServerCloseIsNotAFailure(t *testing.T) {
	srv := pushServer(t, func(ctx context.Context, _ string, c *websocket.Conn) {
		_ = c.Close(4004, "game not found")
	})
	tr := newTestTransport(t, wsURL(srv))

	id := tr.Connect("missing")
	require.IsType(t, Opened{}, next(t, tr))

	ev := next(t, tr)
	assert.Equal(t, Closed{ConnID: id, GameID: "missing"}, ev)
}

func TestTransport_DialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)
	tr := newTestTransport(t, wsURL(srv))

	id := tr.Connect("g1")
	failed, ok := next(t, tr).(Failed)
	require.True(t, ok)
	assert.Equal(t, id, failed.ConnID)
	assert.ErrorIs(t, failed.Err, game.ErrConnectionFailed)
}

func TestTransport_DroppedConnectionFails(t *testing.T) {
	srv := pushServer(t, func(ctx context.Context, _ string, c *websocket.Conn) {
		// Vanish without a close frame.
		_ = c.CloseNow()
	})
	tr := newTestTransport(t, wsURL(srv))

	tr.Connect("g1")
	require.IsType(t, Opened{}, next(t, tr))

	failed, ok := next(t, tr).(Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, game.ErrConnectionFailed)
}

func TestTransport_ConnectSupersedes(t *testing.T) {
	srv := pushServer(t, func(ctx context.Context, gameID string, c *websocket.Conn) {
		_ = c.Write(ctx, websocket.MessageText, gametest.Frame(t, gametest.Lobby(gameID)))
		_, _, _ = c.Read(ctx)
	})
	tr := newTestTransport(t, wsURL(srv))

	first := tr.Connect("g1")
	require.IsType(t, Opened{}, next(t, tr))
	require.IsType(t, Pushed{}, next(t, tr))

	second := tr.Connect("g2")
	require.NotEqual(t, first, second)

	// The old connection ends with Closed; the new one opens and pushes.
	seen := map[uint64][]Event{}
	for len(seen[second]) < 2 || len(seen[first]) < 1 {
		ev := next(t, tr)
		seen[ev.Conn()] = append(seen[ev.Conn()], ev)
	}
	assert.IsType(t, Closed{}, seen[first][0])
	assert.IsType(t, Opened{}, seen[second][0])
	pushed, ok := seen[second][1].(Pushed)
	require.True(t, ok)
	assert.Equal(t, "g2", pushed.Snapshot.GameID)
}

func TestTransport_DisconnectClosesCleanly(t *testing.T) {
	statuses := make(chan websocket.StatusCode, 1)
	srv := pushServer(t, func(ctx context.Context, _ string, c *websocket.Conn) {
		_, _, err := c.Read(ctx)
		statuses <- websocket.CloseStatus(err)
	})
	tr := New(context.Background(), Options{BaseURL: wsURL(srv), Log: zaptest.NewLogger(t)})

	id := tr.Connect("g1")
	require.IsType(t, Opened{}, next(t, tr))

	tr.Disconnect()
	assert.Equal(t, Closed{ConnID: id, GameID: "g1"}, next(t, tr))
	require.NoError(t, tr.Close())

	select {
	case st := <-statuses:
		assert.Equal(t, websocket.StatusNormalClosure, st)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the close handshake")
	}
}

func TestTransport_ConnectAfterClose(t *testing.T) {
	tr := New(context.Background(), Options{BaseURL: "ws://127.0.0.1:1"})
	require.NoError(t, tr.Close())
	assert.Zero(t, tr.Connect("g1"))
}

func TestTransport_URL(t *testing.T) {
	tr := New(context.Background(), Options{BaseURL: "ws://localhost:8000/"})
	defer tr.Close()
	assert.Equal(t, "ws://localhost:8000/ws/abc%2Fdef", tr.url("abc/def"))
}
