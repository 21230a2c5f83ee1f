package ws

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/types"
)

type Options struct {
	// BaseURL is the push channel origin, e.g. ws://localhost:8000.
	BaseURL      string
	PingInterval time.Duration // 0 disables keepalive
	Log          *zap.Logger

	// ReadLimit caps one inbound frame; 0 means no cap. A frame over the
	// cap ends the connection with Failed, whatever its type.
	ReadLimit int64
}

// Transport owns at most one live push connection at a time. It never
// reconnects on its own.
type Transport struct {
	opts   Options
	log    *zap.Logger
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	nextID uint64
	cur    *conn
	wg     sync.WaitGroup
}

type conn struct {
	id     uint64
	gameID string
	cancel context.CancelFunc
}

func New(parent context.Context, opts Options) *Transport {
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = -1
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Transport{
		opts:   opts,
		log:    log.Named("ws"),
		events: make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (t *Transport) Events() <-chan Event { return t.events }

// Connect closes the current connection, if any, and opens a new one for
// gameID in the background. The returned id tags every event of the new
// connection. It returns 0 once the transport is closed.
func (t *Transport) Connect(gameID string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dropLocked()
	if t.ctx.Err() != nil {
		return 0
	}

	t.nextID++
	ctx, cancel := context.WithCancel(t.ctx)
	c := &conn{id: t.nextID, gameID: gameID, cancel: cancel}
	t.cur = c

	t.wg.Add(1)
	go t.run(ctx, c)
	return c.id
}

// Disconnect closes the current connection. Its terminal event is Closed.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropLocked()
}

// Close releases the transport. No events are delivered afterwards.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.dropLocked()
	t.cancel()
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}

func (t *Transport) dropLocked() {
	if t.cur == nil {
		return
	}
	t.cur.cancel()
	t.cur = nil
}

func (t *Transport) url(gameID string) string {
	return strings.TrimRight(t.opts.BaseURL, "/") + "/ws/" + url.PathEscape(gameID)
}

func (t *Transport) run(ctx context.Context, c *conn) {
	defer t.wg.Done()
	log := t.log.With(zap.String("game_id", c.gameID), zap.Uint64("conn", c.id))

	wc, _, err := websocket.Dial(ctx, t.url(c.gameID), nil)
	if err != nil {
		if ctx.Err() != nil {
			// Superseded or closed while dialing.
			t.emit(Closed{ConnID: c.id, GameID: c.gameID})
			return
		}
		log.Warn("push channel dial failed", zap.Error(err))
		t.emit(Failed{ConnID: c.id, GameID: c.gameID, Err: fmt.Errorf("%w: %v", game.ErrConnectionFailed, err)})
		return
	}
	defer func() { _ = wc.CloseNow() }()
	wc.SetReadLimit(t.opts.ReadLimit)

	// A local close goes through the close handshake; the pending Read then
	// returns and the loop below reports Closed. run waits for the closer.
	readDone := make(chan struct{})
	closerDone := make(chan struct{})
	go func() {
		defer close(closerDone)
		select {
		case <-ctx.Done():
			_ = wc.Close(websocket.StatusNormalClosure, "client closed")
		case <-readDone:
		}
	}()
	defer func() {
		close(readDone)
		<-closerDone
	}()

	log.Info("push channel open")
	t.emit(Opened{ConnID: c.id, GameID: c.gameID})

	if t.opts.PingInterval > 0 {
		pingCtx, pingCancel := context.WithCancel(ctx)
		defer pingCancel()
		go t.keepalive(pingCtx, wc, log)
	}

	for {
		_, data, err := wc.Read(t.ctx)
		if err != nil {
			t.emit(t.terminal(ctx, c, err, log))
			return
		}

		snap, err := DecodeFrame(data)
		if err != nil {
			log.Debug("ignoring push frame", zap.Error(err))
			continue
		}
		t.emit(Pushed{ConnID: c.id, GameID: c.gameID, Snapshot: snap})
	}
}

func (t *Transport) terminal(ctx context.Context, c *conn, err error, log *zap.Logger) Event {
	if ctx.Err() != nil {
		log.Info("push channel closed locally")
		return Closed{ConnID: c.id, GameID: c.gameID}
	}
	if status := websocket.CloseStatus(err); status != -1 {
		log.Info("push channel closed by server", zap.Int("status", int(status)))
		return Closed{ConnID: c.id, GameID: c.gameID}
	}
	log.Warn("push channel dropped", zap.Error(err))
	return Failed{ConnID: c.id, GameID: c.gameID, Err: fmt.Errorf("%w: %v", game.ErrConnectionFailed, err)}
}

func (t *Transport) keepalive(ctx context.Context, wc *websocket.Conn, log *zap.Logger) {
	tick := time.NewTicker(t.opts.PingInterval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := wsjson.Write(ctx, wc, types.ClientFrame{Type: types.FramePing}); err != nil {
				log.Debug("keepalive write failed", zap.Error(err))
				return
			}
		}
	}
}

func (t *Transport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.ctx.Done():
	}
}
