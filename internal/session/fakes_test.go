package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/ws"
)

type call struct {
	gameID string
	models []string
}

// fakeActions answers through per-operation funcs and records every call.
type fakeActions struct {
	mu      sync.Mutex
	calls   map[op][]call
	create  func(models []string) (game.Snapshot, error)
	start   func(gameID string) (game.Snapshot, error)
	advance func(gameID string) (game.Snapshot, error)
	fetch   func(gameID string) (game.Snapshot, error)
	delete  func(gameID string) error
}

func newFakeActions() *fakeActions {
	return &fakeActions{calls: make(map[op][]call)}
}

func (f *fakeActions) record(o op, c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[o] = append(f.calls[o], c)
}

func (f *fakeActions) Calls(o op) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls[o]...)
}

func (f *fakeActions) CreateGame(_ context.Context, models []string) (game.Snapshot, error) {
	f.record(opCreate, call{models: models})
	return f.create(models)
}

func (f *fakeActions) StartGame(_ context.Context, gameID string) (game.Snapshot, error) {
	f.record(opStart, call{gameID: gameID})
	return f.start(gameID)
}

func (f *fakeActions) AdvancePhase(_ context.Context, gameID string) (game.Snapshot, error) {
	f.record(opAdvance, call{gameID: gameID})
	return f.advance(gameID)
}

func (f *fakeActions) FetchState(_ context.Context, gameID string) (game.Snapshot, error) {
	f.record(opRefresh, call{gameID: gameID})
	return f.fetch(gameID)
}

func (f *fakeActions) DeleteGame(_ context.Context, gameID string) error {
	f.record(opDelete, call{gameID: gameID})
	return f.delete(gameID)
}

// fakeTransport hands out connection ids and lets tests inject events.
type fakeTransport struct {
	mu          sync.Mutex
	events      chan ws.Event
	nextID      uint64
	connects    []string
	disconnects int
	closed      bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan ws.Event, 16)}
}

func (f *fakeTransport) Connect(gameID string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.connects = append(f.connects, gameID)
	return f.nextID
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
}

func (f *fakeTransport) Events() <-chan ws.Event { return f.events }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) Connects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.connects...)
}

func (f *fakeTransport) LastConn() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextID
}

func (f *fakeTransport) disconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnects
}

func (f *fakeTransport) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newTestController(t *testing.T, actions *fakeActions, transport *fakeTransport, opts ...Option) *Controller {
	t.Helper()
	opts = append(opts, WithLogger(zaptest.NewLogger(t)))
	c := New(context.Background(), actions, transport, opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// waitView polls until cond holds so tests never hang on a missed event.
func waitView(t *testing.T, c *Controller, cond func(View) bool) View {
	t.Helper()
	var last View
	require.Eventually(t, func() bool {
		last = c.View()
		return cond(last)
	}, time.Second, 5*time.Millisecond, "view never matched")
	return last
}
