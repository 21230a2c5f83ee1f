package session

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/ws"
)

var ErrClosed = errors.New("session closed")

// Actions is the request/response channel to the engine.
type Actions interface {
	CreateGame(ctx context.Context, models []string) (game.Snapshot, error)
	StartGame(ctx context.Context, gameID string) (game.Snapshot, error)
	AdvancePhase(ctx context.Context, gameID string) (game.Snapshot, error)
	FetchState(ctx context.Context, gameID string) (game.Snapshot, error)
	DeleteGame(ctx context.Context, gameID string) error
}

// PushTransport is the push channel. The controller owns it exclusively and
// closes it on teardown.
type PushTransport interface {
	Connect(gameID string) uint64
	Disconnect()
	Events() <-chan ws.Event
	Close() error
}

type Option func(*Controller)

func WithAdoptPolicy(p AdoptPolicy) Option {
	return func(c *Controller) { c.policy = p }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Controller) { c.log = log }
}

// Controller owns the current snapshot and folds request results and pushes
// into it on a single goroutine. Everything below the inbox is loop-owned.
type Controller struct {
	inbox     chan msg
	actions   Actions
	transport PushTransport
	policy    AdoptPolicy
	log       *zap.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	snap            *game.Snapshot
	inFlight        int
	err             error
	connected       bool
	connID          uint64
	createAttempted bool
	epoch           uint64
	subs            map[int]chan View
	nextSub         int
}

func New(parent context.Context, actions Actions, transport PushTransport, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(parent)
	c := &Controller{
		inbox:     make(chan msg),
		actions:   actions,
		transport: transport,
		policy:    LastObservedWins,
		log:       zap.NewNop(),
		cancel:    cancel,
		done:      make(chan struct{}),
		subs:      make(map[int]chan View),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.Named("session")

	go c.loop(ctx)
	return c
}

// Close stops the loop, closes the live connection and every subscription.
func (c *Controller) Close() error {
	c.closeOnce.Do(c.cancel)
	<-c.done
	return c.closeErr
}

// send hands m to the loop. The inbox is unbuffered so a message accepted
// here is always answered.
func (c *Controller) send(m msg) bool {
	select {
	case c.inbox <- m:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return

		case ev := <-c.transport.Events():
			c.handleTransport(ev)

		case m := <-c.inbox:
			switch msg := m.(type) {
			case beginRequest:
				msg.reply <- c.begin(msg.op)

			case finishRequest:
				c.finish(msg)
				close(msg.done)

			case getView:
				msg.reply <- c.view()

			case subscribe:
				ch := make(chan View, 1)
				c.nextSub++
				c.subs[c.nextSub] = ch
				ch <- c.view()
				msg.reply <- subscription{id: c.nextSub, ch: ch}

			case unsubscribe:
				if ch, ok := c.subs[msg.id]; ok {
					close(ch)
					delete(c.subs, msg.id)
				}

			case reconnect:
				if c.snap == nil {
					msg.reply <- game.ErrNoGame
					break
				}
				c.connect(c.snap.GameID)
				c.publish()
				msg.reply <- nil

			case reset:
				c.forget()
				c.publish()
				close(msg.done)
			}
		}
	}
}

// forget drops the game and its connection. Results of requests begun
// before this are discarded when they resolve.
func (c *Controller) forget() {
	c.transport.Disconnect()
	c.connID = 0
	c.connected = false
	c.snap = nil
	c.err = nil
	c.createAttempted = false
	c.epoch++
}

func (c *Controller) shutdown() {
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.closeErr = c.transport.Close()
	c.log.Debug("session closed")
}

func (c *Controller) begin(o op) began {
	if o == opCreate {
		c.createAttempted = true
	} else if c.snap == nil {
		return began{err: game.ErrNoGame}
	}
	c.inFlight++
	c.publish()

	b := began{epoch: c.epoch}
	if c.snap != nil && o != opCreate {
		b.gameID = c.snap.GameID
	}
	return b
}

func (c *Controller) finish(m finishRequest) {
	c.inFlight--
	defer c.publish()

	log := c.log.With(zap.String("op", string(m.op)), zap.String("game_id", m.gameID))

	// The game this request targeted is gone: drop the result either way.
	if m.epoch != c.epoch || (m.op != opCreate && (c.snap == nil || c.snap.GameID != m.gameID)) {
		log.Info("discarding result for a stale game", zap.Error(m.err))
		return
	}
	if m.err != nil {
		log.Warn("request failed", zap.Error(m.err))
		c.err = m.err
		return
	}

	if m.op == opDelete {
		log.Info("game deleted")
		c.forget()
		return
	}

	c.err = nil
	if !c.adopt(m.snap) {
		return
	}
	if m.op == opCreate {
		c.connect(m.snap.GameID)
	}
}

func (c *Controller) connect(gameID string) {
	c.connected = false
	c.connID = c.transport.Connect(gameID)
	c.log.Debug("connecting push channel", zap.String("game_id", gameID), zap.Uint64("conn", c.connID))
}

func (c *Controller) adopt(next game.Snapshot) bool {
	if !c.policy(c.snap, next) {
		c.log.Debug("snapshot rejected by adopt policy", zap.String("game_id", next.GameID))
		return false
	}
	c.snap = &next
	c.log.Debug("snapshot adopted",
		zap.String("game_id", next.GameID),
		zap.String("status", string(next.Status)),
		zap.Int("round", next.CurrentRound),
		zap.String("phase", string(next.CurrentPhase)),
	)
	return true
}

func (c *Controller) handleTransport(ev ws.Event) {
	if ev.Conn() != c.connID || c.connID == 0 {
		return
	}
	switch e := ev.(type) {
	case ws.Opened:
		c.connected = true
		if errors.Is(c.err, game.ErrConnectionFailed) {
			c.err = nil
		}
	case ws.Pushed:
		c.adopt(e.Snapshot)
	case ws.Closed:
		c.connected = false
	case ws.Failed:
		c.connected = false
		c.err = e.Err
	}
	c.publish()
}

func (c *Controller) stage() Stage {
	switch {
	case c.snap == nil && !c.createAttempted:
		return StageUninitialized
	case c.snap == nil:
		return StageLobby
	case c.snap.Status == game.StatusFinished:
		return StageFinished
	case c.snap.Status == game.StatusInProgress:
		return StageInProgress
	default:
		return StageLobbyWithGame
	}
}

func (c *Controller) view() View {
	return View{
		Stage:     c.stage(),
		Snapshot:  c.snap,
		Busy:      c.inFlight > 0,
		Connected: c.connected,
		Err:       c.err,
	}
}

// publish hands every subscriber the latest view, replacing one it has not
// read yet.
func (c *Controller) publish() {
	v := c.view()
	for _, ch := range c.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}
