package fakeengine

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/types"
)

type Msg interface{ isRoomMsg() }

type Command string

const (
	CmdStart   Command = "start"
	CmdAdvance Command = "advance"
)

type Apply struct {
	Cmd   Command
	Reply chan Result
}

func (Apply) isRoomMsg() {}

type Join struct {
	ClientID string
	Outbox   chan []byte // push frames for this socket; closed when the room lets go of it
}

func (Join) isRoomMsg() {}

type Leave struct{ ClientID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

// Result carries the public snapshot after a successful command.
type Result struct {
	State []byte
	Err   error
}

type View struct {
	Version    int
	NumClients int
	State      []byte
}

// Room owns one game. Every mutation bumps the version and is pushed to
// all joined sockets as a game_state_update frame.
type Room struct {
	id      string
	inbox   chan Msg
	match   *match
	state   []byte
	frame   []byte
	version int
	clients map[string]chan []byte
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func newRoom(parent context.Context, id string, m *match, log *zap.Logger) (*Room, error) {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:      id,
		inbox:   make(chan Msg, 64),
		match:   m,
		clients: make(map[string]chan []byte),
		log:     log.With(zap.String("game_id", id)),
		ctx:     ctx,
		cancel:  cancel,
	}
	if err := r.encode(); err != nil {
		cancel()
		return nil, err
	}
	go r.loop()
	return r, nil
}

func (r *Room) ID() string { return r.id }

// Inbox exposes the room's mailbox to the socket layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) send(m Msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// Do applies cmd and returns the resulting public snapshot.
func (r *Room) Do(cmd Command) ([]byte, error) {
	reply := make(chan Result, 1)
	if !r.send(Apply{Cmd: cmd, Reply: reply}) {
		return nil, ErrNotRunning
	}
	select {
	case res := <-reply:
		return res.State, res.Err
	case <-r.ctx.Done():
		return nil, ErrNotRunning
	}
}

func (r *Room) State() (View, bool) {
	reply := make(chan View, 1)
	if !r.send(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-r.ctx.Done():
		return View{}, false
	}
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- r.frame

			case Leave:
				if ch, ok := r.clients[msg.ClientID]; ok {
					close(ch)
					delete(r.clients, msg.ClientID)
				}

			case Apply:
				msg.Reply <- r.apply(msg.Cmd)

			case GetState:
				msg.Reply <- View{
					Version:    r.version,
					NumClients: len(r.clients),
					State:      r.state,
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) apply(cmd Command) Result {
	var err error
	switch cmd {
	case CmdStart:
		err = r.match.start()
	case CmdAdvance:
		err = r.match.advance()
	default:
		err = ErrNotRunning
	}
	if err != nil {
		r.log.Info("command rejected", zap.String("cmd", string(cmd)), zap.Error(err))
		return Result{Err: err}
	}
	if err := r.encode(); err != nil {
		return Result{Err: err}
	}
	r.version++
	r.log.Debug("state changed",
		zap.Int("version", r.version),
		zap.Int("round", r.match.snap.CurrentRound),
		zap.String("phase", string(r.match.snap.CurrentPhase)),
	)
	r.broadcast(r.frame)
	return Result{State: r.state}
}

func (r *Room) encode() error {
	state, err := r.match.public()
	if err != nil {
		return err
	}
	frame, err := json.Marshal(types.PushFrame{Type: types.FrameGameStateUpdate, Data: state})
	if err != nil {
		return err
	}
	r.state, r.frame = state, frame
	return nil
}

func (r *Room) shutdown() {
	for id, ch := range r.clients {
		close(ch)
		delete(r.clients, id)
	}
	r.cancel()
}

func (r *Room) broadcast(frame []byte) {
	for id, ch := range r.clients {
		select {
		case ch <- frame:
		default:
			// Slow or full socket: drop it.
			r.log.Warn("dropping slow client", zap.String("client_id", id))
			close(ch)
			delete(r.clients, id)
		}
	}
}
