package session

import (
	"context"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/httpapi"
)

// CreateGame asks the engine for a new game and, on success, adopts it and
// connects the push channel to its id. Only a []string roster is forwarded;
// any other value is treated as no roster.
func (c *Controller) CreateGame(ctx context.Context, roster any) error {
	models := httpapi.Roster(roster)
	return c.request(ctx, opCreate, func(ctx context.Context, _ string) (game.Snapshot, error) {
		return c.actions.CreateGame(ctx, models)
	})
}

func (c *Controller) StartGame(ctx context.Context) error {
	return c.request(ctx, opStart, c.actions.StartGame)
}

// AdvancePhase is forwarded even while another call is in flight; results
// are adopted in the order they resolve.
func (c *Controller) AdvancePhase(ctx context.Context) error {
	return c.request(ctx, opAdvance, c.actions.AdvancePhase)
}

// Refresh re-reads the game state over the request channel.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.request(ctx, opRefresh, c.actions.FetchState)
}

// DeleteGame deletes the current game on the engine and, once that
// succeeds, forgets it. A game created meanwhile is left alone.
func (c *Controller) DeleteGame(ctx context.Context) error {
	return c.request(ctx, opDelete, func(ctx context.Context, gameID string) (game.Snapshot, error) {
		return game.Snapshot{}, c.actions.DeleteGame(ctx, gameID)
	})
}

// Reconnect reopens the push channel for the current game.
func (c *Controller) Reconnect() error {
	reply := make(chan error, 1)
	if !c.send(reconnect{reply: reply}) {
		return ErrClosed
	}
	return <-reply
}

// Reset drops the current game and connection, back to the uninitialized
// stage. Requests still in flight are discarded when they resolve.
func (c *Controller) Reset() {
	done := make(chan struct{})
	if c.send(reset{done: done}) {
		<-done
	}
}

func (c *Controller) View() View {
	reply := make(chan View, 1)
	if !c.send(getView{reply: reply}) {
		return View{}
	}
	return <-reply
}

// Subscribe returns a channel that always holds the latest view. It is
// closed by cancel or when the controller closes.
func (c *Controller) Subscribe() (<-chan View, func()) {
	reply := make(chan subscription, 1)
	if !c.send(subscribe{reply: reply}) {
		ch := make(chan View)
		close(ch)
		return ch, func() {}
	}
	sub := <-reply
	return sub.ch, func() { c.send(unsubscribe{id: sub.id}) }
}

func (c *Controller) request(ctx context.Context, o op, call func(context.Context, string) (game.Snapshot, error)) error {
	reply := make(chan began, 1)
	if !c.send(beginRequest{op: o, reply: reply}) {
		return ErrClosed
	}
	b := <-reply
	if b.err != nil {
		return b.err
	}

	snap, err := call(ctx, b.gameID)

	done := make(chan struct{})
	if c.send(finishRequest{op: o, gameID: b.gameID, epoch: b.epoch, snap: snap, err: err, done: done}) {
		<-done
	}
	return err
}
