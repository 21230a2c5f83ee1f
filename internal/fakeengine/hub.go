package fakeengine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/game"
)

type HubMsg interface{ isHubMsg() }

type CreateGame struct {
	Models []string
	Reply  chan Created
}

type Created struct {
	Room *Room
	Err  error
}

type GetGame struct {
	ID    string
	Reply chan *Room
}

type RemoveGame struct {
	ID    string
	Reply chan bool
}

type ShutdownHub struct{}

func (CreateGame) isHubMsg()  {}
func (GetGame) isHubMsg()     {}
func (RemoveGame) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the registry of live games.
type Hub struct {
	inbox    chan HubMsg
	rooms    map[string]*Room
	imposter func() int
	now      func() time.Time
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg),
		rooms:    make(map[string]*Room),
		imposter: opts.Imposter,
		now:      opts.Now,
		log:      opts.Log.Named("hub"),
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) send(m HubMsg) bool {
	select {
	case h.inbox <- m:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) Create(models []string) (*Room, error) {
	reply := make(chan Created, 1)
	if !h.send(CreateGame{Models: models, Reply: reply}) {
		return nil, context.Canceled
	}
	c := <-reply
	return c.Room, c.Err
}

// Get returns nil when no game has that id.
func (h *Hub) Get(id string) *Room {
	reply := make(chan *Room, 1)
	if !h.send(GetGame{ID: id, Reply: reply}) {
		return nil
	}
	return <-reply
}

func (h *Hub) Remove(id string) bool {
	reply := make(chan bool, 1)
	if !h.send(RemoveGame{ID: id, Reply: reply}) {
		return false
	}
	return <-reply
}

func (h *Hub) Close() {
	h.send(ShutdownHub{})
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateGame:
				msg.Reply <- h.create(msg.Models)

			case GetGame:
				msg.Reply <- h.rooms[msg.ID] // May be nil

			case RemoveGame:
				rm, ok := h.rooms[msg.ID]
				if ok {
					rm.send(Shutdown{})
					delete(h.rooms, msg.ID)
					h.log.Info("game deleted", zap.String("game_id", msg.ID))
				}
				msg.Reply <- ok

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(models []string) Created {
	var id string
	for {
		id = uuid.NewString()[:8]
		if h.rooms[id] == nil {
			break
		}
		h.log.Debug("collision on game id, regenerating", zap.String("game_id", id))
	}

	m, err := newMatch(id, models, h.imposter(), h.now)
	if err != nil {
		return Created{Err: err}
	}
	rm, err := newRoom(h.ctx, id, m, h.log.Named("room"))
	if err != nil {
		return Created{Err: err}
	}
	h.rooms[id] = rm
	h.log.Info("game created", zap.String("game_id", id))
	return Created{Room: rm}
}

func (h *Hub) shutdown() {
	for id, rm := range h.rooms {
		rm.send(Shutdown{})
		delete(h.rooms, id)
	}
	h.cancel()
}

func randomImposter() int { return rand.IntN(game.PlayerCount) }
