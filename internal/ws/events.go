package ws

import "github.com/DoyleJ11/llm-among-us/internal/game"

// Event is emitted by the transport for one connection. Conn identifies the
// connection so consumers can drop events of superseded ones.
type Event interface {
	isTransportEvent()
	Conn() uint64
}

type Opened struct {
	ConnID uint64
	GameID string
}

type Pushed struct {
	ConnID   uint64
	GameID   string
	Snapshot game.Snapshot
}

// Closed is a normal terminal state: a close frame from the server, or a
// local Disconnect/Close.
type Closed struct {
	ConnID uint64
	GameID string
}

// Failed wraps game.ErrConnectionFailed. At most one per connection.
type Failed struct {
	ConnID uint64
	GameID string
	Err    error
}

func (Opened) isTransportEvent() {}
func (Pushed) isTransportEvent() {}
func (Closed) isTransportEvent() {}
func (Failed) isTransportEvent() {}

func (e Opened) Conn() uint64 { return e.ConnID }
func (e Pushed) Conn() uint64 { return e.ConnID }
func (e Closed) Conn() uint64 { return e.ConnID }
func (e Failed) Conn() uint64 { return e.ConnID }
