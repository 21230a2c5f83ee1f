package session

import "github.com/DoyleJ11/llm-among-us/internal/game"

type msg interface{ isSessionMsg() }

type op string

const (
	opCreate  op = "create"
	opStart   op = "start"
	opAdvance op = "advance"
	opRefresh op = "refresh"
	opDelete  op = "delete"
)

type beginRequest struct {
	op    op
	reply chan began
}

type began struct {
	gameID string
	epoch  uint64
	err    error
}

type finishRequest struct {
	op     op
	gameID string // target; empty for create
	epoch  uint64
	snap   game.Snapshot
	err    error
	done   chan struct{}
}

type getView struct {
	reply chan View
}

type subscribe struct {
	reply chan subscription
}

type subscription struct {
	id int
	ch <-chan View
}

type unsubscribe struct {
	id int
}

type reconnect struct {
	reply chan error
}

type reset struct {
	done chan struct{}
}

func (beginRequest) isSessionMsg()  {}
func (finishRequest) isSessionMsg() {}
func (getView) isSessionMsg()       {}
func (subscribe) isSessionMsg()     {}
func (unsubscribe) isSessionMsg()   {}
func (reconnect) isSessionMsg()     {}
func (reset) isSessionMsg()         {}
