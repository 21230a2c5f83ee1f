package session

import "github.com/DoyleJ11/llm-among-us/internal/game"

// Stage is the client-local lifecycle. It mirrors the server's status but is
// never used to validate a transition.
type Stage string

const (
	StageUninitialized Stage = "uninitialized"
	StageLobby         Stage = "lobby"           // create attempted, no game yet
	StageLobbyWithGame Stage = "lobby_with_game" // snapshot with status lobby
	StageInProgress    Stage = "in_progress"
	StageFinished      Stage = "finished"
)

// View is the controller's output contract for the view layer. Snapshot is
// shared, never mutated: treat it as read-only.
type View struct {
	Stage     Stage
	Snapshot  *game.Snapshot
	Busy      bool
	Connected bool
	Err       error
}

func (v View) HasGame() bool { return v.Snapshot != nil }

func (v View) GameID() string {
	if v.Snapshot == nil {
		return ""
	}
	return v.Snapshot.GameID
}

func (v View) CurrentRound() int {
	if v.Snapshot == nil {
		return 0
	}
	return v.Snapshot.CurrentRound
}

func (v View) CurrentPhase() game.Phase {
	if v.Snapshot == nil {
		return ""
	}
	return v.Snapshot.CurrentPhase
}

func (v View) ActiveRound() (*game.Round, bool) {
	return v.Snapshot.ActiveRound()
}

// AdvanceLabel depends only on the phase and the discussion loop counter.
func (v View) AdvanceLabel() string {
	if v.Snapshot == nil {
		return game.AdvanceLabel("", 0)
	}
	return v.Snapshot.AdvanceLabel()
}

func (v View) ErrorMessage() string { return game.Describe(v.Err) }

// AdoptPolicy decides whether next replaces current (nil before the first
// snapshot).
type AdoptPolicy func(current *game.Snapshot, next game.Snapshot) bool

// LastObservedWins adopts every snapshot in the order the controller sees
// it. The engine sends no sequence number, so a push that left the server
// before a request's response can still land after it and win.
func LastObservedWins(*game.Snapshot, game.Snapshot) bool { return true }
