package game

import (
	"encoding/json"
	"fmt"
	"slices"
)

type Status string

const (
	StatusLobby      Status = "lobby"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

func (s Status) Valid() bool {
	switch s {
	case StatusLobby, StatusInProgress, StatusFinished:
		return true
	}
	return false
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if !Status(raw).Valid() {
		return fmt.Errorf("unknown status %q", raw)
	}
	*s = Status(raw)
	return nil
}

type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseCoding     Phase = "coding"
	PhaseReveal     Phase = "reveal"
	PhaseDiscussion Phase = "discussion"
	PhaseVoting     Phase = "voting"
	PhaseResults    Phase = "results"
	PhaseFinished   Phase = "finished"
)

// MaxDiscussionRounds is how many times the discussion phase loops before voting.
const MaxDiscussionRounds = 3

// MaxRounds is the length of a full game.
const MaxRounds = 5

// phaseTransitions mirrors the server's machine. The client never enforces it.
var phaseTransitions = map[Phase][]Phase{
	PhaseLobby:      {PhaseCoding},
	PhaseCoding:     {PhaseReveal},
	PhaseReveal:     {PhaseDiscussion},
	PhaseDiscussion: {PhaseDiscussion, PhaseVoting},
	PhaseVoting:     {PhaseResults},
	PhaseResults:    {PhaseCoding, PhaseFinished},
	PhaseFinished:   {},
}

func (p Phase) Valid() bool {
	_, ok := phaseTransitions[p]
	return ok
}

func (p Phase) String() string { return string(p) }

// CanTransitionTo reports whether the server's machine allows p -> target.
func (p Phase) CanTransitionTo(target Phase) bool {
	return slices.Contains(phaseTransitions[p], target)
}

func (p *Phase) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if !Phase(raw).Valid() {
		return fmt.Errorf("unknown phase %q", raw)
	}
	*p = Phase(raw)
	return nil
}

type Winner string

const (
	WinnerCrewmates Winner = "crewmates"
	WinnerImposter  Winner = "imposter"
)

func (w *Winner) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch Winner(raw) {
	case WinnerCrewmates, WinnerImposter:
		*w = Winner(raw)
		return nil
	}
	return fmt.Errorf("unknown winner %q", raw)
}

// AdvanceLabel is the text of the single phase-advance control.
func AdvanceLabel(p Phase, discussionRound int) string {
	switch p {
	case PhaseCoding:
		return "Submit Code"
	case PhaseReveal:
		return "Start Discussion"
	case PhaseDiscussion:
		if discussionRound >= MaxDiscussionRounds {
			return "Start Voting"
		}
		return "Next Discussion Round"
	case PhaseVoting:
		return "Show Results"
	case PhaseResults:
		return "Next Round"
	default:
		return "Advance"
	}
}

var phaseLabels = map[Phase]string{
	PhaseLobby:      "Lobby",
	PhaseCoding:     "Coding",
	PhaseReveal:     "Code Reveal",
	PhaseDiscussion: "Discussion",
	PhaseVoting:     "Voting",
	PhaseResults:    "Results",
	PhaseFinished:   "Game Over",
}

// PhaseLabel is the header text for a phase.
func PhaseLabel(p Phase, discussionRound int) string {
	if p == PhaseDiscussion && discussionRound > 0 {
		return fmt.Sprintf("Discussion (%d/%d)", discussionRound, MaxDiscussionRounds)
	}
	if l, ok := phaseLabels[p]; ok {
		return l
	}
	return string(p)
}
