// Package gametest builds snapshots and wire frames for tests.
package gametest

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/types"
)

func Players() []game.Player {
	players := make([]game.Player, game.PlayerCount)
	for i := range players {
		players[i] = game.Player{Index: i, Name: fmt.Sprintf("Player %d", i+1)}
	}
	return players
}

// Lobby is the snapshot the engine answers a create request with.
func Lobby(gameID string) game.Snapshot {
	return game.Snapshot{
		GameID:                gameID,
		Status:                game.StatusLobby,
		CurrentRound:          0,
		CurrentPhase:          game.PhaseLobby,
		Players:               Players(),
		Rounds:                []game.Round{},
		DiscussionRoundNumber: 1,
	}
}

// InProgress returns a snapshot at the given round and phase with one empty
// round per elapsed round.
func InProgress(gameID string, round int, phase game.Phase) game.Snapshot {
	s := Lobby(gameID)
	s.Status = game.StatusInProgress
	s.CurrentRound = round
	s.CurrentPhase = phase
	for n := 1; n <= round; n++ {
		s.Rounds = append(s.Rounds, Round(n))
	}
	return s
}

func Round(n int) game.Round {
	return game.Round{
		RoundNumber: n,
		Task: game.Task{
			ID:           fmt.Sprintf("task-%d", n),
			Title:        fmt.Sprintf("Task %d", n),
			FunctionName: "solve",
			Description:  "Return the answer.",
		},
		Submissions:  []game.Submission{},
		Discussion:   []game.Message{},
		Votes:        []game.Vote{},
		SuspectVotes: game.Tally{},
	}
}

func JSON(t testing.TB, s game.Snapshot) []byte {
	t.Helper()
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return b
}

// Frame wraps s in a game_state_update push frame.
func Frame(t testing.TB, s game.Snapshot) []byte {
	t.Helper()
	b, err := json.Marshal(types.PushFrame{Type: types.FrameGameStateUpdate, Data: JSON(t, s)})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}
