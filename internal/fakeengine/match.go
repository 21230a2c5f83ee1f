package fakeengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/DoyleJ11/llm-among-us/internal/game"
)

// DefaultModels is the roster used when a create request names none.
var DefaultModels = []string{
	"claude-sonnet-4-5-20250929",
	"gpt-5",
	"gemini-2.5-pro",
	"claude-sonnet-4-5-20250929",
}

var (
	ErrRoster     = errors.New("exactly 4 models are required")
	ErrNotInLobby = errors.New("game not found or already started")
	ErrNotRunning = errors.New("game not found or not in progress")
)

// match walks one game through the documented phase sequence with canned
// players. Every choice is derived from the round number and the active
// players, so a given imposter always yields the same game.
type match struct {
	snap     game.Snapshot
	imposter int
	now      func() time.Time
}

func newMatch(id string, models []string, imposter int, now func() time.Time) (*match, error) {
	if models == nil {
		models = DefaultModels
	}
	if len(models) != game.PlayerCount {
		return nil, ErrRoster
	}
	if imposter < 0 || imposter >= game.PlayerCount {
		return nil, fmt.Errorf("imposter index %d out of range", imposter)
	}

	players := make([]game.Player, game.PlayerCount)
	for i := range players {
		players[i] = game.Player{Index: i, Name: fmt.Sprintf("Player %d", i+1), Model: models[i]}
	}
	return &match{
		snap: game.Snapshot{
			GameID:                id,
			Status:                game.StatusLobby,
			CurrentPhase:          game.PhaseLobby,
			Players:               players,
			Rounds:                []game.Round{},
			DiscussionRoundNumber: 1,
		},
		imposter: imposter,
		now:      now,
	}, nil
}

func (m *match) start() error {
	s := &m.snap
	if s.Status != game.StatusLobby {
		return ErrNotInLobby
	}
	s.Status = game.StatusInProgress
	m.deal(1)
	return nil
}

func (m *match) deal(n int) {
	s := &m.snap
	s.CurrentRound = n
	s.CurrentPhase = game.PhaseCoding
	s.DiscussionRoundNumber = 1
	s.Rounds = append(s.Rounds, game.Round{
		RoundNumber:  n,
		Task:         taskFor(n).wire(),
		Submissions:  []game.Submission{},
		Discussion:   []game.Message{},
		Votes:        []game.Vote{},
		SuspectVotes: game.Tally{},
	})
}

func (m *match) advance() error {
	s := &m.snap
	if s.Status != game.StatusInProgress {
		return ErrNotRunning
	}
	r, ok := s.ActiveRound()
	if !ok {
		return ErrNotRunning
	}

	switch s.CurrentPhase {
	case game.PhaseCoding:
		r.Submissions = m.submissions()
		s.CurrentPhase = game.PhaseReveal

	case game.PhaseReveal:
		s.CurrentPhase = game.PhaseDiscussion
		s.DiscussionRoundNumber = 1

	case game.PhaseDiscussion:
		r.Discussion = append(r.Discussion, m.messages(s.DiscussionRoundNumber)...)
		if s.DiscussionRoundNumber >= game.MaxDiscussionRounds {
			s.CurrentPhase = game.PhaseVoting
		} else {
			s.DiscussionRoundNumber++
		}

	case game.PhaseVoting:
		m.vote(r)
		s.CurrentPhase = game.PhaseResults

	case game.PhaseResults:
		m.settle(r)

	default:
		return ErrNotRunning
	}
	return nil
}

func (m *match) active() []int {
	var out []int
	for _, p := range m.snap.Players {
		if !p.IsEliminated {
			out = append(out, p.Index)
		}
	}
	return out
}

func (m *match) submissions() []game.Submission {
	fn := taskFor(m.snap.CurrentRound).FunctionName
	at := m.now().UTC().Format(time.RFC3339)

	var out []game.Submission
	for _, p := range m.active() {
		code := fmt.Sprintf("def %s(*args):\n    return reference(*args)\n", fn)
		if p == m.imposter {
			code = fmt.Sprintf("def %s(*args):\n    result = reference(*args)\n    return tweak(result)\n", fn)
		}
		out = append(out, game.Submission{PlayerIndex: p, Code: code, Timestamp: at})
	}
	return out
}

var lines = []string{
	"Player %d's solution handles the edge cases cleanly.",
	"I'm not sure about Player %d's return value on empty input.",
	"Player %d's code has an extra step I can't explain.",
	"Player %d's version matches mine almost exactly.",
}

func (m *match) messages(discussionRound int) []game.Message {
	act := m.active()
	var out []game.Message
	for i, p := range act {
		about := act[(i+discussionRound)%len(act)]
		out = append(out, game.Message{
			PlayerIndex:     p,
			Content:         fmt.Sprintf(lines[(p+discussionRound)%len(lines)], about+1),
			DiscussionRound: discussionRound,
		})
	}
	return out
}

// vote picks one favourite solution per round. On even rounds every player
// but the target suspects the same player, which is a majority.
func (m *match) vote(r *game.Round) {
	act := m.active()
	n := m.snap.CurrentRound
	chosen := act[(n-1)%len(act)]
	target := act[n%len(act)]

	tally := game.Tally{}
	r.Votes = r.Votes[:0]
	for i, p := range act {
		suspect := act[(i+1)%len(act)]
		if n%2 == 0 && p != target {
			suspect = target
		}
		r.Votes = append(r.Votes, game.Vote{VoterIndex: p, SolutionVote: chosen, SuspectVote: suspect})
		tally[suspect]++
	}
	r.ChosenSubmission = &chosen
	r.SuspectVotes = tally
}

// settle runs the chosen solution, applies a majority elimination and either
// ends the game or deals the next round.
func (m *match) settle(r *game.Round) {
	s := &m.snap
	if r.ChosenSubmission != nil {
		r.TestResults = m.run(*r.ChosenSubmission)
		if !r.TestResults.Passed {
			s.FailedTaskCount++
		}
	}

	majority := len(m.active())/2 + 1
	suspects := make([]int, 0, len(r.SuspectVotes))
	for p := range r.SuspectVotes {
		suspects = append(suspects, p)
	}
	slices.Sort(suspects)
	for _, p := range suspects {
		if r.SuspectVotes[p] >= majority {
			s.Players[p].IsEliminated = true
			eliminated := p
			s.EliminatedPlayer = &eliminated
			break
		}
	}

	switch {
	case s.EliminatedPlayer != nil && *s.EliminatedPlayer == m.imposter:
		m.finish(game.WinnerCrewmates)
	case s.FailedTaskCount >= 3, s.CurrentRound >= game.MaxRounds:
		m.finish(game.WinnerImposter)
	default:
		m.deal(s.CurrentRound + 1)
	}
}

// run fails every test but the first when the imposter's code was chosen.
func (m *match) run(player int) *game.TestResult {
	cases := taskFor(m.snap.CurrentRound).cases
	res := &game.TestResult{
		Passed:      player != m.imposter,
		TotalTests:  len(cases),
		PassedTests: len(cases),
		FailedTests: []game.FailedTest{},
	}
	if res.Passed {
		return res
	}
	res.PassedTests = 1
	for i, c := range cases[1:] {
		res.FailedTests = append(res.FailedTests, game.FailedTest{
			TestIndex: i + 1,
			Input:     c.Input,
			Expected:  c.Expected,
			Actual:    json.RawMessage(`null`),
		})
	}
	return res
}

func (m *match) finish(w game.Winner) {
	s := &m.snap
	s.Status = game.StatusFinished
	s.CurrentPhase = game.PhaseFinished
	s.Winner = &w
}

// public is the snapshot as clients may see it: the imposter stays hidden
// until the game is over.
func (m *match) public() ([]byte, error) {
	s := m.snap
	s.ImposterIndex = nil
	if s.Status == game.StatusFinished {
		imp := m.imposter
		s.ImposterIndex = &imp
	}
	return json.Marshal(s)
}
