package game

import (
	"cmp"
	"slices"
)

// ActiveRound returns rounds[currentRound-1] when it exists.
func (s *Snapshot) ActiveRound() (*Round, bool) {
	if s == nil {
		return nil, false
	}
	i := s.CurrentRound - 1
	if i < 0 || i >= len(s.Rounds) {
		return nil, false
	}
	return &s.Rounds[i], true
}

func (s *Snapshot) IsFinished() bool {
	return s != nil && s.Status == StatusFinished
}

// Imposter is only known once the game is finished.
func (s *Snapshot) Imposter() (Player, bool) {
	if !s.IsFinished() || s.ImposterIndex == nil {
		return Player{}, false
	}
	return s.Player(*s.ImposterIndex)
}

func (s *Snapshot) Player(index int) (Player, bool) {
	if s == nil {
		return Player{}, false
	}
	for _, p := range s.Players {
		if p.Index == index {
			return p, true
		}
	}
	return Player{}, false
}

func (s *Snapshot) AdvanceLabel() string {
	return AdvanceLabel(s.CurrentPhase, s.DiscussionRoundNumber)
}

func (s *Snapshot) PhaseLabel() string {
	return PhaseLabel(s.CurrentPhase, s.DiscussionRoundNumber)
}

type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeCurrent
	OutcomePassed
	OutcomeFailed
)

// RoundOutcome classifies round n (1-indexed) for the task progress strip.
func (s *Snapshot) RoundOutcome(n int) Outcome {
	if s == nil {
		return OutcomePending
	}
	for _, r := range s.Rounds {
		if r.RoundNumber != n || r.TestResults == nil {
			continue
		}
		if r.TestResults.Passed {
			return OutcomePassed
		}
		return OutcomeFailed
	}
	if n == s.CurrentRound {
		return OutcomeCurrent
	}
	return OutcomePending
}

func (r *Round) HasSubmitted(player int) bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(r.Submissions, func(s Submission) bool {
		return s.PlayerIndex == player
	})
}

func (r *Round) SuspectCount(player int) int {
	if r == nil {
		return 0
	}
	return r.SuspectVotes[player]
}

// DiscussionGroup holds the messages of one discussion loop, in arrival order.
type DiscussionGroup struct {
	Round    int
	Messages []Message
}

func (r *Round) DiscussionByRound() []DiscussionGroup {
	if r == nil {
		return nil
	}
	var groups []DiscussionGroup
	for _, m := range r.Discussion {
		i := slices.IndexFunc(groups, func(g DiscussionGroup) bool { return g.Round == m.DiscussionRound })
		if i < 0 {
			groups = append(groups, DiscussionGroup{Round: m.DiscussionRound})
			i = len(groups) - 1
		}
		groups[i].Messages = append(groups[i].Messages, m)
	}
	slices.SortStableFunc(groups, func(a, b DiscussionGroup) int { return cmp.Compare(a.Round, b.Round) })
	return groups
}

type SuspectEntry struct {
	Player int
	Votes  int
}

// SuspectRanking orders the server's tally by votes, most suspected first.
func (r *Round) SuspectRanking() []SuspectEntry {
	if r == nil {
		return nil
	}
	out := make([]SuspectEntry, 0, len(r.SuspectVotes))
	for p, n := range r.SuspectVotes {
		out = append(out, SuspectEntry{Player: p, Votes: n})
	}
	slices.SortFunc(out, func(a, b SuspectEntry) int {
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		return cmp.Compare(a.Player, b.Player)
	})
	return out
}
