package game

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PlayerCount is fixed by the server: indices are always a permutation of 0..3.
const PlayerCount = 4

type Player struct {
	Index        int    `json:"index"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	IsEliminated bool   `json:"isEliminated"`
}

// ShortModel drops any provider prefix from the model identifier.
func (p Player) ShortModel() string {
	if i := strings.LastIndex(p.Model, "/"); i >= 0 {
		return p.Model[i+1:]
	}
	return p.Model
}

type Example struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	FunctionName string    `json:"functionName"`
	Description  string    `json:"description"`
	Examples     []Example `json:"examples"`
	// Hidden test cases are carried through but never interpreted here.
	TestCases json.RawMessage `json:"test_cases,omitempty"`
}

type Submission struct {
	PlayerIndex int    `json:"playerIndex"`
	Code        string `json:"code"`
	Timestamp   string `json:"timestamp"`
}

type Message struct {
	PlayerIndex     int    `json:"playerIndex"`
	Content         string `json:"content"`
	DiscussionRound int    `json:"discussionRound"`
}

type Vote struct {
	VoterIndex   int `json:"voterIndex"`
	SolutionVote int `json:"solutionVote"`
	SuspectVote  int `json:"suspectVote"`
}

type FailedTest struct {
	TestIndex int             `json:"testIndex"`
	Input     json.RawMessage `json:"input"`
	Expected  json.RawMessage `json:"expected"`
	Actual    json.RawMessage `json:"actual,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type TestResult struct {
	Passed      bool         `json:"passed"`
	TotalTests  int          `json:"totalTests"`
	PassedTests int          `json:"passedTests"`
	FailedTests []FailedTest `json:"failedTests"`
	Error       string       `json:"error,omitempty"`
}

// Tally maps a player index to the suspect votes it received. The server
// computes it; the client never recounts from Votes.
type Tally map[int]int

func (t *Tally) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Tally, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return err
		}
		out[idx] = v
	}
	*t = out
	return nil
}

type Round struct {
	RoundNumber      int          `json:"roundNumber"`
	Task             Task         `json:"task"`
	Submissions      []Submission `json:"submissions"`
	Discussion       []Message    `json:"discussion"`
	Votes            []Vote       `json:"votes"`
	ChosenSubmission *int         `json:"chosenSubmission"`
	TestResults      *TestResult  `json:"testResults"`
	SuspectVotes     Tally        `json:"suspectVotes"`
}

// Snapshot is one complete authoritative game state. A new one supersedes
// the previous wholesale; nothing is merged across snapshots.
type Snapshot struct {
	GameID                string   `json:"gameId"`
	Status                Status   `json:"status"`
	CurrentRound          int      `json:"currentRound"`
	CurrentPhase          Phase    `json:"currentPhase"`
	Players               []Player `json:"players"`
	ImposterIndex         *int     `json:"imposterIndex"`
	Rounds                []Round  `json:"rounds"`
	Winner                *Winner  `json:"winner"`
	EliminatedPlayer      *int     `json:"eliminatedPlayer"`
	FailedTaskCount       int      `json:"failedTaskCount"`
	DiscussionRoundNumber int      `json:"discussionRoundNumber"`
}
