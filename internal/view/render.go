// Package view renders a session view as plain terminal text. It holds no
// state of its own: every frame is a pure function of the view it is given.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/skip2/go-qrcode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/session"
)

const title = "LLM Among Us"

// shownFailures caps the failing tests listed per result.
const shownFailures = 3

type Options struct {
	Color  bool
	ShowQR bool
	Now    func() time.Time
}

type Renderer struct {
	opts  Options
	title cases.Caser
}

func New(opts Options) *Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{
		opts:  opts,
		title: cases.Title(language.English),
	}
}

func (r *Renderer) Render(v session.View) string {
	var b strings.Builder
	switch {
	case v.Err != nil:
		r.errorScreen(&b, v)
	case v.Snapshot == nil || v.Snapshot.Status == game.StatusLobby:
		r.lobby(&b, v)
	default:
		r.board(&b, v)
	}
	return b.String()
}

func (r *Renderer) errorScreen(b *strings.Builder, v session.View) {
	fmt.Fprintf(b, "%s\n\n", r.paint(red, "Error"))
	fmt.Fprintf(b, "%s\n\n", v.ErrorMessage())
	fmt.Fprintf(b, "[ Try Again ]  (reset)\n")
}

var rules = []string{
	"4 LLMs are assigned roles: 3 Crewmates, 1 Imposter",
	"Each round, they solve a coding task",
	"They discuss and vote on which solution to use",
	"The imposter tries to sabotage without getting caught",
	"Crewmates win by catching the imposter",
	"Imposter wins by surviving or failing 3 tasks",
}

func (r *Renderer) lobby(b *strings.Builder, v session.View) {
	fmt.Fprintf(b, "%s\n", r.paint(bold, title))
	fmt.Fprintf(b, "4 LLMs compete in programming tasks. One is an imposter trying to sabotage.\n\n")

	if !v.HasGame() {
		fmt.Fprintf(b, "[ %s ]  (create)\n", pick(v.Busy, "Creating...", "Create Game"))
	} else {
		fmt.Fprintf(b, "Game ID: %s\n", r.paint(bold, v.GameID()))
		fmt.Fprintf(b, "[ %s ]  (start)\n", pick(v.Busy, "Starting...", "Start Game"))
		if r.opts.ShowQR {
			if qr, err := shareQR(v.GameID()); err == nil {
				b.WriteString("\n")
				b.WriteString(qr)
			}
		}
	}

	fmt.Fprintf(b, "\nHow to play:\n")
	for _, rule := range rules {
		fmt.Fprintf(b, "  - %s\n", rule)
	}
}

func shareQR(gameID string) (string, error) {
	q, err := qrcode.New(gameID, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return q.ToString(false), nil
}

func (r *Renderer) board(b *strings.Builder, v session.View) {
	s := v.Snapshot
	round, _ := s.ActiveRound()

	fmt.Fprintf(b, "%s   Round %d/%d   %s\n\n", r.paint(bold, title), s.CurrentRound, game.MaxRounds, s.PhaseLabel())

	r.players(b, s, round)
	if round != nil {
		r.task(b, round)
		r.submissions(b, round)
		r.testResults(b, round.TestResults)
		r.discussion(b, s, round)
		r.votes(b, round)
	}
	r.progress(b, s)

	if s.Status == game.StatusInProgress {
		fmt.Fprintf(b, "\n[ %s ]  (advance)\n", pick(v.Busy, "Processing...", v.AdvanceLabel()))
	}
	if s.IsFinished() && s.Winner != nil {
		r.gameOver(b, s)
	}
}

func (r *Renderer) players(b *strings.Builder, s *game.Snapshot, round *game.Round) {
	for _, p := range s.Players {
		model := "???"
		if s.IsFinished() {
			model = p.ShortModel()
		}

		status := "thinking"
		switch {
		case p.IsEliminated:
			status = "eliminated"
		case round.HasSubmitted(p.Index):
			status = "submitted"
		}

		line := fmt.Sprintf("  %-9s %-28s %s", p.Name, model, status)
		if n := round.SuspectCount(p.Index); n > 0 && !p.IsEliminated {
			line += fmt.Sprintf("  Suspects: %d", n)
		}
		if imp, ok := s.Imposter(); ok && imp.Index == p.Index {
			line += "  " + r.paint(red, "IMPOSTER")
		}
		if p.IsEliminated {
			line = r.paint(dim, line)
		} else {
			line = r.playerColor(p.Index, line)
		}
		fmt.Fprintln(b, line)
	}
	b.WriteString("\n")
}

func (r *Renderer) task(b *strings.Builder, round *game.Round) {
	t := round.Task
	fmt.Fprintf(b, "Task: %s  (%s)\n", r.paint(bold, t.Title), t.FunctionName)
	for _, line := range strings.Split(strings.TrimRight(t.Description, "\n"), "\n") {
		fmt.Fprintf(b, "  %s\n", line)
	}
	for _, ex := range t.Examples {
		fmt.Fprintf(b, "  Example: %s -> %s\n", ex.Input, ex.Output)
	}
	b.WriteString("\n")
}

func (r *Renderer) submissions(b *strings.Builder, round *game.Round) {
	if len(round.Submissions) == 0 {
		fmt.Fprintf(b, "Waiting for code submissions...\n\n")
		return
	}
	b.WriteString("Submissions\n")
	for _, sub := range round.Submissions {
		head := fmt.Sprintf("P%d", sub.PlayerIndex+1)
		if round.ChosenSubmission != nil && *round.ChosenSubmission == sub.PlayerIndex {
			head += " *"
		}
		if ago := r.age(sub.Timestamp); ago != "" {
			head += "  submitted " + ago
		}
		fmt.Fprintln(b, r.playerColor(sub.PlayerIndex, head))
		for _, line := range strings.Split(strings.TrimRight(sub.Code, "\n"), "\n") {
			fmt.Fprintf(b, "    %s\n", line)
		}
	}
	b.WriteString("\n")
}

// Timestamp layouts seen from the engine: RFC 3339, or ISO 8601 without a zone.
var stampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"}

func (r *Renderer) age(stamp string) string {
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, stamp); err == nil {
			return humanize.RelTime(t, r.opts.Now(), "ago", "from now")
		}
	}
	return stamp
}

func (r *Renderer) testResults(b *strings.Builder, res *game.TestResult) {
	if res == nil {
		return
	}
	verdict := r.paint(green, "PASSED")
	if !res.Passed {
		verdict = r.paint(red, "FAILED")
	}
	fmt.Fprintf(b, "Test results: %s  %d/%d tests passed\n", verdict, res.PassedTests, res.TotalTests)
	if res.Error != "" {
		fmt.Fprintf(b, "  Error: %s\n", res.Error)
	}
	for i, f := range res.FailedTests {
		if i == shownFailures {
			fmt.Fprintf(b, "  ...and %d more\n", len(res.FailedTests)-shownFailures)
			break
		}
		fmt.Fprintf(b, "  Test %d\n", f.TestIndex+1)
		fmt.Fprintf(b, "    Input: %s\n", f.Input)
		fmt.Fprintf(b, "    Expected: %s\n", f.Expected)
		if len(f.Actual) > 0 {
			fmt.Fprintf(b, "    Got: %s\n", f.Actual)
		}
		if f.Error != "" {
			fmt.Fprintf(b, "    Error: %s\n", f.Error)
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) discussion(b *strings.Builder, s *game.Snapshot, round *game.Round) {
	groups := round.DiscussionByRound()
	if len(groups) == 0 {
		fmt.Fprintf(b, "Discussion will begin after code reveal...\n\n")
		return
	}
	fmt.Fprintf(b, "Discussion (Round %d/%d)\n", s.DiscussionRoundNumber, game.MaxDiscussionRounds)
	for _, g := range groups {
		fmt.Fprintf(b, "  Round %d\n", g.Round)
		for _, m := range g.Messages {
			fmt.Fprintf(b, "    %s: %s\n", r.playerColor(m.PlayerIndex, fmt.Sprintf("Player %d", m.PlayerIndex+1)), m.Content)
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) votes(b *strings.Builder, round *game.Round) {
	if len(round.Votes) == 0 {
		return
	}
	b.WriteString("Solution votes\n")
	for _, vt := range round.Votes {
		fmt.Fprintf(b, "  P%d -> P%d's solution\n", vt.VoterIndex+1, vt.SolutionVote+1)
	}
	if round.ChosenSubmission != nil {
		fmt.Fprintf(b, "  Chosen: Player %d's solution\n", *round.ChosenSubmission+1)
	}

	b.WriteString("Suspect votes\n")
	for _, vt := range round.Votes {
		fmt.Fprintf(b, "  P%d -> P%d\n", vt.VoterIndex+1, vt.SuspectVote+1)
	}
	var tally []string
	for _, e := range round.SuspectRanking() {
		tally = append(tally, fmt.Sprintf("P%d: %d", e.Player+1, e.Votes))
	}
	if len(tally) > 0 {
		fmt.Fprintf(b, "  Tally: %s\n", strings.Join(tally, ", "))
	}
	b.WriteString("\n")
}

func (r *Renderer) progress(b *strings.Builder, s *game.Snapshot) {
	slots := make([]string, 0, game.MaxRounds)
	for n := 1; n <= game.MaxRounds; n++ {
		switch s.RoundOutcome(n) {
		case game.OutcomePassed:
			slots = append(slots, r.paint(green, "[✓]"))
		case game.OutcomeFailed:
			slots = append(slots, r.paint(red, "[✗]"))
		case game.OutcomeCurrent:
			slots = append(slots, r.paint(yellow, fmt.Sprintf("(%d)", n)))
		default:
			slots = append(slots, fmt.Sprintf("[%d]", n))
		}
	}
	fmt.Fprintf(b, "Tasks: %s\n", strings.Join(slots, " "))
}

func (r *Renderer) gameOver(b *strings.Builder, s *game.Snapshot) {
	verb := "Wins!"
	if *s.Winner == game.WinnerCrewmates {
		verb = "Win!"
	}
	banner := fmt.Sprintf("%s %s", r.title.String(string(*s.Winner)), verb)
	fmt.Fprintf(b, "\n== %s ==\n", r.paint(bold, banner))

	if imp, ok := s.Imposter(); ok {
		fmt.Fprintf(b, "The imposter was %s (%s)\n", imp.Name, imp.ShortModel())
	}
	fmt.Fprintf(b, "Rounds played: %d\n", s.CurrentRound)
	fmt.Fprintf(b, "Tasks failed: %d\n", s.FailedTaskCount)
	if s.EliminatedPlayer != nil {
		line := fmt.Sprintf("Eliminated: Player %d", *s.EliminatedPlayer+1)
		if s.ImposterIndex != nil && *s.ImposterIndex == *s.EliminatedPlayer {
			line += " (the imposter!)"
		}
		fmt.Fprintln(b, line)
	}
	fmt.Fprintf(b, "[ Play Again ]  (reset)\n")
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
