package game

import (
	"encoding/json"
	"fmt"
)

// requiredKeys must be present in every snapshot the server sends. The
// nullable fields (imposterIndex, winner, eliminatedPlayer) may be absent.
var requiredKeys = []string{
	"gameId",
	"status",
	"currentRound",
	"currentPhase",
	"players",
	"rounds",
	"failedTaskCount",
	"discussionRoundNumber",
}

// DecodeSnapshot parses and shape-checks a snapshot. Server invariants
// beyond the shape are trusted, not re-derived.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if fields == nil {
		return Snapshot{}, fmt.Errorf("%w: null", ErrMalformedSnapshot)
	}
	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			return Snapshot{}, fmt.Errorf("%w: missing %s", ErrMalformedSnapshot, k)
		}
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if s.GameID == "" {
		return Snapshot{}, fmt.Errorf("%w: empty gameId", ErrMalformedSnapshot)
	}
	if len(s.Players) != PlayerCount {
		return Snapshot{}, fmt.Errorf("%w: %d players", ErrMalformedSnapshot, len(s.Players))
	}
	return s, nil
}
