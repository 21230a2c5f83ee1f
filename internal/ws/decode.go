package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/types"
)

var ErrUnhandledFrame = errors.New("unhandled frame type")

// DecodeFrame extracts the snapshot of a game_state_update frame. Any other
// type returns ErrUnhandledFrame; a bad envelope or snapshot returns
// game.ErrMalformedPush. Callers skip the frame on error.
func DecodeFrame(data []byte) (game.Snapshot, error) {
	var f types.PushFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return game.Snapshot{}, fmt.Errorf("%w: %v", game.ErrMalformedPush, err)
	}
	if f.Type != types.FrameGameStateUpdate {
		return game.Snapshot{}, fmt.Errorf("%w %q", ErrUnhandledFrame, f.Type)
	}
	if len(f.Data) == 0 {
		return game.Snapshot{}, fmt.Errorf("%w: missing data", game.ErrMalformedPush)
	}
	snap, err := game.DecodeSnapshot(f.Data)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("%w: %v", game.ErrMalformedPush, err)
	}
	return snap, nil
}
