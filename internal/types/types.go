package types

import "encoding/json"

const (
	FrameGameStateUpdate = "game_state_update"
	FramePing            = "ping"
	FramePong            = "pong"
)

// PushFrame is the envelope of every push channel frame. Data stays raw so a
// bad snapshot can be rejected without losing the frame type.
type PushFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ClientFrame is what the client writes on the push channel (keepalive only).
type ClientFrame struct {
	Type string `json:"type"`
}

type CreateGameRequest struct {
	Models []string `json:"models,omitzero"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}
