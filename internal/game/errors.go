package game

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

var ErrConnectionFailed = errors.New("websocket connection failed")
var ErrCreateFailed = errors.New("failed to create game")
var ErrStartFailed = errors.New("failed to start game")
var ErrAdvanceFailed = errors.New("failed to advance phase")
var ErrRefreshFailed = errors.New("failed to refresh game")
var ErrDeleteFailed = errors.New("failed to delete game")
var ErrMalformedPush = errors.New("malformed push frame")
var ErrMalformedSnapshot = errors.New("malformed snapshot")
var ErrNoGame = errors.New("no game created")

// Ordered: the first matching kind decides the message.
var userMessages = []struct {
	kind error
	msg  string
}{
	{ErrConnectionFailed, "WebSocket connection failed"},
	{ErrCreateFailed, "Failed to create game"},
	{ErrStartFailed, "Failed to start game"},
	{ErrAdvanceFailed, "Failed to advance phase"},
	{ErrRefreshFailed, "Failed to refresh game"},
	{ErrDeleteFailed, "Failed to delete game"},
	{ErrNoGame, "No game has been created yet"},
}

// Describe turns an error into the sentence shown to the user. Known kinds
// hide their wrapped detail.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.kind) {
			return m.msg
		}
	}
	msg := err.Error()
	r, n := utf8.DecodeRuneInString(msg)
	if n == 0 {
		return "Unknown error"
	}
	return string(unicode.ToUpper(r)) + msg[n:]
}
