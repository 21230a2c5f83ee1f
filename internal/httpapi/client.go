package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/game"
	"github.com/DoyleJ11/llm-among-us/internal/types"
)

const RequestIDHeader = "X-Request-ID"

// Client issues the request/response commands against the game engine. It
// never retries and sets no timeout of its own; ctx is the only bound.
type Client struct {
	base string
	hc   *http.Client
	log  *zap.Logger
}

func NewClient(baseURL string, hc *http.Client, log *zap.Logger) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   hc,
		log:  log.Named("httpapi"),
	}
}

// Roster keeps a caller-supplied model roster only if it is really a list of
// model identifiers. Anything else, such as a UI event value handed through
// by accident, counts as "not provided" and is never forwarded. A list is
// forwarded as is, even when empty; the engine decides whether it is valid.
func Roster(v any) []string {
	models, ok := v.([]string)
	if !ok || models == nil {
		return nil
	}
	return append([]string{}, models...)
}

func (c *Client) CreateGame(ctx context.Context, models []string) (game.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, "/api/game/create", types.CreateGameRequest{Models: models}, game.ErrCreateFailed)
}

func (c *Client) StartGame(ctx context.Context, gameID string) (game.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, gamePath(gameID, "start"), nil, game.ErrStartFailed)
}

func (c *Client) AdvancePhase(ctx context.Context, gameID string) (game.Snapshot, error) {
	return c.snapshot(ctx, http.MethodPost, gamePath(gameID, "advance"), nil, game.ErrAdvanceFailed)
}

func (c *Client) FetchState(ctx context.Context, gameID string) (game.Snapshot, error) {
	return c.snapshot(ctx, http.MethodGet, gamePath(gameID, "state"), nil, game.ErrRefreshFailed)
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	_, err := c.do(ctx, http.MethodDelete, gamePath(gameID, ""), nil, game.ErrDeleteFailed)
	return err
}

func gamePath(gameID, action string) string {
	p := "/api/game/" + url.PathEscape(gameID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) snapshot(ctx context.Context, method, path string, body any, kind error) (game.Snapshot, error) {
	data, err := c.do(ctx, method, path, body, kind)
	if err != nil {
		return game.Snapshot{}, err
	}
	snap, err := game.DecodeSnapshot(data)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("%w: %w", kind, err)
	}
	return snap, nil
}

// do performs one exchange. Every failure, whether network, status or body,
// is wrapped in kind.
func (c *Client) do(ctx context.Context, method, path string, body any, kind error) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", kind, err)
		}
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", kind, err)
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := c.log.With(zap.String("method", method), zap.String("path", path), zap.String("request_id", reqID))
	start := time.Now()

	resp, err := c.hc.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", kind, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn("reading response failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", kind, err)
	}

	log.Debug("request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Kind: kind, Code: resp.StatusCode, Detail: detail(data)}
	}
	return data, nil
}

// StatusError is a non-2xx answer from the engine.
type StatusError struct {
	Kind   error
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v: status %d", e.Kind, e.Code)
	}
	return fmt.Sprintf("%v: status %d: %s", e.Kind, e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error { return e.Kind }

func detail(body []byte) string {
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail != "" {
		return er.Detail
	}
	return ""
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
