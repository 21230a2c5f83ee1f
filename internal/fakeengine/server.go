// Package fakeengine is an in-memory game engine that walks games through
// the phase sequence on a fixed script. It serves the same HTTP and push
// endpoints as the real engine so the client can run end to end without it.
package fakeengine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/llm-among-us/internal/types"
)

// Op names an endpoint for failure injection.
type Op string

const (
	OpCreate  Op = "create"
	OpStart   Op = "start"
	OpAdvance Op = "advance"
	OpState   Op = "state"
	OpDelete  Op = "delete"
	OpSocket  Op = "socket"
)

type Options struct {
	Log *zap.Logger
	// Imposter picks the imposter of each new game. Defaults to random.
	Imposter func() int
	Now      func() time.Time
	// WriteTimeout bounds each push frame write.
	WriteTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Imposter == nil {
		o.Imposter = randomImposter
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	return o
}

type Server struct {
	hub    *Hub
	opts   Options
	log    *zap.Logger
	router http.Handler

	mu       sync.Mutex
	failures map[Op]int
}

func New(ctx context.Context, opts Options) *Server {
	opts = opts.withDefaults()
	s := &Server{
		hub:      NewHub(ctx, opts),
		opts:     opts,
		log:      opts.Log.Named("fakeengine"),
		failures: make(map[Op]int),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/", s.root)
	r.Get("/healthz", Healthz)
	r.Get("/ws/{gameID}", s.socket)

	r.Route("/api/game", func(r chi.Router) {
		r.Use(s.logRequests)
		r.Post("/create", s.createGame)
		r.Post("/{gameID}/start", s.startGame)
		r.Post("/{gameID}/advance", s.advancePhase)
		r.Get("/{gameID}/state", s.gameState)
		r.Delete("/{gameID}", s.deleteGame)
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) Hub() *Hub { return s.hub }

// Fail makes every request to op answer with status until cleared with 0.
func (s *Server) Fail(op Op, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, op)
		return
	}
	s.failures[op] = status
}

func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) injected(w http.ResponseWriter, op Op) bool {
	s.mu.Lock()
	status, ok := s.failures[op]
	s.mu.Unlock()
	if !ok {
		return false
	}
	writeError(w, status, "injected failure")
	return true
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "LLM Among Us API", "version": "1.0.0"})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, OpCreate) {
		return
	}
	var req types.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	rm, err := s.hub.Create(req.Models)
	switch {
	case errors.Is(err, ErrRoster):
		writeError(w, http.StatusBadRequest, "Exactly 4 models are required")
		return
	case err != nil:
		s.log.Error("create game failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}

	v, ok := rm.State()
	if !ok {
		writeError(w, http.StatusInternalServerError, "failed to create game")
		return
	}
	writeRaw(w, http.StatusOK, v.State)
}

func (s *Server) startGame(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, OpStart) {
		return
	}
	s.command(w, r, CmdStart, "Game not found or already started")
}

func (s *Server) advancePhase(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, OpAdvance) {
		return
	}
	s.command(w, r, CmdAdvance, "Game not found or not in progress")
}

func (s *Server) command(w http.ResponseWriter, r *http.Request, cmd Command, notFound string) {
	rm := s.hub.Get(chi.URLParam(r, "gameID"))
	if rm == nil {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	state, err := rm.Do(cmd)
	if err != nil {
		writeError(w, http.StatusNotFound, notFound)
		return
	}
	writeRaw(w, http.StatusOK, state)
}

func (s *Server) gameState(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, OpState) {
		return
	}
	rm := s.hub.Get(chi.URLParam(r, "gameID"))
	if rm == nil {
		writeError(w, http.StatusNotFound, "Game not found")
		return
	}
	v, ok := rm.State()
	if !ok {
		writeError(w, http.StatusNotFound, "Game not found")
		return
	}
	writeRaw(w, http.StatusOK, v.State)
}

func (s *Server) deleteGame(w http.ResponseWriter, r *http.Request) {
	if s.injected(w, OpDelete) {
		return
	}
	if !s.hub.Remove(chi.URLParam(r, "gameID")) {
		writeError(w, http.StatusNotFound, "Game not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Game deleted"})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, types.ErrorResponse{Detail: detail})
}
