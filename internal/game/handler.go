package game

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"linked-go/internal/auth"
)

type Handler struct {
	service GameService
	logger  *slog.Logger
}

func NewHandler(service GameService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string     `json:"error"`
	Message string     `json:"message"`
	RetryAt *time.Time `json:"retry_at,omitempty"`
}

// Stable error codes shared with matchsync.HTTPTransport
const (
	CodeTurnConflict     = "turn_conflict"
	CodeCooldownActive   = "cooldown_active"
	CodeNoHintsRemaining = "no_hints_remaining"
	CodeMatchNotFound    = "match_not_found"
	CodePairNotFound     = "pair_not_found"
	CodeForbidden        = "forbidden"
	CodeNoPuzzle         = "no_puzzle_available"
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeInternal         = "internal_error"
)

type SubmitTurnRequest struct {
	Placements []Placement `json:"placements"`
}

type UseHintRequest struct {
	RemainingLetters []string `json:"remaining_letters"`
}

func (h *Handler) GetOrCreateMatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	match, err := h.service.GetOrCreateMatch(r.Context(), ps.ByName("pairID"), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *Handler) PollMatch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	match, err := h.service.GetMatch(r.Context(), ps.ByName("matchID"), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (h *Handler) SubmitTurn(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req SubmitTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: CodeBadRequest, Message: err.Error()})
		return
	}

	result, err := h.service.SubmitTurn(r.Context(), ps.ByName("matchID"), userID, req.Placements)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) UseHint(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var req UseHintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: CodeBadRequest, Message: err.Error()})
		return
	}

	result, err := h.service.UseHint(r.Context(), ps.ByName("matchID"), userID, req.RemainingLetters)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	standings, err := h.service.GetStandings(r.Context(), ps.ByName("pairID"), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.PlayerIDFromContext(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: CodeUnauthorized, Message: "Unauthorized"})
		return "", false
	}
	return userID, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var cooldown *CooldownError
	switch {
	case errors.As(err, &cooldown):
		retryAt := cooldown.RetryAt
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: CodeCooldownActive, Message: err.Error(), RetryAt: &retryAt})
	case errors.Is(err, ErrTurnConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: CodeTurnConflict, Message: err.Error()})
	case errors.Is(err, ErrNoHintsRemaining):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: CodeNoHintsRemaining, Message: err.Error()})
	case errors.Is(err, ErrMatchNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: CodeMatchNotFound, Message: err.Error()})
	case errors.Is(err, ErrPairNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: CodePairNotFound, Message: err.Error()})
	case errors.Is(err, ErrNotMatchPlayer), errors.Is(err, ErrNotPairMember):
		writeJSON(w, http.StatusForbidden, ErrorResponse{Error: CodeForbidden, Message: err.Error()})
	case errors.Is(err, ErrNoPuzzleAvailable):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: CodeNoPuzzle, Message: err.Error()})
	case errors.Is(err, ErrEmptySubmission):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: CodeBadRequest, Message: err.Error()})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: CodeInternal, Message: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Routes registers the match endpoints on router.
func (h *Handler) Routes(router *httprouter.Router) *httprouter.Router {
	if router == nil {
		router = httprouter.New()
	}

	router.POST("/pairs/:pairID/match", h.GetOrCreateMatch)
	router.GET("/pairs/:pairID/standings", h.GetStandings)
	router.GET("/matches/:matchID", h.PollMatch)
	router.POST("/matches/:matchID/turns", h.SubmitTurn)
	router.POST("/matches/:matchID/hints", h.UseHint)

	return router
}
