package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ternarybob/abacus/internal/logger"
	"github.com/ternarybob/abacus/internal/profiles"
	"github.com/ternarybob/abacus/pkg/calc"
	"github.com/ternarybob/abacus/pkg/expr"
	"github.com/ternarybob/abacus/pkg/keymap"
	"github.com/ternarybob/abacus/pkg/session"
)

// version is set via -ldflags at build time
var version = "dev"

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
}

// Response types

// HealthResponse is the response for /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// VersionResponse is the response for /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateSessionRequest is the request body for POST /sessions.
type CreateSessionRequest struct {
	Profile string `json:"profile,omitempty"`
}

// SessionListResponse lists live session IDs.
type SessionListResponse struct {
	Sessions []string `json:"sessions"`
	Total    int      `json:"total"`
}

// KeysRequest carries key presses, either as tokens or as one sequence.
type KeysRequest struct {
	Keys     []string `json:"keys,omitempty"`
	Sequence string   `json:"sequence,omitempty"`
}

// EvalRequest is the request body for POST /eval.
type EvalRequest struct {
	Expression string `json:"expression"`
	Profile    string `json:"profile,omitempty"`
}

// EvalResponse is the result of a standalone evaluation.
type EvalResponse struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
	Display    string `json:"display"`
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Sessions: s.store.Len()})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: version,
		Service: "abacus-service",
	})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.List())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.store.List()
	writeJSON(w, http.StatusOK, SessionListResponse{Sessions: ids, Total: len(ids)})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	sess, err := s.store.Create(req.Profile)
	if err != nil {
		if errors.Is(err, profiles.ErrUnknownProfile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.GetLogger().Error().Err(err).Str("profile", req.Profile).Msg("Failed to create session")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.ForSession(sess.ID()).Info().Str("profile", sess.Profile().Name).Msg("Session created")
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	logger.ForSession(id).Info().Msg("Session closed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePressKeys(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req KeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}

	snap, err := press(sess, req)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	snap, err := sess.ClearHistory()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req EvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if req.Expression == "" {
		writeError(w, http.StatusBadRequest, "Expression is required")
		return
	}

	name := req.Profile
	if name == "" {
		name = s.cfg.Calculator.DefaultProfile
	}
	p, err := s.registry.Get(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := expr.Eval(req.Expression, p.Precision)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, expr.ErrSyntax) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, EvalResponse{
		Expression: req.Expression,
		Result:     result,
		Display:    calc.Group(result, p.Grouping),
	})
}

// lookup resolves the {id} URL parameter, writing a 404 when absent.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}

// press applies a KeysRequest. Tokens take precedence over a sequence.
func press(sess *session.Session, req KeysRequest) (session.Snapshot, error) {
	switch {
	case len(req.Keys) > 0:
		return sess.PressTokens(req.Keys)
	case req.Sequence != "":
		return sess.PressSequence(req.Sequence)
	default:
		return session.Snapshot{}, errNoKeys
	}
}

var errNoKeys = errors.New("keys or sequence is required")

// isInputError reports errors caused by client key input.
func isInputError(err error) bool {
	return errors.Is(err, keymap.ErrUnboundKey) || errors.Is(err, errNoKeys)
}

// decodeBody decodes an optional JSON body.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeDecodeError reports a body that could not be decoded, distinguishing
// bodies cut off by the size limit.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid request body")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
