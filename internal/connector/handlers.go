// SPDX-License-Identifier: MPL-2.0

package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/invowk/langhost/internal/core/lifecycle"
	"github.com/invowk/langhost/internal/host"
	"github.com/invowk/langhost/internal/metrics"
)

// maxRequestBody bounds request bodies; session requests are tiny.
const maxRequestBody = 64 << 10

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/sessions", s.handleSession)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("POST /v1/control/{action}", s.handleControl)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) status() StatusResponse {
	state := s.runtime.State()
	resp := StatusResponse{
		State:         state.String(),
		Busy:          state.IsBusy(),
		Paused:        s.IsPaused(),
		Version:       s.runtime.Version(),
		LastErrorKind: string(s.runtime.LastErrorKind()),
		Service:       s.cfg.Service,
	}
	if err := s.runtime.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return resp
}

// handleControl applies an operator action asynchronously and answers with
// the state right after the request was accepted.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	action := Action(r.PathValue("action"))
	if err := action.Validate(); err != nil {
		sendError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	var err error
	switch action {
	case ActionStart:
		err = s.runtime.Start(r.Context(), true)
	case ActionStop:
		force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
		err = s.runtime.Stop(r.Context(), force, true)
	}
	if err != nil {
		s.logger.Warn("control request failed", "action", action, "error", err)
		sendError(w, http.StatusServiceUnavailable, err.Error(), string(host.KindOf(err)))
		return
	}
	s.logger.Info("control request accepted", "action", action)
	writeJSON(w, http.StatusAccepted, s.status())
}

// handleSession sets up a session: it waits out an in-flight transition,
// lazily starts a stopped runtime, allocates the channel pair and hands it
// to the runtime.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		s.record(metrics.SessionThrottled)
		sendError(w, http.StatusTooManyRequests, ErrRateLimited.Error(), "")
		return
	}
	if s.IsPaused() {
		s.record(metrics.SessionUnavailable)
		sendError(w, http.StatusServiceUnavailable, "connector is paused", "")
		return
	}

	var req SessionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.record(metrics.SessionInvalid)
		sendError(w, http.StatusBadRequest, "invalid JSON: "+err.Error(), "")
		return
	}
	if err := errors.Join(req.User.Validate(), req.Language.Validate()); err != nil {
		s.record(metrics.SessionInvalid)
		sendError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	s.touch()

	if err := s.ensureRunning(r.Context()); err != nil {
		s.record(metrics.SessionUnavailable)
		s.logger.Warn("runtime unavailable for session", "user", req.User, "error", err)
		sendError(w, http.StatusServiceUnavailable, err.Error(), string(host.KindOf(err)))
		return
	}

	in, out := allocateChannels(s.cfg.ChannelDir)
	sess := host.Session{User: req.User, Input: in, Output: out, Language: req.Language}
	if err := s.runtime.UserConnection(r.Context(), sess); err != nil {
		status := http.StatusInternalServerError
		outcome := metrics.SessionRejected
		switch {
		case errors.Is(err, host.ErrInvalidSession):
			status, outcome = http.StatusBadRequest, metrics.SessionInvalid
		case errors.Is(err, host.ErrSessionRejected):
			status = http.StatusConflict
		}
		s.record(outcome)
		sendError(w, status, err.Error(), string(host.KindOf(err)))
		return
	}

	s.record(metrics.SessionAccepted)
	s.logger.Info("session established", "user", req.User, "language", req.Language, "input", in)
	writeJSON(w, http.StatusOK, SessionResponse{Input: in, Output: out})
}

// ensureRunning waits for an in-flight transition and, with lazy start,
// brings a stopped runtime up. A runtime left in any other state is passed
// on to UserConnection, which rejects the session.
func (s *Server) ensureRunning(ctx context.Context) error {
	s.runtime.IsBusy(s.cfg.BusyTimeout)

	if !s.cfg.LazyStart || s.runtime.State() != lifecycle.StateStopped {
		return nil
	}

	startCtx := ctx
	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		startCtx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}
	s.logger.Debug("starting runtime for session")
	if err := s.runtime.Start(startCtx, false); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind})
}
