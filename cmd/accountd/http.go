package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
)

type pingFunc func(ctx context.Context) (time.Duration, error)

type server struct {
	engine  *goAccount.Engine
	log     *slog.Logger
	ping    pingFunc
	metrics http.Handler
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string                  `json:"token"`
	Account goAccount.PublicAccount `json:"account"`
}

// routes builds the daemon handler tree.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	strict := middleware.RequireStrict(s.engine)
	inherit := middleware.Guard(s.engine, goAccount.ModeInherit)

	mux.HandleFunc("POST /accounts", s.handleCreateAccount)
	mux.HandleFunc("POST /accounts/login", s.handleLogin)
	mux.Handle("POST /accounts/logout", strict(http.HandlerFunc(s.handleLogout)))
	mux.Handle("POST /accounts/logout-all", strict(http.HandlerFunc(s.handleLogoutAll)))
	mux.Handle("GET /accounts/me", strict(http.HandlerFunc(s.handleGetMe)))
	mux.Handle("PATCH /accounts/me", strict(http.HandlerFunc(s.handleUpdateMe)))
	mux.Handle("DELETE /accounts/me", strict(http.HandlerFunc(s.handleDeleteMe)))

	mux.Handle("POST /tasks", inherit(http.HandlerFunc(s.handleCreateTask)))
	mux.Handle("GET /tasks", inherit(http.HandlerFunc(s.handleListTasks)))
	mux.Handle("DELETE /tasks/{id}", inherit(http.HandlerFunc(s.handleDeleteTask)))

	mux.HandleFunc("GET /healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	return withRequestLogging(s.log, middleware.ClientIP(mux))
}

func (s *server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req goAccount.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	acct, err := s.engine.CreateAccount(r.Context(), req)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goAccount.ToPublicView(acct))
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	acct, token, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Account: goAccount.ToPublicView(acct)})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := s.engine.Logout(r.Context(), res.Token); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := s.engine.RevokeAllTokens(r.Context(), res.Account); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	writeJSON(w, http.StatusOK, goAccount.ToPublicView(res.Account))
}

func (s *server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	var patch goAccount.AccountPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	acct, err := s.engine.UpdateAccount(r.Context(), res.AccountID, patch)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goAccount.ToPublicView(acct))
}

func (s *server) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())
	if err := s.engine.DeleteAccount(r.Context(), res.Account); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	var in goAccount.TaskInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	task, err := s.engine.CreateTask(r.Context(), res.AccountID, in)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	tasks, err := s.engine.ListTasks(r.Context(), res.AccountID)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	res, _ := middleware.AuthResultFromContext(r.Context())

	if err := s.engine.DeleteTask(r.Context(), res.AccountID, r.PathValue("id")); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	latency, err := s.ping(ctx)
	if err != nil {
		s.log.Warn("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"latency_ms": latency.Milliseconds(),
	})
}

// writeEngineError maps Engine errors onto HTTP statuses. Store failures are
// logged; client errors are not.
func (s *server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *goAccount.ValidationError
	var serr *goAccount.StoreError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "validation",
			Message: verr.Reason,
			Field:   verr.Field,
		}})
	case errors.Is(err, goAccount.ErrLoginRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many failed login attempts")
	case errors.Is(err, goAccount.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", goAccount.ErrInvalidCredentials.Error())
	case errors.Is(err, goAccount.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
	case errors.Is(err, goAccount.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", "account not found")
	case errors.Is(err, goAccount.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, "task_not_found", "task not found")
	case errors.Is(err, goAccount.ErrCascadeDelete):
		s.log.Error("cascade delete failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "cascade_failed", "account could not be deleted")
	case errors.As(err, &serr):
		s.log.Error("store failure", "op", serr.Op, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "unavailable", "store unavailable")
	default:
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
