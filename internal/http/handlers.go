package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// requireUser resolves {userID} and answers 404 for unknown users, so no
// handler below it can create data for an account that does not exist.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := PathID(r, "userID")
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		if _, err := s.deps.Accounts.User(r.Context(), id); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				NotFoundError("user not found").Write(w)
				return
			}
			s.fail(w, r, err, log.OpRead)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

// fail writes the response for err and logs server-side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	resp := FromError(err)
	if status := StatusFor(err); status >= http.StatusInternalServerError {
		errType := log.ErrorTypeInternal
		if errors.Is(err, core.ErrStorageUnavailable) {
			errType = log.ErrorTypeDatabase
		}
		log.LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, errType, nil)
	}
	resp.Write(w)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.Metrics()
	NewJSONResponse().Data(map[string]any{
		"status":          "ok",
		"requests":        m.TotalRequests,
		"server_failures": m.ServerFailures,
	}).Write(w)
}

// handleReady pings the store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "storage unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
