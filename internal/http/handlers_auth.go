package http

import (
	"net/http"

	"fintrack/internal/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	u, err := s.deps.Accounts.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, log.OpRegister)
		return
	}

	log.FromContext(r.Context()).WithComponent(log.ComponentAccounts).
		InfoContext(r.Context(), "User registered", log.FieldUserID, u.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Data(userResponse{ID: u.ID, Email: u.Email}).
		Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	u, err := s.deps.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err, log.OpLogin)
		return
	}
	NewJSONResponse().Data(userResponse{ID: u.ID, Email: u.Email}).Write(w)
}
