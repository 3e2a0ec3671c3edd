package handler

import (
	"encoding/json"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/petrol-logbook/internal/middleware"
	"github.com/pkordes/petrol-logbook/internal/session"
)

// LoginRequest is the body of POST /login. Email is syntax-checked while
// decoding.
type LoginRequest struct {
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

// UserResponse describes the logged-in user.
type UserResponse struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	BaselineKM string `json:"baseline_km"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Token   string          `json:"token"`
	User    UserResponse    `json:"user"`
	Session SessionResponse `json:"session"`
}

// SessionResponse is the navigation state of a session.
// Serial is only present while editing or confirming a delete.
type SessionResponse struct {
	Mode   string `json:"mode"`
	Serial *int   `json:"serial,omitempty"`
	Month  string `json:"month"`
}

// Login handles POST /login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email and password are required")
		return
	}
	if body.Email == "" || body.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "a valid email and password are required")
		return
	}

	res, err := s.auth.Login(r.Context(), string(body.Email), body.Password)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	user := res.Session.User
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:   res.Token,
		User:    UserResponse{Email: user.Email, Name: user.Name, BaselineKM: user.BaselineKM.String()},
		Session: sessionToResponse(res.Session.State()),
	})
}

// Logout handles POST /logout. All navigation state is discarded.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	s.auth.Logout(r.Context(), sess)
	w.WriteHeader(http.StatusNoContent)
}

// GetSession handles GET /session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sessionToResponse(sess.State()))
}

// CancelSession handles POST /session/cancel: abandon any edit or pending
// delete and return to browsing.
func (s *Server) CancelSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	sess.Cancel()
	writeJSON(w, http.StatusOK, sessionToResponse(sess.State()))
}

func sessionToResponse(st session.State) SessionResponse {
	resp := SessionResponse{Mode: st.Mode.String(), Month: st.Month.String()}
	if st.Mode != session.Browsing {
		serial := st.Serial
		resp.Serial = &serial
	}
	return resp
}
