package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/petrol-logbook/internal/auth"
	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/metrics"
	"github.com/pkordes/petrol-logbook/internal/session"
)

// Authenticator verifies a login. *auth.PasswordAuthenticator satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (domain.UserProfile, error)
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token   string
	Session *session.Session
}

// AuthService ties credential checks, token issuance and the session
// registry together.
type AuthService struct {
	authn    Authenticator
	tokens   *auth.JWTManager
	sessions *session.Manager
	now      func() time.Time
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewAuthService constructs an AuthService.
func NewAuthService(authn Authenticator, tokens *auth.JWTManager, sessions *session.Manager, opts ...Option) *AuthService {
	o := buildOptions(opts)
	return &AuthService{
		authn:    authn,
		tokens:   tokens,
		sessions: sessions,
		now:      o.now,
		log:      o.log.With("component", "auth"),
		metrics:  o.metrics,
	}
}

// Login checks the credentials and opens a Browsing session on the current
// month. Any credential failure is auth.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.authn.Authenticate(ctx, email, password)
	if err != nil {
		s.metrics.Login(metrics.OutcomeInvalid)
		s.log.InfoContext(ctx, "login rejected", "email", email)
		return LoginResult{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}

	sess := s.sessions.Start(user, domain.MonthOf(s.now()))
	token, err := s.tokens.Generate(sess.ID, user.Email)
	if err != nil {
		s.sessions.End(sess.ID)
		s.metrics.Login(metrics.OutcomeError)
		return LoginResult{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}

	s.metrics.Login(metrics.OutcomeOK)
	s.log.InfoContext(ctx, "login", "email", user.Email, "session_id", sess.ID)
	return LoginResult{Token: token, Session: sess}, nil
}

// Resolve maps a bearer token to its live session and rolls the session
// onto the current month. A valid token whose session has ended or expired
// is rejected with auth.ErrInvalidToken.
func (s *AuthService) Resolve(_ context.Context, token string) (*session.Session, error) {
	if token == "" {
		return nil, auth.ErrMissingToken
	}
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("service.AuthService.Resolve: %w", err)
	}
	id, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("service.AuthService.Resolve: %w: bad session id", auth.ErrInvalidToken)
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("service.AuthService.Resolve: %w: session ended", auth.ErrInvalidToken)
	}
	sess.Rollover(domain.MonthOf(s.now()))
	return sess, nil
}

// Logout discards the session and all of its navigation state.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) {
	s.sessions.End(sess.ID)
	s.log.InfoContext(ctx, "logout", "email", sess.User.Email, "session_id", sess.ID)
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, auth.ErrInvalidToken) ||
		errors.Is(err, auth.ErrMissingToken)
}
