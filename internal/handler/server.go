// Package handler implements the HTTP API for the petrol logbook.
// All handlers are methods on Server. Methods are split into
// domain-specific files (health.go, auth.go, entries.go, export.go) but all
// share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/metrics"
	"github.com/pkordes/petrol-logbook/internal/service"
	"github.com/pkordes/petrol-logbook/internal/session"
)

// RecordServicer defines the record operations the entry handlers depend on.
// Defining the interface here, in the consumer package, lets handler tests
// inject a mock without touching storage.
type RecordServicer interface {
	Load(ctx context.Context, key domain.RecordKey) (domain.RecordSet, error)
	Get(ctx context.Context, key domain.RecordKey, serial int) (domain.Entry, error)
	Create(ctx context.Context, key domain.RecordKey, in domain.EntryInput) (domain.Entry, error)
	Update(ctx context.Context, key domain.RecordKey, want domain.Entry, in domain.EntryInput) (domain.Entry, error)
	Delete(ctx context.Context, key domain.RecordKey, want domain.Entry) error
	Rate() decimal.Decimal
}

// AuthServicer defines the login and session lookup operations.
type AuthServicer interface {
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Resolve(ctx context.Context, token string) (*session.Session, error)
	Logout(ctx context.Context, sess *session.Session)
}

// ExportServicer renders downloadable documents.
type ExportServicer interface {
	Export(ctx context.Context, user domain.UserProfile, month domain.Month, format domain.ExportFormat) (service.Document, error)
}

// Server holds the dependencies shared by every handler.
type Server struct {
	records RecordServicer
	auth    AuthServicer
	exports ExportServicer
	metrics *metrics.Metrics
	log     *slog.Logger
	openapi []byte
}

// Option customizes a Server.
type Option func(*Server)

// WithLogger sets the logger used for unexpected errors.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.log = l } }

// WithMetrics exposes m at /metrics.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Server) { s.metrics = m } }

// WithOpenAPI sets the document served at /openapi.yaml.
func WithOpenAPI(doc []byte) Option { return func(s *Server) { s.openapi = doc } }

// NewServer constructs the Server with all its dependencies.
func NewServer(records RecordServicer, auth AuthServicer, exports ExportServicer, opts ...Option) *Server {
	s := &Server{
		records: records,
		auth:    auth,
		exports: exports,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil)
}
