package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/petrol-logbook/internal/auth"
	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/handler"
	"github.com/pkordes/petrol-logbook/internal/service"
	"github.com/pkordes/petrol-logbook/internal/session"
)

// ---- mocks -----------------------------------------------------------------

// mockRecordServicer is a test double for handler.RecordServicer.
// Set only the method fields your test needs.
type mockRecordServicer struct {
	load   func(ctx context.Context, key domain.RecordKey) (domain.RecordSet, error)
	get    func(ctx context.Context, key domain.RecordKey, serial int) (domain.Entry, error)
	create func(ctx context.Context, key domain.RecordKey, in domain.EntryInput) (domain.Entry, error)
	update func(ctx context.Context, key domain.RecordKey, want domain.Entry, in domain.EntryInput) (domain.Entry, error)
	delete func(ctx context.Context, key domain.RecordKey, want domain.Entry) error
}

func (m *mockRecordServicer) Load(ctx context.Context, key domain.RecordKey) (domain.RecordSet, error) {
	return m.load(ctx, key)
}
func (m *mockRecordServicer) Get(ctx context.Context, key domain.RecordKey, serial int) (domain.Entry, error) {
	return m.get(ctx, key, serial)
}
func (m *mockRecordServicer) Create(ctx context.Context, key domain.RecordKey, in domain.EntryInput) (domain.Entry, error) {
	return m.create(ctx, key, in)
}
func (m *mockRecordServicer) Update(ctx context.Context, key domain.RecordKey, want domain.Entry, in domain.EntryInput) (domain.Entry, error) {
	return m.update(ctx, key, want, in)
}
func (m *mockRecordServicer) Delete(ctx context.Context, key domain.RecordKey, want domain.Entry) error {
	return m.delete(ctx, key, want)
}
func (m *mockRecordServicer) Rate() decimal.Decimal { return domain.RatePerKM }

// compile-time check: mockRecordServicer must satisfy handler.RecordServicer.
var _ handler.RecordServicer = (*mockRecordServicer)(nil)

// mockAuthServicer resolves testToken to a fixed session.
type mockAuthServicer struct {
	sess   *session.Session
	login  func(ctx context.Context, email, password string) (service.LoginResult, error)
	logout func(ctx context.Context, sess *session.Session)
}

const testToken = "test-token"

func (m *mockAuthServicer) Login(ctx context.Context, email, password string) (service.LoginResult, error) {
	return m.login(ctx, email, password)
}
func (m *mockAuthServicer) Resolve(_ context.Context, token string) (*session.Session, error) {
	if token != testToken {
		return nil, auth.ErrInvalidToken
	}
	return m.sess, nil
}
func (m *mockAuthServicer) Logout(ctx context.Context, sess *session.Session) {
	if m.logout != nil {
		m.logout(ctx, sess)
	}
}

var _ handler.AuthServicer = (*mockAuthServicer)(nil)

type mockExportServicer struct {
	export func(ctx context.Context, user domain.UserProfile, month domain.Month, format domain.ExportFormat) (service.Document, error)
}

func (m *mockExportServicer) Export(ctx context.Context, user domain.UserProfile, month domain.Month, format domain.ExportFormat) (service.Document, error) {
	return m.export(ctx, user, month, format)
}

var _ handler.ExportServicer = (*mockExportServicer)(nil)

// ---- helpers ---------------------------------------------------------------

var october = domain.Month{Year: 2026, Month: time.October}

func ashaProfile() domain.UserProfile {
	return domain.UserProfile{Email: "asha@example.com", Name: "Asha Rao", BaselineKM: decimal.NewFromInt(8)}
}

// testEnv wires mocks into the real router exactly as main.go does.
type testEnv struct {
	h    http.Handler
	sess *session.Session
	auth *mockAuthServicer
}

func newTestEnv(records handler.RecordServicer, exports handler.ExportServicer) testEnv {
	mgr := session.NewManager(time.Hour, nil)
	sess := mgr.Start(ashaProfile(), october)
	authSvc := &mockAuthServicer{sess: sess}
	srv := handler.NewServer(records, authSvc, exports, handler.WithOpenAPI([]byte("openapi: 3.0.3\n")))
	return testEnv{
		h:    handler.NewRouter(srv, handler.RouterConfig{MaxBodyBytes: 1 << 20}),
		sess: sess,
		auth: authSvc,
	}
}

// do sends an authenticated request; pass a nil body for none.
func (e testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewBufferString(s)
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error
}

func entryFixture(serial int) domain.Entry {
	return domain.Entry{
		Serial:     serial,
		DateLabel:  "19-Oct",
		Details:    "Office to client site",
		Purpose:    "Installation",
		DistanceKM: decimal.NewFromInt(12),
		Amount:     decimal.NewFromInt(48),
	}
}
