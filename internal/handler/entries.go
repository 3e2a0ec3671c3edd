package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/middleware"
	"github.com/pkordes/petrol-logbook/internal/session"
)

// EntryRequest is the body of POST /entries and PUT /entries/{serial}.
// BaselineKM defaults to the user's configured home-to-office distance.
// Date is only honoured on update; new entries are stamped with today.
type EntryRequest struct {
	Date       string           `json:"date,omitempty"`
	Details    string           `json:"details"`
	Purpose    string           `json:"purpose"`
	TotalKM    decimal.Decimal  `json:"total_km"`
	BaselineKM *decimal.Decimal `json:"baseline_km,omitempty"`
}

// ListResponse is the body of GET /entries.
type ListResponse struct {
	Month     string         `json:"month"`
	RatePerKM string         `json:"rate_per_km"`
	Entries   []domain.Entry `json:"entries"`
	Totals    domain.Totals  `json:"totals"`
}

// Prefill holds the edit form values for an existing entry. TotalKM is the
// stored reimbursable distance plus the baseline, so saving it unchanged
// reproduces the stored entry.
type Prefill struct {
	Date       string          `json:"date"`
	Details    string          `json:"details"`
	Purpose    string          `json:"purpose"`
	TotalKM    decimal.Decimal `json:"total_km"`
	BaselineKM decimal.Decimal `json:"baseline_km"`
}

// EditResponse is returned when an entry enters edit mode.
type EditResponse struct {
	Entry   domain.Entry    `json:"entry"`
	Prefill Prefill         `json:"prefill"`
	Session SessionResponse `json:"session"`
}

// DeletePromptResponse is returned when a delete is awaiting confirmation.
type DeletePromptResponse struct {
	Entry   domain.Entry    `json:"entry"`
	Session SessionResponse `json:"session"`
}

// ListEntries handles GET /entries. An optional ?month=2006-01 shows an
// earlier month; mutations always apply to the session's current month.
func (s *Server) ListEntries(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	key := sess.Key()

	var month *string
	if err := runtime.BindQueryParameter("form", true, false, "month", r.URL.Query(), &month); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid month parameter")
		return
	}
	if month != nil {
		m, err := domain.ParseMonth(*month)
		if err != nil {
			s.writeServiceError(w, r, err, "")
			return
		}
		key.Month = m
	}

	rs, err := s.records.Load(r.Context(), key)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	entries := rs.Entries
	if entries == nil {
		entries = []domain.Entry{}
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Month:     key.Month.String(),
		RatePerKM: s.records.Rate().String(),
		Entries:   entries,
		Totals:    rs.Aggregate(),
	})
}

// CreateEntry handles POST /entries.
func (s *Server) CreateEntry(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	body, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	created, err := s.records.Create(r.Context(), sess.Key(), entryInput(body, sess))
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// BeginEdit handles POST /entries/{serial}/edit.
func (s *Server) BeginEdit(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	serial, ok := bindSerial(w, r)
	if !ok {
		return
	}

	e, err := s.records.Get(r.Context(), sess.Key(), serial)
	if err != nil {
		s.writeServiceError(w, r, err, fmt.Sprintf("entry %d not found", serial))
		return
	}
	sess.BeginEdit(e)

	baseline := sess.User.BaselineKM
	writeJSON(w, http.StatusOK, EditResponse{
		Entry: e,
		Prefill: Prefill{
			Date:       e.DateLabel,
			Details:    e.Details,
			Purpose:    e.Purpose,
			TotalKM:    e.DistanceKM.Add(baseline),
			BaselineKM: baseline,
		},
		Session: sessionToResponse(sess.State()),
	})
}

// UpdateEntry handles PUT /entries/{serial}. The session must be editing
// that serial. A validation failure keeps the session in edit mode; an
// entry that vanished or changed since the edit began ends it.
func (s *Server) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	serial, ok := bindSerial(w, r)
	if !ok {
		return
	}
	target, err := sess.Expect(session.Editing, serial)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}
	body, ok := decodeEntry(w, r)
	if !ok {
		return
	}

	updated, err := s.records.Update(r.Context(), sess.Key(), target, entryInput(body, sess))
	if err != nil {
		if targetGone(err) {
			sess.Cancel()
		}
		s.writeServiceError(w, r, err, fmt.Sprintf("entry %d not found", serial))
		return
	}
	sess.Complete()
	writeJSON(w, http.StatusOK, updated)
}

// BeginDelete handles POST /entries/{serial}/delete and returns the entry
// for the confirmation prompt.
func (s *Server) BeginDelete(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	serial, ok := bindSerial(w, r)
	if !ok {
		return
	}

	e, err := s.records.Get(r.Context(), sess.Key(), serial)
	if err != nil {
		s.writeServiceError(w, r, err, fmt.Sprintf("entry %d not found", serial))
		return
	}
	sess.BeginDelete(e)
	writeJSON(w, http.StatusOK, DeletePromptResponse{Entry: e, Session: sessionToResponse(sess.State())})
}

// DeleteEntry handles DELETE /entries/{serial}. The session must be
// confirming the delete of that serial. Later entries are renumbered.
func (s *Server) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	serial, ok := bindSerial(w, r)
	if !ok {
		return
	}
	target, err := sess.Expect(session.ConfirmingDelete, serial)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	if err := s.records.Delete(r.Context(), sess.Key(), target); err != nil {
		if targetGone(err) {
			sess.Cancel()
		}
		s.writeServiceError(w, r, err, fmt.Sprintf("entry %d not found", serial))
		return
	}
	sess.Complete()
	w.WriteHeader(http.StatusNoContent)
}

// --- mapping helpers --------------------------------------------------------

// targetGone reports whether err means the entry a pending action was
// opened on is no longer at its serial.
func targetGone(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStaleEntry)
}

// bindSerial reads the {serial} path segment. Writes 400 and returns false
// if it is not an integer.
func bindSerial(w http.ResponseWriter, r *http.Request) (int, bool) {
	var serial int
	err := runtime.BindStyledParameterWithOptions("simple", "serial", chi.URLParam(r, "serial"), &serial,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "serial must be an integer")
		return 0, false
	}
	return serial, true
}

// decodeEntry decodes an EntryRequest. Writes 413 for an oversized body
// and 422 for malformed JSON.
func decodeEntry(w http.ResponseWriter, r *http.Request) (EntryRequest, bool) {
	var body EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return EntryRequest{}, false
		}
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "request body must be a JSON entry")
		return EntryRequest{}, false
	}
	return body, true
}

func entryInput(body EntryRequest, sess *session.Session) domain.EntryInput {
	baseline := sess.User.BaselineKM
	if body.BaselineKM != nil {
		baseline = *body.BaselineKM
	}
	return domain.EntryInput{
		DateLabel:  body.Date,
		Details:    body.Details,
		Purpose:    body.Purpose,
		TotalKM:    body.TotalKM,
		BaselineKM: baseline,
	}
}
