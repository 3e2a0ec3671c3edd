package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/petrol-logbook/internal/domain"
	"github.com/pkordes/petrol-logbook/internal/middleware"
)

// GetExport handles GET /export?format=xlsx|pdf|csv[&month=2006-01].
// The document is returned as an attachment named after the month and user.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFrom(r.Context())
	month := sess.Key().Month

	var format string
	if err := runtime.BindQueryParameter("form", true, true, "format", r.URL.Query(), &format); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "format is required: xlsx, pdf or csv")
		return
	}
	var monthParam *string
	if err := runtime.BindQueryParameter("form", true, false, "month", r.URL.Query(), &monthParam); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid month parameter")
		return
	}
	if monthParam != nil {
		m, err := domain.ParseMonth(*monthParam)
		if err != nil {
			s.writeServiceError(w, r, err, "")
			return
		}
		month = m
	}

	f := domain.ExportFormat(format)
	if !f.Valid() {
		writeError(w, http.StatusBadRequest, "bad_request", "format must be one of xlsx, pdf, csv")
		return
	}

	doc, err := s.exports.Export(r.Context(), sess.User, month, f)
	if err != nil {
		s.writeServiceError(w, r, err, "")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}
