package web

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleExport downloads the session's results as CSV or Parquet.
// Clients revalidate with If-None-Match against the content hash.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	exp, err := s.service.Export(id, format)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("ETag", exp.ETag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == exp.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", exp.Format.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exp.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	if _, err := w.Write(exp.Data); err != nil {
		logging.WithFields(r.Context(), "session_id", id).Error("write export", "error", err)
	}
}
