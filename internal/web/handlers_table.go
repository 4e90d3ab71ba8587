package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/logging"
	"github.com/JonMunkholm/vlookup/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 32 << 20

var errNoFile = errors.New("no file provided")

// handleUploadTable parses an uploaded CSV or workbook into table A or B.
func (s *Server) handleUploadTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	slot, err := core.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, fmt.Errorf("file too large: limit is %d bytes", maxSize), http.StatusRequestEntityTooLarge)
			return
		}
		s.respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}
	defer file.Close()

	logging.WithFields(r.Context(), "session_id", id, "slot", slot).
		Debug("upload received", "file", header.Filename, "size", header.Size)

	res, err := s.service.LoadTable(r.Context(), id, slot, header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	respondOK(w, r, http.StatusOK, res,
		fmt.Sprintf("Loaded %s into table %s (%d rows)", res.FileName, res.Slot, res.Rows))
}

// handlePreviewTable renders the first rows of a table as an HTML fragment.
func (s *Server) handlePreviewTable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	slot, err := core.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	sess, err := s.service.GetSession(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	n := parseIntParam(r, "rows", s.cfg.Upload.PreviewRows)
	table := sess.Table(slot)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.TablePreview(slot, sess.FileName(slot), len(table), core.Head(table, n)).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render preview", "session_id", id, "error", err)
	}
}

func (s *Server) handleCommonColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.service.CommonColumns(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"columns": cols})
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
