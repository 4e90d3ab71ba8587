package web

import (
	"net/http"
	"net/url"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/logging"
	"github.com/JonMunkholm/vlookup/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// maxResultRows caps how many result rows the workspace page renders.
// Downloads always contain every row.
const maxResultRows = 1000

// handleIndex starts a new workspace and sends the browser to it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.service.CreateSession()
	http.Redirect(w, r, "/sessions/"+url.PathEscape(sess.ID), http.StatusSeeOther)
}

// handleSessionPage renders the workspace page.
func (s *Server) handleSessionPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess, err := s.service.GetSession(id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	results := sess.Results
	if len(results) > maxResultRows {
		results = results[:maxResultRows]
	}

	n := s.cfg.Upload.PreviewRows
	params := templates.WorkspaceParams{
		Summary:        sess.Summarize(),
		PreviewA:       core.Head(sess.TableA, n),
		PreviewB:       core.Head(sess.TableB, n),
		Results:        results,
		Notice:         r.URL.Query().Get("notice"),
		Error:          r.URL.Query().Get("error"),
		SuggestEnabled: s.service.SuggestionsEnabled(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.WorkspacePage(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render workspace", "session_id", id, "error", err)
	}
}

// HealthResponse reports service state for load balancers and operators.
type HealthResponse struct {
	Status      string                  `json:"status"`
	Sessions    int                     `json:"sessions"`
	Parses      core.ParseLimiterStatus `json:"parses"`
	Suggestions bool                    `json:"suggestions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Sessions:    s.service.SessionCount(),
		Parses:      s.service.Limiter().Status(),
		Suggestions: s.service.SuggestionsEnabled(),
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.service.CreateSession()
	if isBrowserForm(r) {
		http.Redirect(w, r, "/sessions/"+url.PathEscape(sess.ID), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.Summarize(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteSession(chi.URLParam(r, "sessionID")); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
