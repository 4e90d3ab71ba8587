package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/go-chi/chi/v5"
)

// decodeInput fills dst from a JSON body, or from form fields via fromForm.
func decodeInput(r *http.Request, dst any, fromForm func(get func(string) string)) error {
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("invalid request body: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	fromForm(r.PostForm.Get)
	return nil
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	var sel core.Selection
	err := decodeInput(r, &sel, func(get func(string) string) {
		sel = core.Selection{
			LookupColumn: get("lookupColumn"),
			MatchColumn:  get("matchColumn"),
			ReturnColumn: get("returnColumn"),
		}
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	sess, err := s.service.SetSelection(chi.URLParam(r, "sessionID"), sel)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	respondOK(w, r, http.StatusOK, sess.Summarize(), "Column selection saved")
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	suggestion, err := s.service.Suggest(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	notice := fmt.Sprintf("Suggested lookup %q, match %q, return %q.",
		suggestion.LookupColumn, suggestion.MatchColumn, suggestion.ReturnColumn)
	if suggestion.Reasoning != "" {
		notice += " " + suggestion.Reasoning
	}
	respondOK(w, r, http.StatusOK, suggestion, notice)
}

// SingleLookupResponse is the JSON form of a single lookup.
type SingleLookupResponse struct {
	Query   string       `json:"query"`
	Found   bool         `json:"found"`
	Value   lookup.Value `json:"value"`
	Display string       `json:"display"`
	Column  string       `json:"column"`
}

func (s *Server) handleSingleLookup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Value string `json:"value"`
	}
	err := decodeInput(r, &in, func(get func(string) string) {
		in.Value = get("value")
	})
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := s.service.SingleLookup(chi.URLParam(r, "sessionID"), in.Value)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	notice := fmt.Sprintf("Found: %s", res.Display())
	if !res.Found {
		notice = core.FormatUserError(core.ErrNoMatch)
	}
	respondOK(w, r, http.StatusOK, SingleLookupResponse{
		Query:   res.Query,
		Found:   res.Found,
		Value:   res.Value,
		Display: res.Display(),
		Column:  res.Column,
	}, notice)
}

// BulkLookupResponse is the JSON form of a bulk lookup.
type BulkLookupResponse struct {
	Summary    lookup.Summary `json:"summary"`
	Rows       lookup.Table   `json:"rows"`
	DurationMS int64          `json:"durationMs"`
}

func (s *Server) handleBulkLookup(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.BulkLookup(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	notice := fmt.Sprintf("Bulk lookup complete: %d rows processed, %d matched, %d without a match",
		res.Summary.Processed, res.Summary.Matched, res.Summary.Missing)
	respondOK(w, r, http.StatusOK, BulkLookupResponse{
		Summary:    res.Summary,
		Rows:       res.Rows,
		DurationMS: res.Duration.Milliseconds(),
	}, notice)
}
