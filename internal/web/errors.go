package web

// errors.go provides unified error response handling for the web layer.
//
// Technical errors are logged with the request ID and mapped through
// core.MapError to a user-facing message. The response format follows the
// client: an HTML fragment for HTMX, a redirect back to the workspace for
// browser form posts, JSON otherwise.

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/vlookup/internal/core"
	"github.com/JonMunkholm/vlookup/internal/logging"
	"github.com/JonMunkholm/vlookup/internal/suggest"
	"github.com/JonMunkholm/vlookup/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var statusErr *suggest.StatusError
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyParses), errors.Is(err, suggest.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, suggest.ErrQuotaExhausted):
		return http.StatusPaymentRequired
	case errors.Is(err, suggest.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrNoResults):
		return http.StatusConflict
	case core.IsUserFacing(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and renders a user-facing message in the format the
// client expects. A zero statusCode derives the status from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case isBrowserForm(r):
		redirectToSession(w, r, "error", core.FormatUserError(err))
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// respondOK sends v as JSON, or sends browser form posts back to the
// workspace with notice.
func respondOK(w http.ResponseWriter, r *http.Request, status int, v any, notice string) {
	if isBrowserForm(r) {
		redirectToSession(w, r, "notice", notice)
		return
	}
	writeJSON(w, status, v)
}

// redirectToSession sends the browser back to the workspace page with a
// message in the query string.
func redirectToSession(w http.ResponseWriter, r *http.Request, key, message string) {
	target := "/"
	if id := chi.URLParam(r, "sessionID"); id != "" {
		target = "/sessions/" + url.PathEscape(id)
	}
	if message != "" {
		target += "?" + url.Values{key: {message}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// isBrowserForm reports whether r is a plain HTML form submission from a
// browser, which expects a page rather than JSON.
func isBrowserForm(r *http.Request) bool {
	if r.Method != http.MethodPost || isHTMX(r) {
		return false
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
