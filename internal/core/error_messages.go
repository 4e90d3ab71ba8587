package core

// error_messages.go maps technical errors to user-facing messages.
//
// Users can quote the code to support staff. Codes are grouped by category:
//
//	LKP001  - No match found for a single lookup value
//	VAL001  - Column selection incomplete
//	VAL002  - Selected column not present in the table
//	VAL003  - One of the tables has no rows
//	VAL004  - Unknown table slot
//	VAL005  - Lookup value missing or blank
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE003 - Invalid spreadsheet
//	FILE004 - No file provided
//	FILE005 - Empty file
//	FILE006 - Duplicate or blank header
//	SES001  - Session not found
//	SES002  - Nothing to export
//	SES003  - Unsupported export format
//	SUG001  - Suggestion quota exhausted
//	SUG002  - Suggestions not configured
//	SUG003  - Suggestion service failed
//	UPL001  - Too many files being processed
//	UPL002  - Request cancelled
//	UPL003  - Request timed out
//	RATE001 - Rate limited
//	ERR000  - Anything else; check the logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns precede general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Lookup
	{
		pattern: "no match found",
		msg: UserMessage{
			Message: "No match found",
			Action:  "Check the lookup value or pick a different match column",
			Code:    "LKP001",
		},
	},

	// Selection and columns
	{
		pattern: "column selection incomplete",
		msg: UserMessage{
			Message: "Please select all required columns",
			Action:  "Choose the lookup, match and return columns",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing column",
		msg: UserMessage{
			Message: "Selected column does not exist in the table",
			Action:  "Pick a column from the table's header row",
			Code:    "VAL002",
		},
	},
	{
		pattern: "empty table",
		msg: UserMessage{
			Message: "Please upload both tables",
			Action:  "Load a file with at least one data row into table A and table B",
			Code:    "VAL003",
		},
	},
	{
		pattern: "unknown table slot",
		msg: UserMessage{
			Message: "Unknown table",
			Action:  "Use table A or table B",
			Code:    "VAL004",
		},
	},
	{
		pattern: "lookup value required",
		msg: UserMessage{
			Message: "Please enter a value to look up",
			Action:  "Type a key from the match column",
			Code:    "VAL005",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "Error parsing CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid spreadsheet",
		msg: UserMessage{
			Message: "Error parsing Excel file",
			Action:  "Save the workbook as .xlsx with headers in the first row",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a file with a header row and data rows",
			Code:    "FILE005",
		},
	},
	{
		pattern: "duplicate or blank header",
		msg: UserMessage{
			Message: "The header row has blank or repeated column names",
			Action:  "Give every column a unique name",
			Code:    "FILE006",
		},
	},

	// Sessions and export
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "Workspace not found",
			Action:  "The workspace may have expired. Start a new one",
			Code:    "SES001",
		},
	},
	{
		pattern: "no results to export",
		msg: UserMessage{
			Message: "No results to export",
			Action:  "Run a lookup first",
			Code:    "SES002",
		},
	},
	{
		pattern: "unsupported export format",
		msg: UserMessage{
			Message: "Unsupported export format",
			Action:  "Choose csv or parquet",
			Code:    "SES003",
		},
	},

	// Rate limiting must precede the generic suggestion patterns
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Rate limit exceeded",
			Action:  "Please try again later",
			Code:    "RATE001",
		},
	},
	{
		pattern: "quota exhausted",
		msg: UserMessage{
			Message: "AI credits depleted",
			Action:  "Please add credits to continue",
			Code:    "SUG001",
		},
	},
	{
		pattern: "suggestions not configured",
		msg: UserMessage{
			Message: "AI suggestions are not available",
			Action:  "Select the columns manually",
			Code:    "SUG002",
		},
	},
	{
		pattern: "suggestion service",
		msg: UserMessage{
			Message: "Failed to get AI suggestions",
			Action:  "Using manual selection",
			Code:    "SUG003",
		},
	},

	// Processing
	{
		pattern: "too many files",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "UPL001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL003",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, a generic fallback with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("load table: %w", ErrEmptyFile))
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display:
// "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
