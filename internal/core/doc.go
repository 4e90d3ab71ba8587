// Package core provides the business logic behind the VLOOKUP workspace.
//
// This package holds all application state and orchestration, independent of
// any UI or transport layer. The join itself lives in package lookup; core
// decides which tables and columns it runs on.
//
// # Sessions
//
// Each browser or API client works inside a [Session]: the two loaded tables,
// their file names, the selected lookup/match/return columns and the most
// recent result table. Sessions live in memory only and expire after the
// configured idle TTL (see [Service.StartSessionSweeper]).
//
// # Loading tables
//
// [Service.LoadTable] parses an uploaded file into a lookup.Table:
//
//  1. A parse slot is acquired from the [ParseLimiter]
//  2. The file extension selects the parser (.xlsx/.xls or CSV)
//  3. CSV input is stripped of a byte order mark and invalid UTF-8
//  4. Rows are keyed by the header row, in file order
//
// Parse failures are returned to the caller; a partially parsed file never
// replaces a loaded table.
//
// # Lookups
//
//   - [Service.SingleLookup]: first matching row for one value
//   - [Service.BulkLookup]: every row of table A joined against table B
//   - [Service.Suggest]: asks the configured [Suggester] for a column mapping
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - LKP001: lookup errors
//   - VAL001-VAL004: selection and column errors
//   - FILE001-FILE006: file errors (size, encoding, format)
//   - SES001-SES002: session errors
//   - SUG001-SUG003: suggestion service errors
//   - UPL001-UPL003: request/processing errors
package core
