package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/JonMunkholm/vlookup/internal/suggest"
	"github.com/google/uuid"
)

// ResultValueColumn is the column holding the query in a single lookup's
// result row.
const ResultValueColumn = "Lookup Value"

// Suggester proposes a column selection for two tables.
type Suggester interface {
	Enabled() bool
	Suggest(ctx context.Context, req suggest.Request) (suggest.Suggestion, error)
}

// Config tunes a Service. Zero fields take defaults.
type Config struct {
	SessionTTL          time.Duration // idle time before a session is swept (default: 2h)
	SweepInterval       time.Duration // how often to sweep (default: 5m)
	SampleRows          int           // rows per table sent to the suggester (default: 3)
	MaxConcurrentParses int
	MaxParseWait        time.Duration
}

const (
	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
	DefaultSampleRows    = 3
)

// Service owns the workspaces. It is safe for concurrent use.
type Service struct {
	cfg       Config
	limiter   *ParseLimiter
	suggester Suggester
	now       func() time.Time
	parse     func(fileName string, r io.Reader) (lookup.Table, error)

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService returns a Service. suggester may be nil, which disables
// column suggestions.
func NewService(cfg Config, suggester Suggester) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.SampleRows <= 0 {
		cfg.SampleRows = DefaultSampleRows
	}
	return &Service{
		cfg:       cfg,
		limiter:   NewParseLimiter(cfg.MaxConcurrentParses, cfg.MaxParseWait),
		suggester: suggester,
		now:       time.Now,
		parse:     ParseFile,
		sessions:  make(map[string]*Session),
	}
}

// Limiter exposes the parse limiter for health reporting and shutdown.
func (s *Service) Limiter() *ParseLimiter {
	return s.limiter
}

// SuggestionsEnabled reports whether Suggest can reach a suggester.
func (s *Service) SuggestionsEnabled() bool {
	return s.suggester != nil && s.suggester.Enabled()
}

// CreateSession starts an empty workspace.
func (s *Service) CreateSession() Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	slog.Debug("session created", "session_id", sess.ID)
	return *sess
}

// GetSession returns a copy of the session. Tables in the copy share
// backing arrays with the stored session but are never mutated in place.
func (s *Service) GetSession(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return *sess, nil
}

// DeleteSession discards a workspace.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	return nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// update runs fn on the stored session under the write lock.
func (s *Service) update(id string, fn func(*Session) error) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := fn(sess); err != nil {
		return Session{}, err
	}
	sess.UpdatedAt = s.now()
	sess.Version++
	return *sess, nil
}

// storeResults saves a computed result table unless the session was written
// after version seen, in which case the results describe stale inputs and
// are dropped.
func (s *Service) storeResults(id string, seen uint64, rows lookup.Table, summary *lookup.Summary) (bool, error) {
	stored := false
	_, err := s.update(id, func(sess *Session) error {
		if sess.Version != seen {
			return nil
		}
		sess.Results = rows
		sess.Summary = summary
		stored = true
		return nil
	})
	if err == nil && !stored {
		slog.Debug("session changed during lookup; results not stored", "session_id", id)
	}
	return stored, err
}

// Summarize returns the JSON view of a session.
func (s *Service) Summarize(id string) (SessionSummary, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return SessionSummary{}, err
	}
	return sess.Summarize(), nil
}

// Summarize builds the JSON view of sess.
func (sess Session) Summarize() SessionSummary {
	return SessionSummary{
		ID:            sess.ID,
		FileNameA:     sess.FileNameA,
		FileNameB:     sess.FileNameB,
		RowsA:         len(sess.TableA),
		RowsB:         len(sess.TableB),
		ColumnsA:      orEmpty(sess.TableA.Columns()),
		ColumnsB:      orEmpty(sess.TableB.Columns()),
		CommonColumns: lookup.FindCommonColumns(sess.TableA, sess.TableB),
		Selection:     sess.Selection,
		ResultRows:    len(sess.Results),
		Summary:       sess.Summary,
		UpdatedAt:     sess.UpdatedAt,
	}
}

// LoadTable parses a file into one of the session's table slots, replacing
// whatever was there. Previous results are discarded.
func (s *Service) LoadTable(ctx context.Context, id string, slot Slot, fileName string, r io.Reader) (LoadResult, error) {
	if _, err := s.GetSession(id); err != nil {
		return LoadResult{}, err
	}

	start := time.Now()
	table, err := s.parseLimited(ctx, fileName, r)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", fileName, err)
	}

	_, err = s.update(id, func(sess *Session) error {
		if slot == SlotA {
			sess.TableA, sess.FileNameA = table, fileName
		} else {
			sess.TableB, sess.FileNameB = table, fileName
		}
		sess.Results = nil
		sess.Summary = nil
		return nil
	})
	if err != nil {
		return LoadResult{}, err
	}

	slog.Info("table loaded",
		"session_id", id,
		"slot", slot,
		"file", fileName,
		"rows", len(table),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return LoadResult{
		Slot:     slot,
		FileName: fileName,
		Rows:     len(table),
		Columns:  table.Columns(),
	}, nil
}

// parseLimited parses under a limiter slot. The slot is released even if
// a parser panics on hostile input.
func (s *Service) parseLimited(ctx context.Context, fileName string, r io.Reader) (lookup.Table, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()
	return s.parse(fileName, r)
}

// SetSelection stores the chosen columns. Partial selections are allowed.
func (s *Service) SetSelection(id string, sel Selection) (Session, error) {
	return s.update(id, func(sess *Session) error {
		sess.Selection = sel
		return nil
	})
}

// CommonColumns returns the columns shared by both tables, in table B order.
func (s *Service) CommonColumns(id string) ([]string, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}
	return lookup.FindCommonColumns(sess.TableA, sess.TableB), nil
}

// SingleLookup finds value in table B's match column and records a one-row
// result table holding the query and the returned value.
func (s *Service) SingleLookup(id, value string) (SingleResult, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return SingleResult{}, err
	}

	sel := sess.Selection
	if sel.MatchColumn == "" || sel.ReturnColumn == "" {
		return SingleResult{}, ErrSelectionIncomplete
	}
	if strings.TrimSpace(value) == "" {
		return SingleResult{}, ErrEmptyLookupValue
	}
	if len(sess.TableB) == 0 {
		return SingleResult{}, fmt.Errorf("%w: table %s", ErrEmptyTable, SlotB)
	}
	if err := requireColumns(sess.TableB, SlotB, sel.MatchColumn, sel.ReturnColumn); err != nil {
		return SingleResult{}, err
	}

	found, ok := lookup.SingleLookup(value, sess.TableB, sel.MatchColumn, sel.ReturnColumn)
	result := SingleResult{
		Query:  value,
		Found:  ok,
		Value:  found,
		Column: sel.ReturnColumn,
	}

	cell := found
	if !ok || found.IsAbsent() {
		cell = lookup.StringValue(lookup.NoMatch)
	}
	row := lookup.NewRecord(
		lookup.Field{Name: ResultValueColumn, Value: lookup.StringValue(value)},
		lookup.Field{Name: sel.ReturnColumn, Value: cell},
	)

	if _, err := s.storeResults(id, sess.Version, lookup.Table{row}, nil); err != nil {
		return SingleResult{}, err
	}
	return result, nil
}

// BulkLookup joins every row of table A against table B and stores the
// merged table as the session's results.
func (s *Service) BulkLookup(id string) (BulkResult, error) {
	sess, err := s.GetSession(id)
	if err != nil {
		return BulkResult{}, err
	}

	sel := sess.Selection
	if sel.LookupColumn == "" || sel.MatchColumn == "" || sel.ReturnColumn == "" {
		return BulkResult{}, ErrSelectionIncomplete
	}
	if len(sess.TableA) == 0 {
		return BulkResult{}, fmt.Errorf("%w: table %s", ErrEmptyTable, SlotA)
	}
	if len(sess.TableB) == 0 {
		return BulkResult{}, fmt.Errorf("%w: table %s", ErrEmptyTable, SlotB)
	}
	if err := requireColumns(sess.TableA, SlotA, sel.LookupColumn); err != nil {
		return BulkResult{}, err
	}
	if err := requireColumns(sess.TableB, SlotB, sel.MatchColumn, sel.ReturnColumn); err != nil {
		return BulkResult{}, err
	}

	start := time.Now()
	rows, summary := lookup.BulkLookupWithSummary(sess.TableA, sess.TableB, sel.LookupColumn, sel.MatchColumn, sel.ReturnColumn)
	elapsed := time.Since(start)

	if _, err := s.storeResults(id, sess.Version, rows, &summary); err != nil {
		return BulkResult{}, err
	}

	slog.Info("bulk lookup completed",
		"session_id", id,
		"processed", summary.Processed,
		"matched", summary.Matched,
		"missing", summary.Missing,
		"duration_ms", elapsed.Milliseconds(),
	)

	return BulkResult{Rows: rows, Summary: summary, Duration: elapsed}, nil
}

// Suggest asks the suggester for a column selection and applies the
// non-empty parts of its answer to the session.
func (s *Service) Suggest(ctx context.Context, id string) (suggest.Suggestion, error) {
	if !s.SuggestionsEnabled() {
		return suggest.Suggestion{}, suggest.ErrNotConfigured
	}

	sess, err := s.GetSession(id)
	if err != nil {
		return suggest.Suggestion{}, err
	}
	if len(sess.TableA) == 0 || len(sess.TableB) == 0 {
		return suggest.Suggestion{}, ErrEmptyTable
	}

	req := suggest.Request{
		ColumnsA: sess.TableA.Columns(),
		ColumnsB: sess.TableB.Columns(),
		SampleA:  Head(sess.TableA, s.cfg.SampleRows),
		SampleB:  Head(sess.TableB, s.cfg.SampleRows),
	}
	suggestion, err := s.suggester.Suggest(ctx, req)
	if err != nil {
		return suggest.Suggestion{}, err
	}

	_, err = s.update(id, func(sess *Session) error {
		if suggestion.LookupColumn != "" {
			sess.Selection.LookupColumn = suggestion.LookupColumn
		}
		if suggestion.MatchColumn != "" {
			sess.Selection.MatchColumn = suggestion.MatchColumn
		}
		if suggestion.ReturnColumn != "" {
			sess.Selection.ReturnColumn = suggestion.ReturnColumn
		}
		return nil
	})
	if err != nil {
		return suggest.Suggestion{}, err
	}
	return suggestion, nil
}

// requireColumns checks that every col appears in at least one record.
// Spreadsheet rows omit empty cells, so the first record alone is not enough.
func requireColumns(t lookup.Table, slot Slot, cols ...string) error {
	for _, col := range cols {
		if !anyHasColumn(t, col) {
			return fmt.Errorf("%w: %q not in table %s", ErrMissingColumn, col, slot)
		}
	}
	return nil
}

func anyHasColumn(t lookup.Table, col string) bool {
	for _, rec := range t {
		if rec.Has(col) {
			return true
		}
	}
	return false
}

func orEmpty(cols []string) []string {
	if cols == nil {
		return []string{}
	}
	return cols
}

// Head returns the first n rows of t, or all of t when n is negative or
// larger than the table.
func Head(t lookup.Table, n int) lookup.Table {
	if n < 0 || n > len(t) {
		n = len(t)
	}
	return t[:n]
}
