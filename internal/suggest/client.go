// Package suggest asks a chat-completion model which columns to use for a
// lookup.
//
// The service speaks the OpenAI-compatible /chat/completions protocol. The
// model is shown both column lists and one sample row per table, and is asked
// to answer with a JSON object. Answers that carry no usable JSON fall back to
// a positional guess so the caller always gets a complete suggestion.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/JonMunkholm/vlookup/internal/lookup"
)

var (
	ErrNotConfigured  = errors.New("suggestions not configured")
	ErrRateLimited    = errors.New("suggestion service: rate limit exceeded")
	ErrQuotaExhausted = errors.New("suggestion service: quota exhausted")
)

// StatusError is returned for non-2xx responses other than 402 and 429.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("suggestion service: unexpected status %d", e.StatusCode)
}

const (
	DefaultURL     = "https://ai.gateway.lovable.dev/v1/chat/completions"
	DefaultModel   = "openai/gpt-5"
	DefaultTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

const systemPrompt = "You are a data analysis expert specializing in Excel VLOOKUP operations. Provide concise, accurate suggestions."

// Request describes the two tables to suggest columns for.
type Request struct {
	ColumnsA []string
	ColumnsB []string
	SampleA  lookup.Table
	SampleB  lookup.Table
}

// Suggestion is the model's proposed column selection.
type Suggestion struct {
	LookupColumn string `json:"lookupColumn"`
	MatchColumn  string `json:"matchColumn"`
	ReturnColumn string `json:"returnColumn"`
	Reasoning    string `json:"reasoning"`
}

// Config configures a Client.
type Config struct {
	URL     string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client calls the suggestion service.
type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

// NewClient returns a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		http:   httpClient,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Suggest asks the model for a column selection.
func (c *Client) Suggest(ctx context.Context, req Request) (Suggestion, error) {
	if !c.Enabled() {
		return Suggestion{}, ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
	})
	if err != nil {
		return Suggestion{}, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Suggestion{}, fmt.Errorf("suggestion service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Suggestion{}, ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return Suggestion{}, ErrQuotaExhausted
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Suggestion{}, &StatusError{StatusCode: resp.StatusCode, Body: string(text)}
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return Suggestion{}, fmt.Errorf("suggestion service: decode response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Suggestion{}, errors.New("suggestion service: empty response")
	}

	return ParseAnswer(chat.Choices[0].Message.Content, req.ColumnsA, req.ColumnsB), nil
}

// BuildPrompt renders the user message for req.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a data analysis expert. Given two CSV tables, suggest the best column mappings for a VLOOKUP operation.\n\n")
	fmt.Fprintf(&b, "Table A columns: %s\n", strings.Join(req.ColumnsA, ", "))
	fmt.Fprintf(&b, "Table A sample (first row): %s\n\n", firstRowJSON(req.SampleA))
	fmt.Fprintf(&b, "Table B columns: %s\n", strings.Join(req.ColumnsB, ", "))
	fmt.Fprintf(&b, "Table B sample (first row): %s\n\n", firstRowJSON(req.SampleB))
	b.WriteString("Analyze the column names and sample data, then suggest:\n")
	b.WriteString("1. Which column from Table A should be used as the lookup column (the key we're searching for)\n")
	b.WriteString("2. Which column from Table B should be used as the match column (the key to match against)\n")
	b.WriteString("3. Which column from Table B should be returned as the result\n\n")
	b.WriteString("Provide your response as a JSON object with these exact keys: lookupColumn, matchColumn, returnColumn.\n")
	b.WriteString(`Also include a "reasoning" field explaining why you made these suggestions.`)
	return b.String()
}

func firstRowJSON(t lookup.Table) string {
	if len(t) == 0 {
		return lookup.AbsentValue().String()
	}
	data, err := json.Marshal(t[0])
	if err != nil {
		return lookup.AbsentValue().String()
	}
	return string(data)
}

var jsonObject = regexp.MustCompile(`\{[\s\S]*\}`)

// ParseAnswer extracts a Suggestion from the model's reply. When the reply
// holds no parseable JSON object the first column of A is paired with the
// first column of B, returning B's second column (or its first when B has
// only one), and the raw reply becomes the reasoning.
func ParseAnswer(answer string, columnsA, columnsB []string) Suggestion {
	if m := jsonObject.FindString(answer); m != "" {
		var s Suggestion
		if err := json.Unmarshal([]byte(m), &s); err == nil {
			return s
		}
	}
	return fallback(answer, columnsA, columnsB)
}

func fallback(answer string, columnsA, columnsB []string) Suggestion {
	s := Suggestion{Reasoning: answer}
	if len(columnsA) > 0 {
		s.LookupColumn = columnsA[0]
	}
	if len(columnsB) > 0 {
		s.MatchColumn = columnsB[0]
		s.ReturnColumn = columnsB[0]
	}
	if len(columnsB) > 1 {
		s.ReturnColumn = columnsB[1]
	}
	return s
}
