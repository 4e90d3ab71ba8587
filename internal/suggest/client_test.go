package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JonMunkholm/vlookup/internal/lookup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRequest() Request {
	return Request{
		ColumnsA: []string{"employee_id", "name", "dept_code"},
		ColumnsB: []string{"code", "department", "floor"},
		SampleA: lookup.Table{lookup.NewRecord(
			lookup.Field{Name: "employee_id", Value: lookup.StringValue("1")},
			lookup.Field{Name: "name", Value: lookup.StringValue("Ann")},
			lookup.Field{Name: "dept_code", Value: lookup.StringValue("ENG")},
		)},
		SampleB: lookup.Table{lookup.NewRecord(
			lookup.Field{Name: "code", Value: lookup.StringValue("ENG")},
			lookup.Field{Name: "department", Value: lookup.StringValue("Engineering")},
			lookup.Field{Name: "floor", Value: lookup.StringValue("3")},
		)},
	}
}

// chatServer answers every request with the given status and assistant content.
func chatServer(t *testing.T, status int, content string, seen *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newTestClient(url string) *Client {
	return NewClient(Config{URL: url, APIKey: "test-key", Model: "test-model"}, nil)
}

func TestClient_Suggest(t *testing.T) {
	var seen chatRequest
	answer := "Sure:\n```json\n{\"lookupColumn\":\"dept_code\",\"matchColumn\":\"code\",\"returnColumn\":\"department\",\"reasoning\":\"codes line up\"}\n```"
	srv := chatServer(t, http.StatusOK, answer, &seen)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, Suggestion{
		LookupColumn: "dept_code",
		MatchColumn:  "code",
		ReturnColumn: "department",
		Reasoning:    "codes line up",
	}, got)

	assert.Equal(t, "test-model", seen.Model)
	require.Len(t, seen.Messages, 2)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "user", seen.Messages[1].Role)
	assert.Contains(t, seen.Messages[1].Content, "Table A columns: employee_id, name, dept_code")
	assert.Contains(t, seen.Messages[1].Content, `Table B sample (first row): {"code":"ENG","department":"Engineering","floor":"3"}`)
}

func TestClient_Suggest_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"quota exhausted", http.StatusPaymentRequired, ErrQuotaExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, tt.status, "", nil)
			defer srv.Close()

			_, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("other status", func(t *testing.T) {
		srv := chatServer(t, http.StatusBadGateway, "", nil)
		defer srv.Close()

		_, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		assert.Contains(t, statusErr.Body, "nope")
	})
}

func TestClient_Suggest_NotConfigured(t *testing.T) {
	c := NewClient(Config{}, nil)
	assert.False(t, c.Enabled())

	_, err := c.Suggest(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Suggest_Fallback(t *testing.T) {
	srv := chatServer(t, http.StatusOK, "I would match dept_code to code.", nil)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Suggest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, Suggestion{
		LookupColumn: "employee_id",
		MatchColumn:  "code",
		ReturnColumn: "department",
		Reasoning:    "I would match dept_code to code.",
	}, got)
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		columnsA []string
		columnsB []string
		want     Suggestion
	}{
		{
			name:     "bare object",
			answer:   `{"lookupColumn":"a","matchColumn":"b","returnColumn":"c"}`,
			columnsA: []string{"x"},
			columnsB: []string{"y"},
			want:     Suggestion{LookupColumn: "a", MatchColumn: "b", ReturnColumn: "c"},
		},
		{
			name:     "invalid json falls back",
			answer:   "{not json}",
			columnsA: []string{"id"},
			columnsB: []string{"key", "val"},
			want:     Suggestion{LookupColumn: "id", MatchColumn: "key", ReturnColumn: "val", Reasoning: "{not json}"},
		},
		{
			name:     "single column in B returns it twice",
			answer:   "no idea",
			columnsA: []string{"id"},
			columnsB: []string{"key"},
			want:     Suggestion{LookupColumn: "id", MatchColumn: "key", ReturnColumn: "key", Reasoning: "no idea"},
		},
		{
			name:   "no columns",
			answer: "",
			want:   Suggestion{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnswer(tt.answer, tt.columnsA, tt.columnsB))
		})
	}
}

func TestBuildPrompt_EmptySample(t *testing.T) {
	prompt := BuildPrompt(Request{ColumnsA: []string{"a"}, ColumnsB: []string{"b"}})
	assert.True(t, strings.Contains(prompt, "Table A sample (first row): undefined"))
}
