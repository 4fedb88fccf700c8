package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClientWithBaseURL("test-key", "test-model", srv.URL)
}

func TestChatJSON(t *testing.T) {
	var gotBody []byte
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"category\":\"conversation\"}"}}]}`))
	})

	got, err := c.ChatJSON(context.Background(), []Message{
		{Role: "system", Content: "classify"},
		{Role: "user", Content: "hello"},
	})
	if err != nil {
		t.Fatalf("ChatJSON: %v", err)
	}
	if got != `{"category":"conversation"}` {
		t.Errorf("content = %q", got)
	}

	var req map[string]any
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("request body not JSON: %v", err)
	}
	if req["model"] != "test-model" {
		t.Errorf("model = %v", req["model"])
	}
	rf, _ := req["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("response_format = %v", req["response_format"])
	}
}

func TestChatJSON_ImageBecomesMultipart(t *testing.T) {
	var gotBody []byte
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	})

	_, err := c.ChatJSON(context.Background(), []Message{
		{Role: "user", Content: "what is in this meal", ImageURL: "data:image/png;base64,xyz"},
	})
	if err != nil {
		t.Fatalf("ChatJSON: %v", err)
	}
	if !strings.Contains(string(gotBody), `"image_url"`) {
		t.Errorf("image part missing from request: %s", gotBody)
	}
	if !strings.Contains(string(gotBody), `"type":"text"`) {
		t.Errorf("text part missing from request: %s", gotBody)
	}
}

func TestChatJSON_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	got, err := c.ChatJSON(context.Background(), []Message{{Role: "user", Content: "x"}})
	if err != nil {
		t.Fatalf("ChatJSON: %v", err)
	}
	if got != "ok" || calls.Load() != 2 {
		t.Errorf("got %q after %d calls", got, calls.Load())
	}
}

func TestChatJSON_ServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom"}}`))
	})

	if _, err := c.ChatJSON(context.Background(), []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"clean", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"filler", `Sure! Here you go: {"a":1}`, `{"a":1}`, false},
		{"none", "no json here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
