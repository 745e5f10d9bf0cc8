package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/morphlane/relaychat/llm"
)

func TestChatSuccessAndRoleMapping(t *testing.T) {
	t.Parallel()

	var gotBody generateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1beta/models/gemini-pro:generateContent") {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("key"); got != "g-key" {
			t.Errorf("key = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request decode error = %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"при"},{"text":"вет"}]}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "g-key", "")
	res, err := c.Chat(context.Background(), llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "answer briefly"},
			{Role: llm.RoleUser, Content: "q1"},
			{Role: llm.RoleAssistant, Content: "a1"},
			{Role: llm.RoleUser, Content: "q2"},
		},
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if res.Text != "привет" {
		t.Fatalf("Chat() text = %q", res.Text)
	}

	roles := make([]string, len(gotBody.Contents))
	for i, c := range gotBody.Contents {
		roles[i] = c.Role
	}
	want := []string{"user", "model", "user", "model", "user"}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Fatalf("request roles = %v, want %v", roles, want)
	}
	if gotBody.Contents[1].Parts[0].Text != "Ok." {
		t.Fatalf("system priming reply = %q, want Ok.", gotBody.Contents[1].Parts[0].Text)
	}
	if len(gotBody.SafetySettings) != 4 {
		t.Fatalf("safety settings = %d, want 4", len(gotBody.SafetySettings))
	}
}

func TestChatErrorMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exhausted"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "g-key", "")
	_, err := c.Chat(context.Background(), llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("Chat() error = %v, want quota message", err)
	}
}

func TestChatEmptyCandidates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "g-key", "")
	_, err := c.Chat(context.Background(), llm.Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("Chat() expected error for empty candidates")
	}
}
