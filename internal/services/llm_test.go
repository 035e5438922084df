package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buckminster/backend/internal/models"
)

func completionBody(content string) string {
	quoted, _ := json.Marshal(content)
	return `{"choices":[{"message":{"role":"assistant","content":` + string(quoted) + `}}]}`
}

func stageConfig(url string) models.ModelConfig {
	return models.ModelConfig{BaseURL: url, APIKey: "secret-key", ModelID: "model-x"}
}

func TestDescribe_SendsImageAndParsesContent(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret-key" {
			t.Errorf("expected bearer credential, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("  a screenshot of a quiz  ")))
	}))
	defer srv.Close()

	c := NewLLMClient()
	out, err := c.Describe(context.Background(), "aW1hZ2U=", stageConfig(srv.URL))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if out != "a screenshot of a quiz" {
		t.Errorf("expected trimmed content, got %q", out)
	}
	if got["model"] != "model-x" {
		t.Errorf("expected configured model id, got %v", got["model"])
	}
	raw, _ := json.Marshal(got)
	if !strings.Contains(string(raw), "data:image/png;base64,aW1hZ2U=") {
		t.Error("request must embed the base64 image as a data URL")
	}
}

func TestAnswer_SendsSystemPromptAndDescription(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Write([]byte(completionBody("[OPTION:A]<answer>A</answer>")))
	}))
	defer srv.Close()

	c := NewLLMClient()
	out, err := c.Answer(context.Background(), "options A and B shown", stageConfig(srv.URL))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if out != "[OPTION:A]<answer>A</answer>" {
		t.Errorf("unexpected answer %q", out)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("expected system+user messages, got %+v", got.Messages)
	}
	if got.Messages[1].Content != "options A and B shown" {
		t.Errorf("user message must carry the description, got %v", got.Messages[1].Content)
	}
	if got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", got.Temperature)
	}
}

func TestComplete_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewLLMClient()
	_, err := c.Describe(context.Background(), "img", stageConfig(srv.URL))
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Stage != "vision" {
		t.Errorf("expected vision stage attribution, got %q", ue.Stage)
	}
}

func TestComplete_MalformedBody(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway error</html>"},
		{"missing choices", `{"error":{"message":"bad request"}}`},
		{"empty choices", `{"choices":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewLLMClient()
			_, err := c.Answer(context.Background(), "desc", stageConfig(srv.URL))
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
		})
	}
}

func TestComplete_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // refuse further connections

	c := NewLLMClient()
	_, err := c.Describe(context.Background(), "img", stageConfig(srv.URL))
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError on transport failure, got %v", err)
	}
}
