package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ambitious/internal/config"
	"ambitious/internal/model"
)

func testProviders(url string) config.ProvidersConfig {
	pc := config.ProviderConfig{APIKey: "k", Model: "m", BaseURL: url, Timeout: 5 * time.Second}
	return config.ProvidersConfig{OpenAI: pc, Claude: pc, XAI: pc, RPS: 100, Burst: 100, MaxAttempts: 3, BaseBackoff: 5 * time.Millisecond}
}

func TestGeneratePostSendsHistoryToAvoid(t *testing.T) {
	var body string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing bearer token")
		}
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Post: \"Finally ran my first 10k!\""}}]}`))
	}))
	defer ts.Close()

	p, err := NewFactory(testProviders(ts.URL)).New(model.AIModelOpenAI, 0.9)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.GeneratePost(context.Background(), PostRequest{
		Persona:       Persona{Name: "Maya", Description: "runner", Tone: model.ToneCasual, Topics: []string{"running"}},
		PostType:      model.PostTypeWin,
		PreviousPosts: []string{"Just crushed a morning 5k before work", "Coffee then hills"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Content != "Finally ran my first 10k!" || res.PostType != model.PostTypeWin {
		t.Fatalf("unexpected result: %+v", res)
	}
	var sent chatRequest
	if err := json.Unmarshal([]byte(body), &sent); err != nil {
		t.Fatal(err)
	}
	user := sent.Messages[1].Content
	if !strings.Contains(user, "Just crushed a morning 5k before work") || !strings.Contains(user, "Do NOT repeat") {
		t.Fatalf("history not injected as things to avoid: %s", user)
	}
	if sent.Temperature != 0.9 {
		t.Fatalf("temperature not forwarded: %v", sent.Temperature)
	}
}

func TestClaudeCommentUsesMessagesAPI(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" || r.Header.Get("x-api-key") != "k" || r.Header.Get("anthropic-version") == "" {
			t.Errorf("unexpected request %s %v", r.URL.Path, r.Header)
		}
		var req claudeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if !strings.Contains(req.Messages[0].Content, "@sam") || !strings.Contains(req.System, "follow-up question") {
			t.Errorf("comment prompt missing target or style: %+v", req)
		}
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"How long did you train for?"}]}`))
	}))
	defer ts.Close()

	p, err := NewFactory(testProviders(ts.URL)).New(model.AIModelClaude, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.GenerateComment(context.Background(), CommentRequest{
		Persona:        Persona{Name: "Leo"},
		Style:          model.StyleCurious,
		PostContent:    "Ran a marathon!",
		PostType:       model.PostTypeWin,
		AuthorUsername: "sam",
	})
	if err != nil || res.Content != "How long did you train for?" {
		t.Fatalf("unexpected comment: %v %+v", err, res)
	}
}

func TestTransportRetries429(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer ts.Close()

	p, _ := NewFactory(testProviders(ts.URL)).New(model.AIModelXAI, 0.7)
	out, err := p.Complete(context.Background(), "s", "u")
	if err != nil || out != "ok" {
		t.Fatalf("expected success after retry: %v %q", err, out)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", attempts)
	}
}

func TestTransportGivesUpWithStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad"}`))
	}))
	defer ts.Close()

	p, _ := NewFactory(testProviders(ts.URL)).New(model.AIModelOpenAI, 0.7)
	_, err := p.GeneratePost(context.Background(), PostRequest{PostType: model.PostTypeAsk})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadRequest {
		t.Fatalf("expected StatusError 400, got %v", err)
	}
}

func TestTransportRetriesWaitOnLimiter(t *testing.T) {
	var attempts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	// One token per 100ms and no burst headroom: three attempts need two refills.
	tr := NewTransport("test", 5*time.Second, 10, 1, 3, time.Millisecond)
	start := time.Now()
	var out map[string]any
	err := tr.PostJSON(context.Background(), ts.URL, nil, map[string]string{"q": "x"}, &out)
	elapsed := time.Since(start)

	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if elapsed < 150*time.Millisecond {
		t.Fatalf("retries bypassed the limiter: 3 attempts in %s", elapsed)
	}
}

func TestFactoryErrors(t *testing.T) {
	f := NewFactory(config.ProvidersConfig{})
	if _, err := f.New("gemini", 0.5); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	if _, err := f.New(model.AIModelOpenAI, 0.5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestPostPromptFullCharacterPromptOverridesDescription(t *testing.T) {
	sys := PostSystemPrompt(Persona{Name: "Ivy", Description: "short bio", Prompt: "You grew up in Lisbon and paint murals."})
	if strings.Contains(sys, "short bio") || !strings.Contains(sys, "Lisbon") {
		t.Fatalf("character prompt should replace description: %s", sys)
	}
}
