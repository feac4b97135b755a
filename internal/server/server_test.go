package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mtb-digital/banking-assistant/internal/banking"
	"github.com/mtb-digital/banking-assistant/internal/chatbot"
	"github.com/mtb-digital/banking-assistant/internal/flow"
	"github.com/mtb-digital/banking-assistant/internal/llm"
	"github.com/mtb-digital/banking-assistant/internal/services"
	"github.com/mtb-digital/banking-assistant/internal/session"
	"github.com/mtb-digital/banking-assistant/internal/telemetry"
	"github.com/mtb-digital/banking-assistant/internal/tools"
)

func newTestServer(t *testing.T, responses ...llm.MockResponse) *httptest.Server {
	t.Helper()

	client := banking.NewMockClient(nil)
	authSvc := services.NewAuthService(client, nil)
	accountSvc := services.NewAccountService(client, authSvc, nil)
	mobileSvc := services.NewMobileAuthService(client, nil)

	registry := tools.NewRegistry()
	for _, svc := range []tools.Service{authSvc, accountSvc, mobileSvc} {
		if err := registry.RegisterService(svc); err != nil {
			t.Fatalf("register service: %v", err)
		}
	}

	bot, err := chatbot.New(chatbot.Config{
		LLM:           llm.NewMockClient(responses...),
		Registry:      registry,
		Flows:         flow.NewManager(nil),
		Contexts:      session.NewContextManager(nil),
		Auth:          session.NewAuthManager(session.DefaultAuthTTL),
		Conversations: session.NewConversationManager("You are a banking assistant."),
		Metrics:       telemetry.NewMetrics(),
	})
	if err != nil {
		t.Fatalf("new chatbot: %v", err)
	}

	srv := httptest.NewServer(New(bot, WithMetrics(telemetry.NewMetrics())).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, out
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestChatGeneratesSessionID(t *testing.T) {
	srv := newTestServer(t)

	resp, out := postJSON(t, srv.URL+"/chat", `{"message": "what is my balance?", "caller_id": "01712345678"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if out["session_id"] == "" || out["session_id"] == nil {
		t.Error("server should generate a session id")
	}
	reply, _ := out["response"].(string)
	if !strings.Contains(reply, "last 4 digits") {
		t.Errorf("response = %q", reply)
	}
}

func TestChatPreservesSessionID(t *testing.T) {
	srv := newTestServer(t)

	_, out := postJSON(t, srv.URL+"/chat", `{"message": "5678", "session_id": "abc", "caller_id": "01712345678"}`)
	if out["session_id"] != "abc" {
		t.Errorf("session_id = %v", out["session_id"])
	}
	reply, _ := out["response"].(string)
	if !strings.Contains(reply, "131100***5678") {
		t.Errorf("response = %q", reply)
	}
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/chat", `{"session_id": "abc"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestIVRChatCallerFromHeader(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/ivr/chat", strings.NewReader(`{"message": "5678"}`))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Caller-ID", "8801712345678")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	reply, _ := out["response"].(string)
	if !strings.Contains(reply, "131100***5678") {
		t.Errorf("response = %q", reply)
	}
	sessionID, _ := out["session_id"].(string)
	if !strings.HasPrefix(sessionID, "ivr_") {
		t.Errorf("session_id = %q, want ivr_ prefix", sessionID)
	}
}

func TestIVRChatCallerFromQuery(t *testing.T) {
	srv := newTestServer(t)

	_, out := postJSON(t, srv.URL+"/ivr/chat?cli=01712345678", `{"message": "5678"}`)
	reply, _ := out["response"].(string)
	if !strings.Contains(reply, "131100***5678") {
		t.Errorf("response = %q", reply)
	}
}

func TestEndSessionFlow(t *testing.T) {
	srv := newTestServer(t)

	postJSON(t, srv.URL+"/chat", `{"message": "5678", "session_id": "s1", "caller_id": "01712345678"}`)
	resp, out := postJSON(t, srv.URL+"/end_session", `{"session_id": "s1"}`)
	if resp.StatusCode != http.StatusOK || out["status"] != "success" {
		t.Errorf("status = %d, body = %v", resp.StatusCode, out)
	}

	// After ending, the PIN funnel has been reset: digits start over.
	_, out = postJSON(t, srv.URL+"/chat", `{"message": "1234", "session_id": "s1", "caller_id": "01712345678"}`)
	reply, _ := out["response"].(string)
	if strings.Contains(reply, "Thank you for providing your PIN") {
		t.Errorf("ended session must not remember the selected account, got %q", reply)
	}
}

func TestInjectPromptRequiresFields(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postJSON(t, srv.URL+"/inject_prompt", `{"session_id": "s1"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", resp.StatusCode)
	}

	resp, out := postJSON(t, srv.URL+"/inject_prompt", `{"session_id": "s1", "prompt": "Speak Bengali."}`)
	if resp.StatusCode != http.StatusOK || out["status"] != "success" {
		t.Errorf("status = %d, body = %v", resp.StatusCode, out)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
