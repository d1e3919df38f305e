package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/homebot/backend/internal/model/rule"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	chatservice "github.com/zhouzirui/homebot/backend/internal/service/chat"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	svc, err := assistant.NewService(rule.NewMemoryStore(rule.Seed()), chatservice.NewService(), assistant.Options{})
	if err != nil {
		t.Fatalf("assistant.NewService err: %v", err)
	}
	r := chi.NewRouter()
	New(svc).RegisterRoutes(r)
	return r
}

func TestListBots(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/bots", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var summaries []rule.Summary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(summaries) != 2 || summaries[1].ID != rule.HomeAssistantID || len(summaries[1].Prompts) != 6 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}
}

func TestGetBot(t *testing.T) {
	r := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/bots/"+rule.ProductAssistantID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var b rule.Bot
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(b.Rules) != 7 || b.Rules[6].Key != "unknown" {
		t.Fatalf("unexpected rules %+v", b.Rules)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/bots/missing", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListExpressions(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/expressions", nil))

	var faces map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&faces); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(faces) != 5 {
		t.Fatalf("expected 5 faces, got %d", len(faces))
	}
}
