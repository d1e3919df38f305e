package rule

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
)

const sampleRules = `
bots:
  - id: kiosk
    name: Store Kiosk
    greeting: Welcome!
    prompts: ["What's new?"]
    rules:
      - key: news
        triggers: ["NEW", "Latest"]
        response: Our newest robot ships next month.
        expression: Surprised
      - key: unknown
        response: Ask me about what's new.
`

func TestParseKeepsDeclarationOrderAndLowercasesTriggers(t *testing.T) {
	bots, err := Parse([]byte(sampleRules))
	if err != nil {
		t.Fatalf("Parse err: %v", err)
	}
	if len(bots) != 1 {
		t.Fatalf("expected 1 bot, got %d", len(bots))
	}

	bot := bots[0]
	if bot.Rules[0].Key != "news" || bot.Rules[1].Key != "unknown" {
		t.Fatalf("unexpected rule order: %+v", bot.Rules)
	}
	if bot.Rules[0].Triggers[0] != "new" || bot.Rules[0].Triggers[1] != "latest" {
		t.Fatalf("triggers not lowercased: %v", bot.Rules[0].Triggers)
	}
	if bot.Rules[0].Expression != expression.Surprised {
		t.Fatalf("expected surprised, got %s", bot.Rules[0].Expression)
	}
	if bot.Rules[1].Expression != expression.Neutral {
		t.Fatalf("expected default neutral expression, got %s", bot.Rules[1].Expression)
	}
}

func TestParseRejectsMissingFallback(t *testing.T) {
	data := []byte(`
bots:
  - id: kiosk
    rules:
      - key: news
        triggers: [new]
        response: soon
`)
	if _, err := Parse(data); !errors.Is(err, ErrNoFallback) {
		t.Fatalf("expected ErrNoFallback, got %v", err)
	}
}

func TestParseRejectsSecondFallback(t *testing.T) {
	data := []byte(`
bots:
  - id: kiosk
    rules:
      - key: a
        response: one
      - key: b
        response: two
`)
	if _, err := Parse(data); !errors.Is(err, ErrMultipleFallback) {
		t.Fatalf("expected ErrMultipleFallback, got %v", err)
	}
}

func TestParseRejectsInvalidEntries(t *testing.T) {
	cases := map[string]string{
		"unknown expression": "bots:\n  - id: k\n    rules:\n      - key: u\n        response: x\n        expression: smug\n",
		"blank trigger":      "bots:\n  - id: k\n    rules:\n      - key: a\n        triggers: [\" \"]\n        response: x\n      - key: u\n        response: y\n",
		"duplicate key":      "bots:\n  - id: k\n    rules:\n      - key: u\n        triggers: [a]\n        response: x\n      - key: u\n        response: y\n",
		"missing id":         "bots:\n  - rules:\n      - key: u\n        response: x\n",
		"empty file":         "bots: []\n",
	}

	for name, data := range cases {
		if _, err := Parse([]byte(data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRules), 0o600); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	bots, err := Load(path)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if bots[0].ID != "kiosk" {
		t.Fatalf("unexpected bot %s", bots[0].ID)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSeedTablesAreValid(t *testing.T) {
	for _, bot := range Seed() {
		normalized, err := Normalize(bot)
		if err != nil {
			t.Fatalf("seed %s invalid: %v", bot.ID, err)
		}
		fallback, ok := normalized.Fallback()
		if !ok || fallback.Key != "unknown" {
			t.Fatalf("seed %s: expected unknown fallback", bot.ID)
		}
	}
}

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())
	if _, ok := store.FindByID(ProductAssistantID); !ok {
		t.Fatal("expected product assistant")
	}
	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("unexpected bot for missing id")
	}
	if got := len(store.List()); got != 2 {
		t.Fatalf("expected 2 bots, got %d", got)
	}
}
