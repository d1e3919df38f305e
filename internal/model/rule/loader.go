package rule

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
)

var (
	ErrNoFallback       = errors.New("rule table has no fallback rule")
	ErrMultipleFallback = errors.New("rule table has more than one fallback rule")
)

type file struct {
	Bots []Bot `yaml:"bots"`
}

// Load 读取 YAML 规则文件并校验每张规则表。
func Load(path string) ([]Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	bots, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bots, nil
}

// Parse 解析 YAML 内容。规则必须以序列声明，保证匹配顺序与文件顺序一致。
func Parse(data []byte) ([]Bot, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(f.Bots) == 0 {
		return nil, errors.New("no bots declared")
	}

	seen := make(map[string]struct{}, len(f.Bots))
	out := make([]Bot, 0, len(f.Bots))
	for i, bot := range f.Bots {
		normalized, err := Normalize(bot)
		if err != nil {
			return nil, fmt.Errorf("bots[%d]: %w", i, err)
		}
		if _, dup := seen[normalized.ID]; dup {
			return nil, fmt.Errorf("bots[%d]: duplicate bot id %q", i, normalized.ID)
		}
		seen[normalized.ID] = struct{}{}
		out = append(out, normalized)
	}
	return out, nil
}

// Normalize 返回小写化触发词后的规则表副本，并检查兜底规则的唯一性。
func Normalize(bot Bot) (Bot, error) {
	bot.ID = strings.TrimSpace(bot.ID)
	if bot.ID == "" {
		return Bot{}, errors.New("bot id is required")
	}
	if strings.TrimSpace(bot.Name) == "" {
		bot.Name = bot.ID
	}

	rules := make([]Rule, 0, len(bot.Rules))
	keys := make(map[string]struct{}, len(bot.Rules))
	fallbacks := 0
	for i, r := range bot.Rules {
		r.Key = strings.TrimSpace(r.Key)
		if r.Key == "" {
			return Bot{}, fmt.Errorf("%s rules[%d]: key is required", bot.ID, i)
		}
		if _, dup := keys[r.Key]; dup {
			return Bot{}, fmt.Errorf("%s rules[%d]: duplicate key %q", bot.ID, i, r.Key)
		}
		keys[r.Key] = struct{}{}

		if strings.TrimSpace(r.Response) == "" {
			return Bot{}, fmt.Errorf("%s rule %q: response is required", bot.ID, r.Key)
		}

		expr, ok := expression.Parse(string(r.Expression))
		if !ok {
			return Bot{}, fmt.Errorf("%s rule %q: unknown expression %q", bot.ID, r.Key, r.Expression)
		}
		r.Expression = expr

		triggers := make([]string, 0, len(r.Triggers))
		for _, trigger := range r.Triggers {
			if strings.TrimSpace(trigger) == "" {
				return Bot{}, fmt.Errorf("%s rule %q: blank trigger", bot.ID, r.Key)
			}
			triggers = append(triggers, strings.ToLower(trigger))
		}
		r.Triggers = triggers

		if r.IsFallback() {
			fallbacks++
		}
		rules = append(rules, r)
	}

	switch {
	case fallbacks == 0:
		return Bot{}, fmt.Errorf("%s: %w", bot.ID, ErrNoFallback)
	case fallbacks > 1:
		return Bot{}, fmt.Errorf("%s: %w", bot.ID, ErrMultipleFallback)
	}

	bot.Rules = rules
	bot.Prompts = append([]string(nil), bot.Prompts...)
	return bot, nil
}
