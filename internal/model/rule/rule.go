package rule

import "github.com/zhouzirui/homebot/backend/internal/model/expression"

// Rule 是一条关键词触发的固定回复。
type Rule struct {
	Key        string                `json:"key" yaml:"key"`
	Triggers   []string              `json:"triggers" yaml:"triggers"`
	Response   string                `json:"response" yaml:"response"`
	Expression expression.Expression `json:"expression" yaml:"expression"`
}

// IsFallback 没有触发词的规则只会在其他规则都未命中时被选中。
func (r Rule) IsFallback() bool {
	return len(r.Triggers) == 0
}

// Bot 描述一个聊天组件使用的完整规则表。
type Bot struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Greeting string   `json:"greeting,omitempty" yaml:"greeting"`
	Prompts  []string `json:"prompts,omitempty" yaml:"prompts"`
	Rules    []Rule   `json:"rules" yaml:"rules"`
}

// Fallback 返回规则表中的兜底规则。
func (b Bot) Fallback() (Rule, bool) {
	for _, r := range b.Rules {
		if r.IsFallback() {
			return r, true
		}
	}
	return Rule{}, false
}

// Summary 是对外列表展示使用的精简视图。
type Summary struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Greeting  string   `json:"greeting,omitempty"`
	Prompts   []string `json:"prompts,omitempty"`
	RuleCount int      `json:"ruleCount"`
}

// Summarize 生成 Bot 的列表视图。
func (b Bot) Summarize() Summary {
	return Summary{
		ID:        b.ID,
		Name:      b.Name,
		Greeting:  b.Greeting,
		Prompts:   append([]string(nil), b.Prompts...),
		RuleCount: len(b.Rules),
	}
}
