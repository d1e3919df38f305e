package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/homebot/backend/internal/model/rule"
)

// BuildSystemPrompt 把规则表中的固定回复整理成大模型可以引用的产品资料。
func BuildSystemPrompt(bot rule.Bot) string {
	var facts strings.Builder
	for _, r := range bot.Rules {
		if r.IsFallback() {
			continue
		}
		facts.WriteString("- ")
		facts.WriteString(r.Key)
		facts.WriteString(": ")
		facts.WriteString(strings.ReplaceAll(r.Response, "\n", " "))
		facts.WriteString("\n")
	}

	fallback, _ := bot.Fallback()

	return fmt.Sprintf(`You are %s, the assistant of a home robot product website.

Known facts (never contradict them, never invent prices or features):
%s
Rules:
- Answer in at most two short sentences.
- If the question is outside these facts, say so and steer the visitor back, e.g. "%s"
- Keep a friendly, helpful tone.`,
		bot.Name,
		facts.String(),
		fallback.Response,
	)
}
