package resolver

import (
	"strings"

	"github.com/zhouzirui/homebot/backend/internal/model/rule"
)

// Resolver 在固定顺序的规则表中查找第一条命中的规则。
type Resolver struct {
	rules    []rule.Rule
	fallback rule.Rule
}

// New 校验规则表并构建 Resolver。规则表缺少或存在多条兜底规则时返回错误。
func New(bot rule.Bot) (*Resolver, error) {
	normalized, err := rule.Normalize(bot)
	if err != nil {
		return nil, err
	}

	fallback, _ := normalized.Fallback()
	matchable := make([]rule.Rule, 0, len(normalized.Rules)-1)
	for _, r := range normalized.Rules {
		if !r.IsFallback() {
			matchable = append(matchable, r)
		}
	}

	return &Resolver{rules: matchable, fallback: fallback}, nil
}

// Resolve 返回第一条触发词出现在输入中的规则（大小写不敏感），否则返回兜底规则。
func (r *Resolver) Resolve(input string) rule.Rule {
	normalized := strings.ToLower(input)
	for _, candidate := range r.rules {
		for _, trigger := range candidate.Triggers {
			if strings.Contains(normalized, trigger) {
				return candidate
			}
		}
	}
	return r.fallback
}

// Fallback 返回兜底规则。
func (r *Resolver) Fallback() rule.Rule {
	return r.fallback
}
