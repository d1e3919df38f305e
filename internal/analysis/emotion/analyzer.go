package emotion

import (
	"strings"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
)

// Decision 给出表情推断结果及其得分。
type Decision struct {
	Expression expression.Expression
	Score      int
}

var keywordBuckets = map[expression.Expression][]string{
	expression.Happy: {
		"glad", "happy", "great", "awesome", "love", "thanks", "thank you", "enjoy", "wonderful",
		"perfect", "excellent", "fun", "nice", "delighted",
	},
	expression.Sad: {
		"sorry", "sad", "unhappy", "down", "upset", "lonely", "miss", "unfortunately", "hurt",
		"disappointed", "cry",
	},
	expression.Angry: {
		"angry", "furious", "mad", "annoyed", "frustrated", "hate", "useless", "stupid", "broken",
		"terrible",
	},
	expression.Surprised: {
		"wow", "really", "amazing", "unbelievable", "surprise", "no way", "incredible", "whoa",
		"can't believe", "i'm not sure",
	},
}

var punctuationBoost = map[expression.Expression]int{
	expression.Happy:     1,
	expression.Surprised: 2,
}

// Analyze 根据用户输入与生成的回复推断头像应显示的表情。
// 回复本身没有明显情绪时，沿用用户的情绪。
func Analyze(userUtterance, botUtterance string) Decision {
	botScore := scoreText(botUtterance)
	if botScore.Score > 0 {
		return botScore
	}

	userScore := scoreText(userUtterance)
	if userScore.Score > 0 {
		return coerceFromUser(userScore)
	}

	return Decision{Expression: expression.Neutral}
}

func scoreText(text string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Decision{Expression: expression.Neutral}
	}

	scores := make(map[expression.Expression]int)
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[label] += 3
			}
		}
	}

	if exclamations := strings.Count(text, "!"); exclamations > 0 {
		scores[expression.Surprised] += (exclamations - 1) * punctuationBoost[expression.Surprised]
		scores[expression.Happy] += punctuationBoost[expression.Happy]
	}
	if strings.Contains(text, "?!") {
		scores[expression.Surprised] += punctuationBoost[expression.Surprised]
	}

	// 按固定顺序比较，保证同分时结果稳定。
	best := Decision{Expression: expression.Neutral}
	for _, label := range expression.All() {
		if s := scores[label]; s > best.Score {
			best = Decision{Expression: label, Score: s}
		}
	}
	return best
}

func coerceFromUser(user Decision) Decision {
	switch user.Expression {
	case expression.Angry:
		// 用户生气时回复保持克制。
		return Decision{Expression: expression.Sad, Score: user.Score}
	default:
		return user
	}
}
