package expression

import "strings"

// Expression 表示回复时头像应呈现的表情标签。
type Expression string

const (
	Neutral   Expression = "neutral"
	Happy     Expression = "happy"
	Sad       Expression = "sad"
	Angry     Expression = "angry"
	Surprised Expression = "surprised"
)

// All 按固定顺序返回全部已知表情。
func All() []Expression {
	return []Expression{Neutral, Happy, Sad, Angry, Surprised}
}

// Parse 解析表情标签，大小写不敏感；空字符串视为 neutral。
func Parse(raw string) (Expression, bool) {
	normalized := Expression(strings.ToLower(strings.TrimSpace(raw)))
	if normalized == "" {
		return Neutral, true
	}
	for _, e := range All() {
		if e == normalized {
			return e, true
		}
	}
	return "", false
}

// Valid 判断是否为已知表情。
func (e Expression) Valid() bool {
	_, ok := faces[e]
	return ok
}

// Eyebrow 描述眉毛的旋转角与高度。
type Eyebrow struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
	Y     float64 `json:"y"`
}

// Mouth 描述嘴部的宽高比例。
type Mouth struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Face 是前端渲染机器人面部所需的参数。
type Face struct {
	Color   string  `json:"color"`
	Eyebrow Eyebrow `json:"eyebrow"`
	Mouth   Mouth   `json:"mouth"`
}

var faces = map[Expression]Face{
	Neutral: {
		Color:   "#3b82f6",
		Eyebrow: Eyebrow{Left: -0.1, Right: 0.1, Y: 1.8},
		Mouth:   Mouth{Width: 1, Height: 0.2},
	},
	Happy: {
		Color:   "#10b981",
		Eyebrow: Eyebrow{Left: -0.2, Right: 0.2, Y: 1.75},
		Mouth:   Mouth{Width: 1.2, Height: 0.8},
	},
	Sad: {
		Color:   "#6366f1",
		Eyebrow: Eyebrow{Left: 0.3, Right: -0.3, Y: 1.85},
		Mouth:   Mouth{Width: 0.8, Height: 0.1},
	},
	Angry: {
		Color:   "#ef4444",
		Eyebrow: Eyebrow{Left: -0.4, Right: 0.4, Y: 1.7},
		Mouth:   Mouth{Width: 0.7, Height: 0.3},
	},
	Surprised: {
		Color:   "#f59e0b",
		Eyebrow: Eyebrow{Left: 0.5, Right: -0.5, Y: 1.9},
		Mouth:   Mouth{Width: 0.7, Height: 1.2},
	},
}

// FaceFor 返回表情对应的面部参数，未知表情回退到 neutral。
func FaceFor(e Expression) Face {
	if face, ok := faces[e]; ok {
		return face
	}
	return faces[Neutral]
}
