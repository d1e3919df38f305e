package avatar

import (
	"sync"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
)

// Snapshot 是头像在某一时刻的显示状态。
type Snapshot struct {
	Expression expression.Expression `json:"expression"`
	Speaking   bool                  `json:"speaking"`
	Face       expression.Face       `json:"face"`
}

// State 跟踪一个聊天视图中头像的表情与说话状态。
// 播放结束的回调可能来自其他 goroutine，因此所有方法都加锁。
type State struct {
	mu         sync.Mutex
	expression expression.Expression
	speaking   bool
}

// NewState 返回处于 neutral 且未说话的状态。
func NewState() *State {
	return &State{expression: expression.Neutral}
}

// React 切换到回复对应的表情。
func (s *State) React(e expression.Expression) Snapshot {
	if !e.Valid() {
		e = expression.Neutral
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expression = e
	return s.snapshot()
}

// StartSpeaking 标记开始播放回复。
func (s *State) StartSpeaking() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = true
	return s.snapshot()
}

// FinishSpeaking 播放结束后回到 neutral。
func (s *State) FinishSpeaking() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speaking = false
	s.expression = expression.Neutral
	return s.snapshot()
}

// Snapshot 返回当前状态。
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *State) snapshot() Snapshot {
	return Snapshot{
		Expression: s.expression,
		Speaking:   s.speaking,
		Face:       expression.FaceFor(s.expression),
	}
}
