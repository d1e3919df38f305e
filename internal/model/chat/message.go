package chat

import (
	"time"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
)

// Sender 标识消息来自用户还是机器人。
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one turn of the conversation shown in the chat view.
type Message struct {
	ID         string                `json:"id"`
	SessionID  string                `json:"sessionId"`
	Sender     Sender                `json:"sender"`
	Text       string                `json:"text"`
	Expression expression.Expression `json:"expression,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}
