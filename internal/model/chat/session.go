package chat

import "time"

// Session captures one open chat view bound to a rule table.
type Session struct {
	ID        string    `json:"id"`
	BotID     string    `json:"botId"`
	CreatedAt time.Time `json:"createdAt"`
}
