package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/homebot/backend/internal/config"
	"github.com/zhouzirui/homebot/backend/internal/model/chat"
	"github.com/zhouzirui/homebot/backend/internal/model/rule"
)

var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Service answers questions the rule table cannot, using an LLM chain.
type Service struct {
	chatModel    model.BaseChatModel
	historyLimit int
	chain        compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the AI fallback service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig, historyLimit int) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, historyLimit)
}

// NewServiceWithModel compiles the fallback chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.BaseChatModel, historyLimit int) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if historyLimit < 1 {
		historyLimit = 10
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile fallback chain: %w", err)
	}

	return &Service{
		chatModel:    chatModel,
		historyLimit: historyLimit,
		chain:        runnable,
	}, nil
}

// Answer asks the model for a reply grounded on the bot's canned facts.
// history must not contain userMessage itself.
func (s *Service) Answer(ctx context.Context, bot rule.Bot, history []chat.Message, userMessage string) (string, error) {
	input := map[string]any{
		"system":  BuildSystemPrompt(bot),
		"history": s.buildHistoryMessages(history),
		"query":   userMessage,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run fallback chain: %w", err)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", ErrEmptyAnswer
	}

	log.Printf("[ai] generated fallback answer for bot=%s, length=%d", bot.ID, len(response.Content))
	return strings.TrimSpace(response.Content), nil
}

func (s *Service) buildHistoryMessages(messages []chat.Message) []*schema.Message {
	if len(messages) == 0 {
		return nil
	}

	startIdx := 0
	if len(messages) > s.historyLimit {
		startIdx = len(messages) - s.historyLimit
	}

	history := make([]*schema.Message, 0, len(messages)-startIdx)
	for _, msg := range messages[startIdx:] {
		switch msg.Sender {
		case chat.SenderUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.SenderBot:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}

	return history
}
