package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zhouzirui/homebot/backend/internal/analysis/emotion"
	"github.com/zhouzirui/homebot/backend/internal/analysis/resolver"
	"github.com/zhouzirui/homebot/backend/internal/metrics"
	"github.com/zhouzirui/homebot/backend/internal/model/chat"
	"github.com/zhouzirui/homebot/backend/internal/model/expression"
	"github.com/zhouzirui/homebot/backend/internal/model/rule"
	chatService "github.com/zhouzirui/homebot/backend/internal/service/chat"
)

var (
	ErrBotNotFound  = errors.New("bot not found")
	ErrEmptyMessage = errors.New("message is empty")
)

// Answerer 为兜底问题生成回复。
type Answerer interface {
	Answer(ctx context.Context, bot rule.Bot, history []chat.Message, userText string) (string, error)
}

// Options 控制对话节奏与可选组件。
type Options struct {
	ReplyDelay time.Duration
	AI         Answerer
	Metrics    *metrics.Recorder
}

// Turn 是一轮对话的结果。
type Turn struct {
	User       chat.Message          `json:"user"`
	Reply      chat.Message          `json:"reply"`
	RuleKey    string                `json:"ruleKey"`
	Expression expression.Expression `json:"expression"`
	Face       expression.Face       `json:"face"`
	Fallback   bool                  `json:"fallback"`
	Generated  bool                  `json:"generated,omitempty"`
}

// ReplyOption 调整单次 Reply 的行为。
type ReplyOption func(*replyConfig)

type replyConfig struct {
	onUser func(chat.Message)
}

// WithUserMessage 在用户消息写入后、等待回复前调用 fn。
func WithUserMessage(fn func(chat.Message)) ReplyOption {
	return func(c *replyConfig) { c.onUser = fn }
}

type entry struct {
	bot      rule.Bot
	resolver *resolver.Resolver
}

// Service 把规则匹配、会话记录与可选的大模型兜底串成一轮对话。
type Service struct {
	chats   *chatService.Service
	bots    map[string]entry
	order   []string
	delay   time.Duration
	ai      Answerer
	metrics *metrics.Recorder
}

// NewService 为 store 中的每个规则表构建 Resolver，任一规则表无效即返回错误。
func NewService(store rule.Store, chats *chatService.Service, opts Options) (*Service, error) {
	if store == nil || chats == nil {
		return nil, errors.New("rule store and chat service are required")
	}
	if opts.ReplyDelay < 0 {
		return nil, fmt.Errorf("invalid reply delay: %s", opts.ReplyDelay)
	}

	svc := &Service{
		chats:   chats,
		bots:    make(map[string]entry),
		delay:   opts.ReplyDelay,
		ai:      opts.AI,
		metrics: opts.Metrics,
	}

	for _, bot := range store.List() {
		normalized, err := rule.Normalize(bot)
		if err != nil {
			return nil, fmt.Errorf("bot %q: %w", bot.ID, err)
		}
		res, err := resolver.New(normalized)
		if err != nil {
			return nil, fmt.Errorf("bot %q: %w", bot.ID, err)
		}
		svc.bots[normalized.ID] = entry{bot: normalized, resolver: res}
		svc.order = append(svc.order, normalized.ID)
	}

	return svc, nil
}

// Bots 按声明顺序返回所有规则表。
func (s *Service) Bots() []rule.Bot {
	bots := make([]rule.Bot, 0, len(s.order))
	for _, id := range s.order {
		bots = append(bots, s.bots[id].bot)
	}
	return bots
}

// Bot 按 id 查找规则表。
func (s *Service) Bot(botID string) (rule.Bot, error) {
	e, ok := s.bots[botID]
	if !ok {
		return rule.Bot{}, ErrBotNotFound
	}
	return e.bot, nil
}

// Resolve 不产生会话记录，只返回 text 命中的规则。
func (s *Service) Resolve(botID, text string) (rule.Rule, error) {
	e, ok := s.bots[botID]
	if !ok {
		return rule.Rule{}, ErrBotNotFound
	}
	return e.resolver.Resolve(text), nil
}

// CreateSession 打开一个聊天视图，规则表带有问候语时作为第一条机器人消息写入。
func (s *Service) CreateSession(ctx context.Context, botID string) (chat.Session, []chat.Message, error) {
	e, ok := s.bots[strings.TrimSpace(botID)]
	if !ok {
		return chat.Session{}, nil, ErrBotNotFound
	}

	session, err := s.chats.CreateSession(ctx, e.bot.ID)
	if err != nil {
		return chat.Session{}, nil, err
	}
	s.metrics.SetActiveSessions(s.chats.ActiveSessions())

	var messages []chat.Message
	if e.bot.Greeting != "" {
		greeting, err := s.chats.Append(ctx, chat.Message{
			SessionID:  session.ID,
			Sender:     chat.SenderBot,
			Text:       e.bot.Greeting,
			Expression: expression.Neutral,
		})
		if err != nil {
			return chat.Session{}, nil, err
		}
		messages = append(messages, greeting)
	}

	log.Printf("[assistant] session %s opened for bot=%s", session.ID, e.bot.ID)
	return session, messages, nil
}

// Transcript 返回会话中的全部消息。
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.chats.Transcript(ctx, sessionID)
}

// CloseSession 关闭聊天视图并丢弃其记录。
func (s *Service) CloseSession(ctx context.Context, sessionID string) error {
	if err := s.chats.CloseSession(ctx, sessionID); err != nil {
		return err
	}
	s.metrics.SetActiveSessions(s.chats.ActiveSessions())
	return nil
}

// Reply 处理一条用户消息：记录、匹配规则、模拟输入延迟后写入机器人回复。
// ctx 在等待期间被取消时，用户消息保留而回复被丢弃。
func (s *Service) Reply(ctx context.Context, sessionID, text string, opts ...ReplyOption) (Turn, error) {
	var cfg replyConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, ErrEmptyMessage
	}

	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		return Turn{}, err
	}
	e, ok := s.bots[session.BotID]
	if !ok {
		return Turn{}, ErrBotNotFound
	}

	started := time.Now()
	userMsg, err := s.chats.Append(ctx, chat.Message{
		SessionID: sessionID,
		Sender:    chat.SenderUser,
		Text:      text,
	})
	if err != nil {
		return Turn{}, err
	}
	if cfg.onUser != nil {
		cfg.onUser(userMsg)
	}

	matched := e.resolver.Resolve(text)
	turn := Turn{
		User:       userMsg,
		RuleKey:    matched.Key,
		Expression: matched.Expression,
		Fallback:   matched.IsFallback(),
	}

	if err := s.wait(ctx); err != nil {
		return turn, err
	}

	replyText := matched.Response
	if turn.Fallback && s.ai != nil {
		if answer, ok := s.generate(ctx, e.bot, userMsg); ok {
			replyText = answer
			turn.Expression = emotion.Analyze(text, answer).Expression
			turn.Generated = true
		}
	}

	reply, err := s.chats.Append(ctx, chat.Message{
		SessionID:  sessionID,
		Sender:     chat.SenderBot,
		Text:       replyText,
		Expression: turn.Expression,
	})
	if err != nil {
		return turn, err
	}

	turn.Reply = reply
	turn.Face = expression.FaceFor(turn.Expression)

	s.metrics.RecordResolution(e.bot.ID, matched.Key, turn.Fallback)
	s.metrics.ObserveTurn(e.bot.ID, time.Since(started))

	return turn, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) generate(ctx context.Context, bot rule.Bot, userMsg chat.Message) (string, bool) {
	history, err := s.chats.Transcript(ctx, userMsg.SessionID)
	if err != nil {
		log.Printf("[assistant] load transcript failed: %v", err)
		return "", false
	}
	// 去掉刚写入的用户消息，它会作为 query 单独传入。
	if n := len(history); n > 0 && history[n-1].ID == userMsg.ID {
		history = history[:n-1]
	}

	answer, err := s.ai.Answer(ctx, bot, history, userMsg.Text)
	s.metrics.RecordAIReply(bot.ID, err == nil)
	if err != nil {
		log.Printf("[assistant] ai fallback failed for bot=%s: %v", bot.ID, err)
		return "", false
	}
	return answer, true
}
