package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/homebot/backend/internal/model/chat"
	"github.com/zhouzirui/homebot/backend/internal/model/expression"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	chatService "github.com/zhouzirui/homebot/backend/internal/service/chat"
	"github.com/zhouzirui/homebot/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	assistant *assistant.Service
}

// New 创建聊天处理器
func New(assistantSvc *assistant.Service) *Handler {
	return &Handler{assistant: assistantSvc}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/sessions/{sessionID}/messages", h.handleTranscript)
	r.Delete("/sessions/{sessionID}", h.handleCloseSession)
	r.Post("/messages", h.handleSendMessage)
	r.Post("/resolve", h.handleResolve)
}

type sessionResponse struct {
	Session  chat.Session   `json:"session"`
	Messages []chat.Message `json:"messages"`
}

// handleCreateSession 创建会话
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BotID string `json:"botId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.BotID == "" {
		utils.RespondError(w, http.StatusBadRequest, "botId is required")
		return
	}

	session, messages, err := h.assistant.CreateSession(r.Context(), payload.BotID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if messages == nil {
		messages = []chat.Message{}
	}
	utils.RespondJSON(w, http.StatusCreated, sessionResponse{Session: session, Messages: messages})
}

// handleTranscript 返回会话记录
func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.assistant.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleCloseSession 关闭会话并丢弃记录
func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.assistant.CloseSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage 发送一条用户消息并等待机器人回复
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Text      string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.assistant.Reply(r.Context(), payload.SessionID, payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, turn)
}

type resolveResponse struct {
	RuleKey    string                `json:"ruleKey"`
	Response   string                `json:"response"`
	Expression expression.Expression `json:"expression"`
	Face       expression.Face       `json:"face"`
	Fallback   bool                  `json:"fallback"`
}

// handleResolve 无状态地查询一条输入命中的规则
func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BotID string `json:"botId"`
		Text  string `json:"text"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matched, err := h.assistant.Resolve(payload.BotID, payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, resolveResponse{
		RuleKey:    matched.Key,
		Response:   matched.Response,
		Expression: matched.Expression,
		Face:       expression.FaceFor(matched.Expression),
		Fallback:   matched.IsFallback(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage), errors.Is(err, chatService.ErrBotRequired):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assistant.ErrBotNotFound), errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		utils.RespondError(w, http.StatusRequestTimeout, "request cancelled")
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
