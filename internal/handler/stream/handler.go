package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/homebot/backend/internal/model/chat"
	"github.com/zhouzirui/homebot/backend/internal/model/expression"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	chatService "github.com/zhouzirui/homebot/backend/internal/service/chat"
	"github.com/zhouzirui/homebot/backend/pkg/utils"
)

// Handler pushes a chat turn to the browser via Server-Sent Events
type Handler struct {
	assistant *assistant.Service
}

// New creates a new stream handler
func New(assistantSvc *assistant.Service) *Handler {
	return &Handler{assistant: assistantSvc}
}

// StreamResponse represents a streaming response chunk
type StreamResponse struct {
	Event      string                `json:"event"`
	SessionID  string                `json:"sessionId,omitempty"`
	Message    *chat.Message         `json:"message,omitempty"`
	RuleKey    string                `json:"ruleKey,omitempty"`
	Fallback   bool                  `json:"fallback,omitempty"`
	Expression expression.Expression `json:"expression,omitempty"`
	Face       *expression.Face      `json:"face,omitempty"`
	Finished   bool                  `json:"finished,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// RegisterRoutes 注册流式对话路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		userMessage := r.URL.Query().Get("message")

		if userMessage == "" {
			utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
			return
		}

		if err := h.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
			log.Printf("[stream] error handling request: %v", err)
		}
	})
}

// HandleStreamRequest runs one chat turn and emits user, typing, reply, expression and end events.
// Errors found before the stream opens are answered with a JSON error instead.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID string, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	if _, err := h.assistant.Transcript(ctx, sessionID); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
		} else {
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
		}
		return err
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	onUser := func(msg chat.Message) {
		sendEvent(w, flusher, StreamResponse{Event: "user", SessionID: sessionID, Message: &msg})
		sendEvent(w, flusher, StreamResponse{Event: "typing", SessionID: sessionID})
	}

	turn, err := h.assistant.Reply(ctx, sessionID, userMessage, assistant.WithUserMessage(onUser))
	if err != nil {
		if ctx.Err() == nil {
			h.sendSSEError(w, flusher, err.Error())
		}
		return err
	}

	sendEvent(w, flusher, StreamResponse{
		Event:     "reply",
		SessionID: sessionID,
		Message:   &turn.Reply,
		RuleKey:   turn.RuleKey,
		Fallback:  turn.Fallback,
	})

	face := turn.Face
	sendEvent(w, flusher, StreamResponse{
		Event:      "expression",
		SessionID:  sessionID,
		Expression: turn.Expression,
		Face:       &face,
	})

	sendEvent(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: sessionID,
		Finished:  true,
	})

	log.Printf("[stream] completed turn for session=%s, rule=%s", sessionID, turn.RuleKey)
	return nil
}

// sendEvent writes a named SSE event whose payload repeats the event name
func sendEvent(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEEvent(w, flusher, response.Event, response)
}

// sendSSEError sends an error via Server-Sent Events
func (h *Handler) sendSSEError(w http.ResponseWriter, flusher http.Flusher, errorMsg string) {
	utils.SendSSEChunk(w, flusher, StreamResponse{
		Event: "error",
		Error: errorMsg,
	})
}
