package voice

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/homebot/backend/internal/model/chat"
	speechmodel "github.com/zhouzirui/homebot/backend/internal/model/speech"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	"github.com/zhouzirui/homebot/backend/internal/service/avatar"
	speechservice "github.com/zhouzirui/homebot/backend/internal/service/speech"
	"github.com/zhouzirui/homebot/backend/pkg/utils"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler WebSocket语音处理器
type WebSocketHandler struct {
	assistant *assistant.Service
	settings  speechmodel.Settings
	enabled   bool
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器。enabled 为 false 时语音接口返回 501。
func NewWebSocketHandler(assistantSvc *assistant.Service, settings speechmodel.Settings, enabled bool) *WebSocketHandler {
	return &WebSocketHandler{
		assistant: assistantSvc,
		settings:  settings,
		enabled:   enabled,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/voice/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本或识别结果
type TextMessage struct {
	Text string `json:"text"`
}

// ErrorMessage 客户端上报的识别错误
type ErrorMessage struct {
	Error string `json:"error"`
}

// VoicesMessage 客户端可用的声音列表
type VoicesMessage struct {
	Voices []speechmodel.Voice `json:"voices"`
}

// ConfigMessage 配置消息，声明客户端具备的语音能力
type ConfigMessage struct {
	Language       string   `json:"language"`
	Rate           float64  `json:"rate"`
	Pitch          float64  `json:"pitch"`
	Volume         float64  `json:"volume"`
	PreferredVoice []string `json:"preferredVoice"`
	Recognition    *bool    `json:"recognition,omitempty"`
	Synthesis      *bool    `json:"synthesis,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection 保存一个聊天视图的语音状态
type connection struct {
	conn      *websocket.Conn
	sessionID string
	writeMu   sync.Mutex

	settings    speechmodel.Settings
	bridge      *browserBridge
	recognition bool
	synthesis   bool
	listener    *speechservice.Listener
	speaker     *speechservice.Speaker
	avatar      *avatar.State
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.enabled {
		utils.RespondError(w, http.StatusNotImplemented, "voice bridge disabled")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.assistant.Transcript(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[voice] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Printf("[voice] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &connection{
		conn:        ws,
		sessionID:   sessionID,
		settings:    h.settings,
		recognition: true,
		synthesis:   true,
		avatar:      avatar.NewState(),
	}
	c.bridge = newBrowserBridge(h.settings.Language, c.sendCommand)
	h.rebuildCapabilities(ctx, c)
	defer func() {
		c.listener.Close()
		c.speaker.Stop()
	}()

	ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go pingLoop(ctx, ws)

	c.sendResult(map[string]any{
		"type":   "connected",
		"avatar": c.avatar.Snapshot(),
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[voice] read error: %v", err)
			}
			return
		}

		ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session mismatch")
			continue
		}

		h.handleMessage(ctx, c, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid text payload")
			return
		}
		h.processUserText(ctx, c, text.Text)
	case "listen":
		h.handleListenToggle(ctx, c)
	case "listen_result":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid listen_result payload")
			return
		}
		c.listener.HandleResult(text.Text)
	case "listen_end":
		c.listener.HandleEnd()
		c.sendResult(map[string]any{"type": "listening", "listening": false})
	case "listen_error":
		var payload ErrorMessage
		_ = json.Unmarshal(msg.Data, &payload)
		c.listener.HandleError(errors.New(payload.Error))
		c.sendResult(map[string]any{"type": "listening", "listening": false})
	case "speech_end":
		c.bridge.speechEnded()
	case "voices":
		var payload VoicesMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid voices payload")
			return
		}
		c.bridge.setVoices(payload.Voices)
	case "config":
		var cfg ConfigMessage
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			c.sendError("invalid config payload")
			return
		}
		h.applyConfig(c, cfg)
		h.rebuildCapabilities(ctx, c)
		c.sendResult(map[string]any{
			"type":        "config",
			"language":    c.settings.Language,
			"rate":        c.settings.Rate,
			"pitch":       c.settings.Pitch,
			"volume":      c.settings.Volume,
			"recognition": c.recognition,
			"synthesis":   c.synthesis,
		})
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *WebSocketHandler) handleListenToggle(ctx context.Context, c *connection) {
	listening, err := c.listener.Toggle(ctx)
	if err != nil {
		if errors.Is(err, speechservice.ErrUnsupported) {
			c.sendError("speech recognition not supported")
			return
		}
		c.sendError("speech recognition failed: " + err.Error())
		return
	}
	c.sendResult(map[string]any{"type": "listening", "listening": listening})
}

// processUserText 执行一轮对话，并驱动头像表情与语音播放
func (h *WebSocketHandler) processUserText(ctx context.Context, c *connection, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	onUser := func(msg chat.Message) {
		c.sendResult(map[string]any{"type": "user", "message": msg})
		c.sendResult(map[string]any{"type": "typing"})
	}

	turn, err := h.assistant.Reply(ctx, c.sessionID, text, assistant.WithUserMessage(onUser))
	if err != nil {
		if ctx.Err() == nil {
			c.sendError(err.Error())
		}
		return
	}

	c.sendResult(map[string]any{
		"type":     "reply",
		"message":  turn.Reply,
		"ruleKey":  turn.RuleKey,
		"fallback": turn.Fallback,
	})
	c.sendResult(map[string]any{"type": "avatar", "avatar": c.avatar.React(turn.Expression)})

	started := c.speaker.Speak(ctx, turn.Reply.Text, func() {
		c.sendResult(map[string]any{"type": "avatar", "avatar": c.avatar.FinishSpeaking()})
	})
	if started {
		c.sendResult(map[string]any{"type": "avatar", "avatar": c.avatar.StartSpeaking()})
	}
}

func (h *WebSocketHandler) applyConfig(c *connection, cfg ConfigMessage) {
	if cfg.Language != "" {
		c.settings.Language = cfg.Language
		c.bridge.setLanguage(cfg.Language)
	}
	if cfg.Rate > 0 {
		c.settings.Rate = cfg.Rate
	}
	if cfg.Pitch > 0 {
		c.settings.Pitch = cfg.Pitch
	}
	if cfg.Volume > 0 && cfg.Volume <= 1 {
		c.settings.Volume = cfg.Volume
	}
	if len(cfg.PreferredVoice) > 0 {
		c.settings.PreferredVoice = append([]string(nil), cfg.PreferredVoice...)
	}
	if cfg.Recognition != nil {
		c.recognition = *cfg.Recognition
	}
	if cfg.Synthesis != nil {
		c.synthesis = *cfg.Synthesis
	}
}

// rebuildCapabilities 按客户端声明的能力重建 Listener 与 Speaker
func (h *WebSocketHandler) rebuildCapabilities(ctx context.Context, c *connection) {
	if c.listener != nil {
		c.listener.Close()
	}

	var rec speechservice.Recognizer
	if c.recognition {
		rec = c.bridge
	}
	c.listener = speechservice.NewListener(rec, func(text string) {
		h.processUserText(ctx, c, text)
	})

	var synth speechservice.Synthesizer
	if c.synthesis {
		synth = c.bridge
	}
	c.speaker = speechservice.NewSpeaker(synth, c.settings)
}

func (c *connection) write(msg outgoingMessage) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[voice] write %s failed: %v", msg.Type, err)
	}
}

func (c *connection) sendResult(data map[string]any) {
	c.write(outgoingMessage{
		Type:      "result",
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (c *connection) sendCommand(action string, data map[string]any) {
	payload := map[string]any{"action": action}
	for k, v := range data {
		payload[k] = v
	}
	c.write(outgoingMessage{
		Type:      "command",
		SessionID: c.sessionID,
		Data:      payload,
		Timestamp: time.Now().Unix(),
	})
}

func (c *connection) sendError(message string) {
	c.write(outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	})
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
