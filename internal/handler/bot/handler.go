package bot

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/homebot/backend/internal/model/expression"
	"github.com/zhouzirui/homebot/backend/internal/model/rule"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	"github.com/zhouzirui/homebot/backend/pkg/utils"
)

// Handler 规则表的HTTP处理器
type Handler struct {
	assistant *assistant.Service
}

// New 创建规则表处理器
func New(assistantSvc *assistant.Service) *Handler {
	return &Handler{assistant: assistantSvc}
}

// RegisterRoutes 注册规则表相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/bots", h.handleListBots)
	r.Get("/bots/{botID}", h.handleGetBot)
	r.Get("/expressions", h.handleListExpressions)
}

func (h *Handler) handleListBots(w http.ResponseWriter, r *http.Request) {
	bots := h.assistant.Bots()
	summaries := make([]rule.Summary, 0, len(bots))
	for _, b := range bots {
		summaries = append(summaries, b.Summarize())
	}
	utils.RespondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleGetBot(w http.ResponseWriter, r *http.Request) {
	b, err := h.assistant.Bot(chi.URLParam(r, "botID"))
	if errors.Is(err, assistant.ErrBotNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, b)
}

// handleListExpressions 返回每种表情对应的头像参数
func (h *Handler) handleListExpressions(w http.ResponseWriter, r *http.Request) {
	faces := make(map[expression.Expression]expression.Face)
	for _, e := range expression.All() {
		faces[e] = expression.FaceFor(e)
	}
	utils.RespondJSON(w, http.StatusOK, faces)
}
