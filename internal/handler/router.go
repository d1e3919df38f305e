package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/homebot/backend/internal/handler/bot"
	"github.com/zhouzirui/homebot/backend/internal/handler/chat"
	"github.com/zhouzirui/homebot/backend/internal/handler/stream"
	"github.com/zhouzirui/homebot/backend/internal/handler/voice"
	"github.com/zhouzirui/homebot/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/homebot/backend/internal/middleware"
	speechModel "github.com/zhouzirui/homebot/backend/internal/model/speech"
	"github.com/zhouzirui/homebot/backend/internal/service/assistant"
	"github.com/zhouzirui/homebot/backend/pkg/utils"
)

// Options 控制可选的路由
type Options struct {
	SpeechEnabled  bool
	SpeechSettings speechModel.Settings
	Metrics        *metrics.Recorder
}

// NewRouter wires HTTP routes to core services.
func NewRouter(assistantSvc *assistant.Service, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	botHandler := bot.New(assistantSvc)
	chatHandler := chat.New(assistantSvc)
	streamHandler := stream.New(assistantSvc)
	voiceHandler := voice.NewWebSocketHandler(assistantSvc, opts.SpeechSettings, opts.SpeechEnabled)

	r.Route("/api", func(api chi.Router) {
		botHandler.RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		voiceHandler.RegisterRoutes(api)
	})

	return r
}
