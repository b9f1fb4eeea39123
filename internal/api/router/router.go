// Package router assembles the HTTP surface: health, metrics, channel
// webhooks, and the webchat endpoint.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lumina-estetica/citabot/internal/channels/whatsapp"
	"github.com/lumina-estetica/citabot/internal/conversation"
	httpmiddleware "github.com/lumina-estetica/citabot/internal/http/middleware"
	"github.com/lumina-estetica/citabot/internal/webchat"
	"github.com/lumina-estetica/citabot/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	WhatsAppAdapter     *whatsapp.Adapter
	WebchatHandler      *webchat.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// WebhookRateLimit caps requests/sec per IP on public endpoints; zero
	// disables the limiter.
	WebhookRateLimit float64
}

// New creates the Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.WebhookRateLimit > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, int(cfg.WebhookRateLimit*2)))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.WhatsAppAdapter != nil {
		r.Route("/webhooks/whatsapp", func(r chi.Router) {
			r.Get("/", cfg.WhatsAppAdapter.HandleVerification)
			r.Post("/", cfg.WhatsAppAdapter.HandleWebhook)
		})
	}

	if cfg.WebchatHandler != nil {
		r.Post("/webchat/message", cfg.WebchatHandler.HandleMessage)
	}

	if cfg.ConversationHandler != nil {
		r.Post("/conversations/message", cfg.ConversationHandler.Message)
	}

	return r
}
