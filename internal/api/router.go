package api

import (
	"net/http"

	"github.com/cxlinux-ai/supportbot/internal/agent"
	"github.com/cxlinux-ai/supportbot/internal/api/handler"
	customMiddleware "github.com/cxlinux-ai/supportbot/internal/api/middleware"
	"github.com/cxlinux-ai/supportbot/internal/config"
	"github.com/cxlinux-ai/supportbot/internal/domain"
	"github.com/cxlinux-ai/supportbot/internal/escalation"
	"github.com/cxlinux-ai/supportbot/internal/llm"
	"github.com/cxlinux-ai/supportbot/internal/llm/anthropic"
	"github.com/cxlinux-ai/supportbot/internal/llm/gemini"
	"github.com/cxlinux-ai/supportbot/internal/llm/openai"
	"github.com/cxlinux-ai/supportbot/internal/memory"
	"github.com/cxlinux-ai/supportbot/internal/notify"
	"github.com/cxlinux-ai/supportbot/internal/quota"
	"github.com/cxlinux-ai/supportbot/internal/search"
	"github.com/cxlinux-ai/supportbot/internal/search/bounty"
	"github.com/cxlinux-ai/supportbot/internal/search/kb"
	"github.com/cxlinux-ai/supportbot/internal/search/tracker"
	"github.com/cxlinux-ai/supportbot/internal/search/web"
	"github.com/cxlinux-ai/supportbot/internal/security"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
)

// Deps holds the storage-mode-specific backends built in main
type Deps struct {
	Conversations domain.ConversationStore
	Usage         domain.UsageStore
	Cache         domain.ResponseCache
	KBCollection  *mongo.Collection
	Pinger        handler.Pinger
}

// NewRouter creates and configures the HTTP router. The returned memory
// manager must be closed on shutdown to flush pending session writes.
func NewRouter(cfg *config.Config, deps Deps) (http.Handler, *memory.Manager) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize LLM Router with providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.Anthropic.APIKey != "" {
		llmRouter.RegisterProvider(anthropic.NewProvider(cfg.LLM.Anthropic.APIKey, cfg.LLM.Anthropic.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model))
	} else {
		log.Warn().Msg("Gemini API Key is empty, skipping registration")
	}

	// Conversation memory. Summaries go through the default provider's
	// fast tier.
	var summarizer memory.Summarizer
	if provider, err := llmRouter.GetProvider(""); err == nil {
		summarizer = memory.NewModelSummarizer(provider, cfg.LLM.FastModel)
	} else {
		log.Warn().Err(err).Msg("No provider available, summarization disabled")
	}
	mem := memory.NewManager(deps.Conversations, summarizer, memory.Config{
		MaxMessages:   cfg.Memory.MaxMessages,
		SummarizeAt:   cfg.Memory.SummarizeAt,
		KeepRecent:    cfg.Memory.KeepRecent,
		IdleTimeout:   cfg.Memory.IdleTimeout,
		FlushInterval: cfg.Memory.FlushInterval,
	})

	// Context providers
	var providers []search.Provider
	if deps.KBCollection != nil {
		providers = append(providers, kb.NewProvider(deps.KBCollection, cfg.Mongo.Timeout))
	}
	if cfg.Search.Web.Endpoint != "" {
		providers = append(providers, web.NewProvider(cfg.Search.Web.Endpoint, cfg.Search.Web.APIKey, cfg.Search.Web.Timeout))
	}
	if cfg.Search.Tracker.Endpoint != "" {
		providers = append(providers, tracker.NewProvider(cfg.Search.Tracker.Endpoint, cfg.Search.Tracker.APIKey, cfg.Search.Tracker.Timeout))
	}
	if cfg.Search.Bounty.Endpoint != "" {
		providers = append(providers, bounty.NewProvider(cfg.Search.Bounty.Endpoint, cfg.Search.Bounty.Timeout))
	}
	aggregator := search.NewAggregator(providers, cfg.Search.OverallDeadline, cfg.Search.MaxResults, cfg.Search.MaxTotalChars)

	// Escalation
	engine := escalation.NewEngine(cfg.Escalation.LengthThreshold)
	var notifier domain.Notifier
	if cfg.Escalation.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Escalation.WebhookURL, cfg.Escalation.WebhookTimeout)
	} else {
		notifier = notify.NoopNotifier{}
	}

	limiter := quota.NewLimiter(deps.Usage, cfg.Quota.DailyAllowance)

	orchestrator := agent.NewOrchestrator(
		limiter,
		deps.Cache,
		mem,
		aggregator,
		engine,
		llmRouter,
		notifier,
		agent.Config{
			SystemPrompt: cfg.LLM.SystemPrompt,
			Provider:     cfg.LLM.DefaultProvider,
			FastModel:    cfg.LLM.FastModel,
			QualityModel: cfg.LLM.QualityModel,
		},
	)

	// Initialize handlers
	turnHandler := handler.NewTurnHandler(orchestrator)
	sessionHandler := handler.NewSessionHandler(mem)
	usageHandler := handler.NewUsageHandler(limiter)

	// Auth middleware for operator endpoints
	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(deps.Pinger))

		// Turn endpoint, called by the messaging-platform bridge
		r.Post("/turns", turnHandler.Answer)

		// Operator routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/llm-providers", handler.ListProviders(llmRouter))
			r.Get("/usage/{identityID}", usageHandler.Get)

			r.Route("/sessions/{channelID}/{identityID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
			})
		})
	})

	return r, mem
}
