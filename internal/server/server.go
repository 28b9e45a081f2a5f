package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/cors"

	"promptgate/internal/config"
	"promptgate/internal/domain/services"
	domainllm "promptgate/internal/domain/services/llm"
	"promptgate/internal/handler"
	"promptgate/internal/metrics"
	"promptgate/internal/middleware"
	"promptgate/internal/repository/memory"
	"promptgate/internal/service/ask"
	"promptgate/internal/service/prompt"
	"promptgate/internal/service/quota"
	"promptgate/internal/service/ratelimit"
	"promptgate/internal/service/suggestion"
)

// App is the assembled gateway: its HTTP handler plus the stateful parts
// the process owns for its lifetime
type App struct {
	Handler  http.Handler
	Ask      services.AskService
	Quota    services.QuotaService
	Sessions *memory.SessionRepository
	Limiter  *ratelimit.Limiter
	Metrics  *metrics.Metrics
}

// Setup wires stores, services and routes around the given generator.
func Setup(
	cfg *config.Config,
	generator domainllm.Generator,
	logger *slog.Logger,
	limiterOpts ...ratelimit.Option,
) (*App, error) {
	m := metrics.New()

	prompts, err := prompt.NewBuilder()
	if err != nil {
		return nil, fmt.Errorf("load prompt catalog: %w", err)
	}
	logger.Info("prompt catalog loaded", "actions", prompts.Actions())

	sessions := memory.NewSessionRepository(logger)
	limiter := ratelimit.New(cfg.RateLimitWindow, logger,
		append([]ratelimit.Option{ratelimit.WithMetrics(m)}, limiterOpts...)...)

	quotaService := quota.NewService(sessions, quota.Limits{
		FreeQueries: cfg.FreeQueryLimit,
		PaidQueries: cfg.PaidQueryLimit,
	}, m, logger)

	suggestions := suggestion.NewPipeline(generator, prompts, m, logger)

	askService := ask.NewService(
		quotaService,
		prompts,
		generator,
		suggestions,
		ask.Paywall{
			FirstPaymentURL:  cfg.PaymentURL,
			SecondPaymentURL: cfg.PaymentRound2URL,
		},
		m,
		logger,
	)

	askHandler := handler.NewAskHandler(askService, m, logger)
	paymentHandler := handler.NewPaymentHandler(quotaService, m, logger)

	botGate := middleware.BotGate(cfg.HumanToken, m, logger)
	identity := middleware.IdentityResolver(logger)
	rateLimit := middleware.RateLimit(limiter, m, logger)

	mux := http.NewServeMux()

	// Liveness and operations
	mux.HandleFunc("GET /{$}", handler.Index)
	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /metrics", m.Handler())

	// Entry route: Bot Gate → Identity → Rate Limiter → handler (quota, generation)
	mux.Handle("POST /ask", chain(askHandler.Ask, botGate, identity, rateLimit))
	// Follow-ups continue a quota-checked conversation and skip the rate limiter
	mux.Handle("POST /followup", chain(askHandler.FollowUp, botGate, identity))

	// Payment confirmations
	mux.HandleFunc("POST /confirm_payment", paymentHandler.ConfirmPayment)
	mux.HandleFunc("POST /confirm_payment_round2", paymentHandler.ConfirmPaymentRound2)
	mux.HandleFunc("GET /sessions/{id}", paymentHandler.GetSession)

	// Build middleware chain
	// Order: CORS → RequestLogger → Recovery → Routes
	var h http.Handler = mux
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
	})
	h = corsHandler.Handler(h)

	return &App{
		Handler:  h,
		Ask:      askService,
		Quota:    quotaService,
		Sessions: sessions,
		Limiter:  limiter,
		Metrics:  m,
	}, nil
}

// chain wraps h with middleware; the first one listed runs first
func chain(h http.HandlerFunc, mws ...func(http.Handler) http.Handler) http.Handler {
	var wrapped http.Handler = h
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
