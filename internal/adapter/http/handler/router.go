package handler

import (
	"time"

	"ecash-billing-engine/internal/adapter/http/middleware"
	redisStore "ecash-billing-engine/internal/adapter/storage/redis"
	"ecash-billing-engine/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const chatCompletionsPath = "/api/v1/chat/completions"

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Sessions         ports.SessionManager
	TokenSvc         ports.TokenService
	RateLimitStore   *redisStore.RateLimitStore          // nil = rate limiting disabled
	RateLimits       map[string]middleware.RateLimitRule // nil = DefaultRateLimitRules
	HealthCheckers   []ports.HealthChecker
	AuditSvc         ports.AuditService // nil = audit logging disabled
	MaxBodyBytes     int64
	ChatMaxBodyBytes int64 // 0 = MaxBodyBytes
	EventKeepAlive   time.Duration
	Docs             *APIDocs // nil = UI only, spec routes 404
	Logger           zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	limits := middleware.BodyLimits{Default: deps.MaxBodyBytes, Routes: map[string]int64{chatCompletionsPath: deps.ChatMaxBodyBytes}}
	if limits.Default <= 0 {
		limits.Default = 1 << 20
	}

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(limits))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	// Health check pings PostgreSQL and Redis
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// OpenAPI document and Swagger UI
	deps.Docs.register(r.Group("/swagger"))

	rules := deps.RateLimits
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}
	pass := func(c *gin.Context) { c.Next() }

	// rl limits a route by its group budget, or passes through when no
	// store is wired or the group has no rule.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return pass
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	auth := middleware.SessionAuth(deps.TokenSvc, deps.Sessions, deps.Logger)

	sessionHandler := NewSessionHandler(deps.Sessions)
	session := v1.Group("/session")
	{
		session.POST("/login", rl("session"), sessionHandler.Login)
		session.POST("/logout", auth, rl("session"), sessionHandler.Logout)
	}

	walletHandler := NewWalletHandler()
	wallet := v1.Group("/wallet", auth)
	{
		wallet.GET("/balance", rl("wallet"), walletHandler.GetBalance)
		wallet.GET("/mints", rl("wallet"), walletHandler.ListMints)
		wallet.POST("/mints", rl("wallet"), walletHandler.AddMint)
		wallet.POST("/send", rl("send"), walletHandler.Send)
		wallet.POST("/receive", rl("send"), walletHandler.Receive)
		wallet.POST("/reconcile", rl("send"), walletHandler.Reconcile)
		wallet.GET("/history", rl("wallet"), walletHandler.ListHistory)
		wallet.GET("/summary", rl("wallet"), walletHandler.GetSummary)
	}

	invoiceHandler := NewInvoiceHandler()
	invoices := v1.Group("/invoices", auth)
	{
		invoices.POST("/mint", rl("invoices"), invoiceHandler.CreateMint)
		invoices.POST("/melt", rl("invoices"), invoiceHandler.CreateMelt)
		invoices.GET("", rl("wallet"), invoiceHandler.List)
		invoices.GET("/:id", rl("wallet"), invoiceHandler.Get)
		invoices.POST("/:id/check", rl("invoices"), invoiceHandler.Check)
		invoices.POST("/:id/claim", rl("invoices"), invoiceHandler.Claim)
		invoices.POST("/:id/pay", rl("invoices"), invoiceHandler.Pay)
		invoices.POST("/:id/watch", rl("invoices"), invoiceHandler.Watch)
		invoices.DELETE("/:id/watch", rl("invoices"), invoiceHandler.Unwatch)
	}

	chatHandler := NewChatHandler(deps.Logger)
	r.POST(chatCompletionsPath, auth, rl("chat"), chatHandler.Completions)

	eventsHandler := NewEventsHandler(deps.EventKeepAlive)
	v1.GET("/events", auth, rl("events"), eventsHandler.Stream)

	return r
}
