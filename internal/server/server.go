// Package server wires services and handlers into the HTTP router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/config"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/handlers"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/middleware"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

// UploadURLPrefix is where stored uploads are served from.
const UploadURLPrefix = "/static/uploads"

// Deps are the process-wide collaborators the server is built from.
type Deps struct {
	Config *config.Config
	DB     *gorm.DB
	// Events receives status-change and reply notifications asynchronously.
	Events services.EventPublisher
	// Sender delivers the synchronous notify-bot and test calls.
	Sender     webhook.Sender
	WebhookURL string
	Store      storage.Store
}

// Server exposes the router plus the services background jobs need.
type Server struct {
	Router   *gin.Engine
	Tokens   services.TokenStorer
	Settings services.SettingsServicer
}

// New builds every service and handler and registers the routes.
func New(d Deps) *Server {
	cfg := d.Config
	db := d.DB

	// Services
	auditService := services.NewAuditService(db)
	bankService := services.NewBankService(db)
	identityService := services.NewIdentityService(db)
	orderService := services.NewOrderService(db, bankService, identityService, auditService, d.Events, cfg.Location())
	settlementService := services.NewSettlementService(db, bankService, orderService, auditService, d.Events)
	messageService := services.NewMessageService(db, identityService, orderService, settlementService, d.Events)
	settingsService := services.NewSettingsService(db)
	userService := services.NewUserService(db)
	tokenStore := services.NewTokenStore(db, cfg.TokenTTL)

	// Handlers
	h := routeHandlers{
		auth:     handlers.NewAuthHandler(userService, tokenStore),
		admin:    handlers.NewAdminHandler(handlers.AdminCredentials{Username: cfg.AdminUsername, PasswordHash: cfg.AdminPasswordHash}),
		orders:   handlers.NewOrderHandler(orderService, settlementService, d.Store),
		banks:    handlers.NewBankHandler(bankService, settlementService, d.Store),
		messages: handlers.NewMessageHandler(messageService, d.Store),
		settings: handlers.NewSettingsHandler(settingsService),
		webhook:  handlers.NewWebhookHandler(d.Sender, d.WebhookURL),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors())

	if cfg.UploadDir != "" {
		router.Static(UploadURLPrefix, cfg.UploadDir)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	registerRoutes(router.Group("/api"), h, cfg.BotAPIKey, tokenStore)

	return &Server{Router: router, Tokens: tokenStore, Settings: settingsService}
}

type routeHandlers struct {
	auth     *handlers.AuthHandler
	admin    *handlers.AdminHandler
	orders   *handlers.OrderHandler
	banks    *handlers.BankHandler
	messages *handlers.MessageHandler
	settings *handlers.SettingsHandler
	webhook  *handlers.WebhookHandler
}

func registerRoutes(api *gin.RouterGroup, h routeHandlers, botAPIKey string, tokens middleware.TokenResolver) {
	botKey := middleware.BotKeyAuth(botAPIKey)
	adminAuth := middleware.AdminAuthMiddleware()

	auth := api.Group("/auth")
	auth.POST("/register", h.auth.Register)
	auth.POST("/token", h.auth.Token)
	auth.GET("/account", middleware.UserTokenAuth(tokens), h.auth.Account)

	api.GET("/settings/", h.settings.GetSettings)

	banks := api.Group("/banks")
	banks.GET("/thai", h.banks.ListThai)
	banks.GET("/myanmar", h.banks.ListMyanmar)
	banks.GET("/balances", h.banks.Balances)
	banks.POST("/balances/apply", botKey, h.banks.ApplyBalances)

	orders := api.Group("/orders")
	orders.POST("/submit", middleware.OptionalUserToken(tokens), h.orders.SubmitOrder)
	orders.GET("/latest_order", middleware.UserTokenAuth(tokens), h.orders.GetLatestOrder)
	orders.GET("/pending", h.orders.GetPendingOrder)
	orders.GET("/:order_id", h.orders.GetOrder)
	orders.PATCH("/:order_id/status", botKey, h.orders.UpdateStatusFromBot)

	message := api.Group("/message")
	message.POST("/submit", h.messages.SubmitMessage)
	message.GET("/poll", h.messages.PollMessages)

	hooks := api.Group("/webhook")
	hooks.POST("/notify-bot", botKey, h.webhook.NotifyBot)
	hooks.POST("/test", adminAuth, h.webhook.Test)

	admin := api.Group("/admin")
	admin.POST("/login", h.admin.Login)

	protected := admin.Group("")
	protected.Use(adminAuth)

	adminOrders := protected.Group("/orders")
	adminOrders.GET("", h.orders.ListOrders)
	adminOrders.GET("/:order_id", h.orders.GetOrder)
	adminOrders.PATCH("/:order_id/status", h.orders.UpdateStatus)
	adminOrders.POST("/:order_id/settle", h.orders.Settle)
	adminOrders.POST("/:order_id/confirm-receipt", h.orders.AttachConfirmReceipt)
	adminOrders.DELETE("/:order_id", h.orders.DeleteOrder)

	chats := protected.Group("/chats")
	chats.GET("", h.messages.ListChats)
	chats.GET("/:identity_id", h.messages.ChatDetail)
	chats.POST("/:identity_id/reply", h.messages.Reply)
	chats.PATCH("/:identity_id/order-status", h.messages.UpdateOrderStatus)

	settings := protected.Group("/settings")
	settings.PUT("/maintenance", h.settings.SetMaintenance)
	settings.PUT("/auth-feature", h.settings.SetAuthFeature)
	settings.POST("/exchange-rates", h.settings.AddExchangeRate)
	settings.GET("/webhook", h.settings.GetWebhookSettings)
	settings.PUT("/webhook", h.settings.UpdateWebhookSettings)

	protected.GET("/webhook-logs", h.settings.ListWebhookLogs)

	adminBanks := protected.Group("/banks")
	adminBanks.POST("/:currency", h.banks.CreateAccount)
	adminBanks.PATCH("/:currency/:id/enabled", h.banks.SetEnabled)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+middleware.APIKeyHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
