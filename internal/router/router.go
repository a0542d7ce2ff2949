package router

import (
	"net/http"
	"time"

	"tutorwallet/config"
	"tutorwallet/internal/domain"
	"tutorwallet/internal/events"
	"tutorwallet/internal/handler"
	"tutorwallet/internal/middleware"
	"tutorwallet/internal/repository"
	"tutorwallet/internal/service"
	"tutorwallet/internal/ws"
	"tutorwallet/pkg/log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Infra is the external plumbing built in main. Nil members are simply left out.
type Infra struct {
	Generator service.TutorGenerator
	SweepLock service.SweepLock
	Publisher events.Publisher
	Push      service.PushSender
}

// App is the HTTP engine plus the background monitor main has to run.
type App struct {
	Engine  *gin.Engine
	Monitor *service.SessionMonitor
	limiter *middleware.InMemoryRateLimiter
}

func (a *App) Close() {
	a.limiter.Stop()
}

func Setup(cfg *config.Config, db *gorm.DB, infra Infra, logger log.Log) *App {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	limiter := middleware.NewInMemoryRateLimiter(100, 60*time.Second)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	walletRepo := repository.NewWalletRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	generator := infra.Generator
	if generator == nil {
		generator = service.NewUnconfiguredGenerator()
	}

	// Services
	walletSvc := service.NewWalletService(db, userRepo, walletRepo, cfg.Wallet.WithdrawalLimit(), logger)
	earningsSvc := service.NewEarningsService(db, walletSvc, userRepo, withdrawalRepo, logger)
	sessionSvc := service.NewSessionService(db, walletSvc, userRepo, sessionRepo, generator, cfg.Tutor.ContextMessages, logger)
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, infra.Push)
	hub := ws.NewSessionHub()

	sinks := []service.SessionNotifier{hub, notifSvc}
	if infra.Publisher != nil {
		sinks = append(sinks, events.NewBusNotifier(infra.Publisher, cfg.Events.TopicPrefix, logger))
	}
	notifier := service.NewMultiNotifier(logger, sinks...)
	monitor := service.NewSessionMonitor(sessionSvc, sessionRepo, userRepo, notifier, infra.SweepLock, cfg.Monitor.Interval, logger)
	monitor.SetNotifyTimeout(cfg.Monitor.NotifyTimeout)

	// Handlers
	walletHandler := handler.NewWalletHandler(walletSvc)
	earningsHandler := handler.NewEarningsHandler(earningsSvc)
	adminHandler := handler.NewAdminHandler(earningsSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc)
	notificationHandler := handler.NewNotificationHandler(notifSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	rateMw := middleware.RateLimit(limiter)
	fundedMw := middleware.RequirePositiveBalance(userRepo)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(authMw, rateMw)
	{
		wallet := api.Group("/wallet")
		{
			wallet.GET("", walletHandler.GetBalance)
			wallet.POST("/funds", walletHandler.AddFunds)
			wallet.POST("/charges", walletHandler.Charge)
			wallet.GET("/transactions", walletHandler.ListTransactions)
		}
		api.POST("/proposals/:id/capture", earningsHandler.Capture)

		earnings := api.Group("/earnings")
		earnings.Use(middleware.RequireRole(domain.RoleTutor))
		{
			earnings.GET("", earningsHandler.GetEarnings)
			earnings.POST("/withdrawals", earningsHandler.RequestWithdrawal)
			earnings.GET("/withdrawals", earningsHandler.ListWithdrawals)
		}

		tutor := api.Group("/ai-tutor/sessions")
		{
			tutor.POST("", fundedMw, sessionHandler.Create)
			tutor.GET("", sessionHandler.List)
			tutor.GET("/:id", sessionHandler.Get)
			tutor.POST("/:id/messages", fundedMw, sessionHandler.SendMessage)
			tutor.POST("/:id/end", sessionHandler.End)
			tutor.POST("/:id/extend", sessionHandler.Extend)
		}

		api.GET("/notifications", notificationHandler.List)
		api.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		api.POST("/me/fcm-token", notificationHandler.RegisterFCMToken)

		admin := api.Group("/admin")
		admin.Use(middleware.AdminRequired())
		{
			admin.POST("/proposals/:id/release", earningsHandler.Release)
			admin.POST("/wallet/:user_id/refunds", walletHandler.Refund)
			admin.GET("/withdrawals/pending", adminHandler.PendingWithdrawals)
			admin.POST("/withdrawals/:id/approve", adminHandler.ApproveWithdrawal)
			admin.POST("/withdrawals/:id/reject", adminHandler.RejectWithdrawal)
		}
	}

	r.GET("/ws/sessions", ws.UpgradeSessionWS(&cfg.JWT, hub, sessionSvc, monitor, logger))

	return &App{Engine: r, Monitor: monitor, limiter: limiter}
}
