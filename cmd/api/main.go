package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/campuslink/campuslink-backend/internal/config"
	"github.com/campuslink/campuslink-backend/internal/domain"
	"github.com/campuslink/campuslink-backend/internal/handler"
	"github.com/campuslink/campuslink-backend/internal/middleware"
	"github.com/campuslink/campuslink-backend/internal/presence"
	"github.com/campuslink/campuslink-backend/internal/ratelimit"
	"github.com/campuslink/campuslink-backend/internal/repository"
	"github.com/campuslink/campuslink-backend/internal/routes"
	"github.com/campuslink/campuslink-backend/internal/scheduler"
	"github.com/campuslink/campuslink-backend/internal/service"
	"github.com/campuslink/campuslink-backend/internal/ws"
	"github.com/campuslink/campuslink-backend/pkg/jwt"
	pkglogger "github.com/campuslink/campuslink-backend/pkg/logger"
	pkgredis "github.com/campuslink/campuslink-backend/pkg/redis"
)

func main() {
	config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.Init(env)
	logger := pkglogger.GetLogger()

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := initDB(cfg, env)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info().Str("host", cfg.Database.Host).Msg("connected to MySQL")

	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running single-instance")
		redisClient = nil
	}

	// Repositories
	memberRepo := repository.NewMemberRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Real-time hub and presence
	hub := ws.NewHub(redisClient)
	tracker := presence.NewTracker()
	hub.OnConnect(func(userID string) {
		tracker.Connected(userID)
		hub.BroadcastAll(presenceUpdate(tracker, userID))
	})
	hub.OnDisconnect(func(userID string) {
		tracker.Disconnected(userID, hub.IsOnline(userID))
		hub.BroadcastAll(presenceUpdate(tracker, userID))
	})
	hub.OnDeliver(middleware.CountPushDelivered)
	go hub.Run()

	// Services
	perms := service.NewRolePermissionChecker(func(userID string) (string, error) {
		member, err := memberRepo.FindByUserID(userID)
		if err != nil {
			return "", err
		}
		return member.Role, nil
	})
	channelSvc := service.NewChannelService(channelRepo, membershipRepo, memberRepo, hub, perms)
	messageSvc := service.NewMessageService(messageRepo, channelRepo, membershipRepo, memberRepo, hub, perms)
	reactionSvc := service.NewReactionService(messageRepo, membershipRepo, hub)
	invitationSvc := service.NewInvitationService(invitationRepo, channelRepo, membershipRepo, memberRepo, hub)
	alertSvc := service.NewAlertService(alertRepo, hub, perms)

	// Rate limiter
	limiter := ratelimit.NewLimiter(map[ratelimit.Category]int{
		ratelimit.CategoryDefault:   cfg.RateLimit.Default,
		ratelimit.CategoryAnonymous: cfg.RateLimit.Anonymous,
		ratelimit.CategoryLogin:     cfg.RateLimit.Login,
		ratelimit.CategoryMessage:   cfg.RateLimit.Message,
		ratelimit.CategoryUpload:    cfg.RateLimit.Upload,
		ratelimit.CategoryAdmin:     cfg.RateLimit.Admin,
	}, cfg.RateLimit.Whitelist)

	// Background sweeps
	sched := scheduler.NewScheduler(30 * time.Second)
	sched.Register("invitation-expiry", time.Hour, func() error {
		_, err := invitationSvc.ExpirePending()
		return err
	})
	presenceTimeout := time.Duration(cfg.Presence.InactivityTimeoutMinutes) * time.Minute
	sched.Register("presence-inactivity", time.Minute, func() error {
		for _, userID := range tracker.CheckInactive(presenceTimeout) {
			hub.BroadcastAll(presenceUpdate(tracker, userID))
		}
		return nil
	})
	sched.Register("typing-cleanup", 30*time.Second, func() error {
		tracker.CleanupTyping()
		return nil
	})
	sched.Register("ratelimit-cleanup", 5*time.Minute, func() error {
		limiter.Cleanup()
		return nil
	})
	sched.Register("ws-connection-gauge", 30*time.Second, func() error {
		middleware.SetWSConnections(float64(hub.ConnectionCount()))
		return nil
	})
	sched.Register("stale-alert-cleanup", 24*time.Hour, func() error {
		_, err := alertSvc.DeactivateStale(24 * time.Hour)
		return err
	})
	sched.Start()

	// HTTP layer
	jwtManager := jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	audit := middleware.NewAuditLogger(db)

	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimit(limiter))

	channelHandler := handler.NewChannelHandler(channelSvc, audit)
	messageHandler := handler.NewMessageHandler(messageSvc, reactionSvc, audit)
	invitationHandler := handler.NewInvitationHandler(invitationSvc)
	alertHandler := handler.NewAlertHandler(alertSvc, audit)
	presenceHandler := handler.NewPresenceHandler(tracker, channelSvc, hub)
	wsHandler := handler.NewWSHandler(hub, joinOrigins(cfg.Server.AllowOrigins))

	routes.Setup(router, channelHandler, messageHandler, invitationHandler,
		alertHandler, presenceHandler, wsHandler, jwtManager)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	sched.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
	logger.Info().Msg("server stopped")
}

func initDB(cfg *config.Config, env string) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if env == "local" || env == "development" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func presenceUpdate(tracker *presence.Tracker, userID string) *domain.Push {
	return domain.NewBroadcastPush(domain.ActionPresenceUpdated, tracker.Status(userID))
}

func joinOrigins(origins []string) string {
	return strings.Join(origins, ",")
}
