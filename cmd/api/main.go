package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"rules-chat/internal/config"
	"rules-chat/internal/db"
	"rules-chat/internal/email"
	apihttp "rules-chat/internal/http"
	"rules-chat/internal/llm"
	"rules-chat/internal/repository"
	"rules-chat/internal/service"

	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	ruleRepo := repository.NewPgRuleRepository(pool)
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMEmbeddingModel, logger)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		mailLimiter = service.NewRequestLimiter(10*time.Minute, 3)
		usedTokens  = service.NewMemoryUsedTokenStore()
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			mailLimiter = service.NewRedisRequestLimiter(redisClient, 10*time.Minute, 3)
			usedTokens = service.NewRedisUsedTokenStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		cfg.AccessTokenTTL,
		cfg.VerificationTokenTTL,
		cfg.ResetTokenTTL,
		usedTokens,
	)

	userSvc := service.NewUserService(logger, userRepo, emailSender, jwtSvc, mailLimiter, cfg.FrontendURL)
	chatSvc := service.NewChatService(
		logger,
		llmClient,
		conversationRepo,
		messageRepo,
		service.NewWindowContextService(messageRepo, cfg.ChatMemorySize),
		service.NewRetriever(llmClient, ruleRepo, cfg.RetrieverLimit),
		service.ChatServiceConfig{Model: cfg.LLMModel, LightModel: cfg.LLMLightModel},
	)

	authHandler := apihttp.NewAuthHandler(logger, userSvc, jwtSvc)
	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, chatHandler, func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	})

	handler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(router)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
