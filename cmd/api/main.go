package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm/logger"

	"github.com/yourusername/examprep-api/internal/config"
	"github.com/yourusername/examprep-api/internal/domain/entity"
	"github.com/yourusername/examprep-api/internal/domain/repository"
	"github.com/yourusername/examprep-api/internal/handler"
	"github.com/yourusername/examprep-api/internal/middleware"
	pgRepo "github.com/yourusername/examprep-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/examprep-api/internal/repository/redis"
	"github.com/yourusername/examprep-api/internal/service"
	"github.com/yourusername/examprep-api/internal/service/selection"
	"github.com/yourusername/examprep-api/pkg/auth"
	"github.com/yourusername/examprep-api/pkg/database"
	"github.com/yourusername/examprep-api/pkg/monitoring"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	gormLogLevel := logger.Info
	if isProduction {
		gormLogLevel = logger.Warn
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), gormLogLevel)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db, cfg.Database.MigrationsPath); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis необязателен: без него кеш отключен, а rate limiting работает локально.
	// В интерфейсы передаем именно nil, а не типизированный nil-указатель.
	var cacheRepo repository.CacheRepository
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Warning: Redis unavailable (%v). Cache disabled, rate limiting is local.", err)
		redisClient = nil
	} else {
		log.Println("Successfully connected to Redis")
		repo, errRepo := redisRepo.NewCacheRepo(redisClient, cfg.Redis.KeyPrefix)
		if errRepo != nil {
			log.Printf("Failed to initialize CacheRepo: %v", errRepo)
			os.Exit(1)
		}
		cacheRepo = repo
	}

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	answerRepo := pgRepo.NewAnswerRepo(db)
	sessionRepo := pgRepo.NewSessionRepo(db)
	analyticsRepo := pgRepo.NewAnalyticsRepo(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Подборщик вопросов ---
	selectionConfig := selection.DefaultConfig()
	selectionConfig.GlobalStatsCacheTTL = cfg.Selection.GlobalStatsCacheTTL
	selectionConfig.DomainsCacheTTL = cfg.Selection.DomainsCacheTTL
	selector := selection.NewQuestionSelector(selectionConfig, questionRepo, answerRepo, cacheRepo)

	// --- Хранилище изображений ---
	storage, err := service.NewStorageProvider(ctx, cfg.Storage)
	if err != nil {
		log.Printf("Failed to initialize storage provider: %v", err)
		os.Exit(1)
	}

	// --- Отчеты по email ---
	var emailService service.EmailService
	if cfg.Email.Enabled {
		if cfg.Email.ResendAPIKey == "" {
			log.Println("Warning: email enabled but RESEND_API_KEY is empty, reports will be logged only")
			emailService = &service.NoopEmailService{}
		} else {
			resendService, errEmail := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From)
			if errEmail != nil {
				log.Printf("Failed to initialize email service: %v", errEmail)
				os.Exit(1)
			}
			emailService = resendService
		}
	}

	// Инициализируем сервисы
	userService := service.NewUserService(userRepo)
	practiceService := service.NewPracticeService(cfg.Practice, selector, sessionRepo, questionRepo, answerRepo, userRepo, cacheRepo, emailService)
	historyService := service.NewHistoryService(answerRepo, sessionRepo, analyticsRepo, userRepo)
	questionService := service.NewQuestionService(questionRepo, answerRepo, sessionRepo, storage, selector, cfg.Storage.MaxImageBytes)

	// Фоновое завершение просроченных сессий
	go func() {
		ticker := time.NewTicker(cfg.Practice.ExpiryCheckInterval)
		defer ticker.Stop()

		log.Printf("Запуск периодической проверки просроченных сессий (каждые %s)", cfg.Practice.ExpiryCheckInterval)

		for {
			select {
			case <-ticker.C:
				expired, err := practiceService.ExpireOverdueSessions(ctx)
				if err != nil {
					log.Printf("Ошибка при завершении просроченных сессий: %v", err)
				} else if expired > 0 {
					log.Printf("Завершено просроченных сессий: %d", expired)
				}
			case <-ctx.Done():
				log.Println("Завершение работы горутины проверки сессий")
				return
			}
		}
	}()

	tokenVerifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.Audience, cfg.Auth.Issuer, cfg.Auth.Leeway)
	if err != nil {
		log.Printf("Failed to initialize token verifier: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	practiceHandler := handler.NewPracticeHandler(practiceService)
	questionHandler := handler.NewQuestionHandler(questionService, selector, cfg.Storage.MaxImageBytes)
	historyHandler := handler.NewHistoryHandler(historyService)
	userHandler := handler.NewUserHandler(userService)
	wsHandler := handler.NewWSHandler(practiceService, cfg.Server.AllowedOrigins)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenVerifier, userService)
	rateLimiter := middleware.NewRateLimiter(redisClient)
	monitoring.Init()

	// Инициализируем роутер Gin
	router := gin.Default()
	router.Use(monitoring.MetricsMiddleware())

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Локальные изображения вопросов раздаются самим сервером
	if cfg.Storage.Provider == "local" && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		router.Static(cfg.Storage.PublicBaseURL, cfg.Storage.LocalPath)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", monitoring.PrometheusHandler())

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	{
		users := api.Group("/users")
		{
			users.GET("/me", userHandler.GetMe)
			users.PUT("/me", userHandler.UpdateMe)
		}

		api.GET("/questions/domains", questionHandler.GetDomains)

		// Практические сессии
		sessions := api.Group("/practice/sessions")
		{
			sessions.POST("", rateLimiter.Limit(middleware.SessionStartRateLimitConfig(cfg.RateLimit.SessionStartPerMinute)), practiceHandler.StartSession)
			sessions.GET("", practiceHandler.ListSessions)

			sessionWithID := sessions.Group("/:id")
			sessionWithID.Use(middleware.ExtractUUIDParam("id", "sessionID"))
			{
				sessionWithID.GET("", practiceHandler.GetSession)
				sessionWithID.POST("/answers", rateLimiter.Limit(middleware.AnswerRateLimitConfig(cfg.RateLimit.AnswerPerMinute)), practiceHandler.SubmitAnswer)
				sessionWithID.POST("/finish", practiceHandler.FinishSession)
			}
		}

		// История текущего пользователя
		history := api.Group("/history")
		{
			history.GET("/answers", historyHandler.MyAnswers)
			history.GET("/stats", historyHandler.MyStats)
		}

		// Данные студентов для инструкторов
		students := api.Group("/students/:id")
		students.Use(authMiddleware.RequireRole(entity.RoleSupporter, entity.RoleAdmin))
		students.Use(middleware.ExtractUUIDParam("id", "studentID"))
		{
			students.GET("/stats", historyHandler.StudentStats)
			students.GET("/answers", historyHandler.StudentAnswers)
			students.GET("/analytics", historyHandler.StudentAnalytics)
		}

		// Администрирование
		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireRole(entity.RoleAdmin))
		{
			questions := admin.Group("/questions")
			{
				questions.GET("", questionHandler.ListQuestions)
				questions.POST("", questionHandler.CreateQuestion)
				questions.POST("/bulk", questionHandler.BulkCreate)
				questions.GET("/export", questionHandler.ExportQuestions)
				questions.GET("/dashboard", questionHandler.GetDashboard)

				questionWithID := questions.Group("/:id")
				questionWithID.Use(middleware.ExtractUUIDParam("id", "questionID"))
				{
					questionWithID.GET("", questionHandler.GetQuestion)
					questionWithID.PUT("", questionHandler.UpdateQuestion)
					questionWithID.DELETE("", questionHandler.DeleteQuestion)
					questionWithID.POST("/image", questionHandler.UploadImage)
				}
			}

			admin.GET("/users", userHandler.ListUsers)
			admin.PUT("/users/:id/role", middleware.ExtractUUIDParam("id", "targetUserID"), userHandler.UpdateRole)
		}
	}

	// WebSocket таймера сессии. Токен передается в query-параметре access_token.
	router.GET("/ws/sessions/:id",
		authMiddleware.RequireAuth(),
		middleware.ExtractUUIDParam("id", "sessionID"),
		wsHandler.ServeSessionTimer,
	)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Отправляем сигнал завершения для всех горутин
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Дожидаемся отправки начатых отчетов
	practiceService.WaitForReports()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}

	log.Println("Server exited properly")
}
