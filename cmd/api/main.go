package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/edumark/edumark-api/internal/config"
	"github.com/edumark/edumark-api/internal/database"
	"github.com/edumark/edumark-api/internal/grading"
	"github.com/edumark/edumark-api/internal/handler"
	"github.com/edumark/edumark-api/internal/middleware"
	"github.com/edumark/edumark-api/internal/models"
	"github.com/edumark/edumark-api/internal/queue"
	"github.com/edumark/edumark-api/internal/repository"
	"github.com/edumark/edumark-api/internal/router"
	"github.com/edumark/edumark-api/internal/service"
	"github.com/edumark/edumark-api/pkg/ai"
	cloud "github.com/edumark/edumark-api/pkg/cloudinary"
	"github.com/edumark/edumark-api/pkg/extract"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Question{}, &models.Submission{}, &models.Notification{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	evaluator, err := ai.NewEvaluator(ai.ProviderConfig{
		Provider:        cfg.AIProvider,
		Model:           cfg.AIModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create evaluator: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifier := service.NewNotifier(notificationRepo, redisClient, cfg.ChannelBase, natsConn, logger)
	gradingService := service.NewGradingService(submissionRepo, questionRepo, evaluator, grading.NewMarkupReportParser(), logger)
	workflow := service.NewSubmissionWorkflow(submissionRepo, userRepo, gradingService, notifier, validate, logger)
	gradingQueue := queue.New(natsConn, cfg.GradingSubject, workflow, logger)
	questionService := service.NewQuestionService(questionRepo, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, questionRepo, uploader, extract.New(), gradingQueue, cfg.MaxUploadMB, validate, logger)
	statsService := service.NewStatsService(submissionRepo, redisClient, cfg.StatsCacheTTL, logger)

	questionHandler := handler.NewQuestionHandler(questionService, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, logger)
	reviewHandler := handler.NewReviewHandler(submissionService, workflow, statsService, logger)
	notificationHandler := handler.NewNotificationHandler(notifier, logger, cfg.SSEKeepAlive)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifier.Start(runCtx)
	if err := gradingQueue.Start(runCtx); err != nil {
		log.Fatalf("failed to start grading queue: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:     questionHandler,
		SubmissionHandler:   submissionHandler,
		ReviewHandler:       reviewHandler,
		NotificationHandler: notificationHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		TeacherMiddleware:   middleware.RequireRole(models.RoleTeacher, models.RoleAdmin),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(runCtx, app)
}

func waitForShutdown(runCtx context.Context, app *fiber.App) {
	<-runCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
