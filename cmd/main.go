package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/haitranq/prepline/config"
	"github.com/haitranq/prepline/database"
	_ "github.com/haitranq/prepline/docs" // Swagger docs - auto-generated
	adminctrl "github.com/haitranq/prepline/internal/controller/admin"
	userctrl "github.com/haitranq/prepline/internal/controller/user"
	"github.com/haitranq/prepline/internal/logger"
	"github.com/haitranq/prepline/internal/model"
	"github.com/haitranq/prepline/internal/repository"
	"github.com/haitranq/prepline/internal/service"
	"github.com/haitranq/prepline/internal/session"
	"github.com/haitranq/prepline/internal/store"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Prepline Exam Session API
// @version 1.0
// @description Timed mock test sessions with reload-safe countdowns, optimistic answer persistence and idempotent submission.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		// Core application components
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			NewAnchorStore,
			NewGinEngine,
			session.NewRegistry,
		),

		// Repositories layer
		fx.Provide(
			repository.NewMockTestRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewResponseRepository,
		),

		// Services layer
		fx.Provide(
			service.NewCollaborator,
			service.NewCatalogService,
			service.NewSubmissionService,
			service.NewAttemptService,
			service.NewReviewService,
		),

		// API controllers layer
		fx.Provide(
			adminctrl.NewAdminMockTestController,
			userctrl.NewMockTestController,
			userctrl.NewAttemptController,
		),

		fx.Invoke(RegisterRoutesAndStartServer),
		fx.Invoke(AutoMigrateDB),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
}

// NewAnchorStore prefers Redis for durable timer anchors and degrades to the
// in-memory store when no Redis address is configured (dev only: anchors then
// do not survive a process restart, though the attempt's startedAt fallback
// still keeps countdowns correct).
func NewAnchorStore(cfg *config.Config) (store.AnchorStore, error) {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set; timer anchors held in memory only")
		return store.NewMemoryAnchorStore(), nil
	}
	return store.NewRedisAnchorStore(cfg)
}

func NewGinEngine() *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	adminMockTestCtrl *adminctrl.AdminMockTestController,
	mockTestCtrl *userctrl.MockTestController,
	attemptCtrl *userctrl.AttemptController,
) {
	adminAPIGroup := router.Group("/api/v1/admin")
	{
		adminAPIGroup.POST("/mock-tests", adminMockTestCtrl.CreateMockTest)
	}

	userAPIGroup := router.Group("/api/v1")
	{
		userAPIGroup.GET("/mock-tests", mockTestCtrl.GetAllMockTests)
		userAPIGroup.GET("/mock-tests/:test_id", mockTestCtrl.GetMockTestDetails)

		userAPIGroup.POST("/mock-tests/:test_id/attempts", attemptCtrl.StartAttempt)
		userAPIGroup.GET("/mock-tests/:test_id/attempts", attemptCtrl.GetUserAttempts)

		userAPIGroup.GET("/attempts/:attempt_id", attemptCtrl.GetAttemptDetails)
		userAPIGroup.GET("/attempts/:attempt_id/state", attemptCtrl.GetAttemptState)
		userAPIGroup.GET("/attempts/:attempt_id/clock", attemptCtrl.GetClock)
		userAPIGroup.PUT("/attempts/:attempt_id/answers", attemptCtrl.RecordAnswer)
		userAPIGroup.POST("/attempts/:attempt_id/navigate", attemptCtrl.Navigate)
		userAPIGroup.POST("/attempts/:attempt_id/submit", attemptCtrl.SubmitAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/detach", attemptCtrl.DetachAttempt)
		userAPIGroup.POST("/attempts/:attempt_id/review", attemptCtrl.ReviewAttempt)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Exam session API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.MockTest{},
		&model.Question{},
		&model.StudentAttempt{},
		&model.StudentResponse{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
