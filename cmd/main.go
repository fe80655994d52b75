package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/streetlink-backend/internal/db"
	"github.com/yungbote/streetlink-backend/internal/handlers"
	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/middleware"
	"github.com/yungbote/streetlink-backend/internal/repos"
	"github.com/yungbote/streetlink-backend/internal/server"
	"github.com/yungbote/streetlink-backend/internal/services"
	"github.com/yungbote/streetlink-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if utils.GetEnvAsBool("DB_AUTO_MIGRATE", true, log) {
		if err = postgresService.AutoMigrateAll(); err != nil {
			log.Warn("Postgres auto migration failed", "error", err)
		}
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	categoryRepo := repos.NewCategoryRepo(thePG, log)
	individualRepo := repos.NewIndividualRepo(thePG, log)
	interactionRepo := repos.NewInteractionRepo(thePG, log)
	photoConsentRepo := repos.NewPhotoConsentRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Error("Could not init BucketService", "error", err)
		os.Exit(1)
	}
	openaiClient, err := services.NewOpenAIClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	transcriberService, err := services.NewTranscriberService(log, bucketService.BucketName())
	if err != nil {
		log.Error("Could not init TranscriberService", "error", err)
		os.Exit(1)
	}
	avatarService, err := services.NewAvatarService(log)
	if err != nil {
		log.Error("Could not init AvatarService", "error", err)
		os.Exit(1)
	}
	categoryService := services.NewCategoryService(thePG, log, categoryRepo)
	extractionService := services.NewExtractionService(log, openaiClient)
	comparatorService := services.NewComparatorService(log, openaiClient)
	resolverService := services.NewDuplicateResolverService(thePG, log, individualRepo, comparatorService)
	ingestionService := services.NewIngestionService(log, categoryRepo, transcriberService, extractionService, resolverService)
	individualService := services.NewIndividualService(thePG, log, categoryRepo, individualRepo, interactionRepo)
	searchService := services.NewSearchService(thePG, log, individualRepo, interactionRepo)
	filterOptionsService := services.NewFilterOptionsService(thePG, log, individualRepo)
	exportService := services.NewExportService(thePG, log, individualRepo, interactionRepo)
	photoService := services.NewPhotoService(thePG, log, bucketService, photoConsentRepo)

	// Preset categories
	presetPath := utils.GetEnv("PRESET_CATEGORIES_PATH", "config/preset_categories.yaml", log)
	if err := categoryService.SeedPresets(context.Background(), presetPath); err != nil {
		log.Warn("Preset category seeding failed", "error", err)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	transcribeHandler := handlers.NewTranscribeHandler(log, ingestionService)
	individualHandler := handlers.NewIndividualHandler(log, individualService, avatarService)
	searchHandler := handlers.NewSearchHandler(log, searchService, filterOptionsService)
	categoryHandler := handlers.NewCategoryHandler(log, categoryService)
	exportHandler := handlers.NewExportHandler(log, exportService)
	photoHandler := handlers.NewPhotoHandler(log, photoService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:    authMiddleware,
		TranscribeHandler: transcribeHandler,
		IndividualHandler: individualHandler,
		SearchHandler:     searchHandler,
		CategoryHandler:   categoryHandler,
		ExportHandler:     exportHandler,
		PhotoHandler:      photoHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
