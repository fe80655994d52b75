package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/streetlink-backend/internal/logger"
	"github.com/yungbote/streetlink-backend/internal/types"
	"github.com/yungbote/streetlink-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "streetlink", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("Failed to connect to Postgres: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.Category{},
		&types.Individual{},
		&types.Interaction{},
		&types.PhotoConsent{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}
	s.log.Info("Configuring foreign key relationships for postgres tables...")
	if err := s.db.Exec(`
    ALTER TABLE "interaction"
    ADD CONSTRAINT "fk_interaction_individual_id"
    FOREIGN KEY ("individual_id")
    REFERENCES "individual"("id")
    ON DELETE CASCADE
  `).Error; err != nil {
		s.log.Warn("Failed to add fk_interaction_individual_id (may already exist)", "error", err)
	}
	if err := s.db.Exec(`
    ALTER TABLE "photo_consent"
    ADD CONSTRAINT "fk_photo_consent_individual_id"
    FOREIGN KEY ("individual_id")
    REFERENCES "individual"("id")
    ON DELETE SET NULL
  `).Error; err != nil {
		s.log.Warn("Failed to add fk_photo_consent_individual_id (may already exist)", "error", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
