package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// =========================
		// Inputs
		// =========================
		&types.Behavior{},

		// =========================
		// Assessment outputs
		// =========================
		&types.AssessmentResult{},
		&types.IndicatorResult{},
	)
}

// EnsureRiskIndexes adds Postgres-only indexes that gorm tags cannot express.
func EnsureRiskIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_behaviors_project_created
		ON behaviors (project_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_behaviors_project_created: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_assessment_results_project_date
		ON assessment_results (project_id, assessment_date DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_assessment_results_project_date: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_indicator_results_details_gin
		ON indicator_results USING GIN (calculation_details);
	`).Error; err != nil {
		return fmt.Errorf("create idx_indicator_results_details_gin: %w", err)
	}
	return nil
}
