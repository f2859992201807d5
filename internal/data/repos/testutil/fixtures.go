package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
)

func SeedAssessment(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, status string) *types.AssessmentResult {
	tb.Helper()
	a := &types.AssessmentResult{
		ID:             uuid.New(),
		ProjectID:      projectID,
		Status:         status,
		AssessmentDate: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assessment: %v", err)
	}
	return a
}

func SeedBehaviors(tb testing.TB, ctx context.Context, tx *gorm.DB, projectID uuid.UUID, n int) []*types.Behavior {
	tb.Helper()
	out := make([]*types.Behavior, 0, n)
	date := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		b := &types.Behavior{
			ID:           fmt.Sprintf("%s-b%03d", projectID.String()[:8], i),
			ProjectID:    projectID,
			Description:  fmt.Sprintf("behavior %d", i),
			Tags:         []string{"safety"},
			Status:       "completed",
			BehaviorDate: &date,
			Vector:       []float32{1, 0},
		}
		out = append(out, b)
	}
	if n > 0 {
		if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
			tb.Fatalf("seed behaviors: %v", err)
		}
	}
	return out
}
