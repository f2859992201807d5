package assessment

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

type IndicatorResultRepo interface {
	// GetForUpdate returns the row for (assessmentID, indicatorID) locked for
	// the rest of the transaction, or nil when none exists.
	GetForUpdate(dbc dbctx.Context, assessmentID uuid.UUID, indicatorID string) (*types.IndicatorResult, error)
	Create(dbc dbctx.Context, rows []*types.IndicatorResult) error
	Update(dbc dbctx.Context, row *types.IndicatorResult) error
	ListByAssessment(dbc dbctx.Context, assessmentID uuid.UUID) ([]*types.IndicatorResult, error)
}

type indicatorResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndicatorResultRepo(db *gorm.DB, baseLog *logger.Logger) IndicatorResultRepo {
	return &indicatorResultRepo{
		db:  db,
		log: baseLog.With("repo", "IndicatorResultRepo"),
	}
}

func (r *indicatorResultRepo) GetForUpdate(dbc dbctx.Context, assessmentID uuid.UUID, indicatorID string) (*types.IndicatorResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if assessmentID == uuid.Nil || indicatorID == "" {
		return nil, nil
	}
	var out types.IndicatorResult
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("assessment_id = ? AND indicator_id = ?", assessmentID, indicatorID).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == uuid.Nil {
		return nil, nil
	}
	return &out, nil
}

func (r *indicatorResultRepo) Create(dbc dbctx.Context, rows []*types.IndicatorResult) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}

func (r *indicatorResultRepo) Update(dbc dbctx.Context, row *types.IndicatorResult) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil || row.ID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(row).
		Select("calculated_score", "max_possible_score", "calculation_details", "matched_behavior_ids", "calculated_at").
		Updates(row).Error
}

func (r *indicatorResultRepo) ListByAssessment(dbc dbctx.Context, assessmentID uuid.UUID) ([]*types.IndicatorResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.IndicatorResult
	if assessmentID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("assessment_id = ?", assessmentID).
		Order("indicator_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsUniqueViolation reports whether err came from a unique index, either
// translated by gorm or raw from pgx.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
