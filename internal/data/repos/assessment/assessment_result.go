package assessment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

type AssessmentResultRepo interface {
	Create(dbc dbctx.Context, row *types.AssessmentResult) (*types.AssessmentResult, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentResult, error)
	ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*types.AssessmentResult, error)
	// Transition moves the row from one status to another. It reports false when
	// the row was not in the expected status.
	Transition(dbc dbctx.Context, id uuid.UUID, from, to string, updates map[string]interface{}) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type assessmentResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentResultRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentResultRepo {
	return &assessmentResultRepo{
		db:  db,
		log: baseLog.With("repo", "AssessmentResultRepo"),
	}
}

func (r *assessmentResultRepo) Create(dbc dbctx.Context, row *types.AssessmentResult) (*types.AssessmentResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = types.AssessmentPending
	}
	if row.AssessmentDate.IsZero() {
		row.AssessmentDate = now
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	if err := transaction.WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *assessmentResultRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.AssessmentResult
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
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

func (r *assessmentResultRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID, limit int) ([]*types.AssessmentResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AssessmentResult
	if projectID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("assessment_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentResultRepo) Transition(dbc dbctx.Context, id uuid.UUID, from, to string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || !types.CanTransition(from, to) {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.AssessmentResult{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *assessmentResultRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.AssessmentResult{}).
		Where("id = ?", id).
		Updates(updates).Error
}
