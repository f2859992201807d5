package assessment

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

type BehaviorRepo interface {
	ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Behavior, error)
	GetByID(dbc dbctx.Context, id string) (*types.Behavior, error)
	Upsert(dbc dbctx.Context, rows []*types.Behavior) error
}

type behaviorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBehaviorRepo(db *gorm.DB, baseLog *logger.Logger) BehaviorRepo {
	return &behaviorRepo{
		db:  db,
		log: baseLog.With("repo", "BehaviorRepo"),
	}
}

func (r *behaviorRepo) ListByProject(dbc dbctx.Context, projectID uuid.UUID) ([]*types.Behavior, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Behavior
	if projectID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *behaviorRepo) GetByID(dbc dbctx.Context, id string) (*types.Behavior, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == "" {
		return nil, nil
	}
	var out types.Behavior
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, nil
	}
	return &out, nil
}

// Upsert inserts behaviors or overwrites the stored copy keyed by id.
func (r *behaviorRepo) Upsert(dbc dbctx.Context, rows []*types.Behavior) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&rows).Error
}
