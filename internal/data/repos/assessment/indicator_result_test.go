package assessment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"

	"github.com/yungbote/riskwarning-backend/internal/data/repos/testutil"
	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
)

func TestIndicatorResultRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewIndicatorResultRepo(db, testutil.Logger(t))
	projectID := uuid.New()
	a := testutil.SeedAssessment(t, ctx, tx, projectID, types.AssessmentInProgress)

	now := time.Now().UTC()
	row := &types.IndicatorResult{
		ID:                      uuid.New(),
		ProjectID:               projectID,
		AssessmentID:            a.ID,
		IndicatorID:             "ind-1",
		IndicatorName:           "Safety incidents",
		CalculatedScore:         40,
		MaxPossibleScore:        100,
		UsedCalculationRuleType: types.RuleTypeAuto,
		CalculationDetails:      datatypes.JSON([]byte(`{"score":0.4}`)),
		MatchedBehaviorIDs:      []string{"b1"},
		RiskStatus:              types.RiskStatusNotEvaluated,
		CalculatedAt:            now,
		CreatedAt:               now,
	}
	if err := repo.Create(dbc, []*types.IndicatorResult{row}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetForUpdate(dbc, a.ID, "ind-1")
	if err != nil || got == nil {
		t.Fatalf("GetForUpdate: err=%v got=%v", err, got)
	}
	if got.CalculatedScore != 40 || len(got.MatchedBehaviorIDs) != 1 {
		t.Fatalf("GetForUpdate: score=%v ids=%v", got.CalculatedScore, got.MatchedBehaviorIDs)
	}
	if missing, err := repo.GetForUpdate(dbc, a.ID, "ind-2"); err != nil || missing != nil {
		t.Fatalf("GetForUpdate missing: err=%v got=%v", err, missing)
	}

	got.CalculatedScore = 50
	got.MatchedBehaviorIDs = append(got.MatchedBehaviorIDs, "b2")
	got.CalculatedAt = now.Add(time.Minute)
	if err := repo.Update(dbc, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	list, err := repo.ListByAssessment(dbc, a.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListByAssessment: err=%v len=%d", err, len(list))
	}
	if list[0].CalculatedScore != 50 || len(list[0].MatchedBehaviorIDs) != 2 {
		t.Fatalf("ListByAssessment row: score=%v ids=%v", list[0].CalculatedScore, list[0].MatchedBehaviorIDs)
	}

	dup := *row
	dup.ID = uuid.New()
	err = repo.Create(dbc, []*types.IndicatorResult{&dup})
	if !IsUniqueViolation(err) {
		t.Fatalf("Create duplicate: want unique violation got=%v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if IsUniqueViolation(nil) {
		t.Fatalf("nil: want=false")
	}
	if IsUniqueViolation(errors.New("boom")) {
		t.Fatalf("plain error: want=false")
	}
	wrapped := errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Fatalf("pg 23505: want=true")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatalf("pg 23503: want=false")
	}
}
