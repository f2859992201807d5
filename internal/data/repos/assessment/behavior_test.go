package assessment

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/riskwarning-backend/internal/data/repos/testutil"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
)

func TestBehaviorRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewBehaviorRepo(db, testutil.Logger(t))

	projectID := uuid.New()
	seeded := testutil.SeedBehaviors(t, ctx, tx, projectID, 3)
	testutil.SeedBehaviors(t, ctx, tx, uuid.New(), 2)

	rows, err := repo.ListByProject(dbc, projectID)
	if err != nil {
		t.Fatalf("ListByProject: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("ListByProject: want=3 got=%d", len(rows))
	}
	if len(rows[0].Tags) != 1 || rows[0].Tags[0] != "safety" {
		t.Fatalf("ListByProject tags: got=%v", rows[0].Tags)
	}
	if len(rows[0].Vector) != 2 {
		t.Fatalf("ListByProject vector: got=%v", rows[0].Vector)
	}

	got, err := repo.GetByID(dbc, seeded[1].ID)
	if err != nil || got == nil || got.ID != seeded[1].ID {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if missing, err := repo.GetByID(dbc, "does-not-exist"); err != nil || missing != nil {
		t.Fatalf("GetByID missing: err=%v got=%v", err, missing)
	}

	seeded[1].Status = "paused"
	if err := repo.Upsert(dbc, seeded[1:2]); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err = repo.GetByID(dbc, seeded[1].ID)
	if err != nil || got == nil || got.Status != "paused" {
		t.Fatalf("Upsert status: err=%v got=%v", err, got)
	}

	if empty, err := repo.ListByProject(dbc, uuid.Nil); err != nil || len(empty) != 0 {
		t.Fatalf("ListByProject nil project: err=%v len=%d", err, len(empty))
	}
}
