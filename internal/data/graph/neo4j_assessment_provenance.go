package graph

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/yungbote/riskwarning-backend/internal/domain"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
	"github.com/yungbote/riskwarning-backend/internal/platform/neo4jdb"
)

// ProvenanceLink records that a behavior moved an indicator, either through a
// regulation or, when RegulationID is empty, through the fallback formula.
type ProvenanceLink struct {
	BehaviorID   string
	RegulationID string
	IndicatorID  string
	Score        float64
	Influence    float64
	Weight       float64
}

// IndicatorScore is the aggregated score the assessment assigned to an indicator.
type IndicatorScore struct {
	IndicatorID string
	Name        string
	Score       float64
}

func UpsertAssessmentProvenance(
	ctx context.Context,
	client *neo4jdb.Client,
	log *logger.Logger,
	a *types.AssessmentResult,
	scores []IndicatorScore,
	links []ProvenanceLink,
) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if a == nil || a.ID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	scoreRows := indicatorRows(a, scores, now)
	regRows, fallbackRows := linkRows(a, links, now)

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	for _, stmt := range []string{
		`CREATE CONSTRAINT assessment_id_unique IF NOT EXISTS FOR (a:Assessment) REQUIRE a.id IS UNIQUE`,
		`CREATE CONSTRAINT behavior_id_unique IF NOT EXISTS FOR (b:Behavior) REQUIRE b.id IS UNIQUE`,
		`CREATE CONSTRAINT regulation_id_unique IF NOT EXISTS FOR (r:Regulation) REQUIRE r.id IS UNIQUE`,
		`CREATE CONSTRAINT indicator_id_unique IF NOT EXISTS FOR (i:Indicator) REQUIRE i.id IS UNIQUE`,
	} {
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			if log != nil {
				log.Warn("neo4j schema init failed (continuing)", "error", err)
			}
		} else {
			_, _ = res.Consume(ctx)
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		run := func(cypher string, params map[string]any) error {
			res, err := tx.Run(ctx, cypher, params)
			if err != nil {
				return err
			}
			_, err = res.Consume(ctx)
			return err
		}

		if err := run(`
MERGE (a:Assessment {id: $id})
SET a.project_id = $project_id,
    a.status = $status,
    a.assessment_date = $assessment_date,
    a.synced_at = $synced_at
`, map[string]any{
			"id":              a.ID.String(),
			"project_id":      a.ProjectID.String(),
			"status":          a.Status,
			"assessment_date": a.AssessmentDate.UTC().Format(time.RFC3339Nano),
			"synced_at":       now,
		}); err != nil {
			return nil, err
		}

		if len(scoreRows) > 0 {
			if err := run(`
UNWIND $rows AS r
MATCH (a:Assessment {id: r.assessment_id})
MERGE (i:Indicator {id: r.indicator_id})
SET i.name = CASE WHEN r.name = '' THEN i.name ELSE r.name END
MERGE (a)-[s:SCORED]->(i)
SET s.score = r.score,
    s.synced_at = r.synced_at
`, map[string]any{"rows": scoreRows}); err != nil {
				return nil, err
			}
		}

		if len(regRows) > 0 {
			if err := run(`
UNWIND $rows AS r
MERGE (b:Behavior {id: r.behavior_id})
MERGE (g:Regulation {id: r.regulation_id})
MERGE (i:Indicator {id: r.indicator_id})
MERGE (b)-[ap:APPLIES {assessment_id: r.assessment_id}]->(g)
SET ap.score = r.score,
    ap.weight = r.weight,
    ap.synced_at = r.synced_at
MERGE (g)-[inf:INFLUENCES {assessment_id: r.assessment_id, behavior_id: r.behavior_id}]->(i)
SET inf.influence = r.influence,
    inf.synced_at = r.synced_at
`, map[string]any{"rows": regRows}); err != nil {
				return nil, err
			}
		}

		if len(fallbackRows) > 0 {
			if err := run(`
UNWIND $rows AS r
MERGE (b:Behavior {id: r.behavior_id})
MERGE (i:Indicator {id: r.indicator_id})
MERGE (b)-[f:FALLBACK {assessment_id: r.assessment_id}]->(i)
SET f.score = r.score,
    f.synced_at = r.synced_at
`, map[string]any{"rows": fallbackRows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func indicatorRows(a *types.AssessmentResult, scores []IndicatorScore, now string) []map[string]any {
	out := make([]map[string]any, 0, len(scores))
	seen := map[string]bool{}
	for _, s := range scores {
		id := strings.TrimSpace(s.IndicatorID)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, map[string]any{
			"assessment_id": a.ID.String(),
			"indicator_id":  id,
			"name":          strings.TrimSpace(s.Name),
			"score":         s.Score,
			"synced_at":     now,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i]["indicator_id"].(string) < out[j]["indicator_id"].(string)
	})
	return out
}

// linkRows splits links into regulation-backed and fallback rows, dropping
// duplicates and links without a behavior or indicator.
func linkRows(a *types.AssessmentResult, links []ProvenanceLink, now string) (regs []map[string]any, fallback []map[string]any) {
	seen := map[string]bool{}
	for _, l := range links {
		bid := strings.TrimSpace(l.BehaviorID)
		iid := strings.TrimSpace(l.IndicatorID)
		rid := strings.TrimSpace(l.RegulationID)
		if bid == "" || iid == "" {
			continue
		}
		key := bid + "|" + rid + "|" + iid
		if seen[key] {
			continue
		}
		seen[key] = true
		row := map[string]any{
			"assessment_id": a.ID.String(),
			"behavior_id":   bid,
			"indicator_id":  iid,
			"score":         l.Score,
			"synced_at":     now,
		}
		if rid == "" {
			fallback = append(fallback, row)
			continue
		}
		row["regulation_id"] = rid
		row["influence"] = l.Influence
		row["weight"] = l.Weight
		regs = append(regs, row)
	}
	return regs, fallback
}
