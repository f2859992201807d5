package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/riskwarning-backend/internal/data/repos"
	"github.com/yungbote/riskwarning-backend/internal/data/repos/testutil"
	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

type recordingIndexer struct {
	emptySearcher
	schemaCalls int
	indicators  [][]string
	regulations [][]string
	failOn      string
}

func (r *recordingIndexer) EnsureSchema(context.Context) error {
	r.schemaCalls++
	return nil
}

func (r *recordingIndexer) UpsertIndicators(_ context.Context, docs []risk.Indicator) error {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.ID == r.failOn {
			return errors.New("rejected")
		}
		ids = append(ids, d.ID)
	}
	r.indicators = append(r.indicators, ids)
	return nil
}

func (r *recordingIndexer) UpsertRegulations(_ context.Context, docs []risk.Regulation) error {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	r.regulations = append(r.regulations, ids)
	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadDocumentFileYAMLAndJSON(t *testing.T) {
	yamlPath := writeFile(t, "kb.yaml", `
indicators:
  - id: ind-1
    name: Emission control
    max_score: 50
    tags: [environment]
regulations:
  - id: reg-1
    name: Discharge permit
    direction: prohibited
    applicable_subject: national law
`)
	var fromYAML KnowledgeBase
	require.NoError(t, ReadDocumentFile(yamlPath, &fromYAML))
	require.Len(t, fromYAML.Indicators, 1)
	assert.Equal(t, "Emission control", fromYAML.Indicators[0].Name)
	require.NotNil(t, fromYAML.Indicators[0].MaxScore)
	assert.Equal(t, 50.0, *fromYAML.Indicators[0].MaxScore)
	assert.Equal(t, "national law", fromYAML.Regulations[0].ApplicableSubject)

	jsonPath := writeFile(t, "kb.json", `{"indicators":[{"id":"ind-1","name":"Emission control","max_score":50,"tags":["environment"]}],
"regulations":[{"id":"reg-1","name":"Discharge permit","direction":"prohibited","applicable_subject":"national law"}]}`)
	var fromJSON KnowledgeBase
	require.NoError(t, ReadDocumentFile(jsonPath, &fromJSON))
	assert.Equal(t, fromJSON, fromYAML)

	bad := writeFile(t, "kb.yml", "indicators: [")
	assert.Error(t, ReadDocumentFile(bad, &KnowledgeBase{}))
}

func TestIndexKnowledgeBaseBatches(t *testing.T) {
	t.Setenv("RISK_INDEX_BATCH_SIZE", "2")
	idx := &recordingIndexer{}
	kb := KnowledgeBase{
		Indicators:  []risk.Indicator{{ID: "i1"}, {ID: "i2"}, {ID: "i3"}},
		Regulations: []risk.Regulation{{ID: "r1"}},
	}

	stats, err := IndexKnowledgeBase(context.Background(), logger.NewNop(), idx, kb)
	require.NoError(t, err)
	assert.Equal(t, IndexStats{Indicators: 3, Regulations: 1}, stats)
	assert.Equal(t, 1, idx.schemaCalls)
	assert.Equal(t, [][]string{{"i1", "i2"}, {"i3"}}, idx.indicators)
	assert.Equal(t, [][]string{{"r1"}}, idx.regulations)
}

func TestIndexKnowledgeBaseRejects(t *testing.T) {
	_, err := IndexKnowledgeBase(context.Background(), nil, emptySearcher{}, KnowledgeBase{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot index")

	idx := &recordingIndexer{}
	_, err = IndexKnowledgeBase(context.Background(), nil, idx, KnowledgeBase{Regulations: []risk.Regulation{{Name: "no id"}}})
	require.Error(t, err)
	assert.Zero(t, idx.schemaCalls)

	idx = &recordingIndexer{failOn: "i2"}
	stats, err := IndexKnowledgeBase(context.Background(), nil, idx, KnowledgeBase{Indicators: []risk.Indicator{{ID: "i1"}, {ID: "i2"}}})
	require.Error(t, err)
	assert.Zero(t, stats.Indicators)
}

func TestLoadBehaviors(t *testing.T) {
	ctx := context.Background()
	rs := repos.NewSet(testutil.DB(t), testutil.Logger(t))
	pid := uuid.New()
	prefix := pid.String()[:8]

	n, err := LoadBehaviors(ctx, rs, BehaviorFile{
		ProjectID: pid,
		Behaviors: []risk.Behavior{
			{ID: prefix + "-a", Description: "dumped waste water", Status: "completed"},
			{ID: prefix + "-b", Description: "trained staff", Status: "in progress", ProjectID: pid},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stored, err := rs.Behaviors.ListByProject(dbctx.Context{Ctx: ctx}, pid)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, b := range stored {
		assert.Equal(t, pid, b.ProjectID)
	}

	_, err = LoadBehaviors(ctx, rs, BehaviorFile{ProjectID: pid, Behaviors: []risk.Behavior{{ID: "x", ProjectID: uuid.New()}}})
	assert.Error(t, err)
	_, err = LoadBehaviors(ctx, rs, BehaviorFile{Behaviors: []risk.Behavior{{ID: "x"}}})
	assert.Error(t, err)
}
