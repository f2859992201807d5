package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/riskwarning-backend/internal/data/repos"
	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/pkg/dbctx"
	"github.com/yungbote/riskwarning-backend/internal/platform/envutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

// KnowledgeBase is the document set an operator loads into the search index.
type KnowledgeBase struct {
	Indicators  []risk.Indicator  `json:"indicators"`
	Regulations []risk.Regulation `json:"regulations"`
}

// BehaviorFile is a batch of behaviors for one project.
type BehaviorFile struct {
	ProjectID uuid.UUID       `json:"project_id"`
	Behaviors []risk.Behavior `json:"behaviors"`
}

// KnowledgeIndexer writes documents into the search collaborator. Both the
// weaviate and the qdrant searchers implement it.
type KnowledgeIndexer interface {
	UpsertIndicators(ctx context.Context, docs []risk.Indicator) error
	UpsertRegulations(ctx context.Context, docs []risk.Regulation) error
}

type schemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// IndexStats counts documents written by IndexKnowledgeBase.
type IndexStats struct {
	Indicators  int `json:"indicators"`
	Regulations int `json:"regulations"`
}

// ReadDocumentFile decodes a JSON or YAML file into out using the JSON field
// names, so both formats share one set of keys. Dates must be RFC 3339.
func ReadDocumentFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if raw, err = json.Marshal(generic); err != nil {
			return fmt.Errorf("convert %s: %w", path, err)
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// OpenSearcher loads configuration and connects only the search collaborator.
func OpenSearcher(ctx context.Context, log *logger.Logger) (retrieval.Searcher, error) {
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}
	return resolveSearcher(ctx, log, cfg)
}

// IndexKnowledgeBase creates the index schema when the provider has one and
// upserts every document. Documents without an id are rejected up front.
func IndexKnowledgeBase(ctx context.Context, log *logger.Logger, s retrieval.Searcher, kb KnowledgeBase) (IndexStats, error) {
	idx, ok := s.(KnowledgeIndexer)
	if !ok {
		return IndexStats{}, fmt.Errorf("search provider %T cannot index documents", s)
	}
	for i, d := range kb.Indicators {
		if strings.TrimSpace(d.ID) == "" {
			return IndexStats{}, fmt.Errorf("indicator %d has no id", i)
		}
	}
	for i, d := range kb.Regulations {
		if strings.TrimSpace(d.ID) == "" {
			return IndexStats{}, fmt.Errorf("regulation %d has no id", i)
		}
	}
	if se, ok := s.(schemaEnsurer); ok {
		if err := se.EnsureSchema(ctx); err != nil {
			return IndexStats{}, fmt.Errorf("ensure schema: %w", err)
		}
	}

	batch := envutil.Int("RISK_INDEX_BATCH_SIZE", 100)
	if batch <= 0 {
		batch = 100
	}
	var stats IndexStats
	for start := 0; start < len(kb.Indicators); start += batch {
		end := min(start+batch, len(kb.Indicators))
		if err := idx.UpsertIndicators(ctx, kb.Indicators[start:end]); err != nil {
			return stats, fmt.Errorf("upsert indicators: %w", err)
		}
		stats.Indicators = end
	}
	for start := 0; start < len(kb.Regulations); start += batch {
		end := min(start+batch, len(kb.Regulations))
		if err := idx.UpsertRegulations(ctx, kb.Regulations[start:end]); err != nil {
			return stats, fmt.Errorf("upsert regulations: %w", err)
		}
		stats.Regulations = end
	}
	if log != nil {
		log.Info("Knowledge base indexed", "indicators", stats.Indicators, "regulations", stats.Regulations)
	}
	return stats, nil
}

// LoadBehaviors stores f's behaviors under f.ProjectID, overwriting rows with
// the same id. A behavior that names a different project is rejected.
func LoadBehaviors(ctx context.Context, rs repos.Set, f BehaviorFile) (int, error) {
	if f.ProjectID == uuid.Nil {
		return 0, fmt.Errorf("project_id is required")
	}
	rows := make([]*risk.Behavior, 0, len(f.Behaviors))
	for i := range f.Behaviors {
		b := f.Behaviors[i]
		if strings.TrimSpace(b.ID) == "" {
			return 0, fmt.Errorf("behavior %d has no id", i)
		}
		if b.ProjectID != uuid.Nil && b.ProjectID != f.ProjectID {
			return 0, fmt.Errorf("behavior %s belongs to project %s", b.ID, b.ProjectID)
		}
		b.ProjectID = f.ProjectID
		rows = append(rows, &b)
	}
	if err := rs.Behaviors.Upsert(dbctx.Context{Ctx: ctx}, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
