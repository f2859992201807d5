package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

var objectIDNamespace = uuid.MustParse("6f0f3c1e-4b7a-4a53-9b0e-2f1c8f3d9a41")

// Searcher answers candidate queries with BM25 over the indicator and
// regulation classes.
type Searcher struct {
	client *weaviate.Client
	cfg    Config
	log    *logger.Logger
}

var _ retrieval.Searcher = (*Searcher)(nil)

func NewSearcher(log *logger.Logger, cfg Config) (*Searcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	host, scheme, err := cfg.hostScheme()
	if err != nil {
		return nil, err
	}
	if cfg.IndicatorClass == "" || cfg.RegulationClass == "" {
		return nil, fmt.Errorf("weaviate indicator and regulation classes are required")
	}
	wcfg := weaviate.Config{Host: host, Scheme: scheme}
	if cfg.APIKey != "" {
		wcfg.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}
	s := &Searcher{
		client: client,
		cfg:    cfg,
		log:    log.With("service", "WeaviateSearcher"),
	}
	log.Info("Weaviate searcher selected",
		"provider", "weaviate",
		"host", host,
		"indicator_class", cfg.IndicatorClass,
		"regulation_class", cfg.RegulationClass,
	)
	return s, nil
}

// Ready reports whether the server answers its readiness probe.
func (s *Searcher) Ready(ctx context.Context) error {
	ok, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate ready check: %w", err)
	}
	if !ok {
		return fmt.Errorf("weaviate not ready")
	}
	return nil
}

// EnsureSchema creates the two classes when they are missing.
func (s *Searcher) EnsureSchema(ctx context.Context) error {
	for _, class := range []*models.Class{indicatorClass(s.cfg.IndicatorClass), regulationClass(s.cfg.RegulationClass)} {
		if _, err := s.client.Schema().ClassGetter().WithClassName(class.Class).Do(ctx); err == nil {
			s.log.Debug("Schema already exists", "class", class.Class)
			continue
		}
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("create class %s: %w", class.Class, err)
		}
		s.log.Info("Created schema", "class", class.Class)
	}
	return nil
}

func (s *Searcher) SearchIndicators(ctx context.Context, q retrieval.Query) ([]mapping.Scored[risk.Indicator], error) {
	fields := []graphql.Field{
		{Name: propDocID},
		{Name: propName},
		{Name: propDescription},
		{Name: propType},
		{Name: propIndicatorLevel},
		{Name: propDimension},
		{Name: propIndustry},
		{Name: propTags},
		{Name: propMaxScore},
		{Name: "_additional { id score vector }"},
	}
	objects, err := s.bm25(ctx, "search_indicators", s.cfg.IndicatorClass, fields, []string{propName, propDescription, propTags}, q)
	if err != nil {
		return nil, err
	}
	out := make([]mapping.Scored[risk.Indicator], 0, len(objects))
	for _, m := range objects {
		id, score, vector := additional(m)
		ind := risk.Indicator{
			ID:             firstNonEmpty(getString(m, propDocID), id),
			Name:           getString(m, propName),
			Description:    getString(m, propDescription),
			Type:           getString(m, propType),
			IndicatorLevel: int(getFloat(m, propIndicatorLevel)),
			Dimension:      getString(m, propDimension),
			Industry:       getStrings(m, propIndustry),
			Tags:           getStrings(m, propTags),
			MaxScore:       getFloatPtr(m, propMaxScore),
			NameVector:     vector,
		}
		out = append(out, mapping.Scored[risk.Indicator]{Item: ind, Score: score})
	}
	return out, nil
}

func (s *Searcher) SearchRegulations(ctx context.Context, q retrieval.Query) ([]mapping.Scored[risk.Regulation], error) {
	fields := []graphql.Field{
		{Name: propDocID},
		{Name: propTitle},
		{Name: propType},
		{Name: propDimension},
		{Name: propIndustry},
		{Name: propTags},
		{Name: propRegion},
		{Name: propApplicableSubject},
		{Name: propFullText},
		{Name: propDirection},
		{Name: propQuantitativeIndicator},
		{Name: propQuantitativeDirection},
		{Name: propQuantitativeUnit},
		{Name: propCreatedAt},
		{Name: "_additional { id score vector }"},
	}
	objects, err := s.bm25(ctx, "search_regulations", s.cfg.RegulationClass, fields, []string{propTitle, propFullText, propTags}, q)
	if err != nil {
		return nil, err
	}
	out := make([]mapping.Scored[risk.Regulation], 0, len(objects))
	for _, m := range objects {
		id, score, vector := additional(m)
		reg := risk.Regulation{
			ID:                    firstNonEmpty(getString(m, propDocID), id),
			Name:                  getString(m, propTitle),
			Type:                  getString(m, propType),
			Dimension:             getString(m, propDimension),
			Industry:              getStrings(m, propIndustry),
			Tags:                  getStrings(m, propTags),
			Region:                getString(m, propRegion),
			ApplicableSubject:     getString(m, propApplicableSubject),
			FullText:              getString(m, propFullText),
			Direction:             getString(m, propDirection),
			QuantitativeIndicator: getFloatPtr(m, propQuantitativeIndicator),
			QuantitativeDirection: getString(m, propQuantitativeDirection),
			QuantitativeUnit:      getString(m, propQuantitativeUnit),
			CreatedAt:             getTimePtr(m, propCreatedAt),
			Vector:                vector,
		}
		out = append(out, mapping.Scored[risk.Regulation]{Item: reg, Score: score})
	}
	return out, nil
}

func (s *Searcher) bm25(ctx context.Context, op, class string, fields []graphql.Field, properties []string, q retrieval.Query) ([]map[string]interface{}, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("weaviate searcher unavailable")
	}
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, &OperationError{Code: OperationErrorValidation, Operation: op, Message: "query text required"}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(class).
		WithFields(fields...).
		WithBM25(s.client.GraphQL().Bm25ArgBuilder().WithQuery(text).WithProperties(properties...)).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &OperationError{Code: OperationErrorTimeout, Operation: op, Cause: fmt.Errorf("%w: %v", ctxErr, err)}
		}
		return nil, classifyError(op, err)
	}
	if len(result.Errors) > 0 {
		return nil, &OperationError{Code: OperationErrorQueryFailed, Operation: op, Message: result.Errors[0].Message}
	}

	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil, nil
	}
	raw, ok := data[class].([]interface{})
	if !ok {
		return nil, nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, obj := range raw {
		if m, ok := obj.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// UpsertIndicators stores indicators under ids derived from their document id.
func (s *Searcher) UpsertIndicators(ctx context.Context, docs []risk.Indicator) error {
	for _, d := range docs {
		props := map[string]interface{}{
			propDocID:          d.ID,
			propName:           d.Name,
			propDescription:    d.Description,
			propType:           d.Type,
			propIndicatorLevel: d.IndicatorLevel,
			propDimension:      d.Dimension,
			propIndustry:       nonNilStrings(d.Industry),
			propTags:           nonNilStrings(d.Tags),
		}
		if d.MaxScore != nil {
			props[propMaxScore] = *d.MaxScore
		}
		if err := s.upsert(ctx, s.cfg.IndicatorClass, d.ID, props, d.NameVector); err != nil {
			return err
		}
	}
	return nil
}

// UpsertRegulations stores regulations under ids derived from their document id.
func (s *Searcher) UpsertRegulations(ctx context.Context, docs []risk.Regulation) error {
	for _, d := range docs {
		props := map[string]interface{}{
			propDocID:                 d.ID,
			propTitle:                 d.Name,
			propType:                  d.Type,
			propDimension:             d.Dimension,
			propIndustry:              nonNilStrings(d.Industry),
			propTags:                  nonNilStrings(d.Tags),
			propRegion:                d.Region,
			propApplicableSubject:     d.ApplicableSubject,
			propFullText:              d.FullText,
			propDirection:             d.Direction,
			propQuantitativeDirection: d.QuantitativeDirection,
			propQuantitativeUnit:      d.QuantitativeUnit,
		}
		if d.QuantitativeIndicator != nil {
			props[propQuantitativeIndicator] = *d.QuantitativeIndicator
		}
		if d.CreatedAt != nil {
			props[propCreatedAt] = d.CreatedAt.UTC().Format(time.RFC3339)
		}
		if err := s.upsert(ctx, s.cfg.RegulationClass, d.ID, props, d.Vector); err != nil {
			return err
		}
	}
	return nil
}

func (s *Searcher) upsert(ctx context.Context, class, docID string, props map[string]interface{}, vector []float32) error {
	docID = strings.TrimSpace(docID)
	if docID == "" {
		return &OperationError{Code: OperationErrorValidation, Operation: "upsert", Message: "document id is required"}
	}
	id := uuid.NewSHA1(objectIDNamespace, []byte(class+"|"+docID)).String()

	exists, err := s.client.Data().Checker().WithClassName(class).WithID(id).Do(ctx)
	if err != nil {
		return classifyError("upsert", err)
	}
	if exists {
		updater := s.client.Data().Updater().WithClassName(class).WithID(id).WithProperties(props)
		if len(vector) > 0 {
			updater = updater.WithVector(vector)
		}
		if err := updater.Do(ctx); err != nil {
			return classifyError("upsert", err)
		}
		return nil
	}
	creator := s.client.Data().Creator().WithClassName(class).WithID(id).WithProperties(props)
	if len(vector) > 0 {
		creator = creator.WithVector(vector)
	}
	if _, err := creator.Do(ctx); err != nil {
		return classifyError("upsert", err)
	}
	return nil
}

func additional(m map[string]interface{}) (string, float64, []float32) {
	add, ok := m["_additional"].(map[string]interface{})
	if !ok {
		return "", 0, nil
	}
	id, _ := add["id"].(string)
	return id, parseScore(add["score"]), getVector(add["vector"])
}

// parseScore accepts the string form BM25 scores come back in.
func parseScore(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	case json.Number:
		f, _ := t.Float64()
		return f
	default:
		return 0
	}
}

func getVector(v interface{}) []float32 {
	raw, ok := v.([]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make([]float32, 0, len(raw))
	for _, x := range raw {
		if f, ok := x.(float64); ok {
			out = append(out, float32(f))
		}
	}
	return out
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getStrings(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		if s := getString(m, key); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, x := range raw {
		if s, ok := x.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func getFloat(m map[string]interface{}, key string) float64 {
	if p := getFloatPtr(m, key); p != nil {
		return *p
	}
	return 0
}

func getFloatPtr(m map[string]interface{}, key string) *float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func getTimePtr(m map[string]interface{}, key string) *time.Time {
	s := getString(m, key)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
