package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/ctxutil"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

var pointIDNamespaceUUID = uuid.MustParse("0f1705d1-2c3f-4e40-b2f4-f855f7d3c8e8")

// Searcher runs vector search over the indicator and regulation collections.
type Searcher struct {
	log      *logger.Logger
	cfg      Config
	baseURL  string
	http     *http.Client
	distance map[string]string
}

var _ retrieval.Searcher = (*Searcher)(nil)

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload json.RawMessage `json:"payload"`
	Vector  []float32       `json:"vector"`
}

type Option func(*Searcher)

// WithHTTPClient replaces the default client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Searcher) {
		if c != nil {
			s.http = c
		}
	}
}

func NewSearcher(ctx context.Context, log *logger.Logger, cfg Config, opts ...Option) (*Searcher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Searcher{
		log:      log.With("service", "QdrantSearcher"),
		cfg:      cfg,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		http:     &http.Client{Timeout: timeout},
		distance: map[string]string{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.verifyReady(ctx); err != nil {
		return nil, err
	}
	log.Info(
		"Qdrant searcher selected",
		"provider", "qdrant",
		"url", s.baseURL,
		"indicator_collection", cfg.IndicatorCollection,
		"regulation_collection", cfg.RegulationCollection,
		"vector_dim", cfg.VectorDim,
	)
	return s, nil
}

func (s *Searcher) SearchIndicators(ctx context.Context, q retrieval.Query) ([]mapping.Scored[risk.Indicator], error) {
	items, err := s.search(ctx, "search_indicators", s.cfg.IndicatorCollection, q)
	if err != nil {
		return nil, err
	}
	out := make([]mapping.Scored[risk.Indicator], 0, len(items))
	for _, item := range items {
		var ind risk.Indicator
		if err := json.Unmarshal(item.Payload, &ind); err != nil {
			s.log.Warn("Skipping undecodable indicator payload", "point_id", decodePointID(item.ID), "error", err)
			continue
		}
		if ind.ID == "" {
			ind.ID = decodePointID(item.ID)
		}
		if len(ind.NameVector) == 0 {
			ind.NameVector = item.Vector
		}
		out = append(out, mapping.Scored[risk.Indicator]{Item: ind, Score: s.normalizeScore(s.cfg.IndicatorCollection, item.Score)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Item.ID < out[j].Item.ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

func (s *Searcher) SearchRegulations(ctx context.Context, q retrieval.Query) ([]mapping.Scored[risk.Regulation], error) {
	items, err := s.search(ctx, "search_regulations", s.cfg.RegulationCollection, q)
	if err != nil {
		return nil, err
	}
	out := make([]mapping.Scored[risk.Regulation], 0, len(items))
	for _, item := range items {
		var reg risk.Regulation
		if err := json.Unmarshal(item.Payload, &reg); err != nil {
			s.log.Warn("Skipping undecodable regulation payload", "point_id", decodePointID(item.ID), "error", err)
			continue
		}
		if reg.ID == "" {
			reg.ID = decodePointID(item.ID)
		}
		if len(reg.Vector) == 0 {
			reg.Vector = item.Vector
		}
		out = append(out, mapping.Scored[risk.Regulation]{Item: reg, Score: s.normalizeScore(s.cfg.RegulationCollection, item.Score)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].Item.ID < out[j].Item.ID
		}
		return out[i].Score > out[j].Score
	})
	return out, nil
}

// UpsertIndicators writes indicator documents keyed by their id.
func (s *Searcher) UpsertIndicators(ctx context.Context, docs []risk.Indicator) error {
	points := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		p, err := s.point("upsert_indicators", s.cfg.IndicatorCollection, d.ID, d.NameVector, d)
		if err != nil {
			return err
		}
		points = append(points, p)
	}
	return s.upsert(ctx, "upsert_indicators", s.cfg.IndicatorCollection, points)
}

// UpsertRegulations writes regulation documents keyed by their id.
func (s *Searcher) UpsertRegulations(ctx context.Context, docs []risk.Regulation) error {
	points := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		p, err := s.point("upsert_regulations", s.cfg.RegulationCollection, d.ID, d.Vector, d)
		if err != nil {
			return err
		}
		points = append(points, p)
	}
	return s.upsert(ctx, "upsert_regulations", s.cfg.RegulationCollection, points)
}

func (s *Searcher) search(ctx context.Context, op, collection string, q retrieval.Query) ([]qdrantSearchResultItem, error) {
	if s == nil {
		return nil, fmt.Errorf("qdrant searcher unavailable")
	}
	if len(q.Vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if s.cfg.VectorDim > 0 && len(q.Vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(q.Vector)),
			nil,
		)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       q.Vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  true,
	}
	var raw []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, collectionPath(collection, "/points/search"), req, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Searcher) point(op, collection, id string, vector []float32, doc any) (map[string]any, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, opErr(op, OperationErrorValidation, "document id is required", nil)
	}
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, fmt.Sprintf("document %q has no vector", id), nil)
	}
	if s.cfg.VectorDim > 0 && len(vector) != s.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("document %q dimension mismatch: expected=%d got=%d", id, s.cfg.VectorDim, len(vector)),
			nil,
		)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
	}
	return map[string]any{
		"id":      pointID(collection, id),
		"vector":  vector,
		"payload": payload,
	}, nil
}

func (s *Searcher) upsert(ctx context.Context, op, collection string, points []map[string]any) error {
	if s == nil {
		return nil
	}
	if len(points) == 0 {
		return nil
	}
	req := map[string]any{"points": points}
	return s.doJSON(ctx, op, http.MethodPut, collectionPath(collection, "/points?wait=true"), req, nil)
}

func (s *Searcher) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, s.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	readyResp, err := s.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}

	for _, collection := range []string{s.cfg.IndicatorCollection, s.cfg.RegulationCollection} {
		var result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		}
		if err := s.doJSON(ctx, op, http.MethodGet, collectionPath(collection, ""), nil, &result); err != nil {
			return err
		}
		size := result.Config.Params.Vectors.Size
		if size != 0 && size != s.cfg.VectorDim {
			return &OperationError{
				Code:      OperationErrorValidation,
				Operation: op,
				Message: fmt.Sprintf(
					"qdrant collection %q vector size mismatch: expected=%d actual=%d",
					collection,
					s.cfg.VectorDim,
					size,
				),
			}
		}
		s.distance[collection] = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	}
	return nil
}

func (s *Searcher) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func pointID(collection, docID string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(collection+"|"+docID)).String()
}

func collectionPath(collection, suffix string) string {
	path := "/collections/" + collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}

// normalizeScore maps distance-based scores into (0,1].
func (s *Searcher) normalizeScore(collection string, score float64) float64 {
	switch strings.ToLower(s.distance[collection]) {
	case "euclid", "manhattan":
		if score < 0 {
			score = -score
		}
		return 1.0 / (1.0 + score)
	default:
		return score
	}
}
