package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/retrieval"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

func TestSearchIndicatorsRequestShapeAndDecode(t *testing.T) {
	var captured map[string]any
	s := newTestSearcher(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/indicators/points/search" {
			t.Fatalf("path: want=%q got=%q", "/collections/indicators/points/search", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{
				"id":     "point-b",
				"score":  0.4,
				"vector": []float32{0, 1, 0},
				"payload": map[string]any{
					"id":        "ind-b",
					"name":      "Overtime",
					"tags":      []string{"labor"},
					"max_score": 20,
				},
			},
			{
				"id":      "point-a",
				"score":   0.9,
				"vector":  []float32{1, 0, 0},
				"payload": map[string]any{"name": "Injuries"},
			},
		}), nil
	})

	got, err := s.SearchIndicators(context.Background(), retrieval.Query{Text: "ignored", Vector: []float32{1, 0, 0}, Limit: 3})
	if err != nil {
		t.Fatalf("SearchIndicators: %v", err)
	}
	if captured["limit"] != float64(3) {
		t.Fatalf("limit: want=3 got=%v", captured["limit"])
	}
	if captured["with_vector"] != true || captured["with_payload"] != true {
		t.Fatalf("with flags: got=%v/%v", captured["with_vector"], captured["with_payload"])
	}
	if len(got) != 2 {
		t.Fatalf("results: want=2 got=%d", len(got))
	}
	if got[0].Item.ID != "point-a" || got[0].Score != 0.9 {
		t.Fatalf("first: got=%+v", got[0])
	}
	if len(got[0].Item.NameVector) != 3 {
		t.Fatalf("vector fallback: got=%v", got[0].Item.NameVector)
	}
	if got[1].Item.ID != "ind-b" || got[1].Item.MaxScore == nil || *got[1].Item.MaxScore != 20 {
		t.Fatalf("second: got=%+v", got[1].Item)
	}
}

func TestSearchRegulationsNormalizesEuclidScores(t *testing.T) {
	s := newTestSearcher(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/regulations/points/search" {
			t.Fatalf("path: got=%q", r.URL.Path)
		}
		return okResponse(t, []map[string]any{
			{
				"id":    "p1",
				"score": 1.0,
				"payload": map[string]any{
					"id":                 "reg-1",
					"direction":          "required",
					"applicable_subject": "enterprise",
					"full_text_vector":   []float32{0, 0, 1},
					"created_at":         "2024-01-01T00:00:00Z",
				},
			},
		}), nil
	})
	s.distance["regulations"] = "Euclid"

	got, err := s.SearchRegulations(context.Background(), retrieval.Query{Vector: []float32{1, 0, 0}, Limit: 5})
	if err != nil {
		t.Fatalf("SearchRegulations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results: want=1 got=%d", len(got))
	}
	if got[0].Score != 0.5 {
		t.Fatalf("score: want=0.5 got=%v", got[0].Score)
	}
	reg := got[0].Item
	if reg.Direction != "required" || reg.CreatedAt == nil || reg.Vector[2] != 1 {
		t.Fatalf("decoded regulation: got=%+v", reg)
	}
}

func TestSearchValidatesQueryVector(t *testing.T) {
	s := newTestSearcher(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
		return nil, nil
	})

	for _, q := range []retrieval.Query{{Text: "only text"}, {Vector: []float32{1, 2}}} {
		_, err := s.SearchIndicators(context.Background(), q)
		var opErr *OperationError
		if !errors.As(err, &opErr) {
			t.Fatalf("expected OperationError, got=%T", err)
		}
		if opErr.Code != OperationErrorValidation {
			t.Fatalf("error code: want=%q got=%q", OperationErrorValidation, opErr.Code)
		}
		if retrieval.ErrorKind(err) != string(OperationErrorValidation) {
			t.Fatalf("kind: got=%q", retrieval.ErrorKind(err))
		}
	}
}

func TestSearchSurfacesHTTPAndEnvelopeErrors(t *testing.T) {
	s := newTestSearcher(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader([]byte(`{"status":{"error":"overloaded"}}`))),
		}, nil
	})
	_, err := s.SearchRegulations(context.Background(), retrieval.Query{Vector: []float32{1, 0, 0}})
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("http error: got=%v", err)
	}

	s = newTestSearcher(t, func(r *http.Request) (*http.Response, error) {
		raw, _ := json.Marshal(map[string]any{"status": map[string]any{"error": "collection missing"}})
		return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(raw))}, nil
	})
	_, err = s.SearchRegulations(context.Background(), retrieval.Query{Vector: []float32{1, 0, 0}})
	if !errors.As(err, &opErr) || opErr.Message != "collection missing" {
		t.Fatalf("envelope error: got=%v", err)
	}
}

func TestUpsertIndicatorsUsesDeterministicPointIDs(t *testing.T) {
	var captured map[string]any
	s := newTestSearcher(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut || r.URL.Path != "/collections/indicators/points" || r.URL.RawQuery != "wait=true" {
			t.Fatalf("request: %s %s?%s", r.Method, r.URL.Path, r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	err := s.UpsertIndicators(context.Background(), []risk.Indicator{{ID: "ind-1", Name: "Safety", NameVector: []float32{1, 0, 0}}})
	if err != nil {
		t.Fatalf("UpsertIndicators: %v", err)
	}
	points, ok := captured["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("points: got=%v", captured["points"])
	}
	first := points[0].(map[string]any)
	if first["id"] != pointID("indicators", "ind-1") {
		t.Fatalf("point id: got=%v", first["id"])
	}
	payload := first["payload"].(map[string]any)
	if payload["name"] != "Safety" {
		t.Fatalf("payload: got=%v", payload)
	}

	if err := s.UpsertIndicators(context.Background(), []risk.Indicator{{ID: "ind-2"}}); err == nil {
		t.Fatalf("UpsertIndicators without vector: expected error")
	}
}

func TestNewSearcherVerifiesCollections(t *testing.T) {
	seen := map[string]bool{}
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen[r.URL.Path] = true
		switch r.URL.Path {
		case "/readyz":
			return &http.Response{StatusCode: http.StatusOK, Header: make(http.Header), Body: io.NopCloser(bytes.NewReader(nil))}, nil
		case "/collections/indicators", "/collections/regulations":
			return okResponse(t, map[string]any{
				"config": map[string]any{"params": map[string]any{"vectors": map[string]any{"size": 4, "distance": "Cosine"}}},
			}), nil
		}
		return nil, fmt.Errorf("unexpected path %s", r.URL.Path)
	})}
	_, err := NewSearcher(context.Background(), newTestLogger(t), Config{
		URL:                  "http://qdrant.local",
		IndicatorCollection:  "indicators",
		RegulationCollection: "regulations",
		VectorDim:            3,
	}, WithHTTPClient(client))
	var opErr *OperationError
	if !errors.As(err, &opErr) || opErr.Code != OperationErrorValidation {
		t.Fatalf("dimension mismatch: got=%v", err)
	}
	if !seen["/readyz"] || !seen["/collections/indicators"] {
		t.Fatalf("expected ready and collection checks, saw=%v", seen)
	}
}

func TestClassifyHTTPCallErrorTimeout(t *testing.T) {
	err := classifyHTTPCallError("search", "timeout", context.DeadlineExceeded)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTimeout {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTimeout, opErr.Code)
	}
	if retrieval.ErrorKind(err) != "timeout" {
		t.Fatalf("kind: want=timeout got=%q", retrieval.ErrorKind(err))
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("search", "transport", fmt.Errorf("boom"))
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTransportFailed, opErr.Code)
	}
}

func newTestSearcher(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *Searcher {
	t.Helper()
	client := &http.Client{
		Transport: roundTripFunc(roundTrip),
	}
	return &Searcher{
		log: newTestLogger(t),
		cfg: Config{
			IndicatorCollection:  "indicators",
			RegulationCollection: "regulations",
			VectorDim:            3,
		},
		baseURL:  "http://qdrant.local",
		http:     client,
		distance: map[string]string{"indicators": "Cosine", "regulations": "Cosine"},
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	payload := map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
