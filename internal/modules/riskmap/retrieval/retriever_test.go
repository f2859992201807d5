package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
)

type fakeSearcher struct {
	indicators  []mapping.Scored[risk.Indicator]
	regulations []mapping.Scored[risk.Regulation]
	indErr      error
	regErr      error
	block       bool
	panicRegs   bool

	mu      sync.Mutex
	queries []Query
}

func (f *fakeSearcher) SearchIndicators(ctx context.Context, q Query) ([]mapping.Scored[risk.Indicator], error) {
	f.record(q)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.indicators, f.indErr
}

func (f *fakeSearcher) SearchRegulations(ctx context.Context, q Query) ([]mapping.Scored[risk.Regulation], error) {
	f.record(q)
	if f.panicRegs {
		panic("boom")
	}
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.regulations, f.regErr
}

func (f *fakeSearcher) record(q Query) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
}

type countingObserver struct {
	mu    sync.Mutex
	kinds map[string]int
}

func (c *countingObserver) ObserveRetrievalFailure(target, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kinds == nil {
		c.kinds = map[string]int{}
	}
	c.kinds[target+":"+kind]++
}

type codedErr struct{}

func (codedErr) Error() string     { return "bad status" }
func (codedErr) ErrorCode() string { return "query_rejected" }

func TestBuildQueryText(t *testing.T) {
	b := risk.Behavior{Description: "  Forklift operated without license ", Tags: []string{"safety", " ", "training"}}
	assert.Equal(t, "Forklift operated without license safety training", BuildQueryText(b))
	assert.Equal(t, "", BuildQueryText(risk.Behavior{}))
	assert.Equal(t, "audit", BuildQueryText(risk.Behavior{Tags: []string{"audit"}}))
}

func TestFetchReturnsCandidatesWithinLimits(t *testing.T) {
	s := &fakeSearcher{
		indicators: []mapping.Scored[risk.Indicator]{
			{Item: risk.Indicator{ID: "i1"}, Score: 0.9},
			{Item: risk.Indicator{ID: "i2"}, Score: 0.8},
			{Item: risk.Indicator{ID: "i3"}, Score: 0.7},
		},
		regulations: []mapping.Scored[risk.Regulation]{{Item: risk.Regulation{ID: "r1"}, Score: 0.5}},
	}
	r := NewRetriever(s, Options{IndicatorLimit: 2, RegulationLimit: 4}, nil)

	got := r.Fetch(context.Background(), risk.Behavior{ID: "b1", Description: "late filing", Tags: []string{"tax"}, Vector: []float32{1, 0}})

	assert.Empty(t, got.Warnings)
	require.Len(t, got.Indicators, 2)
	require.Len(t, got.Regulations, 1)
	require.Len(t, s.queries, 2)
	assert.Equal(t, Query{Text: "late filing tax", Vector: []float32{1, 0}, Limit: 2}, s.queries[0])
	assert.Equal(t, 4, s.queries[1].Limit)
}

func TestFetchDegradesFailuresToWarnings(t *testing.T) {
	obs := &countingObserver{}
	s := &fakeSearcher{
		indErr:      errors.New("connection refused"),
		regErr:      fmt.Errorf("wrapped: %w", codedErr{}),
		regulations: []mapping.Scored[risk.Regulation]{{Item: risk.Regulation{ID: "ignored"}}},
	}
	r := NewRetriever(s, Options{Observer: obs}, nil)

	got := r.Fetch(context.Background(), risk.Behavior{ID: "b1", Description: "x"})

	require.Len(t, got.Warnings, 2)
	assert.Contains(t, got.Warnings[0], "indicator search failed")
	assert.Contains(t, got.Warnings[1], "regulation search failed")
	assert.Empty(t, got.Indicators)
	assert.Empty(t, got.Regulations)
	assert.Equal(t, 1, obs.kinds["indicators:query_failed"])
	assert.Equal(t, 1, obs.kinds["regulations:query_rejected"])
}

func TestFetchAppliesPerQueryTimeout(t *testing.T) {
	obs := &countingObserver{}
	r := NewRetriever(&fakeSearcher{block: true}, Options{Timeout: 20 * time.Millisecond, Observer: obs}, nil)

	start := time.Now()
	got := r.Fetch(context.Background(), risk.Behavior{ID: "b1", Description: "x"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, got.Warnings, 2)
	assert.Equal(t, 1, obs.kinds["indicators:timeout"])
	assert.Equal(t, 1, obs.kinds["regulations:timeout"])
}

func TestFetchRecoversSearcherPanic(t *testing.T) {
	r := NewRetriever(&fakeSearcher{panicRegs: true}, Options{}, nil)
	got := r.Fetch(context.Background(), risk.Behavior{ID: "b1", Description: "x"})
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], "panicked")
}

func TestFetchWithoutQueryOrSearcher(t *testing.T) {
	got := NewRetriever(&fakeSearcher{}, Options{}, nil).Fetch(context.Background(), risk.Behavior{ID: "b1"})
	assert.Len(t, got.Warnings, 1)

	var nilRetriever *Retriever
	got = nilRetriever.Fetch(context.Background(), risk.Behavior{ID: "b1", Description: "x"})
	assert.Len(t, got.Warnings, 1)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "", ErrorKind(nil))
	assert.Equal(t, "timeout", ErrorKind(fmt.Errorf("x: %w", context.DeadlineExceeded)))
	assert.Equal(t, "canceled", ErrorKind(context.Canceled))
	assert.Equal(t, "query_rejected", ErrorKind(codedErr{}))
	assert.Equal(t, "query_failed", ErrorKind(errors.New("other")))
}
