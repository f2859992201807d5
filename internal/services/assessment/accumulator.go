package assessment

import (
	"sort"
	"sync"

	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
)

// accumulator collects per-behavior outcomes from the workers. Once sealed it
// drops anything that arrives late.
type accumulator struct {
	mu       sync.Mutex
	sealed   bool
	results  map[string]mapping.Result
	failures map[string]string
	dropped  int
}

func newAccumulator() *accumulator {
	return &accumulator{
		results:  map[string]mapping.Result{},
		failures: map[string]string{},
	}
}

func (a *accumulator) add(res mapping.Result) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		a.dropped++
		return false
	}
	if _, dup := a.results[res.BehaviorID]; dup {
		return false
	}
	a.results[res.BehaviorID] = res
	return true
}

func (a *accumulator) fail(behaviorID, warning string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed {
		a.dropped++
		return false
	}
	a.failures[behaviorID] = warning
	return true
}

func (a *accumulator) seal() {
	a.mu.Lock()
	a.sealed = true
	a.mu.Unlock()
}

type snapshot struct {
	results  []mapping.Result
	warnings []string
	failed   int
}

// snapshot orders everything by behavior id so that downstream aggregation
// does not depend on completion order.
func (a *accumulator) snapshot() snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	ids := make([]string, 0, len(a.results)+len(a.failures))
	for id := range a.results {
		ids = append(ids, id)
	}
	for id := range a.failures {
		if _, ok := a.results[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := snapshot{failed: len(a.failures)}
	for _, id := range ids {
		if res, ok := a.results[id]; ok {
			out.results = append(out.results, res)
			out.warnings = append(out.warnings, res.Warnings...)
		}
		if w, ok := a.failures[id]; ok {
			out.warnings = append(out.warnings, w)
		}
	}
	return out
}

// Aggregate averages each indicator's normalized score over the behaviors that
// scored it and unions the influencing regulations. Input order only affects
// floating point summation; callers pass results sorted by behavior id.
func Aggregate(results []mapping.Result) (map[string]float64, map[string][]string) {
	sums := map[string]float64{}
	counts := map[string]int{}
	regs := map[string]map[string]struct{}{}
	for _, res := range results {
		ids := make([]string, 0, len(res.IndicatorScores))
		for id := range res.IndicatorScores {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			sums[id] += res.IndicatorScores[id]
			counts[id]++
			set, ok := regs[id]
			if !ok {
				set = map[string]struct{}{}
				regs[id] = set
			}
			for _, r := range res.InfluencingRegulations[id] {
				set[r] = struct{}{}
			}
		}
	}

	scores := make(map[string]float64, len(sums))
	influencing := make(map[string][]string, len(sums))
	for id, sum := range sums {
		scores[id] = sum / float64(counts[id])
		list := make([]string, 0, len(regs[id]))
		for r := range regs[id] {
			list = append(list, r)
		}
		sort.Strings(list)
		influencing[id] = list
	}
	return scores, influencing
}
