package assessment

import (
	"sort"

	"github.com/yungbote/riskwarning-backend/internal/data/graph"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/mapping"
)

// provenance flattens mapping results into graph rows. Fallback-scored
// indicators produce a link without a regulation.
func provenance(results []mapping.Result, aggregated map[string]float64) ([]graph.IndicatorScore, []graph.ProvenanceLink) {
	names := map[string]string{}
	var links []graph.ProvenanceLink
	for _, res := range results {
		for id, ind := range res.Indicators {
			if _, ok := names[id]; !ok {
				names[id] = ind.Name
			}
		}
		ids := make([]string, 0, len(res.IndicatorScores))
		for id := range res.IndicatorScores {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			contribs := res.Contributions[id]
			if len(contribs) == 0 {
				regs := res.InfluencingRegulations[id]
				if len(regs) == 1 && regs[0] == mapping.FallbackMarker {
					links = append(links, graph.ProvenanceLink{
						BehaviorID:  res.BehaviorID,
						IndicatorID: id,
						Score:       res.IndicatorScores[id],
					})
				}
				continue
			}
			for _, c := range contribs {
				links = append(links, graph.ProvenanceLink{
					BehaviorID:   res.BehaviorID,
					RegulationID: c.RegulationID,
					IndicatorID:  id,
					Score:        c.Score,
					Influence:    c.Influence,
					Weight:       c.Weight(),
				})
			}
		}
	}

	scores := make([]graph.IndicatorScore, 0, len(aggregated))
	for id, v := range aggregated {
		scores = append(scores, graph.IndicatorScore{IndicatorID: id, Name: names[id], Score: v})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].IndicatorID < scores[j].IndicatorID })
	return scores, links
}
