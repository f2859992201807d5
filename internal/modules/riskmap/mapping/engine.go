package mapping

import (
	"fmt"
	"strings"

	"github.com/yungbote/riskwarning-backend/internal/domain/risk"
	"github.com/yungbote/riskwarning-backend/internal/modules/riskmap/scoring"
	"github.com/yungbote/riskwarning-backend/internal/platform/logger"
)

// Engine maps a behavior onto candidate indicators through candidate
// regulations. It does no I/O and is safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	log        *logger.Logger
}

func NewEngine(log *logger.Logger, thresholds Thresholds) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		thresholds: thresholds,
		log:        log.With("service", "MappingEngine"),
	}
}

func (e *Engine) Thresholds() Thresholds { return e.thresholds }

type applicableRegulation struct {
	reg        risk.Regulation
	similarity float64
	ruleScore  float64
	quant      bool
	hierarchy  float64
	timeliness float64
}

func (e *Engine) Map(b risk.Behavior, indicators []Scored[risk.Indicator], regulations []Scored[risk.Regulation]) Result {
	res := Result{
		BehaviorID:             b.ID,
		IndicatorScores:        map[string]float64{},
		InfluencingRegulations: map[string][]string{},
		Contributions:          map[string][]Contribution{},
		Indicators:             map[string]risk.Indicator{},
		Warnings:               []string{},
	}
	log := e.log.With("behavior_id", b.ID)

	order := make([]string, 0, len(indicators))
	for _, cand := range indicators {
		id := strings.TrimSpace(cand.Item.ID)
		if id == "" {
			res.Warnings = append(res.Warnings, fmt.Sprintf("behavior %s: skipped indicator candidate without id", b.ID))
			continue
		}
		if _, dup := res.Indicators[id]; dup {
			continue
		}
		res.Indicators[id] = cand.Item
		order = append(order, id)
	}

	status := scoring.NormalizeStatus(b.Status)
	applicable := e.applicableRegulations(b, status, regulations, log)

	for _, ar := range applicable {
		for _, id := range order {
			ind := res.Indicators[id]
			regInd := scoring.RegulationToIndicator(ar.reg.Vector, ind.NameVector, ar.reg.Tags, ind.Tags, ar.reg.Industry, ind.Industry)
			influence := regInd * ar.similarity
			if influence < e.thresholds.Influence {
				log.Debug("regulation below influence threshold", "regulation_id", ar.reg.ID, "indicator_id", id, "influence", influence)
				continue
			}
			res.Contributions[id] = append(res.Contributions[id], Contribution{
				RegulationID:     ar.reg.ID,
				Score:            ar.ruleScore,
				HierarchyWeight:  ar.hierarchy,
				TimelinessWeight: ar.timeliness,
				SimilarityWeight: ar.similarity,
				Influence:        influence,
				Quantitative:     ar.quant,
			})
			res.InfluencingRegulations[id] = append(res.InfluencingRegulations[id], ar.reg.ID)
		}
	}

	for _, id := range order {
		contribs := res.Contributions[id]
		if len(contribs) == 0 {
			delete(res.Contributions, id)
			ind := res.Indicators[id]
			fb := scoring.Clamp01(scoring.Fallback(ind.MaxScore, b.QuantitativeData, status))
			res.IndicatorScores[id] = fb
			if fb > 0 {
				res.InfluencingRegulations[id] = []string{FallbackMarker}
				log.Warn("indicator scored by fallback", "indicator_id", id, "score", fb)
			} else {
				res.InfluencingRegulations[id] = []string{}
				res.Warnings = append(res.Warnings, fmt.Sprintf("behavior %s: indicator %s has no applicable regulation and a zero fallback score", b.ID, id))
				log.Warn("indicator fallback score is zero", "indicator_id", id)
			}
			continue
		}
		res.IndicatorScores[id] = weightedScore(contribs)
	}
	return res
}

func (e *Engine) applicableRegulations(b risk.Behavior, status scoring.Status, regulations []Scored[risk.Regulation], log *logger.Logger) []applicableRegulation {
	out := make([]applicableRegulation, 0, len(regulations))
	seen := make(map[string]struct{}, len(regulations))
	for _, cand := range regulations {
		reg := cand.Item
		if strings.TrimSpace(reg.ID) == "" {
			continue
		}
		if _, dup := seen[reg.ID]; dup {
			continue
		}
		seen[reg.ID] = struct{}{}

		sim := scoring.BehaviorToTarget(b.Vector, reg.Vector, b.Tags, reg.Tags)
		if sim <= 0 {
			sim = scoring.Clamp01(cand.Score)
		}
		if sim < e.thresholds.Applicability {
			log.Debug("regulation not applicable", "regulation_id", reg.ID, "similarity", sim)
			continue
		}

		ruleScore, quant := scoring.RuleScore(reg.QuantitativeIndicator, b.QuantitativeData, scoring.NormalizeDirection(reg.Direction), status)
		ar := applicableRegulation{
			reg:        reg,
			similarity: sim,
			ruleScore:  ruleScore,
			quant:      quant,
			hierarchy:  scoring.AuthorityWeight(reg.ApplicableSubject),
			timeliness: scoring.RecencyWeight(reg.CreatedAt, b.BehaviorDate),
		}
		log.Debug("regulation applicable",
			"regulation_id", reg.ID,
			"similarity", sim,
			"rule_score", ruleScore,
			"quantitative", quant,
			"hierarchy_weight", ar.hierarchy,
			"timeliness_weight", ar.timeliness,
		)
		out = append(out, ar)
	}
	return out
}

func weightedScore(contribs []Contribution) float64 {
	var num, den float64
	for _, c := range contribs {
		w := c.Weight()
		num += c.Score * w
		den += w
	}
	if den <= 0 {
		return 0
	}
	return scoring.Clamp01(num / den)
}
