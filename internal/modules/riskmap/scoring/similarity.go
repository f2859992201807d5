package scoring

import (
	"math"
	"strings"
)

const (
	behaviorTextWeight = 0.65
	behaviorTagWeight  = 0.35

	regulationTextWeight     = 0.65
	regulationTagWeight      = 0.25
	regulationIndustryWeight = 0.10
)

// Cosine returns the cosine similarity of a and b over their common prefix,
// clamped to [0,1]. Empty or zero-norm inputs score 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return Clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Jaccard returns |A∩B| / |A∪B| over trimmed, lowercased, non-empty tags.
func Jaccard(a, b []string) float64 {
	setA := tagSet(a)
	setB := tagSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tagSet(tags []string) map[string]struct{} {
	out := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		out[t] = struct{}{}
	}
	return out
}

// BehaviorToTarget scores how applicable a target (regulation) is to a behavior.
func BehaviorToTarget(behaviorVec, targetVec []float32, behaviorTags, targetTags []string) float64 {
	return Clamp01(behaviorTextWeight*Cosine(behaviorVec, targetVec) + behaviorTagWeight*Jaccard(behaviorTags, targetTags))
}

// RegulationToIndicator scores how relevant a regulation is to an indicator.
func RegulationToIndicator(regVec, indVec []float32, regTags, indTags, regIndustries, indIndustries []string) float64 {
	return Clamp01(regulationTextWeight*Cosine(regVec, indVec) +
		regulationTagWeight*Jaccard(regTags, indTags) +
		regulationIndustryWeight*Jaccard(regIndustries, indIndustries))
}

// Clamp01 clamps v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
