package analysis

// WeightedProb combines multiple predicates' Prob into a single score via
// a weighted average, for callers that want one number summarizing an
// AnalysisStatus instead of reading each PredicateOutput individually.
// A predicate absent from weights is excluded from both the numerator and
// the weight total; if weights is empty, every predicate is weighted
// equally.
func WeightedProb(status AnalysisStatus, weights map[string]float64) float64 {
	if len(weights) == 0 {
		weights = make(map[string]float64, len(status.Predicates))
		for _, po := range status.Predicates {
			weights[po.Name] = 1
		}
	}

	var weightedSum, totalWeight float64
	for _, po := range status.Predicates {
		w, ok := weights[po.Name]
		if !ok || w == 0 {
			continue
		}
		weightedSum += po.Prob * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}
