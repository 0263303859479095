package query

// scoreConfidence normalizes the top chunk's service-reported relevance
// score into [0,1]. Distance scores (lower is better) map via
// 1 - score/threshold; similarity scores clamp directly.
func scoreConfidence(scoreKind string, topScore, threshold float64) float64 {
	switch scoreKind {
	case "similarity":
		return clamp(topScore)
	default: // distance
		if threshold <= 0 {
			return 0
		}
		return clamp(1 - topScore/threshold)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
