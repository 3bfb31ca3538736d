package main

// ==================== RESULT TABLE ====================

// ResultTable holds one ExponentialSumResult per effective prime in
// ascending prime order.
type ResultTable struct {
	Results []ExponentialSumResult
}

func (t *ResultTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Results)
}

func (t *ResultTable) Magnitudes() []float64 {
	mags := make([]float64, t.Len())
	for i, r := range t.Results {
		mags[i] = r.Magnitude
	}
	return mags
}

// Find returns the row for prime p, if present.
func (t *ResultTable) Find(p int) (ExponentialSumResult, bool) {
	if t == nil {
		return ExponentialSumResult{}, false
	}
	for _, r := range t.Results {
		if r.Prime == p {
			return r, true
		}
	}
	return ExponentialSumResult{}, false
}

// ==================== SUMMARY STATISTICS ====================

type MagnitudeSummary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Max      float64 `json:"max"`
	MaxPrime int     `json:"max_prime"`
}

// ReferencePredictions are the theoretical values the observed mean is
// reported against.
type ReferencePredictions struct {
	WeilBound          float64 `json:"weil_bound"`
	GaussianRandomWalk float64 `json:"gaussian_random_walk"`
	USp44              float64 `json:"usp44"`
}

var DefaultReferences = ReferencePredictions{
	WeilBound:          Q47.WeilBound(),
	GaussianRandomWalk: 5.97, // 45 unit vectors
	USp44:              3.74,
}

type SummaryStatistics struct {
	Count            int                  `json:"count"`
	All              MagnitudeSummary     `json:"all"`
	OutlierPrime     int                  `json:"outlier_prime"`
	OutlierPresent   bool                 `json:"outlier_present"`
	ExcludingOutlier MagnitudeSummary     `json:"excluding_outlier"`
	References       ReferencePredictions `json:"references"`
}

// Aggregate summarizes the table, once in full and once without the row
// whose prime equals outlier. A missing outlier leaves both summaries equal.
func Aggregate(table *ResultTable, outlier int) SummaryStatistics {
	stats := SummaryStatistics{
		Count:        table.Len(),
		OutlierPrime: outlier,
		References:   DefaultReferences,
	}
	if table == nil {
		return stats
	}

	stats.All = summarize(table.Results, 0, false)
	_, stats.OutlierPresent = table.Find(outlier)
	stats.ExcludingOutlier = summarize(table.Results, outlier, true)
	return stats
}

// summarize walks rows in ascending prime order, so a tie on the maximum
// keeps the smallest prime.
func summarize(rows []ExponentialSumResult, skip int, exclude bool) MagnitudeSummary {
	var s MagnitudeSummary
	total := 0.0
	for _, r := range rows {
		if exclude && r.Prime == skip {
			continue
		}
		if s.Count == 0 || r.Magnitude > s.Max {
			s.Max = r.Magnitude
			s.MaxPrime = r.Prime
		}
		total += r.Magnitude
		s.Count++
	}
	if s.Count > 0 {
		s.Mean = total / float64(s.Count)
	}
	return s
}
