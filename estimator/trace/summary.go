package trace

import "strings"

// TraceSummary aggregates statistics from a SearchTrace.
type TraceSummary struct {
	TotalEvaluations    int             `json:"total_evaluations"`
	QualifyingCount     int             `json:"qualifying"`
	PushedCount         int             `json:"pushed"`
	DominatedCount      int             `json:"dominated"`
	UniqueUnitSequences int             `json:"unique_unit_sequences"`
	MinOutputErrorRate  float64         `json:"min_output_error_rate"` // over built candidates; 0 if none
	OutcomeDistribution map[Outcome]int `json:"outcomes"`              // outcome → count of evaluations
	RoundsExplored      int             `json:"rounds_explored"`
}

// Summarize computes aggregate statistics from a SearchTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SearchTrace) *TraceSummary {
	summary := &TraceSummary{
		OutcomeDistribution: make(map[Outcome]int),
	}
	if st == nil {
		return summary
	}

	sequences := make(map[string]struct{})
	summary.TotalEvaluations = len(st.Evaluations)
	for _, e := range st.Evaluations {
		summary.OutcomeDistribution[e.Outcome]++
		sequences[strings.Join(e.UnitNames, "|")] = struct{}{}
		if e.Qualifying {
			summary.QualifyingCount++
		}
		if e.Pushed {
			summary.PushedCount++
		}
		if e.Dominated {
			summary.DominatedCount++
		}
		if e.Outcome == OutcomeBuilt {
			if summary.MinOutputErrorRate == 0 || e.OutputErrorRate < summary.MinOutputErrorRate {
				summary.MinOutputErrorRate = e.OutputErrorRate
			}
		}
	}
	summary.UniqueUnitSequences = len(sequences)
	summary.RoundsExplored = len(st.Rounds)

	return summary
}
