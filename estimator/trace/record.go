// Package trace provides decision-trace recording for T-factory search analysis.
// This package has no dependencies on the search itself; it stores pure data types.
package trace

// Outcome classifies the result of building one candidate factory.
type Outcome string

const (
	OutcomeBuilt                     Outcome = "built"
	OutcomeLowFailureProbability     Outcome = "low_failure_probability"
	OutcomeHighFailureProbability    Outcome = "high_failure_probability"
	OutcomeOutputAboveInput          Outcome = "output_error_rate_above_input"
	OutcomeUnreasonableNumberOfUnits Outcome = "unreasonable_number_of_units"
	OutcomeMissingUnit               Outcome = "missing_unit"
	OutcomeUnknownError              Outcome = "unknown_error"
)

// EvaluationRecord captures a single candidate evaluation: one unit sequence
// at one code distance assignment.
type EvaluationRecord struct {
	NumRounds       int
	UnitNames       []string
	CodeDistances   []uint64
	Outcome         Outcome
	OutputErrorRate float64 // 0 unless Outcome is OutcomeBuilt
	Qualifying      bool    // output error rate at or below the target
	Dominated       bool    // frontier already held a dominating point
	Pushed          bool    // added to the frontier
	GoRight         bool    // search continued with larger distances
}

// RoundRecord captures the cumulative search counters after all unit
// sequences of one round count were processed.
type RoundRecord struct {
	NumRounds    int
	Combinations int
	Valid        int
	Candidates   int
	FrontierSize int
}
