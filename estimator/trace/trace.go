package trace

// TraceLevel controls the verbosity of search tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every candidate evaluation of the search.
	TraceLevelDecisions TraceLevel = "decisions"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SearchTrace collects decision records during one T-factory search.
type SearchTrace struct {
	Config      TraceConfig
	Evaluations []EvaluationRecord
	Rounds      []RoundRecord
}

// NewSearchTrace creates a SearchTrace ready for recording.
func NewSearchTrace(config TraceConfig) *SearchTrace {
	return &SearchTrace{
		Config:      config,
		Evaluations: make([]EvaluationRecord, 0),
		Rounds:      make([]RoundRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on nil.
func (st *SearchTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordEvaluation appends a candidate evaluation record.
func (st *SearchTrace) RecordEvaluation(record EvaluationRecord) {
	st.Evaluations = append(st.Evaluations, record)
}

// RecordRound appends the counters after one round count was processed.
func (st *SearchTrace) RecordRound(record RoundRecord) {
	st.Rounds = append(st.Rounds, record)
}
