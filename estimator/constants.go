package estimator

const (
	// MaxDistillationRounds is the default number of distillation rounds the
	// T-factory search explores.
	MaxDistillationRounds = 3

	// MaxExtraDistillationRounds bounds the extra rounds explored when the
	// regular range produced no factory (or always, for 4-D searches).
	MaxExtraDistillationRounds = 5

	// MaxCodeDistance is the default upper bound for code distances.
	MaxCodeDistance = 50

	// FactoryFailureProbabilityRequirement is the probability budget for a
	// factory run to not produce the expected number of magic states.
	FactoryFailureProbabilityRequirement = 0.01

	// PSSPCLayout is the only layout accepted by AccountForEstimates.
	PSSPCLayout = 1
)
