package tfactory

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/inference-sim/qresim/estimator"
	"github.com/inference-sim/qresim/estimator/modeling"
	"github.com/inference-sim/qresim/estimator/pareto"
	"github.com/inference-sim/qresim/estimator/trace"
)

// ErrNoTFactoryFound is returned when no unit sequence reaches the target
// error rate.
var ErrNoTFactoryFound = errors.New("no T-factory reaches the required output error rate")

// SearchOptions tune how far the search explores past promising points.
type SearchOptions struct {
	// AllowGoRightIfDominated keeps raising distances for candidates that
	// are dominated or above the target.
	AllowGoRightIfDominated bool
	// AlwaysGoRightInFullIteration visits every distance vector in the box.
	AlwaysGoRightInFullIteration bool
	// IterateMaxNumRounds always explores the extra round counts.
	IterateMaxNumRounds bool
}

var (
	options2D = SearchOptions{}
	options4D = SearchOptions{
		AllowGoRightIfDominated:      true,
		AlwaysGoRightInFullIteration: true,
		IterateMaxNumRounds:          true,
	}
)

// SearchConfig describes one search. Zero values take defaults: the
// protocol's maximum code distance, estimator.MaxDistillationRounds,
// DefaultTemplates and RoundBasedBuilder.
type SearchConfig struct {
	Protocol              *modeling.Protocol
	Qubit                 *modeling.PhysicalQubit
	Templates             []*Template
	OutputErrorRate       float64
	MaxCodeDistance       uint64
	MaxDistillationRounds int
	Build                 BuildFunc
	Trace                 *trace.SearchTrace
}

// SearchStats counts the work of one search.
type SearchStats struct {
	NumCombinations int // factories the builder was asked for
	NumValid        int // factories that built
	NumCandidates   int // built factories at or below the target error rate
}

func (cfg SearchConfig) withDefaults() (SearchConfig, error) {
	if cfg.Protocol == nil || cfg.Qubit == nil {
		return cfg, fmt.Errorf("search needs a protocol and a qubit")
	}
	if cfg.OutputErrorRate <= 0 || cfg.OutputErrorRate >= 1 {
		return cfg, fmt.Errorf("output error rate must be in (0, 1), got %v", cfg.OutputErrorRate)
	}
	if cfg.MaxCodeDistance == 0 {
		cfg.MaxCodeDistance = cfg.Protocol.MaxCodeDistance
	}
	if cfg.MaxDistillationRounds == 0 {
		cfg.MaxDistillationRounds = estimator.MaxDistillationRounds
	}
	if cfg.MaxDistillationRounds < 0 {
		return cfg, fmt.Errorf("max distillation rounds must be positive, got %d", cfg.MaxDistillationRounds)
	}
	if cfg.Templates == nil {
		cfg.Templates = DefaultTemplates()
	}
	if cfg.Build == nil {
		cfg.Build = RoundBasedBuilder
	}
	return cfg, nil
}

// FindNondominatedTFactories returns the factories at or below the target
// error rate that are Pareto-optimal in normalized qubits and duration,
// ordered by those coordinates.
func FindNondominatedTFactories(cfg SearchConfig) ([]Factory, SearchStats, error) {
	return find(cfg, options2D, func(f Factory) pareto.Point2D[Factory] {
		return pareto.NewPoint2D(f, f.NormalizedQubits(), float64(f.Duration()))
	}, func(p pareto.Point2D[Factory]) Factory { return p.Item })
}

// FindTFactoryTradeoffs additionally keeps factories that trade a higher
// output error rate or a lower last-round code distance for cost.
func FindTFactoryTradeoffs(cfg SearchConfig) ([]Factory, SearchStats, error) {
	return find(cfg, options4D, func(f Factory) pareto.Point4D[Factory] {
		perRound := f.CodeParameterPerRound()
		return pareto.NewPoint4D(f, f.NormalizedQubits(), float64(f.Duration()),
			f.OutputErrorRate(), float64(perRound[len(perRound)-1]))
	}, func(p pareto.Point4D[Factory]) Factory { return p.Item })
}

func find[P pareto.Point[P]](cfg SearchConfig, opts SearchOptions, toPoint func(Factory) P, item func(P) Factory) ([]Factory, SearchStats, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, SearchStats{}, err
	}
	population, stats := findPopulation(cfg, opts, toPoint)
	if population.Len() == 0 {
		return nil, stats, ErrNoTFactoryFound
	}
	out := make([]Factory, 0, population.Len())
	for _, p := range population.Items() {
		out = append(out, item(p))
	}
	return out, stats, nil
}

func findPopulation[P pareto.Point[P]](cfg SearchConfig, opts SearchOptions, toPoint func(Factory) P) (*pareto.Population[P], SearchStats) {
	var distances []uint64
	for d := uint64(1); d <= cfg.MaxCodeDistance; d += 2 {
		distances = append(distances, d)
	}

	if cfg.OutputErrorRate > cfg.Qubit.TGateErrorRate {
		population := pareto.NewPopulation[P]()
		patch, err := modeling.NewLogicalPatch(cfg.Protocol, cfg.Qubit, cfg.MaxCodeDistance)
		if err == nil {
			logrus.Warnf("target error rate %g is above the T gate error rate %g; using the pass-through factory at distance %d",
				cfg.OutputErrorRate, cfg.Qubit.TGateErrorRate, cfg.MaxCodeDistance)
			population.Push(toPoint(DefaultFactory(patch)))
		}
		population.SortItems()
		return population, SearchStats{}
	}

	patches := make([]*modeling.LogicalPatch, len(distances))
	for i, d := range distances {
		if patch, err := modeling.NewLogicalPatch(cfg.Protocol, cfg.Qubit, d); err == nil {
			patches[i] = patch
		}
	}
	units := NewUnitsMap(cfg.Qubit, patches, distances, cfg.Templates)

	s := &searcher[P]{
		cfg:        cfg,
		opts:       opts,
		units:      units,
		toPoint:    toPoint,
		population: pareto.NewPopulation[P](),
	}
	logrus.Infof("T-factory search: target %g, %d templates, max distance %d, max rounds %d",
		cfg.OutputErrorRate, len(cfg.Templates), cfg.MaxCodeDistance, cfg.MaxDistillationRounds)

	for n := 1; n <= cfg.MaxDistillationRounds; n++ {
		s.processRounds(n)
	}
	if s.population.Len() == 0 || opts.IterateMaxNumRounds {
		for n := cfg.MaxDistillationRounds + 1; n <= estimator.MaxExtraDistillationRounds; n++ {
			s.processRounds(n)
		}
	}

	s.population.FilterOutDominated()
	s.population.SortItems()
	logrus.Infof("T-factory search done: %d combinations, %d valid, %d candidates, %d on frontier",
		s.stats.NumCombinations, s.stats.NumValid, s.stats.NumCandidates, s.population.Len())
	return s.population, s.stats
}

type searcher[P pareto.Point[P]] struct {
	cfg        SearchConfig
	opts       SearchOptions
	units      *UnitsMap
	toPoint    func(Factory) P
	population *pareto.Population[P]
	stats      SearchStats
	numRounds  int
}

func (s *searcher[P]) processRounds(n int) {
	s.numRounds = n
	s.units.IterateForAllDistillationUnits(n, func(unitIndexes []int) {
		s.processCombination(unitIndexes)
	})
	logrus.Debugf("num_rounds=%d: combinations=%d valid=%d candidates=%d frontier=%d",
		n, s.stats.NumCombinations, s.stats.NumValid, s.stats.NumCandidates, s.population.Len())
	if s.cfg.Trace.Enabled() {
		s.cfg.Trace.RecordRound(trace.RoundRecord{
			NumRounds:    n,
			Combinations: s.stats.NumCombinations,
			Valid:        s.stats.NumValid,
			Candidates:   s.stats.NumCandidates,
			FrontierSize: s.population.Len(),
		})
	}
}

func (s *searcher[P]) processCombination(unitIndexes []int) {
	ds := newDistanceSearch(s.units.MinDistanceIndexes(unitIndexes), s.units.MaxDistanceIndexes(unitIndexes),
		s.opts.AlwaysGoRightInFullIteration)
	if ds.empty() {
		return
	}
	check := func(distanceIndexes []int) bool {
		return s.check(s.units.GetMany(distanceIndexes, unitIndexes))
	}
	if ds.bisect(check) == nil {
		return
	}
	ds.iterate(check)
}

// check builds one candidate and reports whether larger code distances may
// still improve it.
func (s *searcher[P]) check(units []*Unit) bool {
	rec := trace.EvaluationRecord{NumRounds: s.numRounds}
	if s.cfg.Trace.Enabled() {
		for _, u := range units {
			if u != nil {
				rec.UnitNames = append(rec.UnitNames, u.Name)
				rec.CodeDistances = append(rec.CodeDistances, u.CodeDistance)
			}
		}
	}
	goRight := s.evaluate(units, &rec)
	rec.GoRight = goRight
	if s.cfg.Trace.Enabled() {
		s.cfg.Trace.RecordEvaluation(rec)
	}
	return goRight
}

func (s *searcher[P]) evaluate(units []*Unit, rec *trace.EvaluationRecord) bool {
	for _, u := range units {
		if u == nil {
			rec.Outcome = trace.OutcomeMissingUnit
			return true
		}
	}
	s.stats.NumCombinations++

	factory, err := s.cfg.Build(units, units[0].QubitTErrorRate(), estimator.FactoryFailureProbabilityRequirement)
	switch {
	case err == nil:
	case errors.Is(err, ErrLowFailureProbability):
		// Larger distances lower the failure probability further.
		rec.Outcome = trace.OutcomeLowFailureProbability
		return false
	case errors.Is(err, ErrHighFailureProbability):
		rec.Outcome = trace.OutcomeHighFailureProbability
		return true
	case errors.Is(err, ErrOutputErrorRateHigherThanInputErrorRate):
		rec.Outcome = trace.OutcomeOutputAboveInput
		return true
	case errors.Is(err, ErrUnreasonableHighNumberOfUnitsRequired):
		rec.Outcome = trace.OutcomeUnreasonableNumberOfUnits
		return true
	default:
		logrus.Warnf("unexpected factory build error: %v", err)
		rec.Outcome = trace.OutcomeUnknownError
		return true
	}

	s.stats.NumValid++
	rec.Outcome = trace.OutcomeBuilt
	rec.OutputErrorRate = factory.OutputErrorRate()
	qualifying := factory.OutputErrorRate() <= s.cfg.OutputErrorRate
	rec.Qualifying = qualifying
	if qualifying {
		s.stats.NumCandidates++
	}
	if !qualifying && s.opts.AllowGoRightIfDominated {
		return true
	}

	point := s.toPoint(factory)
	notDominated := !s.population.Dominates(point)
	rec.Dominated = !notDominated
	if notDominated && qualifying {
		s.population.Push(point)
		s.population.AttemptFilterOutDominated()
		rec.Pushed = true
	}
	return (s.opts.AllowGoRightIfDominated || notDominated) && !qualifying
}
