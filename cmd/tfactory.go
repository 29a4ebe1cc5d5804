package cmd

import (
	"encoding/json"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/qresim/estimator"
	"github.com/inference-sim/qresim/estimator/modeling"
	"github.com/inference-sim/qresim/estimator/tfactory"
	"github.com/inference-sim/qresim/estimator/trace"
)

var (
	estimatorConfigPath string  // Estimator config YAML file
	qubitName           string  // Qubit preset name
	protocolName        string  // QEC protocol name
	errorRate           float64 // Required T-state error rate
	maxDistance         uint64  // Maximum code distance
	maxRounds           int     // Maximum distillation rounds
	tradeoffs           bool    // Search the 4-D tradeoff frontier
	traceLevel          string  // Search trace level (none, decisions)
)

// tfactoryCmd searches for T-factories meeting an output error rate
var tfactoryCmd = &cobra.Command{
	Use:   "tfactory",
	Short: "Search for Pareto-optimal T-factories",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := DefaultEstimatorConfig()
		if estimatorConfigPath != "" {
			var err error
			if cfg, err = LoadEstimatorConfig(estimatorConfigPath); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		if cmd.Flags().Changed("qubit") {
			cfg.Qubit = modeling.QubitSpec{Name: qubitName}
		}
		if cmd.Flags().Changed("protocol") {
			cfg.Protocol = modeling.ProtocolSpec{Name: protocolName}
		}
		if cmd.Flags().Changed("error-rate") {
			cfg.ErrorRate = errorRate
		}
		if cmd.Flags().Changed("max-distance") {
			cfg.MaxCodeDistance = maxDistance
		}
		if cmd.Flags().Changed("max-rounds") {
			cfg.MaxDistillationRounds = maxRounds
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid --trace-level %q (want none or decisions)", traceLevel)
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if err := runTFactory(cfg, tradeoffs, trace.TraceLevel(traceLevel), os.Stdout); err != nil {
			logrus.Fatalf("T-factory search failed: %v", err)
		}
	},
}

// TFactoryReport is the JSON output of the tfactory command.
type TFactoryReport struct {
	ErrorRate    float64             `json:"error_rate"`
	Factories    []tfactory.Factory  `json:"factories"`
	Stats        searchStatsJSON     `json:"search_stats"`
	TraceSummary *trace.TraceSummary `json:"trace_summary,omitempty"`
}

type searchStatsJSON struct {
	Combinations int `json:"combinations"`
	Valid        int `json:"valid"`
	Candidates   int `json:"candidates"`
}

// runTFactory resolves cfg, runs the search and writes the report to w. The
// report carries a trace summary when level records decisions.
func runTFactory(cfg EstimatorConfig, tradeoffs bool, level trace.TraceLevel, w io.Writer) error {
	search, err := cfg.Resolve()
	if err != nil {
		return err
	}
	search.Trace = trace.NewSearchTrace(trace.TraceConfig{Level: level})
	logrus.Infof("Searching T-factories on %s with %s (tradeoffs=%v)", search.Qubit.Name, search.Protocol.Name, tradeoffs)

	find := tfactory.FindNondominatedTFactories
	if tradeoffs {
		find = tfactory.FindTFactoryTradeoffs
	}
	factories, stats, err := find(search)
	if err != nil {
		return err
	}

	report := TFactoryReport{
		ErrorRate: cfg.ErrorRate,
		Factories: factories,
		Stats: searchStatsJSON{
			Combinations: stats.NumCombinations,
			Valid:        stats.NumValid,
			Candidates:   stats.NumCandidates,
		},
	}
	if search.Trace.Enabled() {
		report.TraceSummary = trace.Summarize(search.Trace)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	tfactoryCmd.Flags().StringVar(&estimatorConfigPath, "config", "", "Path to the estimator config YAML file")
	tfactoryCmd.Flags().StringVar(&qubitName, "qubit", modeling.DefaultQubitName, "Qubit preset name")
	tfactoryCmd.Flags().StringVar(&protocolName, "protocol", "surface_code", "QEC protocol (surface_code, floquet_code)")
	tfactoryCmd.Flags().Float64Var(&errorRate, "error-rate", DefaultErrorRate, "Required output error rate per T state")
	tfactoryCmd.Flags().Uint64Var(&maxDistance, "max-distance", 0, "Maximum code distance (default: the protocol's maximum)")
	tfactoryCmd.Flags().IntVar(&maxRounds, "max-rounds", estimator.MaxDistillationRounds, "Maximum number of distillation rounds")
	tfactoryCmd.Flags().BoolVar(&tradeoffs, "tradeoffs", false, "Also keep factories that trade error rate or last-round distance for cost")
	tfactoryCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Search trace level: none, decisions")
	rootCmd.AddCommand(tfactoryCmd)
}
