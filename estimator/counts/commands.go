package counts

import (
	"fmt"
	"math"
)

// Intrinsic names recognized by Counter.CustomIntrinsic.
const (
	IntrinsicBeginEstimateCaching            = "BeginEstimateCaching"
	IntrinsicEndEstimateCaching              = "EndEstimateCaching"
	IntrinsicBeginRepeatEstimates            = "BeginRepeatEstimatesInternal"
	IntrinsicEndRepeatEstimates              = "EndRepeatEstimatesInternal"
	IntrinsicAccountForEstimates             = "AccountForEstimatesInternal"
	IntrinsicEnableMemoryComputeArchitecture = "EnableMemoryComputeArchitecture"
)

// noOpIntrinsics are accepted and ignored.
var noOpIntrinsics = map[string]bool{
	"GlobalPhase":         true,
	"ConfigurePauliNoise": true,
	"ConfigureQubitLoss":  true,
	"ApplyIdleNoise":      true,
}

// Command is a decoded intrinsic call.
type Command interface {
	IntrinsicName() string
}

type BeginEstimateCaching struct {
	CacheName string
	Variant   int64
}

type EndEstimateCaching struct{}

type BeginRepeatEstimates struct {
	Count int64
}

type EndRepeatEstimates struct{}

type AccountForEstimates struct {
	Estimates []Estimate
	Layout    int64
	Qubits    []int
}

type EnableMemoryComputeArchitecture struct {
	ComputeCapacity int64
	Strategy        CachingStrategy
}

// NoOp is an intrinsic that has no effect on resource counts.
type NoOp struct {
	Name string
}

func (BeginEstimateCaching) IntrinsicName() string { return IntrinsicBeginEstimateCaching }
func (EndEstimateCaching) IntrinsicName() string   { return IntrinsicEndEstimateCaching }
func (BeginRepeatEstimates) IntrinsicName() string { return IntrinsicBeginRepeatEstimates }
func (EndRepeatEstimates) IntrinsicName() string   { return IntrinsicEndRepeatEstimates }
func (AccountForEstimates) IntrinsicName() string  { return IntrinsicAccountForEstimates }
func (EnableMemoryComputeArchitecture) IntrinsicName() string {
	return IntrinsicEnableMemoryComputeArchitecture
}
func (n NoOp) IntrinsicName() string { return n.Name }

// DecodeCommand converts a named intrinsic call with loosely typed arguments
// (as produced by a YAML or JSON decoder) into a Command.
func DecodeCommand(name string, args []any) (Command, error) {
	if noOpIntrinsics[name] {
		return NoOp{Name: name}, nil
	}
	switch name {
	case IntrinsicBeginEstimateCaching:
		if err := expectArgs(name, args, 2); err != nil {
			return nil, err
		}
		cacheName, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s: cache name must be a string, got %T", name, args[0])
		}
		variant, err := toInt64(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: variant: %w", name, err)
		}
		return BeginEstimateCaching{CacheName: cacheName, Variant: variant}, nil

	case IntrinsicEndEstimateCaching:
		return EndEstimateCaching{}, nil

	case IntrinsicBeginRepeatEstimates:
		if err := expectArgs(name, args, 1); err != nil {
			return nil, err
		}
		count, err := toInt64(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: count: %w", name, err)
		}
		return BeginRepeatEstimates{Count: count}, nil

	case IntrinsicEndRepeatEstimates:
		return EndRepeatEstimates{}, nil

	case IntrinsicAccountForEstimates:
		return decodeAccountForEstimates(args)

	case IntrinsicEnableMemoryComputeArchitecture:
		if err := expectArgs(name, args, 2); err != nil {
			return nil, err
		}
		capacity, err := toInt64(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: compute capacity: %w", name, err)
		}
		strategy, err := toInt64(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: strategy: %w", name, err)
		}
		return EnableMemoryComputeArchitecture{ComputeCapacity: capacity, Strategy: CachingStrategy(strategy)}, nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownIntrinsic)
}

func decodeAccountForEstimates(args []any) (Command, error) {
	name := IntrinsicAccountForEstimates
	if err := expectArgs(name, args, 3); err != nil {
		return nil, err
	}
	rawEstimates, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("%s: estimates must be a list, got %T", name, args[0])
	}
	cmd := AccountForEstimates{Estimates: make([]Estimate, 0, len(rawEstimates))}
	for i, raw := range rawEstimates {
		pair, ok := raw.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("%s: estimate %d must be a [kind, count] pair", name, i)
		}
		kind, err := toInt64(pair[0])
		if err != nil {
			return nil, fmt.Errorf("%s: estimate %d kind: %w", name, i, err)
		}
		count, err := toInt64(pair[1])
		if err != nil {
			return nil, fmt.Errorf("%s: estimate %d count: %w", name, i, err)
		}
		cmd.Estimates = append(cmd.Estimates, Estimate{Kind: EstimateKind(kind), Count: count})
	}
	layout, err := toInt64(args[1])
	if err != nil {
		return nil, fmt.Errorf("%s: layout: %w", name, err)
	}
	cmd.Layout = layout
	rawQubits, ok := args[2].([]any)
	if !ok {
		return nil, fmt.Errorf("%s: qubits must be a list, got %T", name, args[2])
	}
	for i, raw := range rawQubits {
		q, err := toInt64(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: qubit %d: %w", name, i, err)
		}
		if q < 0 {
			return nil, fmt.Errorf("%s: qubit %d has negative id %d", name, i, q)
		}
		cmd.Qubits = append(cmd.Qubits, int(q))
	}
	return cmd, nil
}

func expectArgs(name string, args []any, n int) error {
	if len(args) != n {
		return fmt.Errorf("%s expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d: %w", x, ErrCountOverflow)
		}
		return int64(x), nil
	case float64:
		// float64(math.MaxInt64) is 2^63, one past the largest int64.
		if x != math.Trunc(x) || x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v is not an integer", x)
		}
		return int64(x), nil
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

// Execute applies cmd to the counter. proceed is false only when a cached
// region was replayed and its body must be skipped.
func (c *Counter) Execute(cmd Command) (proceed bool, err error) {
	switch cmd := cmd.(type) {
	case BeginEstimateCaching:
		return c.BeginCaching(cmd.CacheName, cmd.Variant)
	case EndEstimateCaching:
		return true, c.EndCaching()
	case BeginRepeatEstimates:
		return true, c.BeginRepeat(cmd.Count)
	case EndRepeatEstimates:
		return true, c.EndRepeat()
	case AccountForEstimates:
		return true, c.AccountForEstimates(cmd.Estimates, cmd.Layout, cmd.Qubits)
	case EnableMemoryComputeArchitecture:
		return true, c.EnableMemoryCompute(cmd.ComputeCapacity, cmd.Strategy)
	case NoOp:
		return true, nil
	}
	return false, fmt.Errorf("%T: %w", cmd, ErrUnknownIntrinsic)
}

// CustomIntrinsic decodes and executes a named intrinsic.
func (c *Counter) CustomIntrinsic(name string, args []any) (bool, error) {
	cmd, err := DecodeCommand(name, args)
	if err != nil {
		return false, err
	}
	proceed, err := c.Execute(cmd)
	if err != nil {
		return false, fmt.Errorf("%s: %w", name, err)
	}
	return proceed, nil
}
