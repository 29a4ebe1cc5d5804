// Package program reads gate-stream programs from YAML and runs them against
// a counts.Backend.
//
// A program declares an initial qubit register and a list of instructions.
// Qubits are addressed by register index. Blocks (repeat and cache) open a
// scope: qubits allocated inside a scope are released when it ends.
package program

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/qresim/estimator/counts"
)

// CurrentVersion is the program format version written by this package.
const CurrentVersion = "1"

// Program is the top-level program file.
type Program struct {
	Version      string        `yaml:"version"`
	Seed         int64         `yaml:"seed"`
	Qubits       int           `yaml:"qubits"`
	Instructions []Instruction `yaml:"instructions"`
}

// Instruction is exactly one of: a gate, an allocation, a release, a repeat
// block, a cache block, a pre-costed estimate, or a raw intrinsic call.
type Instruction struct {
	Gate   string  `yaml:"gate,omitempty"`
	Qubits []int   `yaml:"qubits,omitempty"`
	Angle  float64 `yaml:"angle,omitempty"`

	Allocate int `yaml:"allocate,omitempty"`
	Release  int `yaml:"release,omitempty"`

	Repeat    *RepeatBlock   `yaml:"repeat,omitempty"`
	Cache     *CacheBlock    `yaml:"cache,omitempty"`
	Estimate  *EstimateBlock `yaml:"estimate,omitempty"`
	Intrinsic *IntrinsicCall `yaml:"intrinsic,omitempty"`
}

// RepeatBlock runs Body once and has the backend extrapolate Count
// iterations.
type RepeatBlock struct {
	Count int64         `yaml:"count"`
	Body  []Instruction `yaml:"body"`
}

// CacheBlock runs Body the first time Name and Variant are seen; later
// occurrences are replayed by the backend.
type CacheBlock struct {
	Name    string        `yaml:"name"`
	Variant int64         `yaml:"variant"`
	Body    []Instruction `yaml:"body"`
}

// EstimateBlock injects the cost of a sub-block computed elsewhere, acting on
// the listed register qubits.
type EstimateBlock struct {
	Layout        int64 `yaml:"layout"`
	Qubits        []int `yaml:"qubits"`
	AuxQubits     int64 `yaml:"aux_qubits,omitempty"`
	T             int64 `yaml:"t,omitempty"`
	Rotations     int64 `yaml:"rotations,omitempty"`
	RotationDepth int64 `yaml:"rotation_depth,omitempty"`
	CCZ           int64 `yaml:"ccz,omitempty"`
	Measurements  int64 `yaml:"measurements,omitempty"`
}

// IntrinsicCall passes a named intrinsic and its arguments to the backend
// unchanged. Qubit arguments are backend ids, not register indexes.
type IntrinsicCall struct {
	Name string `yaml:"name"`
	Args []any  `yaml:"args,omitempty"`
}

type gateShape struct {
	arity    int
	hasAngle bool
}

var gateShapes = map[string]gateShape{
	"ccx":     {3, false},
	"cx":      {2, false},
	"cy":      {2, false},
	"cz":      {2, false},
	"h":       {1, false},
	"m":       {1, false},
	"mresetz": {1, false},
	"reset":   {1, false},
	"rx":      {1, true},
	"rxx":     {2, true},
	"ry":      {1, true},
	"ryy":     {2, true},
	"rz":      {1, true},
	"rzz":     {2, true},
	"s":       {1, false},
	"sadj":    {1, false},
	"sx":      {1, false},
	"swap":    {2, false},
	"swap_id": {2, false},
	"t":       {1, false},
	"tadj":    {1, false},
	"x":       {1, false},
	"y":       {1, false},
	"z":       {1, false},
}

// GateNames lists the accepted gate names in sorted order.
func GateNames() []string {
	names := make([]string, 0, len(gateShapes))
	for name := range gateShapes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LoadProgram reads a program file with strict field checking and validates it.
func LoadProgram(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	return ParseProgram(data)
}

// ParseProgram decodes and validates a program document.
func ParseProgram(data []byte) (*Program, error) {
	var p Program
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	if p.Version == "" {
		p.Version = CurrentVersion
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the instruction tree, including that every register index
// refers to a qubit that is live at that point.
func (p *Program) Validate() error {
	if p.Version != CurrentVersion {
		return fmt.Errorf("unsupported program version %q; supported: %s", p.Version, CurrentVersion)
	}
	if p.Qubits < 0 {
		return fmt.Errorf("qubits must be non-negative, got %d", p.Qubits)
	}
	return validateBlock(p.Instructions, p.Qubits, "instructions")
}

func validateBlock(block []Instruction, size int, path string) error {
	scoped := 0
	for i := range block {
		in := &block[i]
		prefix := fmt.Sprintf("%s[%d]", path, i)
		if err := validateInstruction(in, size, prefix); err != nil {
			return err
		}
		switch {
		case in.Allocate > 0:
			size += in.Allocate
			scoped += in.Allocate
		case in.Release > 0:
			if in.Release > scoped {
				return fmt.Errorf("%s: release %d exceeds the %d qubits allocated in this block", prefix, in.Release, scoped)
			}
			size -= in.Release
			scoped -= in.Release
		}
	}
	return nil
}

func (in *Instruction) kinds() int {
	n := 0
	for _, set := range []bool{
		in.Gate != "", in.Allocate != 0, in.Release != 0,
		in.Repeat != nil, in.Cache != nil, in.Estimate != nil, in.Intrinsic != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func validateInstruction(in *Instruction, size int, prefix string) error {
	if n := in.kinds(); n != 1 {
		return fmt.Errorf("%s: exactly one of gate, allocate, release, repeat, cache, estimate, intrinsic required, got %d", prefix, n)
	}
	if in.Gate == "" && (len(in.Qubits) > 0 || in.Angle != 0) {
		return fmt.Errorf("%s: qubits and angle only apply to gates", prefix)
	}
	switch {
	case in.Gate != "":
		shape, ok := gateShapes[in.Gate]
		if !ok {
			return fmt.Errorf("%s: unknown gate %q", prefix, in.Gate)
		}
		if len(in.Qubits) != shape.arity {
			return fmt.Errorf("%s: gate %q takes %d qubits, got %d", prefix, in.Gate, shape.arity, len(in.Qubits))
		}
		if !shape.hasAngle && in.Angle != 0 {
			return fmt.Errorf("%s: gate %q takes no angle", prefix, in.Gate)
		}
		return validateQubits(in.Qubits, size, prefix)
	case in.Allocate < 0:
		return fmt.Errorf("%s: allocate must be positive, got %d", prefix, in.Allocate)
	case in.Release < 0:
		return fmt.Errorf("%s: release must be positive, got %d", prefix, in.Release)
	case in.Repeat != nil:
		if in.Repeat.Count < 0 {
			return fmt.Errorf("%s: repeat count must be non-negative, got %d", prefix, in.Repeat.Count)
		}
		return validateBlock(in.Repeat.Body, size, prefix+".repeat.body")
	case in.Cache != nil:
		if in.Cache.Name == "" {
			return fmt.Errorf("%s: cache block needs a name", prefix)
		}
		return validateBlock(in.Cache.Body, size, prefix+".cache.body")
	case in.Estimate != nil:
		return validateEstimate(in.Estimate, size, prefix+".estimate")
	case in.Intrinsic != nil:
		if in.Intrinsic.Name == "" {
			return fmt.Errorf("%s: intrinsic needs a name", prefix)
		}
	}
	return nil
}

func validateEstimate(est *EstimateBlock, size int, prefix string) error {
	for _, f := range []struct {
		name  string
		v     int64
		limit int64
	}{
		{"aux_qubits", est.AuxQubits, counts.MaxEstimateSpan},
		{"t", est.T, math.MaxInt64},
		{"rotations", est.Rotations, math.MaxInt64},
		{"rotation_depth", est.RotationDepth, counts.MaxEstimateSpan},
		{"ccz", est.CCZ, math.MaxInt64},
		{"measurements", est.Measurements, math.MaxInt64},
	} {
		if f.v < 0 || f.v > f.limit {
			return fmt.Errorf("%s: %s %d out of range [0, %d]", prefix, f.name, f.v, f.limit)
		}
	}
	return validateQubits(est.Qubits, size, prefix)
}

func validateQubits(qubits []int, size int, prefix string) error {
	seen := make(map[int]bool, len(qubits))
	for _, q := range qubits {
		if q < 0 || q >= size {
			return fmt.Errorf("%s: qubit index %d out of range [0, %d)", prefix, q, size)
		}
		if seen[q] {
			return fmt.Errorf("%s: qubit index %d used twice", prefix, q)
		}
		seen[q] = true
	}
	return nil
}
