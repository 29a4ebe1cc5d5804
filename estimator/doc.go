// Package estimator provides the core engines of the quantum resource estimator.
//
// # Reading Guide
//
// Start with these packages to understand the two engines:
//   - counts/: the logical resource counter. It is driven gate by gate by an
//     executor and accumulates qubit, T, rotation, CCZ and measurement counts
//     together with a layered depth model.
//   - tfactory/: the exhaustive T-factory search. It enumerates chains of
//     distillation units and code distances and keeps the Pareto-optimal
//     factories.
//
// # Architecture
//
// The estimator package holds shared constants and the seeded RNG streams;
// implementations live in sub-packages:
//   - estimator/counts/: Layer, Counter, intrinsic commands, memory/compute sets
//   - estimator/pareto/: 2-D and 4-D points and the Population frontier
//   - estimator/modeling/: physical qubits, QEC protocols, logical patches
//   - estimator/tfactory/: templates, units, the units map, factory builder, search
//   - estimator/trace/: search decision records
//   - estimator/program/: YAML gate-stream programs and their executor
//
// The counter and the search never call each other. A caller runs the counter
// to learn how many magic states a program needs, then runs the search to find
// factories that reach the required error rate.
//
// Both engines are single-threaded. Each Counter and each search invocation
// owns its state; run independent instances for concurrent estimations.
package estimator
