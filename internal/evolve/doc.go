// Package evolve drives Monte Carlo path generation over a
// [process.StateProcess].
//
// [Engine] advances one path across a [Grid], drawing standard-normal
// innovations from a per-path PCG source so a (grid, seed) pair always
// reproduces the same path. [Ensemble] fans an engine out over many paths
// with consecutive seeds and bounded worker concurrency; all paths share
// the engine's process instance and therefore its moment caches, which is
// where the per-step memoization pays off.
//
// Grid times are reused bit-identically across paths. The process caches
// key off exact float values, so building one Grid and sharing it is part
// of the contract, not an optimization.
package evolve
