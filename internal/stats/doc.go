// Package stats summarizes simulation batches.
//
// The package reduces a batch of simulated paths to reporting and
// plotting data:
//
//   - [GenerateFan]: per-step quantile bands of one factor
//   - [TerminalSummary]: moments and quantiles of a terminal distribution
//   - [IncrementCovariance]: sample covariance of one-step increments
//   - [MeanPath]: per-step mean of one factor
//
// Quantiles follow the empirical convention of gonum's stat package.
package stats
