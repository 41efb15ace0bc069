// Package viz provides terminal-based visualization for simulation runs.
//
// The package renders batches and stored runs in the terminal:
//
//   - [RenderFan]: quantile fan chart of one factor
//   - [RenderSeries]: single-series chart for paths and means
//   - [ScatterTerminals]: braille scatter of two factors' terminal values
//   - [FormatSummary]: fixed width terminal distribution table
//   - [RunLive]: interactive path viewer on the Bubble Tea framework
//   - [RunMenu]: preset picker wrapping the live viewer
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	R     - Rerun with the next seed
//	Tab   - Focus the next factor
//	[]    - Scrub backward/forward
//	?     - Show help
//	Q     - Quit
package viz
