// Package analysis provides learning-curve analysis over episode returns.
//
// The package characterizes how a training run progressed:
//
//   - [MovingAverage]: trailing-window smoothing for noisy return curves
//   - [Trend]: least squares fit of return against episode index
//   - [Stats]: mean and standard deviation of a return sequence
//
// # Reading a learning curve
//
// A positive trend slope indicates the policy is improving:
//
//	_, slope := analysis.Trend(rewards)
//	if slope > 0 {
//	    // Returns are trending upward
//	}
package analysis
