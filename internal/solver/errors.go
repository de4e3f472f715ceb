package solver

import "fmt"

// LinearDependencyError reports a singular or numerically unusable system
// matrix, typically caused by a redundant parameter combination.
type LinearDependencyError struct {
	Iteration int
	Cond      float64
}

func (e *LinearDependencyError) Error() string {
	return fmt.Sprintf("system matrix is singular at iteration %d (condition %.3g): "+
		"the specified parameters are linearly dependent", e.Iteration, e.Cond)
}

// ConvergenceError reports a solve that ran out of iterations or stopped
// making progress.
type ConvergenceError struct {
	Iterations int
	Residual   float64
	Stalled    bool
}

func (e *ConvergenceError) Error() string {
	if e.Stalled {
		return fmt.Sprintf("calculation stalled after %d iterations (residual %.3e)", e.Iterations, e.Residual)
	}
	return fmt.Sprintf("no convergence within %d iterations (residual %.3e)", e.Iterations, e.Residual)
}
