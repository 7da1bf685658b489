// Package solver implements the sequential model-based (Bayesian)
// optimization loop.
//
// A Solver owns the observation history and drives the cycle
//
//	train model -> update acquisition -> maximize acquisition ->
//	recompute incumbent -> evaluate task -> record -> maybe checkpoint
//
// The surrogate model, acquisition function, maximizer, recommendation
// strategy, task and checkpoint sink are collaborators behind narrow
// interfaces; see the model, acquisition, maximizer, recommend, task and
// store packages for implementations.
//
// Iteration 0 is the initial design. Run(n, nil, nil) evaluates
// Config.InitPoints random points and then n-1 proposed points, so the
// history ends with InitPoints+n-1 rows. The model is retrained on
// iterations divisible by Config.TrainInterval and checkpoints are written on
// iterations divisible by Config.NumSave.
package solver
