// Package schedex provides in-process scheduled executors: submit a
// repeating unit of work and receive a running series governed by one of
// two timing disciplines, plus a CancelToken to stop that series later.
//
// An Executor runs a single background goroutine hosting an event loop
// that both arms timers and runs the scheduled work. Work scheduled on one
// executor therefore executes sequentially; a long-running task delays
// every other series on the same executor. A PoolExecutor keeps that
// single goroutine for timing but hands each dispatch off to a fixed-size
// worker pool, so tasks run in parallel.
//
// Fixed-interval scheduling starts the next run one interval after the
// previous run's completion; an overrun permanently shifts all subsequent
// firings. Fixed-rate scheduling targets a constant long-run average of
// one run per interval; overruns create a backlog that shortens future
// waits until repaid.
package schedex
