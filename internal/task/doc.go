// Package task turns committed generation batches into remote work. The
// Dispatcher fans a batch's dispatch plan out to the image runner with one
// fire-and-forget goroutine per generation, recording failures as terminal
// task errors. The Sweeper resolves tasks the runner never reported back
// on.
package task
