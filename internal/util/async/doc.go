// Package async provides the futures and bounded worker pools used to fan
// per-node work out across a fleet.
//
// A [Pool] runs submitted functions on at most N goroutines and hands back a
// [Future] per submission. Futures are resolved exactly once and can be
// waited on by any number of goroutines.
package async
