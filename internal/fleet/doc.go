// Package fleet tracks the most recent task of every node in the fleet.
//
// A Registry holds one future per node. Phases wait on a node's current
// future before submitting its next task, which keeps the tasks of one node
// strictly ordered while different nodes proceed independently. The
// registry also owns the fleet context: a fatal error on any node aborts it,
// and every task checks it before each remote step.
package fleet
