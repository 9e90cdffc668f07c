// Package handlers implements the business logic for CLI commands.
//
// Handlers load the fleet configuration, wire the orchestrator to its real
// collaborators and run one or both phases. Collaborators are created
// through package-level factory variables so tests can replace them.
package handlers
