// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The Engine is the process-wide query context: it owns the retriever and
// the answer service and is shared by every driving adapter. Ingestion runs
// beside it and reinitialises it after each rebuild.
package services
