// Package jobs provides scheduled background tasks for the ordering system.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to handle periodic operations required for the order lifecycle.
//
// # Available Jobs
//
// 1. AbandonedOrderJob - Runs every minute to flag orders stuck in Creating
// beyond the recovery window
//
// # Usage
//
// Jobs are managed through JobManager which provides a unified interface:
//
//	// Create job manager with required dependencies
//	jobManager := jobs.NewJobManager(uowFactory, orders, routing, recoveryWindow, logger)
//
//	// Start all jobs
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//
//	// Stop all jobs when shutting down
//	defer jobManager.StopAll()
//
// # Error Handling
//
// The sweep skips entity-owned orders (their in-process recovery timer owns
// the flagging) and logs per-order failures without aborting the rest of the
// sweep. Flagging is detection only: an abandoned order stays in Creating
// and still accepts commands.
package jobs
