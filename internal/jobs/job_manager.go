package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"ordering/internal/core/ports"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	abandonedOrderJob *AbandonedOrderJob
}

// NewJobManager creates a new job manager with all required jobs.
func NewJobManager(
	commands OrderFlagger,
	uowFactory ports.UnitOfWorkFactory,
	orders ports.OrderRepository,
	routing ports.RoutingRepository,
	recoveryWindow time.Duration,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		abandonedOrderJob: NewAbandonedOrderJob(commands, uowFactory, orders, routing, recoveryWindow, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.abandonedOrderJob.Start(); err != nil {
		return fmt.Errorf("failed to start abandoned order job: %w", err)
	}

	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.abandonedOrderJob.Stop()
}
