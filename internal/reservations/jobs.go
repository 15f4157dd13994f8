package reservations

import (
	"context"
	"sync"
	"time"

	"flightdesk/pkg/logger"
)

// JobProcessor runs the background reservation jobs: the expiry reclaimer,
// retention purge of closed holds and reconciliation on request.
type JobProcessor struct {
	service Service
	config  *JobConfig
	log     *logger.Logger
	done    chan struct{}
	wg      sync.WaitGroup
	stop    sync.Once
}

// JobConfig contains configuration for background jobs
type JobConfig struct {
	ReclaimInterval time.Duration
	PurgeInterval   time.Duration
	HoldRetention   time.Duration
}

// DefaultJobConfig returns default job configuration
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		ReclaimInterval: 500 * time.Millisecond, // well under the 1s minimum hold ttl
		PurgeInterval:   15 * time.Minute,
		HoldRetention:   time.Hour,
	}
}

// NewJobProcessor creates a new job processor
func NewJobProcessor(service Service, config *JobConfig, log *logger.Logger) *JobProcessor {
	if config == nil {
		config = DefaultJobConfig()
	}
	if config.PurgeInterval <= 0 {
		config.PurgeInterval = config.HoldRetention / 4
	}

	return &JobProcessor{
		service: service,
		config:  config,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Start starts all background jobs
func (jp *JobProcessor) Start(ctx context.Context) {
	jp.log.Info("Starting reservation background jobs",
		"reclaim_interval", jp.config.ReclaimInterval,
		"purge_interval", jp.config.PurgeInterval,
	)

	jp.wg.Add(3)
	go jp.startReclaimer(ctx)
	go jp.startPurger(ctx)
	go jp.startReconciler(ctx)
}

// Stop stops all background jobs and waits for the running pass to finish
func (jp *JobProcessor) Stop() {
	jp.stop.Do(func() {
		close(jp.done)
	})
	jp.wg.Wait()
	jp.log.Info("Reservation background jobs stopped")
}

func (jp *JobProcessor) startReclaimer(ctx context.Context) {
	defer jp.wg.Done()
	ticker := time.NewTicker(jp.config.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			jp.reclaimExpired(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) reclaimExpired(ctx context.Context) {
	if _, err := jp.service.ReclaimExpired(ctx); err != nil {
		jp.log.WithError(err).ErrorContext(ctx, "Error reclaiming expired holds")
	}
}

func (jp *JobProcessor) startPurger(ctx context.Context) {
	defer jp.wg.Done()
	ticker := time.NewTicker(jp.config.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			purged, err := jp.service.PurgeClosed(ctx, jp.config.HoldRetention)
			if err != nil {
				jp.log.WithError(err).ErrorContext(ctx, "Error purging closed holds")
				continue
			}
			if purged > 0 {
				jp.log.InfoContext(ctx, "Purged closed holds", "purged", purged)
			}
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) startReconciler(ctx context.Context) {
	defer jp.wg.Done()

	// Run immediately on startup
	jp.reconcile(ctx)

	for {
		select {
		case <-jp.service.ReconcileRequests():
			jp.reconcile(ctx)
		case <-jp.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (jp *JobProcessor) reconcile(ctx context.Context) {
	if _, err := jp.service.Reconcile(ctx); err != nil {
		jp.log.WithError(err).ErrorContext(ctx, "Error reconciling hold store with catalog")
	}
}

// GetJobStatus returns the status of background jobs
func (jp *JobProcessor) GetJobStatus() map[string]interface{} {
	status := "running"
	select {
	case <-jp.done:
		status = "stopped"
	default:
	}
	return map[string]interface{}{
		"reclaim_interval": jp.config.ReclaimInterval.String(),
		"purge_interval":   jp.config.PurgeInterval.String(),
		"hold_retention":   jp.config.HoldRetention.String(),
		"status":           status,
	}
}
