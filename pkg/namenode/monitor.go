package namenode

import (
	"context"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
)

// Monitor is the background failure detector. It sweeps the storage
// node registry on a fixed interval, marks silent nodes disconnected,
// and reclaims expired sentence leases on the same tick.
//
// Detection only surfaces degradation: files on a downed node answer
// storage-server-down until the node re-registers. Nothing re-homes
// files automatically.
type Monitor struct {
	registry *Registry
	locks    *LockManager

	scanInterval     time.Duration
	heartbeatTimeout time.Duration
	lockLeaseTTL     time.Duration
}

// NewMonitor creates a monitor over the given registry and locks.
func NewMonitor(registry *Registry, locks *LockManager, scanInterval, heartbeatTimeout, lockLeaseTTL time.Duration) *Monitor {
	if scanInterval <= 0 {
		scanInterval = 10 * time.Second
	}
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = 30 * time.Second
	}
	return &Monitor{
		registry:         registry,
		locks:            locks,
		scanInterval:     scanInterval,
		heartbeatTimeout: heartbeatTimeout,
		lockLeaseTTL:     lockLeaseTTL,
	}
}

// Run sweeps until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	logger.Debug("failure monitor started",
		"scan_interval", m.scanInterval.String(),
		"heartbeat_timeout", m.heartbeatTimeout.String(),
		"lock_lease_ttl", m.lockLeaseTTL.String(),
	)

	ticker := time.NewTicker(m.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("failure monitor stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep runs one detection pass. Exposed so tests can drive the
// monitor without waiting out the interval.
func (m *Monitor) Sweep() {
	for _, node := range m.registry.SweepStale(m.heartbeatTimeout) {
		logger.Warn("storage node marked down",
			logger.NodeID(node.ID),
			"last_seen", node.LastHeartbeat.Format(time.RFC3339),
		)
		if node.ReplicaPeer != "" {
			logger.Info("failover candidate",
				logger.NodeID(node.ID),
				"replica", node.ReplicaPeer,
			)
		}
	}

	for _, lock := range m.locks.ReclaimExpired(m.lockLeaseTTL) {
		logger.Warn("sentence lease expired",
			logger.Filename(lock.Filename),
			logger.SentenceIndex(lock.SentenceIndex),
			logger.Identity(lock.Holder),
		)
	}
}
