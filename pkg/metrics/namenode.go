package metrics

// NameNodeMetrics provides observability for the name node registries
// and lock manager. Pass nil to disable collection.
type NameNodeMetrics interface {
	// SetStorageNodes updates the connected and total storage node counts.
	SetStorageNodes(connected, total int)

	// SetFiles updates the tracked file count.
	SetFiles(count int)

	// SetLocks updates the held sentence lock count.
	SetLocks(count int)

	// SetPendingRequests updates the pending access request count.
	SetPendingRequests(count int)

	// RecordHeartbeat counts a heartbeat from a storage node.
	RecordHeartbeat(nodeID string)

	// RecordNodeDown counts a storage node being marked disconnected.
	RecordNodeDown(nodeID string)

	// RecordLockExpired counts a sentence lock reclaimed by lease expiry.
	RecordLockExpired()
}
