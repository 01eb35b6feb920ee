package namenode

import (
	"sort"
	"sync"
	"time"

	"github.com/scribefs/scribefs/pkg/metrics"
)

// AccessRequest is a pending grant keyed by (filename, requester).
// Approval pushes a read entry onto the home node's ACL; denial just
// flips the pending flag. A resolved request stays in the queue as a
// tombstone so re-approval and re-denial answer "request not found".
type AccessRequest struct {
	Filename  string
	Requester string
	Owner     string
	Requested time.Time
	Pending   bool
}

// RequestQueue holds the access-request workflow state.
type RequestQueue struct {
	mu      sync.Mutex
	reqs    map[string]AccessRequest
	metrics metrics.NameNodeMetrics
	now     func() time.Time
}

// NewRequestQueue creates an empty queue.
func NewRequestQueue(m metrics.NameNodeMetrics) *RequestQueue {
	return &RequestQueue{
		reqs:    make(map[string]AccessRequest),
		metrics: m,
		now:     time.Now,
	}
}

func requestKey(filename, requester string) string {
	return filename + ":" + requester
}

// Submit records a pending request. Re-submission by the same
// requester resets it to pending, which lets a denied user ask again.
func (q *RequestQueue) Submit(filename, requester, owner string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.reqs[requestKey(filename, requester)] = AccessRequest{
		Filename:  filename,
		Requester: requester,
		Owner:     owner,
		Requested: q.now(),
		Pending:   true,
	}
	q.updateGaugeLocked()
}

// Get returns the request for (filename, requester).
func (q *RequestQueue) Get(filename, requester string) (AccessRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	req, ok := q.reqs[requestKey(filename, requester)]
	return req, ok
}

// Resolve flips a pending request to non-pending. Returns false if the
// request is absent or already resolved.
func (q *RequestQueue) Resolve(filename, requester string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	key := requestKey(filename, requester)
	req, ok := q.reqs[key]
	if !ok || !req.Pending {
		return false
	}
	req.Pending = false
	q.reqs[key] = req
	q.updateGaugeLocked()
	return true
}

// PendingFor returns every pending request owned by owner, oldest
// first.
func (q *RequestQueue) PendingFor(owner string) []AccessRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []AccessRequest
	for _, req := range q.reqs {
		if req.Pending && req.Owner == owner {
			out = append(out, req)
		}
	}
	sortRequests(out)
	return out
}

// Snapshot returns every request, pending and resolved, oldest first.
func (q *RequestQueue) Snapshot() []AccessRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]AccessRequest, 0, len(q.reqs))
	for _, req := range q.reqs {
		out = append(out, req)
	}
	sortRequests(out)
	return out
}

func sortRequests(reqs []AccessRequest) {
	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].Requested.Equal(reqs[j].Requested) {
			return reqs[i].Requested.Before(reqs[j].Requested)
		}
		return requestKey(reqs[i].Filename, reqs[i].Requester) <
			requestKey(reqs[j].Filename, reqs[j].Requester)
	})
}

func (q *RequestQueue) updateGaugeLocked() {
	if q.metrics == nil {
		return
	}
	pending := 0
	for _, req := range q.reqs {
		if req.Pending {
			pending++
		}
	}
	q.metrics.SetPendingRequests(pending)
}
