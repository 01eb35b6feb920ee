// Package namenode implements the coordinator role: the global
// registries, placement, client redirection, the sentence-lock manager,
// failure detection, and the access-request workflow.
package namenode

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/cache/lru"
	"github.com/scribefs/scribefs/pkg/hashindex"
	"github.com/scribefs/scribefs/pkg/metrics"
	"github.com/scribefs/scribefs/pkg/wire"
)

// registryFile is the persisted namespace, one line per file record.
const registryFile = "file_registry.txt"

// FileRecord is the namespace entry for one file. The home storage node
// is referenced by ID and resolved through the node registry on every
// redirection, never held as a pointer.
type FileRecord struct {
	Filename       string
	Owner          string
	NodeID         string
	Created        time.Time
	Modified       time.Time
	Accessed       time.Time
	LastAccessedBy string
	Words          int
	Chars          int
}

// StorageNodeRecord tracks one registered storage node.
type StorageNodeRecord struct {
	ID            string
	Host          string
	ControlPort   int
	ClientPort    int
	Connected     bool
	LastHeartbeat time.Time
	FileCount     int

	// ReplicaPeer is the mutual replica assigned at registration.
	// Best-effort: it is logged as the failover candidate when this
	// node goes down, nothing re-homes files automatically.
	ReplicaPeer string
}

// UserRecord tracks one registered user identity.
type UserRecord struct {
	Name       string
	Host       string
	Port       int
	Registered time.Time
}

// Registry owns the name node state: the file namespace, the storage
// node table, and the user table. A single mutex serialises mutations,
// so concurrent creates of one filename cannot both win and the
// placement decision observed is the winner's.
//
// The LRU cache in front of the file index is a read-through courtesy
// on the redirection path; correctness never depends on it.
type Registry struct {
	mu    sync.Mutex
	files *hashindex.Index[FileRecord]
	nodes *hashindex.Index[StorageNodeRecord]
	users *hashindex.Index[UserRecord]
	cache *lru.Cache[FileRecord]

	// nodeOrder preserves registration order for placement tie-breaks
	// and replica peering.
	nodeOrder []string

	dataDir string
	metrics metrics.NameNodeMetrics
	now     func() time.Time
}

// NewRegistry creates an empty registry persisting under dataDir.
func NewRegistry(dataDir string, cacheSize int, m metrics.NameNodeMetrics) *Registry {
	if cacheSize <= 0 {
		cacheSize = 100
	}
	return &Registry{
		files:   hashindex.New[FileRecord](),
		nodes:   hashindex.New[StorageNodeRecord](),
		users:   hashindex.New[UserRecord](),
		cache:   lru.New[FileRecord](cacheSize),
		dataDir: dataDir,
		metrics: m,
		now:     time.Now,
	}
}

// Load reads the persisted namespace. A missing file is a fresh start,
// not an error. Malformed lines are skipped with a warning so one bad
// line cannot take the whole namespace down.
func (r *Registry) Load() error {
	path := filepath.Join(r.dataDir, registryFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no existing file registry", logger.Addr(path))
			return nil
		}
		return fmt.Errorf("open file registry: %w", err)
	}
	defer f.Close()

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := parseFileRecord(line)
		if err != nil {
			logger.Warn("skipping malformed registry line", logger.Err(err))
			continue
		}
		r.files.Put(rec.Filename, rec)
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read file registry: %w", err)
	}

	logger.Info("file registry loaded", logger.Entries(loaded))
	r.updateGaugesLocked()
	return nil
}

// parseFileRecord decodes one persisted line:
// filename|owner|ss-id|created|modified|accessed|last_accessed_by|words|chars
func parseFileRecord(line string) (FileRecord, error) {
	parts := strings.Split(line, "|")
	if len(parts) != 9 {
		return FileRecord{}, fmt.Errorf("want 9 fields, got %d in %q", len(parts), line)
	}
	created, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("created timestamp in %q: %w", line, err)
	}
	modified, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("modified timestamp in %q: %w", line, err)
	}
	accessed, err := strconv.ParseInt(parts[5], 10, 64)
	if err != nil {
		return FileRecord{}, fmt.Errorf("accessed timestamp in %q: %w", line, err)
	}
	words, err := strconv.Atoi(parts[7])
	if err != nil {
		return FileRecord{}, fmt.Errorf("word count in %q: %w", line, err)
	}
	chars, err := strconv.Atoi(parts[8])
	if err != nil {
		return FileRecord{}, fmt.Errorf("char count in %q: %w", line, err)
	}
	return FileRecord{
		Filename:       parts[0],
		Owner:          parts[1],
		NodeID:         parts[2],
		Created:        time.Unix(created, 0),
		Modified:       time.Unix(modified, 0),
		Accessed:       time.Unix(accessed, 0),
		LastAccessedBy: parts[6],
		Words:          words,
		Chars:          chars,
	}, nil
}

func formatFileRecord(rec FileRecord) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%d|%s|%d|%d",
		rec.Filename, rec.Owner, rec.NodeID,
		rec.Created.Unix(), rec.Modified.Unix(), rec.Accessed.Unix(),
		rec.LastAccessedBy, rec.Words, rec.Chars)
}

// persistLocked writes the namespace atomically (temp file + rename).
// Callers hold r.mu.
func (r *Registry) persistLocked() error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	var b strings.Builder
	for _, name := range r.sortedFilenamesLocked() {
		rec, _ := r.files.Get(name)
		b.WriteString(formatFileRecord(rec))
		b.WriteByte('\n')
	}

	path := filepath.Join(r.dataDir, registryFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write file registry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace file registry: %w", err)
	}
	return nil
}

func (r *Registry) sortedFilenamesLocked() []string {
	names := r.files.Keys()
	sort.Strings(names)
	return names
}

// RegisterNode inserts or refreshes a storage node record and assigns
// replica peers: the new node and the most recently registered existing
// node become mutual peers. Returns the assigned peer ID, empty when
// this is the first node.
func (r *Registry) RegisterNode(id, host string, controlPort, clientPort int) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, known := r.nodes.Get(id)
	if !known {
		rec = StorageNodeRecord{ID: id}
	}
	rec.Host = host
	rec.ControlPort = controlPort
	rec.ClientPort = clientPort
	rec.Connected = true
	rec.LastHeartbeat = r.now()

	if !known {
		if n := len(r.nodeOrder); n > 0 {
			peerID := r.nodeOrder[n-1]
			if peer, ok := r.nodes.Get(peerID); ok {
				rec.ReplicaPeer = peer.ID
				peer.ReplicaPeer = rec.ID
				r.nodes.Put(peer.ID, peer)
			}
		}
		r.nodeOrder = append(r.nodeOrder, id)
	}

	r.nodes.Put(id, rec)
	r.updateGaugesLocked()
	return rec.ReplicaPeer
}

// Heartbeat refreshes a node's liveness. Returns false for a node that
// never registered, which tells the node to re-register.
func (r *Registry) Heartbeat(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.nodes.Get(id)
	if !ok {
		return false
	}
	rec.Connected = true
	rec.LastHeartbeat = r.now()
	r.nodes.Put(id, rec)
	r.updateGaugesLocked()
	if r.metrics != nil {
		r.metrics.RecordHeartbeat(id)
	}
	return true
}

// SweepStale marks nodes silent for longer than timeout as
// disconnected and returns the newly downed records.
func (r *Registry) SweepStale(timeout time.Duration) []StorageNodeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var down []StorageNodeRecord
	for _, id := range r.nodeOrder {
		rec, ok := r.nodes.Get(id)
		if !ok || !rec.Connected {
			continue
		}
		if now.Sub(rec.LastHeartbeat) > timeout {
			rec.Connected = false
			r.nodes.Put(id, rec)
			down = append(down, rec)
			if r.metrics != nil {
				r.metrics.RecordNodeDown(id)
			}
		}
	}
	if len(down) > 0 {
		r.updateGaugesLocked()
	}
	return down
}

// RegisterUser upserts a user record.
func (r *Registry) RegisterUser(name, host string, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users.Put(name, UserRecord{
		Name:       name,
		Host:       host,
		Port:       port,
		Registered: r.now(),
	})
}

// CreateFile places a new file on the least-loaded connected node,
// inserts its record, and persists the namespace. The file-count
// increment and record insertion are atomic under the registry mutex.
func (r *Registry) CreateFile(filename, owner string) (StorageNodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.files.Contains(filename) {
		return StorageNodeRecord{}, wire.Errorf(wire.StatusFileExists, "file %s already exists", filename)
	}

	node, err := r.placementLocked()
	if err != nil {
		return StorageNodeRecord{}, err
	}

	node.FileCount++
	r.nodes.Put(node.ID, node)

	now := r.now()
	rec := FileRecord{
		Filename:       filename,
		Owner:          owner,
		NodeID:         node.ID,
		Created:        now,
		Modified:       now,
		Accessed:       now,
		LastAccessedBy: owner,
	}
	r.files.Put(filename, rec)
	r.updateGaugesLocked()

	if err := r.persistLocked(); err != nil {
		logger.Error("persist file registry failed", logger.Err(err))
	}
	return node, nil
}

// placementLocked selects the connected node with the lowest file
// count; ties break by registration order. Callers hold r.mu.
func (r *Registry) placementLocked() (StorageNodeRecord, error) {
	var selected StorageNodeRecord
	found := false
	for _, id := range r.nodeOrder {
		rec, ok := r.nodes.Get(id)
		if !ok || !rec.Connected {
			continue
		}
		if !found || rec.FileCount < selected.FileCount {
			selected = rec
			found = true
		}
	}
	if !found {
		return StorageNodeRecord{}, wire.Errorf(wire.StatusNoStorageServers, "no storage servers available")
	}
	return selected, nil
}

// PlacementNode exposes the placement decision for operations that are
// not tied to an existing file (folder commands).
func (r *Registry) PlacementNode() (StorageNodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.placementLocked()
}

// DeleteFile removes a file record after an ownership check and
// persists the namespace. The client drives the storage-side deletion;
// this removal is the namespace of record.
func (r *Registry) DeleteFile(filename, requester string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.files.Get(filename)
	if !ok {
		return wire.Errorf(wire.StatusFileNotFound, "file %s not found", filename)
	}
	if rec.Owner != requester {
		return wire.Errorf(wire.StatusUnauthorized, "only owner can delete file")
	}

	r.files.Remove(filename)
	r.cache.Remove(filename)
	if node, ok := r.nodes.Get(rec.NodeID); ok && node.FileCount > 0 {
		node.FileCount--
		r.nodes.Put(node.ID, node)
	}
	r.updateGaugesLocked()

	if err := r.persistLocked(); err != nil {
		logger.Error("persist file registry failed", logger.Err(err))
	}
	return nil
}

// LookupFile returns the file record for filename, consulting the LRU
// cache before the authoritative index and caching on miss.
func (r *Registry) LookupFile(filename string) (FileRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookupFileLocked(filename)
}

// lookupFileLocked does the read-through fill. It runs under r.mu so a
// miss cannot interleave with a delete-and-recreate of the same name
// and install the record the delete evicted. Callers hold r.mu.
func (r *Registry) lookupFileLocked(filename string) (FileRecord, bool) {
	if rec, ok := r.cache.Get(filename); ok {
		return rec, true
	}
	rec, ok := r.files.Get(filename)
	if ok {
		r.cache.Put(filename, rec)
	}
	return rec, ok
}

// ResolveHome maps a filename to its home node's client address.
// Fails with file-not-found for unknown files and storage-server-down
// when the home node is unknown or disconnected.
func (r *Registry) ResolveHome(filename string) (FileRecord, StorageNodeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookupFileLocked(filename)
	if !ok {
		return FileRecord{}, StorageNodeRecord{}, wire.Errorf(wire.StatusFileNotFound, "file %s not found", filename)
	}
	node, ok := r.nodes.Get(rec.NodeID)
	if !ok || !node.Connected {
		return rec, StorageNodeRecord{}, wire.Errorf(wire.StatusStorageServerDown, "storage server unavailable")
	}
	return rec, node, nil
}

// Files returns every file record sorted by filename.
func (r *Registry) Files() []FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]FileRecord, 0, r.files.Len())
	for _, name := range r.sortedFilenamesLocked() {
		rec, _ := r.files.Get(name)
		out = append(out, rec)
	}
	return out
}

// Nodes returns every storage node record in registration order.
func (r *Registry) Nodes() []StorageNodeRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StorageNodeRecord, 0, len(r.nodeOrder))
	for _, id := range r.nodeOrder {
		if rec, ok := r.nodes.Get(id); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Users returns every registered user sorted by name.
func (r *Registry) Users() []UserRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := r.users.Keys()
	sort.Strings(names)
	out := make([]UserRecord, 0, len(names))
	for _, name := range names {
		if rec, ok := r.users.Get(name); ok {
			out = append(out, rec)
		}
	}
	return out
}

// updateGaugesLocked refreshes the registry gauges. Callers hold r.mu.
func (r *Registry) updateGaugesLocked() {
	if r.metrics == nil {
		return
	}
	connected := 0
	for _, id := range r.nodeOrder {
		if rec, ok := r.nodes.Get(id); ok && rec.Connected {
			connected++
		}
	}
	r.metrics.SetStorageNodes(connected, len(r.nodeOrder))
	r.metrics.SetFiles(r.files.Len())
}
