package namenode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/metrics"
)

// APIServer is the read-only HTTP surface over name node state. It
// exposes the registries, locks, and the request queue for operators,
// plus the Prometheus endpoint. It performs no mutations.
type APIServer struct {
	server       *http.Server
	config       config.APIConfig
	shutdownOnce sync.Once
}

// apiResponse wraps every JSON payload.
type apiResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type fileJSON struct {
	Filename       string    `json:"filename"`
	Owner          string    `json:"owner"`
	NodeID         string    `json:"node_id"`
	Created        time.Time `json:"created"`
	Modified       time.Time `json:"modified"`
	Accessed       time.Time `json:"accessed"`
	LastAccessedBy string    `json:"last_accessed_by"`
	Words          int       `json:"words"`
	Chars          int       `json:"chars"`
}

type nodeJSON struct {
	ID            string    `json:"id"`
	Host          string    `json:"host"`
	ControlPort   int       `json:"control_port"`
	ClientPort    int       `json:"client_port"`
	Connected     bool      `json:"connected"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	FileCount     int       `json:"file_count"`
	ReplicaPeer   string    `json:"replica_peer,omitempty"`
}

type userJSON struct {
	Name       string    `json:"name"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	Registered time.Time `json:"registered"`
}

type lockJSON struct {
	Filename      string    `json:"filename"`
	SentenceIndex int       `json:"sentence_index"`
	Holder        string    `json:"holder"`
	Acquired      time.Time `json:"acquired"`
}

type requestJSON struct {
	Filename  string    `json:"filename"`
	Requester string    `json:"requester"`
	Owner     string    `json:"owner"`
	Requested time.Time `json:"requested"`
	Pending   bool      `json:"pending"`
}

// NewAPIServer builds the admin server over the given state.
func NewAPIServer(cfg config.APIConfig, registry *Registry, locks *LockManager, requests *RequestQueue) *APIServer {
	router := newAPIRouter(registry, locks, requests)

	return &APIServer{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		config: cfg,
	}
}

// newAPIRouter wires the chi router. Split from NewAPIServer so tests
// can hit the handlers without a listening socket.
func newAPIRouter(registry *Registry, locks *LockManager, requests *RequestQueue) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, apiResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/files", func(w http.ResponseWriter, _ *http.Request) {
			files := registry.Files()
			out := make([]fileJSON, 0, len(files))
			for _, rec := range files {
				out = append(out, fileJSON{
					Filename:       rec.Filename,
					Owner:          rec.Owner,
					NodeID:         rec.NodeID,
					Created:        rec.Created,
					Modified:       rec.Modified,
					Accessed:       rec.Accessed,
					LastAccessedBy: rec.LastAccessedBy,
					Words:          rec.Words,
					Chars:          rec.Chars,
				})
			}
			writeOK(w, out)
		})

		r.Get("/nodes", func(w http.ResponseWriter, _ *http.Request) {
			nodes := registry.Nodes()
			out := make([]nodeJSON, 0, len(nodes))
			for _, rec := range nodes {
				out = append(out, nodeJSON{
					ID:            rec.ID,
					Host:          rec.Host,
					ControlPort:   rec.ControlPort,
					ClientPort:    rec.ClientPort,
					Connected:     rec.Connected,
					LastHeartbeat: rec.LastHeartbeat,
					FileCount:     rec.FileCount,
					ReplicaPeer:   rec.ReplicaPeer,
				})
			}
			writeOK(w, out)
		})

		r.Get("/users", func(w http.ResponseWriter, _ *http.Request) {
			users := registry.Users()
			out := make([]userJSON, 0, len(users))
			for _, rec := range users {
				out = append(out, userJSON{
					Name:       rec.Name,
					Host:       rec.Host,
					Port:       rec.Port,
					Registered: rec.Registered,
				})
			}
			writeOK(w, out)
		})

		r.Get("/locks", func(w http.ResponseWriter, _ *http.Request) {
			held := locks.Snapshot()
			out := make([]lockJSON, 0, len(held))
			for _, lock := range held {
				out = append(out, lockJSON{
					Filename:      lock.Filename,
					SentenceIndex: lock.SentenceIndex,
					Holder:        lock.Holder,
					Acquired:      lock.Acquired,
				})
			}
			writeOK(w, out)
		})

		r.Get("/requests", func(w http.ResponseWriter, _ *http.Request) {
			reqs := requests.Snapshot()
			out := make([]requestJSON, 0, len(reqs))
			for _, req := range reqs {
				out = append(out, requestJSON{
					Filename:  req.Filename,
					Requester: req.Requester,
					Owner:     req.Owner,
					Requested: req.Requested,
					Pending:   req.Pending,
				})
			}
			writeOK(w, out)
		})
	})

	r.Handle("/metrics", metrics.Handler())

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *APIServer) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("admin API listening", "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("admin API failed: %w", err)
	}
}

// Stop shuts the server down. Safe to call multiple times.
func (s *APIServer) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("admin API shutdown: %w", err)
		} else {
			logger.Info("admin API stopped")
		}
	})
	return shutdownErr
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apiResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Data:      data,
	})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// requestLogger logs API requests through the internal logger instead
// of chi's default stdlib logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("API request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
