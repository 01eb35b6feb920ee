package storagenode

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/metrics"
	"github.com/scribefs/scribefs/pkg/metrics/prometheus"
	"github.com/scribefs/scribefs/pkg/server"
	"github.com/scribefs/scribefs/pkg/storagenode/store"
)

// Service is a complete storage node: the client-facing frame listener,
// the control listener the name node dials, the heartbeat session, and
// an optional metrics endpoint, all over one blob store.
type Service struct {
	cfg         config.StorageNodeConfig
	backend     store.Backend
	store       *Store
	clientSrv   *server.Server
	controlSrv  *server.Server
	heartbeat   *Heartbeat
	metricsAddr string
}

// NewService assembles a storage node from configuration and opens its
// blob store.
func NewService(cfg *config.Config) (*Service, error) {
	snCfg := cfg.StorageNode
	if snCfg.ID == "" {
		return nil, fmt.Errorf("storage node id is required")
	}

	backend, err := openBackend(snCfg)
	if err != nil {
		return nil, err
	}

	var verifier LockVerifier
	if !snCfg.TrustClientLocks {
		verifier = NewNameNodeVerifier(snCfg.NameNodeAddr)
	}
	st := NewStore(snCfg.ID, backend, verifier)

	svc := &Service{
		cfg:     snCfg,
		backend: backend,
		store:   st,
		clientSrv: server.New(server.Config{
			Name:            "storagenode-client",
			Port:            snCfg.ClientPort,
			MaxConnections:  snCfg.MaxConnections,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, NewClientHandler(st), prometheus.NewServerMetrics("storagenode_client")),
		controlSrv: server.New(server.Config{
			Name:            "storagenode-control",
			Port:            snCfg.ControlPort,
			MaxConnections:  snCfg.MaxConnections,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, NewControlHandler(st), prometheus.NewServerMetrics("storagenode_control")),
		heartbeat: NewHeartbeat(snCfg),
	}
	if cfg.Metrics.Enabled && metrics.IsEnabled() {
		svc.metricsAddr = fmt.Sprintf(":%d", cfg.Metrics.Port)
	}
	return svc, nil
}

func openBackend(cfg config.StorageNodeConfig) (store.Backend, error) {
	switch cfg.Backend {
	case "", "fs":
		return store.NewFS(cfg.DataDir)
	case "badger":
		return store.NewBadger(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Run serves until ctx is cancelled. Both listeners, the heartbeat
// session, and the metrics endpoint share the context; the first hard
// failure is returned after everything winds down.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.controlSrv.Serve(ctx); err != nil {
			errChan <- fmt.Errorf("control listener: %w", err)
			cancel()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.heartbeat.Run(ctx); err != nil {
			errChan <- fmt.Errorf("heartbeat: %w", err)
			cancel()
		}
	}()

	if s.metricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.serveMetrics(ctx); err != nil {
				errChan <- fmt.Errorf("metrics endpoint: %w", err)
				cancel()
			}
		}()
	}

	logger.Info("storage node starting",
		logger.NodeID(s.cfg.ID),
		"client_port", s.cfg.ClientPort,
		"control_port", s.cfg.ControlPort,
		"backend", backendName(s.cfg.Backend),
	)
	serveErr := s.clientSrv.Serve(ctx)

	cancel()
	wg.Wait()

	if err := s.backend.Close(); err != nil {
		logger.Warn("closing blob store", logger.Err(err))
	}

	if serveErr != nil {
		return serveErr
	}
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

func (s *Service) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: s.metricsAddr, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func backendName(name string) string {
	if name == "" {
		return "fs"
	}
	return name
}
