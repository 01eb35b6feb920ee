package namenode

import (
	"context"
	"fmt"
	"sync"

	"github.com/scribefs/scribefs/internal/logger"
	"github.com/scribefs/scribefs/pkg/config"
	"github.com/scribefs/scribefs/pkg/metrics/prometheus"
	"github.com/scribefs/scribefs/pkg/server"
)

// Service is a complete name node: frame listener, failure monitor,
// and optional admin API over one shared registry.
type Service struct {
	cfg      config.NameNodeConfig
	registry *Registry
	locks    *LockManager
	requests *RequestQueue
	node     *Node
	server   *server.Server
	monitor  *Monitor
	api      *APIServer
}

// NewService assembles a name node from configuration and loads the
// persisted namespace.
func NewService(cfg *config.Config) (*Service, error) {
	nnCfg := cfg.NameNode
	nnMetrics := prometheus.NewNameNodeMetrics()

	registry := NewRegistry(nnCfg.DataDir, nnCfg.CacheSize, nnMetrics)
	if err := registry.Load(); err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	locks := NewLockManager(nnMetrics)
	requests := NewRequestQueue(nnMetrics)
	node := NewNode(registry, locks, requests)

	srv := server.New(server.Config{
		Name:            "namenode",
		Port:            nnCfg.Port,
		MaxConnections:  nnCfg.MaxConnections,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, node, prometheus.NewServerMetrics("namenode"))

	svc := &Service{
		cfg:      nnCfg,
		registry: registry,
		locks:    locks,
		requests: requests,
		node:     node,
		server:   srv,
		monitor:  NewMonitor(registry, locks, nnCfg.ScanInterval, nnCfg.HeartbeatTimeout, nnCfg.LockLeaseTTL),
	}
	if nnCfg.API.Enabled {
		svc.api = NewAPIServer(nnCfg.API, registry, locks, requests)
	}
	return svc, nil
}

// Run serves until ctx is cancelled. The frame listener, the failure
// monitor, and the admin API share the context; the first hard failure
// is returned after everything winds down.
func (s *Service) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.monitor.Run(ctx)
	}()

	if s.api != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.api.Start(ctx); err != nil {
				errChan <- err
				cancel()
			}
		}()
	}

	logger.Info("name node starting", "port", s.cfg.Port)
	serveErr := s.server.Serve(ctx)

	cancel()
	wg.Wait()

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
