// Package health provides the HTTP and gRPC health endpoints of the service.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/yourusername/win-probability/internal/metrics"
	"github.com/yourusername/win-probability/internal/service"
)

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// ModelReporter reports whether a model is serving predictions.
type ModelReporter interface {
	Health(ctx context.Context) service.HealthStatus
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status        string     `json:"status"`
	Service       string     `json:"service"`
	Timestamp     string     `json:"timestamp,omitempty"`
	Version       string     `json:"version,omitempty"`
	ModelLoaded   bool       `json:"model_loaded"`
	ModelVersion  string     `json:"model_version,omitempty"`
	LastTrainedAt *time.Time `json:"last_trained_at,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Server serves /health, /ready, /live and optionally /metrics over HTTP, and the
// standard gRPC health protocol.
type Server struct {
	serviceName   string
	version       string
	port          string
	grpcPort      string
	exposeMetrics bool
	server        *http.Server
	grpcServer    *grpc.Server
	grpcHealth    *grpchealth.Server
	logger        *logrus.Logger
	db            DatabasePinger
	model         ModelReporter
	mu            sync.RWMutex
	ready         bool
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName   string
	Version       string
	Port          string
	GRPCPort      string
	ExposeMetrics bool
	Logger        *logrus.Logger
	DB            DatabasePinger
	Model         ModelReporter
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	s := &Server{
		serviceName:   cfg.ServiceName,
		version:       cfg.Version,
		port:          port,
		grpcPort:      cfg.GRPCPort,
		exposeMetrics: cfg.ExposeMetrics,
		logger:        log,
		db:            cfg.DB,
		model:         cfg.Model,
		grpcHealth:    grpchealth.NewServer(),
	}
	s.grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.grpcHealth.SetServingStatus(s.serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetReady marks the server as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
	s.SyncModelState(context.Background())
}

// IsReady returns whether the server is ready.
func (s *Server) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// SyncModelState publishes the current readiness to gRPC health clients. The
// service is SERVING once it is ready and a model is loaded.
func (s *Server) SyncModelState(ctx context.Context) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.IsReady() && s.modelLoaded(ctx) {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.grpcHealth.SetServingStatus("", status)
	s.grpcHealth.SetServingStatus(s.serviceName, status)
}

func (s *Server) modelLoaded(ctx context.Context) bool {
	if s.model == nil {
		return true
	}
	return s.model.Health(ctx).ModelLoaded
}

// Handler returns the HTTP handler of the health endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	if s.exposeMetrics {
		mux.Handle("/metrics", metrics.Handler())
	}
	return mux
}

// Start starts the HTTP and gRPC servers in the background. Both shut down when
// ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.grpcPort != "" {
		lis, err := net.Listen("tcp", ":"+s.grpcPort)
		if err != nil {
			return fmt.Errorf("failed to listen on grpc port %s: %w", s.grpcPort, err)
		}
		s.grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(s.grpcServer, s.grpcHealth)

		go func() {
			s.logger.WithField("port", s.grpcPort).Info("gRPC health server starting")
			if err := s.grpcServer.Serve(lis); err != nil {
				s.logger.WithError(err).Error("gRPC health server error")
			}
		}()
	}

	go func() {
		s.logger.WithFields(logrus.Fields{
			"port":    s.port,
			"service": s.serviceName,
		}).Info("Health check server starting")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("Health check server error")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.logger.WithError(err).Warn("Health check server shutdown failed")
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the health check servers.
func (s *Server) Shutdown() error {
	s.grpcHealth.Shutdown()
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	if s.server == nil {
		return nil
	}

	s.logger.Info("Health check server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// handleHealth handles the /health endpoint. A service without a model reports
// degraded but still answers 200.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    service.StatusOK,
		Service:   s.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.version,
	}
	if s.model != nil {
		h := s.model.Health(r.Context())
		response.Status = h.Status
		response.ModelLoaded = h.ModelLoaded
		response.ModelVersion = h.ModelVersion
		response.LastTrainedAt = h.LastTrainedAt
	}

	writeJSON(w, http.StatusOK, response)
}

// handleLive handles the /live endpoint - kubernetes liveness probe.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  service.StatusOK,
		Service: s.serviceName,
	})
}

// handleReady handles the /ready endpoint - checks database connectivity and
// that a model is loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	checks := make(map[string]string)
	allHealthy := true

	if !s.IsReady() {
		allHealthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		if err := s.db.Ping(ctx); err != nil {
			allHealthy = false
			checks["database"] = fmt.Sprintf("error: %v", err)
		} else {
			checks["database"] = "ok"
		}
	}

	if s.model != nil {
		if s.model.Health(r.Context()).ModelLoaded {
			checks["model"] = "ok"
		} else {
			allHealthy = false
			checks["model"] = "not_loaded"
		}
	}

	response := ReadyResponse{
		Service:  s.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}

	status := http.StatusOK
	response.Status = "ok"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		response.Status = "not_ready"
	}
	writeJSON(w, status, response)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
