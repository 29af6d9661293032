package services

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

type ComponentHealth struct {
	Status      HealthStatus `json:"status"`
	LastChecked time.Time    `json:"last_checked"`
	Message     string       `json:"message,omitempty"`
}

type HealthCheck struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Deploy     Status                     `json:"deploy"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthMonitor serves the deployer state over HTTP in watch mode.
type HealthMonitor struct {
	deployer *Deployer
	port     string
	server   *http.Server
}

func NewHealthMonitor(deployer *Deployer, port string) *HealthMonitor {
	return &HealthMonitor{
		deployer: deployer,
		port:     port,
	}
}

// Handler returns the health endpoints
func (hm *HealthMonitor) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", hm.healthHandler)
	mux.HandleFunc("/health/live", hm.livenessHandler)
	mux.HandleFunc("/health/ready", hm.readinessHandler)
	return mux
}

func (hm *HealthMonitor) Start() {
	hm.server = &http.Server{
		Addr:              ":" + hm.port,
		Handler:           hm.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Health-Check server started", "port", hm.port)
		if err := hm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health-Check server error", "error", err)
		}
	}()
}

func (hm *HealthMonitor) Stop() {
	if hm.server != nil {
		hm.server.Close()
	}
	slog.Info("Health-Check server stopped")
}

func (hm *HealthMonitor) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, hm.getHealthStatus())
}

// livenessHandler answers as long as the process is running
func (hm *HealthMonitor) livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// readinessHandler reports ready once the deployed site reflects the last successful deploy
func (hm *HealthMonitor) readinessHandler(w http.ResponseWriter, r *http.Request) {
	check := hm.getHealthStatus()
	if check.Deploy.State == StateIdle {
		check.Status = HealthStatusUnhealthy
	}
	writeHealth(w, check)
}

func writeHealth(w http.ResponseWriter, check HealthCheck) {
	w.Header().Set("Content-Type", "application/json")
	if check.Status == HealthStatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	json.NewEncoder(w).Encode(check)
}

func (hm *HealthMonitor) getHealthStatus() HealthCheck {
	now := time.Now()
	status := hm.deployer.Status()

	component := ComponentHealth{
		Status:      HealthStatusHealthy,
		LastChecked: now,
	}
	overall := HealthStatusHealthy

	switch status.State {
	case StateIdle:
		component.Message = "No deploy has run yet"
	case StateDeploying:
		component.Status = HealthStatusDegraded
		component.Message = "Deploy in progress"
		overall = HealthStatusDegraded
	case StateSucceeded:
		component.Message = "Last deploy succeeded"
	case StateFailed:
		component.Status = HealthStatusUnhealthy
		component.Message = "Last deploy failed: " + status.LastError
		overall = HealthStatusUnhealthy
	}

	return HealthCheck{
		Status:    overall,
		Timestamp: now,
		Deploy:    status,
		Components: map[string]ComponentHealth{
			"deployer": component,
		},
	}
}
