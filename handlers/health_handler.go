package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/club-authz/services/audit"
	"github.com/upb/club-authz/services/permission"
	"github.com/upb/club-authz/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]string      `json:"checks,omitempty"`
	Stats     map[string]interface{} `json:"stats,omitempty"`
}

// CacheStatsSource reports snapshot cache statistics
type CacheStatsSource interface {
	Stats() permission.CacheStats
}

// AuditStatsSource reports audit worker statistics
type AuditStatsSource interface {
	GetStats() audit.Stats
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	cache  CacheStatsSource
	audit  AuditStatsSource
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Any dependency may be nil.
func NewHealthHandler(db *sql.DB, cache CacheStatsSource, auditStats AuditStatsSource, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		cache:  cache,
		audit:  auditStats,
		logger: logger,
	}
}

// HandleHealth handles GET /healthz
// Liveness only: returns 200 whenever the process can serve
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Permission checks fail closed without the database, so it gates readiness
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	stats := make(map[string]interface{})
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.audit != nil {
		auditStats := h.audit.GetStats()
		stats["audit"] = auditStats
		if auditStats.Started {
			checks["audit"] = "healthy"
		} else {
			checks["audit"] = "stopped"
			allHealthy = false
		}
	}

	if h.cache != nil {
		stats["snapshot_cache"] = h.cache.Stats()
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if len(stats) > 0 {
		response.Stats = stats
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
