package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"axie-market-cache/internal/repository"
	"axie-market-cache/internal/service"
	"axie-market-cache/pkg/apierror"
	"axie-market-cache/pkg/response"
)

// StatusSource reports per-collection sync status.
type StatusSource interface {
	SyncStatuses() []service.SyncStatus
}

// SyncRunner triggers a full sync run on demand.
type SyncRunner interface {
	RunNow(ctx context.Context) ([]service.SyncResult, error)
}

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	store     repository.Store
	statuses  StatusSource
	runner    SyncRunner
	storeType string
	lockType  string
	startTime time.Time
}

// NewAdminHandler creates a new admin handler. runner may be nil.
func NewAdminHandler(
	store repository.Store,
	statuses StatusSource,
	runner SyncRunner,
	storeType, lockType string,
) *AdminHandler {
	return &AdminHandler{
		store:     store,
		statuses:  statuses,
		runner:    runner,
		storeType: storeType,
		lockType:  lockType,
		startTime: time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["store_type"] = h.storeType
	stats["lock_type"] = h.lockType

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":      float64(memStats.Alloc) / 1024 / 1024,
		"sys_mb":        float64(memStats.Sys) / 1024 / 1024,
		"heap_inuse_mb": float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":        memStats.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}

	storeStats, err := h.store.GetStats(ctx)
	if err == nil {
		stats["store"] = storeStats
	} else {
		stats["store"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	}

	if h.statuses != nil {
		stats["sync"] = h.statuses.SyncStatuses()
	}

	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// RunSync handles POST /api/v1/admin/sync
// Both collections are synced; partial failures are reported next to the
// results that succeeded.
func (h *AdminHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		response.Error(w, apierror.ServiceUnavailable("sync runner is not configured"))
		return
	}

	results, err := h.runner.RunNow(r.Context())
	body := map[string]interface{}{"results": results}
	if err != nil {
		body["error"] = err.Error()
		response.JSON(w, http.StatusMultiStatus, body)
		return
	}
	response.OK(w, body)
}
