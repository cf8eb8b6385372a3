package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizforge/quizforge-backend/internal/middleware"
	"github.com/quizforge/quizforge-backend/internal/response"
)

const metricsInterval = 7 * time.Second

// SystemHandler serves the health check and streams host and runtime
// gauges to the operator dashboard over SSE.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	stats     *hostStats
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		stats:     newHostStats(),
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Reports liveness of the process and its Postgres and Redis backends.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "up"
	if err := h.pool.Ping(ctx); err != nil {
		dbStatus = "down"
	}
	redisStatus := "up"
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisStatus = "down"
	}

	status := http.StatusOK
	if dbStatus != "up" || redisStatus != "up" {
		status = http.StatusServiceUnavailable
	}

	response.Success(c, status, gin.H{
		"status":   "ok",
		"uptime":   formatUptime(time.Since(h.startTime)),
		"database": dbStatus,
		"redis":    redisStatus,
	})
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Host
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedBytes   uint64  `json:"mem_used_bytes"`
	MemTotalBytes  uint64  `json:"mem_total_bytes"`
	MemPercent     float64 `json:"mem_percent"`
	DiskUsedBytes  uint64  `json:"disk_used_bytes"`
	DiskTotalBytes uint64  `json:"disk_total_bytes"`
	DiskPercent    float64 `json:"disk_percent"`
	LoadAvg1       float64 `json:"load_avg_1"`
	LoadAvg5       float64 `json:"load_avg_5"`
	LoadAvg15      float64 `json:"load_avg_15"`

	// Go runtime
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	HeapSys     uint64 `json:"heap_sys"`
	StackInuse  uint64 `json:"stack_inuse"`
	NumGC       uint32 `json:"num_gc"`
	AppRSSBytes uint64 `json:"app_rss_bytes"`
	GoVersion   string `json:"go_version"`
	NumCPU      int    `json:"num_cpu"`
	CPUModel    string `json:"cpu_model"`

	// Application
	ActiveSessions int64 `json:"active_sessions"`
	RedisKeys      int64 `json:"redis_keys"`
}

// SystemMetricsSSE godoc
// GET /api/v1/system/metrics
// Pushes a metrics snapshot on connect and then on every tick until
// the client goes away.
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")

	h.log.Info().Int("user_id", claims.UserID).Msg("Host connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	h.writeMetrics(c)

	for {
		select {
		case <-c.Request.Context().Done():
			h.log.Info().Msg("Host disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	data, err := json.Marshal(h.collect())
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}

func (h *SystemHandler) collect() systemMetrics {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	m := systemMetrics{
		Timestamp:   time.Now().Unix(),
		Uptime:      formatUptime(time.Since(h.startTime)),
		CPUPercent:  h.stats.cpuPercent(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   ms.HeapAlloc,
		HeapSys:     ms.HeapSys,
		StackInuse:  ms.StackInuse,
		NumGC:       ms.NumGC,
		AppRSSBytes: processRSS(),
		GoVersion:   runtime.Version(),
		NumCPU:      runtime.NumCPU(),
		CPUModel:    h.stats.cpuModel,
	}

	if total, used := memoryUsage(); total > 0 {
		m.MemTotalBytes = total
		m.MemUsedBytes = used
		m.MemPercent = float64(used) / float64(total) * 100
	}
	if total, used := diskUsage("/"); total > 0 {
		m.DiskTotalBytes = total
		m.DiskUsedBytes = used
		m.DiskPercent = float64(used) / float64(total) * 100
	}
	m.LoadAvg1, m.LoadAvg5, m.LoadAvg15 = loadAverages()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if n, err := h.rdb.DBSize(ctx).Result(); err == nil {
		m.RedisKeys = n
	}
	var active int64
	if err := h.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sessions WHERE is_active").Scan(&active); err == nil {
		m.ActiveSessions = active
	}

	return m
}

// formatUptime renders a duration as "2d 3h 4m 5s", dropping leading
// units that are zero.
func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	days := total / 86400
	hours := total % 86400 / 3600
	minutes := total % 3600 / 60
	seconds := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}
