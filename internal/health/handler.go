package health

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"trade-reporter/internal/httputil"
)

type Readiness interface {
	Ready() bool
}

type Handler struct {
	store        Readiness
	startedAt    time.Time
	telegramMode string
	httpAddr     string
	now          func() time.Time
}

func NewHandler(store Readiness, startedAt time.Time, telegramMode, httpAddr string) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{
		store:        store,
		startedAt:    start,
		telegramMode: strings.TrimSpace(telegramMode),
		httpAddr:     strings.TrimSpace(httpAddr),
		now:          time.Now,
	}
}

type healthResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	UptimeSec int64        `json:"uptime_sec"`
	Uptime    string       `json:"uptime"`
	App       appStats     `json:"app"`
	Process   processStats `json:"process"`
	Runtime   runtimeStats `json:"runtime"`
	Store     storeStats   `json:"store"`
}

type appStats struct {
	HTTPAddr     string `json:"http_addr"`
	TelegramMode string `json:"telegram_mode"`
}

type processStats struct {
	PID      int    `json:"pid"`
	Hostname string `json:"hostname"`
}

type runtimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	NumGC      uint32 `json:"num_gc"`
	AllocBytes uint64 `json:"alloc_bytes"`
}

type storeStats struct {
	Connected bool `json:"connected"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	uptime := now.Sub(h.startedAt).Truncate(time.Second)
	host, _ := os.Hostname()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	connected := h.store != nil && h.store.Ready()
	resp := healthResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
		App:       appStats{HTTPAddr: h.httpAddr, TelegramMode: h.telegramMode},
		Process:   processStats{PID: os.Getpid(), Hostname: host},
		Runtime: runtimeStats{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			NumGC:      mem.NumGC,
			AllocBytes: mem.Alloc,
		},
		Store: storeStats{Connected: connected},
	}
	status := http.StatusOK
	if !connected {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
