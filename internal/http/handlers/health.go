package handlers

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Health check statuses.
const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusOK       = "ok"
	statusError    = "error"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version    string
	startTime  time.Time
	storageDir string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:   version,
		startTime: time.Now(),
	}
}

// WithStorageDir sets the shared playlist directory checked by /health.
func (h *HealthHandler) WithStorageDir(dir string) *HealthHandler {
	h.storageDir = dir
	return h
}

// HealthInput is the input for the health check endpoint.
type HealthInput struct{}

// HealthOutput is the output for the health check endpoint.
type HealthOutput struct {
	Body HealthResponse
}

// HealthResponse reports service and host status.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	CPUInfo       CPUInfo           `json:"cpu_info"`
	Memory        MemoryInfo        `json:"memory"`
	Checks        map[string]string `json:"checks"`
}

// CPUInfo holds load averages.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo holds system and process memory usage in megabytes.
type MemoryInfo struct {
	TotalMemoryMB     float64 `json:"total_memory_mb"`
	UsedMemoryMB      float64 `json:"used_memory_mb"`
	AvailableMemoryMB float64 `json:"available_memory_mb"`
	ProcessMemoryMB   float64 `json:"process_memory_mb"`
}

// LivezInput is the input for the liveness endpoint.
type LivezInput struct{}

// LivezOutput is the output for the liveness endpoint.
type LivezOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// Register registers the health routes with the API.
func (h *HealthHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getHealth",
		Method:      "GET",
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns the health status of the service including system metrics",
		Tags:        []string{"System"},
	}, h.GetHealth)

	huma.Register(api, huma.Operation{
		OperationID: "getLivez",
		Method:      "GET",
		Path:        "/livez",
		Summary:     "Liveness probe",
		Tags:        []string{"System"},
	}, h.GetLivez)
}

// GetLivez reports that the process is serving requests.
func (h *HealthHandler) GetLivez(ctx context.Context, input *LivezInput) (*LivezOutput, error) {
	out := &LivezOutput{}
	out.Body.Status = statusOK
	return out, nil
}

// GetHealth reports the service status. A failing storage check degrades
// the status but still answers 200.
func (h *HealthHandler) GetHealth(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
	now := time.Now()
	uptime := now.Sub(h.startTime)

	checks := map[string]string{"storage": storageCheck(h.storageDir)}
	status := statusHealthy
	for _, result := range checks {
		if result == statusError {
			status = statusDegraded
		}
	}

	out := &HealthOutput{Body: HealthResponse{
		Status:        status,
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       h.version,
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: uptime.Seconds(),
		Checks:        checks,
	}}
	out.Body.CPUInfo, out.Body.Memory = sampleHost(ctx)
	return out, nil
}

func storageCheck(dir string) string {
	if dir == "" {
		return "not_configured"
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return statusError
	}
	return statusOK
}

// sampleHost reads load and memory figures. Figures gopsutil cannot read on
// this platform stay zero.
func sampleHost(ctx context.Context) (CPUInfo, MemoryInfo) {
	cpu := CPUInfo{Cores: runtime.NumCPU()}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		cpu.Load1Min, cpu.Load5Min, cpu.Load15Min = avg.Load1, avg.Load5, avg.Load15
		cpu.LoadPercentage1Min = avg.Load1 / float64(cpu.Cores) * 100
	}

	var memory MemoryInfo
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		memory.TotalMemoryMB = megabytes(vm.Total)
		memory.UsedMemoryMB = megabytes(vm.Used)
		memory.AvailableMemoryMB = megabytes(vm.Available)
	}
	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfoWithContext(ctx); err == nil {
			memory.ProcessMemoryMB = megabytes(rss.RSS)
		}
	}
	return cpu, memory
}

func megabytes(n uint64) float64 {
	return float64(n) / (1 << 20)
}
