package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

const maxRecentCycles = 20

// CycleInfo is the outcome of one ticker refresh cycle.
type CycleInfo struct {
	Status    string `json:"status"`
	Rows      int    `json:"rows"`
	LatencyMs int64  `json:"latency_ms"`
	Timestamp string `json:"timestamp"`
}

// MonitoringStats aggregates the pipeline and process metrics exposed on /api/status.
type MonitoringStats struct {
	// --- TICKER PIPELINE ---
	CyclesOK      uint64      `json:"cycles_ok"`
	CyclesFailed  uint64      `json:"cycles_failed"`
	CyclesSkipped uint64      `json:"cycles_skipped"`
	RecentCycles  []CycleInfo `json:"recent_cycles"`

	// --- CHAT ---
	MessagesAppended uint64 `json:"messages_appended"`
	AppendFailures   uint64 `json:"append_failures"`
	Subscribers      int64  `json:"subscribers"`

	// --- SUPERVISION ---
	WorkerRestarts uint64 `json:"worker_restarts"`

	// --- SYSTEM ---
	Pid          int32   `json:"pid"`
	RssBytes     uint64  `json:"rss_bytes"`
	CPUPercent   float64 `json:"cpu_percent"`
	AllocMemMb   uint64  `json:"alloc_mem_mb"`
	NumGC        uint32  `json:"num_gc"`
	NumGoroutine int     `json:"num_goroutine"`
}

// MonitoringManager collects counters from the workers and the chat channel.
// Counters are atomics; the recent cycles list is mutex guarded.
type MonitoringManager struct {
	log          *slog.Logger
	mu           sync.RWMutex
	recentCycles []CycleInfo

	cyclesOK         uint64
	cyclesFailed     uint64
	cyclesSkipped    uint64
	messagesAppended uint64
	appendFailures   uint64
	workerRestarts   uint64
	subscribers      int64
}

func NewMonitoringManager(log *slog.Logger) *MonitoringManager {
	return &MonitoringManager{log: log, recentCycles: make([]CycleInfo, 0, maxRecentCycles)}
}

func (mm *MonitoringManager) RecordCycle(rows int, latency time.Duration) {
	status := "ok"
	if rows == 0 {
		status = "failed"
		atomic.AddUint64(&mm.cyclesFailed, 1)
	} else {
		atomic.AddUint64(&mm.cyclesOK, 1)
	}

	mm.mu.Lock()
	defer mm.mu.Unlock()
	cycle := CycleInfo{
		Status:    status,
		Rows:      rows,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().Format("15:04:05"),
	}
	// Newest first, only the last cycles are kept
	mm.recentCycles = append([]CycleInfo{cycle}, mm.recentCycles...)
	if len(mm.recentCycles) > maxRecentCycles {
		mm.recentCycles = mm.recentCycles[:maxRecentCycles]
	}
}

func (mm *MonitoringManager) IncrCyclesSkipped() {
	atomic.AddUint64(&mm.cyclesSkipped, 1)
}

func (mm *MonitoringManager) IncrMessagesAppended() {
	atomic.AddUint64(&mm.messagesAppended, 1)
}

func (mm *MonitoringManager) IncrAppendFailures() {
	atomic.AddUint64(&mm.appendFailures, 1)
}

func (mm *MonitoringManager) IncrWorkerRestarts() {
	atomic.AddUint64(&mm.workerRestarts, 1)
}

func (mm *MonitoringManager) AddSubscribers(delta int64) {
	atomic.AddInt64(&mm.subscribers, delta)
}

// GetLatest returns the counters plus a fresh sample of the process metrics.
func (mm *MonitoringManager) GetLatest() MonitoringStats {
	mm.mu.RLock()
	recent := append([]CycleInfo{}, mm.recentCycles...)
	mm.mu.RUnlock()

	stats := MonitoringStats{
		CyclesOK:         atomic.LoadUint64(&mm.cyclesOK),
		CyclesFailed:     atomic.LoadUint64(&mm.cyclesFailed),
		CyclesSkipped:    atomic.LoadUint64(&mm.cyclesSkipped),
		RecentCycles:     recent,
		MessagesAppended: atomic.LoadUint64(&mm.messagesAppended),
		AppendFailures:   atomic.LoadUint64(&mm.appendFailures),
		Subscribers:      atomic.LoadInt64(&mm.subscribers),
		WorkerRestarts:   atomic.LoadUint64(&mm.workerRestarts),
		Pid:              int32(os.Getpid()),
		NumGoroutine:     runtime.NumGoroutine(),
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	stats.AllocMemMb = m.Alloc / 1024 / 1024
	stats.NumGC = m.NumGC

	rss, cpu, err := selfStats(stats.Pid)
	if err != nil {
		mm.log.Debug("Failed to collect self stats", "error", err)
		return stats
	}
	stats.RssBytes = rss
	stats.CPUPercent = cpu
	return stats
}

// selfStats retrieves memory and CPU usage of the given process.
func selfStats(pid int32) (uint64, float64, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return 0, 0, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
