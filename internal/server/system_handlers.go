package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/invexis/invexis/internal/database"
)

// SystemHandlers handles liveness and monitoring endpoints
type SystemHandlers struct {
	log         zerolog.Logger
	startupTime time.Time
	historyDB   *database.DB
	usersDB     *database.DB
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(log zerolog.Logger, historyDB, usersDB *database.DB) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("handler", "system").Logger(),
		startupTime: time.Now(),
		historyDB:   historyDB,
		usersDB:     usersDB,
	}
}

// HandleRoot handles GET /
func (h *SystemHandlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{
		"service": "invexis",
		"status":  "running",
	})
}

// HandleTestConnection handles GET /test-connection
func (h *SystemHandlers) HandleTestConnection(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleHealth handles GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.getSystemStats()

	databases := map[string]string{}
	for name, db := range map[string]*database.DB{
		h.historyDB.Name(): h.historyDB,
		h.usersDB.Name():   h.usersDB,
	} {
		status := "ok"
		if err := db.Ping(r.Context()); err != nil {
			status = "error: " + err.Error()
		}
		databases[name] = status
	}

	h.writeJSON(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.startupTime).Seconds()),
		"cpu_percent":    cpuAvg,
		"ram_percent":    ramPercent,
		"databases":      databases,
	})
}

// getSystemStats calculates CPU and RAM usage percentages. The short CPU
// sampling interval keeps the endpoint fast for poll-based dashboards.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
