package api

import (
	"net/http"
	"time"
)

// Stats is the scheduler snapshot served on /stats.
type Stats struct {
	StartedAt        time.Time `json:"started_at"`
	LastCycleAt      time.Time `json:"last_cycle_at,omitzero"`
	ActiveGames      []string  `json:"active_games"`
	CompletedGames   int       `json:"completed_games"`
	Backoff          string    `json:"backoff"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	CurrentScores    int       `json:"current_scores"`
	HistoricalScores int       `json:"historical_scores"`
	SeenPlays        int64     `json:"seen_plays"`
}

// StatsProvider exposes the live snapshot.
type StatsProvider interface {
	Stats() Stats
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.Stats())
}
