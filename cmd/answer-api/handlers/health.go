package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

// HealthHandler reports service liveness and knowledge-base state.
type HealthHandler struct {
	logger zerolog.Logger
	coord  *store.Coordinator
	llm    bool // whether an LLM fallback is configured
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(logger zerolog.Logger, coord *store.Coordinator, llmConfigured bool) *HealthHandler {
	return &HealthHandler{
		logger: logger.With().Str("handler", "health").Logger(),
		coord:  coord,
		llm:    llmConfigured,
	}
}

// HealthResponseDTO is the health check payload.
type HealthResponseDTO struct {
	Status     string `json:"status"`
	EntryCount int    `json:"entryCount"`
	Timestamp  string `json:"timestamp"`
	LLM        bool   `json:"llm"`
}

// Get handles GET /health. The service stays available with an empty
// knowledge base; the status degrades to "warning" so operators notice.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	set := h.coord.GetEntries(r.Context())

	status := "ok"
	if set.Size() == 0 {
		status = "warning"
	}

	writeJSON(w, http.StatusOK, HealthResponseDTO{
		Status:     status,
		EntryCount: set.Size(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		LLM:        h.llm,
	})
}
