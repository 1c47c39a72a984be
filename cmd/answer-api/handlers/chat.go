package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mueller-baumaschinen/answer-engine/internal/llm"
	"github.com/mueller-baumaschinen/answer-engine/internal/resolver"
)

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	logger   zerolog.Logger
	resolver *resolver.Resolver
}

// NewChatHandler creates a chat handler.
func NewChatHandler(logger zerolog.Logger, res *resolver.Resolver) *ChatHandler {
	return &ChatHandler{
		logger:   logger.With().Str("handler", "chat").Logger(),
		resolver: res,
	}
}

// ChatMessageDTO is one prior conversation turn supplied by the client.
type ChatMessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequestDTO is the chat request body. History is optional and only
// forwarded to the LLM fallback; the server keeps no conversation state.
type ChatRequestDTO struct {
	Message string           `json:"message"`
	History []ChatMessageDTO `json:"history,omitempty"`
}

// Post handles POST /chat.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req ChatRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var history []llm.Message
	for _, m := range req.History {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := h.resolver.Resolve(r.Context(), req.Message, history)
	if err != nil {
		if errors.Is(err, resolver.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		h.logger.Error().Err(err).Msg("resolve failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
