package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mueller-baumaschinen/answer-engine/internal/resolver"
	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

// FAQHandler serves the knowledge-base read and admin routes.
type FAQHandler struct {
	logger   zerolog.Logger
	coord    *store.Coordinator
	resolver *resolver.Resolver
}

// NewFAQHandler creates an FAQ handler.
func NewFAQHandler(logger zerolog.Logger, coord *store.Coordinator, res *resolver.Resolver) *FAQHandler {
	return &FAQHandler{
		logger:   logger.With().Str("handler", "faq").Logger(),
		coord:    coord,
		resolver: res,
	}
}

// SuccessDTO is the admin-route response body.
type SuccessDTO struct {
	Success bool `json:"success"`
	Count   int  `json:"count,omitempty"`
}

// List handles GET /faq. The entry set version doubles as the ETag so
// clients polling the list can short-circuit on 304.
func (h *FAQHandler) List(w http.ResponseWriter, r *http.Request) {
	set := h.coord.GetEntries(r.Context())

	etag := fmt.Sprintf("%q", set.Version)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-store")

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	entries := set.Entries
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ReplaceAll handles POST /faq: the body is the complete new entry set.
func (h *FAQHandler) ReplaceAll(w http.ResponseWriter, r *http.Request) {
	var entries []store.Entry
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.coord.SaveEntries(r.Context(), entries); err != nil {
		h.logger.Error().Err(err).Msg("bulk save failed")
		writeJSON(w, http.StatusInternalServerError, SuccessDTO{Success: false})
		return
	}
	h.resolver.MarkStale()

	set := h.coord.GetEntries(r.Context())
	h.logger.Info().Int("entries", set.Size()).Msg("entry set replaced")
	writeJSON(w, http.StatusOK, SuccessDTO{Success: true, Count: set.Size()})
}

// AppendSingle handles POST /faq/single: adds one entry to the existing set.
func (h *FAQHandler) AppendSingle(w http.ResponseWriter, r *http.Request) {
	var entry store.Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.coord.AppendSingle(r.Context(), entry); err != nil {
		if errors.Is(err, store.ErrInvalidEntry) {
			writeError(w, http.StatusBadRequest, "question and answer are required")
			return
		}
		h.logger.Error().Err(err).Msg("append failed")
		writeJSON(w, http.StatusInternalServerError, SuccessDTO{Success: false})
		return
	}
	h.resolver.MarkStale()

	writeJSON(w, http.StatusOK, SuccessDTO{Success: true})
}

// ClearCache handles DELETE /cache: drops the cache tier copy and marks the
// index stale so the next read rebuilds.
func (h *FAQHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.ClearCache(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, SuccessDTO{Success: false})
		return
	}
	h.resolver.MarkStale()

	writeJSON(w, http.StatusOK, SuccessDTO{Success: true})
}
