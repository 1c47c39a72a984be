package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mueller-baumaschinen/answer-engine/internal/config"
	"github.com/mueller-baumaschinen/answer-engine/internal/faqindex"
	"github.com/mueller-baumaschinen/answer-engine/internal/resolver"
	"github.com/mueller-baumaschinen/answer-engine/internal/store"
)

func testServer(t *testing.T, entries []store.Entry) http.Handler {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.AdminToken = "secret"

	auth := store.NewMemoryStore()
	require.NoError(t, auth.ReplaceAll(context.Background(), entries))
	coord := store.NewCoordinator(zerolog.Nop(), auth, nil)

	res := resolver.New(zerolog.Nop(), resolver.Options{
		Chat:  cfg.Chat,
		Index: faqindex.DefaultOptions(),
	}, coord, nil)

	return NewRouter(zerolog.Nop(), cfg, coord, res, false)
}

func seedEntries() []store.Entry {
	return []store.Entry{
		{Question: "Wo befindet sich die Firma?", Answer: "Musterstraße 1, 52222 Stolberg"},
	}
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := testServer(t, seedEntries())

	for _, path := range []string{"/health", "/api/health"} {
		rec := doJSON(t, h, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, float64(1), body["entryCount"])
		assert.NotEmpty(t, body["timestamp"])
	}
}

func TestHealthWarnsOnEmptyKnowledgeBase(t *testing.T) {
	h := testServer(t, nil)

	rec := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "warning", body["status"])
}

func TestChatProbe(t *testing.T) {
	h := testServer(t, seedEntries())

	for _, path := range []string{"/chat", "/api/chat"} {
		rec := doJSON(t, h, http.MethodPost, path, map[string]string{"message": "ping"}, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "pong", body["reply"])
		assert.Equal(t, "pong", body["source"])
	}
}

func TestChatKnowledgeBaseAnswer(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodPost, "/chat", map[string]string{"message": "wo ist die firma"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Musterstraße 1, 52222 Stolberg", body["reply"])
	assert.Equal(t, "faq", body["source"])
}

func TestChatRejectsMalformedBody(t *testing.T) {
	h := testServer(t, seedEntries())

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodPost, "/chat", map[string]string{"message": "   "}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFAQListWithETag(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodGet, "/api/faq", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	var entries []store.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Equal(t, seedEntries(), entries)

	rec = doJSON(t, h, http.MethodGet, "/api/faq", nil, map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestFAQAdminRequiresToken(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodPost, "/faq", []store.Entry{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/faq", []store.Entry{},
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestFAQReplaceAll(t *testing.T) {
	h := testServer(t, seedEntries())

	newEntries := []store.Entry{
		{Question: "Bieten Sie Finanzierung an?", Answer: "Ja, über unsere Partnerbank."},
	}
	rec := doJSON(t, h, http.MethodPost, "/api/faq", newEntries,
		map[string]string{"X-Admin-Token": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["count"])

	// The resolver serves the new set immediately.
	rec = doJSON(t, h, http.MethodPost, "/chat",
		map[string]string{"message": "bieten sie finanzierung an"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var reply map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "Ja, über unsere Partnerbank.", reply["reply"])
}

func TestFAQAppendSingle(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodPost, "/faq/single",
		store.Entry{Question: "Liefern Sie auch ins Ausland?", Answer: "Auf Anfrage, ja."},
		map[string]string{"X-Admin-Token": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])

	rec = doJSON(t, h, http.MethodGet, "/faq", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []store.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
}

func TestFAQAppendSingleInvalidEntry(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodPost, "/faq/single",
		store.Entry{Question: "q", Answer: "  "},
		map[string]string{"X-Admin-Token": "secret"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearCache(t *testing.T) {
	h := testServer(t, seedEntries())

	rec := doJSON(t, h, http.MethodDelete, "/api/cache", nil,
		map[string]string{"X-Admin-Token": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
}
