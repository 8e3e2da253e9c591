package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendpulse/internal/config"
	"trendpulse/internal/core"
	"trendpulse/internal/pipeline"
)

type stubScanner struct {
	lastOpts pipeline.Options
	result   *pipeline.ScanResult
	err      error
}

func (s *stubScanner) Scan(ctx context.Context, opts pipeline.Options) (*pipeline.ScanResult, error) {
	s.lastOpts = opts
	return s.result, s.err
}

type stubStore struct {
	latest     *core.TrendsReport
	latestErr  error
	history    []core.TrendsReport
	historyErr error
	aliases    []core.AliasRule
	putRules   []core.AliasRule
	bundle     *core.KeywordBundle
}

func (s *stubStore) GetLatestReport(ctx context.Context) (*core.TrendsReport, error) {
	return s.latest, s.latestErr
}

func (s *stubStore) GetHistory(ctx context.Context, limit int) ([]core.TrendsReport, error) {
	return s.history, s.historyErr
}

func (s *stubStore) GetAliases(ctx context.Context) ([]core.AliasRule, error) {
	return s.aliases, nil
}

func (s *stubStore) PutAliases(ctx context.Context, rules []core.AliasRule) error {
	s.putRules = rules
	return nil
}

func (s *stubStore) GetKeywordBundle(ctx context.Context) (*core.KeywordBundle, error) {
	return s.bundle, nil
}

func newTestServer(scanner *stubScanner, store *stubStore) *Server {
	return New(scanner, store, config.Server{Host: "127.0.0.1", Port: 0}, "every 4 hours")
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var envelope apiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&stubScanner{}, &stubStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health healthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "every 4 hours", health.Schedule)
	assert.NotEmpty(t, health.Timestamp)
}

func TestScanDefaults(t *testing.T) {
	scanner := &stubScanner{result: &pipeline.ScanResult{
		RunID:     "run-1",
		ItemCount: 5,
		Report:    &core.TrendsReport{Meta: core.ReportMeta{DayKey: "2026-08-29"}},
	}}
	srv := newTestServer(scanner, &stubStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
	assert.Equal(t, "default", envelope.AIMode)
	assert.Nil(t, scanner.lastOpts.EnableReasoning)
	assert.False(t, scanner.lastOpts.ForceRefresh)
}

func TestScanAIModeToggle(t *testing.T) {
	scanner := &stubScanner{result: &pipeline.ScanResult{Report: &core.TrendsReport{}}}
	srv := newTestServer(scanner, &stubStore{})

	body := bytes.NewBufferString(`{"ai_mode":"disabled","force":true,"keyword":" 降息 "}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", body))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "disabled", envelope.AIMode)
	require.NotNil(t, scanner.lastOpts.EnableReasoning)
	assert.False(t, *scanner.lastOpts.EnableReasoning)
	assert.True(t, scanner.lastOpts.ForceRefresh)
	assert.Equal(t, "降息", scanner.lastOpts.Keyword)
}

func TestScanRejectsBadAIMode(t *testing.T) {
	srv := newTestServer(&stubScanner{}, &stubStore{})

	body := bytes.NewBufferString(`{"ai_mode":"turbo"}`)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", body))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	assert.NotEmpty(t, envelope.Error)
}

func TestScanFailure(t *testing.T) {
	scanner := &stubScanner{err: errors.New("store offline")}
	srv := newTestServer(scanner, &stubStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	// internal detail does not leak to the client
	assert.NotContains(t, envelope.Error, "store offline")
}

func TestLatestReport(t *testing.T) {
	store := &stubStore{latest: &core.TrendsReport{Meta: core.ReportMeta{DayKey: "2026-08-29"}}}
	srv := newTestServer(&stubScanner{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/latest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.True(t, envelope.Success)
}

func TestLatestReportAbsent(t *testing.T) {
	srv := newTestServer(&stubScanner{}, &stubStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/latest", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
}

func TestHistoryLimitParsing(t *testing.T) {
	store := &stubStore{history: []core.TrendsReport{{Meta: core.ReportMeta{DayKey: "2026-08-29"}}}}
	srv := newTestServer(&stubScanner{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/history?limit=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports/history?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPutAliasesReplacesSet(t *testing.T) {
	store := &stubStore{}
	srv := newTestServer(&stubScanner{}, store)

	body := strings.NewReader(`[{"alias":"川普","canonical":"特朗普"}]`)
	req := httptest.NewRequest(http.MethodPut, "/api/aliases", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.putRules, 1)
	assert.Equal(t, core.AliasRule{Alias: "川普", Canonical: "特朗普"}, store.putRules[0])
}

func TestPutAliasesRejectsIncompleteRule(t *testing.T) {
	srv := newTestServer(&stubScanner{}, &stubStore{})

	body := strings.NewReader(`[{"alias":"川普"}]`)
	req := httptest.NewRequest(http.MethodPut, "/api/aliases", body)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
}

func TestKeywords(t *testing.T) {
	store := &stubStore{bundle: &core.KeywordBundle{Finance: []string{"股市"}}}
	srv := newTestServer(&stubScanner{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/keywords", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	srv = newTestServer(&stubScanner{}, &stubStore{})
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/keywords", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
