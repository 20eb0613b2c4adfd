package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/surebet/internal/catalog"
	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/alejandrodnm/surebet/internal/orchestrator"
	"github.com/alejandrodnm/surebet/internal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanService struct {
	sports  domain.SportsCatalog
	results map[string]domain.ScanResult
}

func (s *stubScanService) ListSports(_ context.Context) (domain.SportsCatalog, error) {
	return s.sports, nil
}

func (s *stubScanService) ListBookmakers(_ context.Context) ([]domain.Bookmaker, error) {
	return []domain.Bookmaker{{Key: "draftkings", Name: "DraftKings"}, {Key: "fanduel", Name: "FanDuel"}}, nil
}

func (s *stubScanService) Scan(_ context.Context, req domain.ScanRequest) (domain.ScanResult, error) {
	return s.results[req.SportKey], nil
}

func newTestRouter(svc *stubScanService) http.Handler {
	orch := orchestrator.New(orchestrator.DefaultConfig(), svc)
	cat := catalog.New(svc, nil, time.Hour, time.Hour)
	return web.NewServer(orch, cat, nil).Router([]string{"http://localhost:3000"})
}

func TestHandleSports(t *testing.T) {
	svc := &stubScanService{sports: domain.SportsCatalog{
		Sports:           []domain.Sport{{Key: "basketball_nba", Title: "NBA", Group: "Basketball", Active: true}},
		RemainingCredits: "200",
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/sports", nil)
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.SportsCatalog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "200", got.RemainingCredits)
	require.Len(t, got.Sports, 1)
	assert.Equal(t, "basketball_nba", got.Sports[0].Key)
}

func TestHandleBookmakers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/bookmakers", nil)
	rec := httptest.NewRecorder()
	newTestRouter(&stubScanService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Bookmakers []domain.Bookmaker `json:"bookmakers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Bookmakers, 2)
	assert.Equal(t, "fanduel", got.Bookmakers[1].Key)
}

func TestHandleScan_Validation(t *testing.T) {
	router := newTestRouter(&stubScanService{})

	// Sin deporte
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan",
		bytes.NewBufferString(`{"bookmakers":["draftkings","fanduel"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Con una sola casa no hay arbitraje posible
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan",
		bytes.NewBufferString(`{"sport_key":"basketball_nba","bookmakers":["draftkings"]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var payload struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "at least 2 bookmakers are required", payload.Error)
}

func TestHandleScan_StartsAndReportsStatus(t *testing.T) {
	svc := &stubScanService{results: map[string]domain.ScanResult{
		"basketball_nba": {
			Opportunities:    []domain.Opportunity{{Event: "Lakers vs Celtics", ROI: 2.0}},
			TotalFound:       1,
			RemainingCredits: "150",
		},
	}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan",
		bytes.NewBufferString(`{"sport_key":"basketball_nba","bookmakers":["draftkings","fanduel"]}`)))
	require.Equal(t, http.StatusAccepted, rec.Code)

	// El escaneo corre en background; esperar a que el status lo refleje
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scan/status", nil))

		var snap domain.ScanSnapshot
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return !snap.IsScanning && snap.TotalFound == 1 && snap.Progress == 100
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandleClear(t *testing.T) {
	router := newTestRouter(&stubScanService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan/clear", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.ScanSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Empty(t, snap.Opportunities)
	assert.Zero(t, snap.Progress)
}

func TestHandleStake(t *testing.T) {
	router := newTestRouter(&stubScanService{})

	body := `{
		"opportunity": {
			"event": "Lakers vs Celtics",
			"roi": 2.5,
			"bets": [
				{"outcome": "Lakers", "bookmaker": "draftkings", "odds": 150, "bet_percentage": 60},
				{"outcome": "Celtics", "bookmaker": "fanduel", "odds": -120, "bet_percentage": 40}
			]
		},
		"total_stake": 1000
	}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stake", bytes.NewBufferString(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var plan domain.StakePlan
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plan))
	require.Len(t, plan.Legs, 2)
	assert.InDelta(t, 600, plan.Legs[0].Stake, 1e-9)
	assert.InDelta(t, 400, plan.Legs[1].Stake, 1e-9)
	assert.InDelta(t, 25, plan.ExpectedProfit, 1e-9)
}

func TestHandleStake_RejectsSingleLeg(t *testing.T) {
	router := newTestRouter(&stubScanService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stake",
		bytes.NewBufferString(`{"opportunity":{"bets":[{"outcome":"X","bet_percentage":100}]},"total_stake":50}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
