package orchestrator_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/alejandrodnm/surebet/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockScanService struct {
	mu      sync.Mutex
	results map[string]domain.ScanResult
	errs    map[string]error
	calls   []string
	block   chan struct{} // si no es nil, Scan espera a que se cierre
}

func (m *mockScanService) ListSports(_ context.Context) (domain.SportsCatalog, error) {
	return domain.SportsCatalog{}, nil
}

func (m *mockScanService) ListBookmakers(_ context.Context) ([]domain.Bookmaker, error) {
	return nil, nil
}

func (m *mockScanService) Scan(_ context.Context, req domain.ScanRequest) (domain.ScanResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req.SportKey)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if err := m.errs[req.SportKey]; err != nil {
		return domain.ScanResult{}, err
	}
	return m.results[req.SportKey], nil
}

func (m *mockScanService) scannedSports() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// recorder captura cada snapshot publicado, en orden.
type recorder struct {
	mu    sync.Mutex
	snaps []domain.ScanSnapshot
}

func (r *recorder) Notify(_ context.Context, snap domain.ScanSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *recorder) all() []domain.ScanSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ScanSnapshot(nil), r.snaps...)
}

// --- helpers ---

func opp(event string, roi float64) domain.Opportunity {
	return domain.Opportunity{
		Event:  event,
		Market: "h2h",
		ROI:    roi,
		Bets: []domain.Bet{
			{Outcome: "A", Bookmaker: "dk", Odds: 150, BetPercentage: 60},
			{Outcome: "B", Bookmaker: "fd", Odds: -120, BetPercentage: 40},
		},
	}
}

func threeSports() []domain.Sport {
	return []domain.Sport{
		{Key: "sport_a", Title: "Sport A", Active: true},
		{Key: "sport_b", Title: "Sport B", Active: true},
		{Key: "sport_c", Title: "Sport C", Active: true},
	}
}

var books = []string{"draftkings", "fanduel"}

// --- tests ---

func TestScanSingleSport_Success(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"basketball_nba": {
				// El backend ya ordena; el orquestador no reordena el caso single
				Opportunities:    []domain.Opportunity{opp("game1", 3.1), opp("game2", 0.8)},
				TotalFound:       7,
				RemainingCredits: "493",
			},
		},
	}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc)

	err := o.ScanSingleSport(context.Background(), "basketball_nba", books, true)
	require.NoError(t, err)

	snap := o.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.Equal(t, 100, snap.Progress)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.CurrentLabel)
	assert.Equal(t, 7, snap.TotalFound)
	assert.Equal(t, "493", snap.RemainingCredits)
	require.Len(t, snap.Opportunities, 2)
	assert.Equal(t, "game1", snap.Opportunities[0].Event)
	assert.Equal(t, "game2", snap.Opportunities[1].Event)
}

func TestScanSingleSport_FailureKeepsPriorResults(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"soccer_epl": {Opportunities: []domain.Opportunity{opp("derby", 1.5)}, TotalFound: 1, RemainingCredits: "100"},
		},
		errs: map[string]error{
			"basketball_nba": errors.New("rate limited"),
		},
	}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc)

	require.NoError(t, o.ScanSingleSport(context.Background(), "soccer_epl", books, false))

	err := o.ScanSingleSport(context.Background(), "basketball_nba", books, false)
	require.Error(t, err)

	snap := o.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.Equal(t, "rate limited", snap.Error)
	assert.Empty(t, snap.CurrentLabel)
	// Los resultados del escaneo anterior se conservan
	require.Len(t, snap.Opportunities, 1)
	assert.Equal(t, "derby", snap.Opportunities[0].Event)
}

func TestScanMultipleSports_PartialFailure(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"sport_a": {
				Opportunities:    []domain.Opportunity{opp("a1", 3.0), opp("a2", 1.5)},
				TotalFound:       2,
				RemainingCredits: "80",
			},
			"sport_c": {
				Opportunities:    []domain.Opportunity{opp("c1", 2.0)},
				TotalFound:       1,
				RemainingCredits: "75",
			},
		},
		errs: map[string]error{"sport_b": errors.New("upstream timeout")},
	}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc)

	err := o.ScanMultipleSports(context.Background(), threeSports(), books, false)
	require.NoError(t, err)

	snap := o.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.Equal(t, 100, snap.Progress)
	// En política skip el fallo de un deporte no aparece como error top-level
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Warnings)
	assert.Equal(t, 3, snap.TotalFound)
	assert.Equal(t, "75", snap.RemainingCredits)

	require.Len(t, snap.Opportunities, 3)
	assert.Equal(t, []float64{3.0, 2.0, 1.5}, []float64{
		snap.Opportunities[0].ROI,
		snap.Opportunities[1].ROI,
		snap.Opportunities[2].ROI,
	})
}

func TestScanMultipleSports_PublishesSortedIncrementally(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"sport_a": {Opportunities: []domain.Opportunity{opp("a1", 1.2)}, TotalFound: 1, RemainingCredits: "90"},
			"sport_b": {Opportunities: []domain.Opportunity{opp("b1", 4.0), opp("b2", 0.5)}, TotalFound: 2, RemainingCredits: "85"},
			"sport_c": {Opportunities: []domain.Opportunity{opp("c1", 2.2)}, TotalFound: 1, RemainingCredits: "80"},
		},
	}
	rec := &recorder{}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc, rec)

	require.NoError(t, o.ScanMultipleSports(context.Background(), threeSports(), books, false))

	var progress []int
	for _, snap := range rec.all() {
		// En cada publicación la lista va ordenada por ROI descendente
		for i := 1; i < len(snap.Opportunities); i++ {
			assert.GreaterOrEqual(t,
				snap.Opportunities[i-1].ROI, snap.Opportunities[i].ROI,
				"snapshot no ordenado en progreso %d", snap.Progress)
		}
		if snap.IsScanning {
			progress = append(progress, snap.Progress)
		}
	}

	// Inicio + una publicación por sub-scan, con el redondeo de (i+1)/n
	assert.Equal(t, []int{0, 33, 67, 100}, progress)
}

func TestScanMultipleSports_TiesKeepArrivalOrder(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"sport_a": {Opportunities: []domain.Opportunity{opp("first", 2.0)}, TotalFound: 1},
			"sport_b": {Opportunities: []domain.Opportunity{opp("second", 2.0)}, TotalFound: 1},
			"sport_c": {Opportunities: []domain.Opportunity{opp("third", 2.0)}, TotalFound: 1},
		},
	}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc)

	require.NoError(t, o.ScanMultipleSports(context.Background(), threeSports(), books, false))

	snap := o.Snapshot()
	require.Len(t, snap.Opportunities, 3)
	assert.Equal(t, "first", snap.Opportunities[0].Event)
	assert.Equal(t, "second", snap.Opportunities[1].Event)
	assert.Equal(t, "third", snap.Opportunities[2].Event)
}

func TestScanMultipleSports_CollectPolicy(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"sport_a": {Opportunities: []domain.Opportunity{opp("a1", 1.0)}, TotalFound: 1},
			"sport_c": {Opportunities: []domain.Opportunity{opp("c1", 2.0)}, TotalFound: 1},
		},
		errs: map[string]error{"sport_b": errors.New("boom")},
	}
	o := orchestrator.New(orchestrator.Config{OnSubScanError: orchestrator.PolicyCollect}, svc)

	require.NoError(t, o.ScanMultipleSports(context.Background(), threeSports(), books, false))

	snap := o.Snapshot()
	assert.Empty(t, snap.Error)
	require.Len(t, snap.Warnings, 1)
	assert.Equal(t, "Sport B: boom", snap.Warnings[0])
	assert.Len(t, snap.Opportunities, 2)
	assert.Equal(t, 100, snap.Progress)
}

func TestScanMultipleSports_AbortPolicy(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"sport_a": {Opportunities: []domain.Opportunity{opp("a1", 1.0)}, TotalFound: 1},
		},
		errs: map[string]error{"sport_b": errors.New("boom")},
	}
	o := orchestrator.New(orchestrator.Config{OnSubScanError: orchestrator.PolicyAbort}, svc)

	err := o.ScanMultipleSports(context.Background(), threeSports(), books, false)
	require.Error(t, err)

	snap := o.Snapshot()
	assert.False(t, snap.IsScanning)
	assert.Equal(t, "boom", snap.Error)
	// sport_c no llegó a intentarse
	assert.Equal(t, []string{"sport_a", "sport_b"}, svc.scannedSports())
	// Lo acumulado antes del abort se conserva
	assert.Len(t, snap.Opportunities, 1)
}

func TestClearResults(t *testing.T) {
	svc := &mockScanService{
		results: map[string]domain.ScanResult{
			"sport_a": {Opportunities: []domain.Opportunity{opp("a1", 1.0)}, TotalFound: 1, RemainingCredits: "42"},
		},
	}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc)
	require.NoError(t, o.ScanSingleSport(context.Background(), "sport_a", books, false))

	o.ClearResults()
	snap := o.Snapshot()
	assert.Empty(t, snap.Opportunities)
	assert.Zero(t, snap.TotalFound)
	assert.Zero(t, snap.Progress)
	assert.Empty(t, snap.Error)
	assert.Empty(t, snap.Warnings)
	// Los créditos restantes son estado del proveedor, no del escaneo
	assert.Equal(t, "42", snap.RemainingCredits)

	// Idempotente
	o.ClearResults()
	assert.Equal(t, snap, o.Snapshot())
}

func TestScan_RejectsOverlappingScan(t *testing.T) {
	block := make(chan struct{})
	svc := &mockScanService{
		results: map[string]domain.ScanResult{"sport_a": {TotalFound: 0}},
		block:   block,
	}
	o := orchestrator.New(orchestrator.DefaultConfig(), svc)

	done := make(chan error, 1)
	go func() {
		done <- o.ScanSingleSport(context.Background(), "sport_a", books, false)
	}()

	// Esperar a que el primer escaneo esté en vuelo
	require.Eventually(t, func() bool {
		return o.Snapshot().IsScanning
	}, 2*time.Second, time.Millisecond)

	err := o.ScanSingleSport(context.Background(), "sport_a", books, false)
	assert.ErrorIs(t, err, orchestrator.ErrScanInProgress)
	err = o.ScanMultipleSports(context.Background(), threeSports(), books, false)
	assert.ErrorIs(t, err, orchestrator.ErrScanInProgress)

	close(block)
	require.NoError(t, <-done)
	assert.False(t, o.Snapshot().IsScanning)
}
