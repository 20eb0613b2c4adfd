package web

// server.go — API local para la UI web.
//
// Reexpone los catálogos, el orquestador y el motor de stakes sobre HTTP.
// Los escaneos arrancan en una goroutine y la UI sigue el progreso por el
// endpoint de status o por el websocket del Hub.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alejandrodnm/surebet/internal/catalog"
	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/alejandrodnm/surebet/internal/orchestrator"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Server agrupa las dependencias de los handlers HTTP.
type Server struct {
	orch    *orchestrator.Orchestrator
	catalog *catalog.Service
	hub     *Hub
}

// NewServer crea el Server. hub puede ser nil si no se quiere websocket.
func NewServer(orch *orchestrator.Orchestrator, cat *catalog.Service, hub *Hub) *Server {
	return &Server{orch: orch, catalog: cat, hub: hub}
}

// Router construye el router chi con middleware y CORS para los orígenes
// dados (la UI corre en su propio dev server).
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/sports", s.handleSports)
	r.Get("/api/bookmakers", s.handleBookmakers)
	r.Post("/api/scan", s.handleScan)
	r.Get("/api/scan/status", s.handleStatus)
	r.Post("/api/scan/clear", s.handleClear)
	r.Post("/api/stake", s.handleStake)
	if s.hub != nil {
		r.Get("/api/scan/ws", s.hub.HandleWS)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "surebet"})
}

func (s *Server) handleSports(w http.ResponseWriter, r *http.Request) {
	cat, err := s.catalog.Sports(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, cat)
}

func (s *Server) handleBookmakers(w http.ResponseWriter, r *http.Request) {
	bms, err := s.catalog.Bookmakers(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string][]domain.Bookmaker{"bookmakers": bms})
}

// scanRequest acepta un deporte suelto (sport_key) o una lista (sports)
// para el escaneo multi-deporte.
type scanRequest struct {
	SportKey     string         `json:"sport_key"`
	Sports       []domain.Sport `json:"sports"`
	Bookmakers   []string       `json:"bookmakers"`
	IncludeProps bool           `json:"include_props"`
}

// handleScan arranca un escaneo en background y devuelve 202. Si ya hay
// uno en vuelo responde 409 — la política del orquestador es rechazar,
// no encolar.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.SportKey == "" && len(req.Sports) == 0 {
		respondError(w, http.StatusBadRequest, "sport_key or sports is required")
		return
	}
	if len(req.Bookmakers) < 2 {
		respondError(w, http.StatusBadRequest, "at least 2 bookmakers are required")
		return
	}

	if s.orch.Snapshot().IsScanning {
		respondError(w, http.StatusConflict, orchestrator.ErrScanInProgress.Error())
		return
	}

	// El escaneo corre en background; la UI sigue el progreso por
	// /api/scan/status o por el websocket.
	go func() {
		ctx := context.Background()
		var err error
		if req.SportKey != "" {
			err = s.orch.ScanSingleSport(ctx, req.SportKey, req.Bookmakers, req.IncludeProps)
		} else {
			err = s.orch.ScanMultipleSports(ctx, req.Sports, req.Bookmakers, req.IncludeProps)
		}
		if err != nil && !errors.Is(err, orchestrator.ErrScanInProgress) {
			slog.Warn("background scan failed", "err", err)
		}
	}()

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "scanning"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.orch.ClearResults()
	respondJSON(w, http.StatusOK, s.orch.Snapshot())
}

// stakeRequest lleva la oportunidad completa: el stake engine es puro y
// no depende del estado del orquestador.
type stakeRequest struct {
	Opportunity domain.Opportunity `json:"opportunity"`
	TotalStake  float64            `json:"total_stake"`
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if len(req.Opportunity.Bets) < 2 {
		respondError(w, http.StatusBadRequest, "opportunity needs at least 2 bets")
		return
	}
	respondJSON(w, http.StatusOK, domain.AllocateStake(req.Opportunity, req.TotalStake))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response failed", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
