package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/alejandrodnm/surebet/internal/ports"
)

// Service resuelve los catálogos de deportes y casas con cache-aside:
// primero la caché local, y solo si está vacía o caducada se gasta la
// llamada al backend. La caché es opcional (nil = siempre al backend).
type Service struct {
	svc           ports.ScanService
	cache         ports.CatalogCache
	sportsTTL     time.Duration
	bookmakersTTL time.Duration
}

// New crea un Service. cache puede ser nil.
func New(svc ports.ScanService, cache ports.CatalogCache, sportsTTL, bookmakersTTL time.Duration) *Service {
	return &Service{svc: svc, cache: cache, sportsTTL: sportsTTL, bookmakersTTL: bookmakersTTL}
}

// Sports devuelve el catálogo de deportes, de caché si está fresco.
func (s *Service) Sports(ctx context.Context) (domain.SportsCatalog, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetSports(ctx, s.sportsTTL)
		if err != nil {
			slog.Warn("sports cache read failed", "err", err)
		} else if ok {
			slog.Debug("sports catalog from cache", "count", len(cached.Sports))
			return cached, nil
		}
	}

	catalog, err := s.svc.ListSports(ctx)
	if err != nil {
		return domain.SportsCatalog{}, err
	}

	if s.cache != nil {
		if err := s.cache.PutSports(ctx, catalog); err != nil {
			// La caché es un ahorro de créditos, no un requisito
			slog.Warn("sports cache write failed", "err", err)
		}
	}
	return catalog, nil
}

// Bookmakers devuelve el catálogo de casas, de caché si está fresco.
func (s *Service) Bookmakers(ctx context.Context) ([]domain.Bookmaker, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetBookmakers(ctx, s.bookmakersTTL)
		if err != nil {
			slog.Warn("bookmakers cache read failed", "err", err)
		} else if ok {
			slog.Debug("bookmakers catalog from cache", "count", len(cached))
			return cached, nil
		}
	}

	bms, err := s.svc.ListBookmakers(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.PutBookmakers(ctx, bms); err != nil {
			slog.Warn("bookmakers cache write failed", "err", err)
		}
	}
	return bms, nil
}
