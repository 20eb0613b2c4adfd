package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
)

// CatalogCache guarda localmente los catálogos de deportes y bookmakers
// para no gastar créditos en listados que cambian poco. maxAge controla
// la frescura exigida: una entrada más vieja se trata como miss.
type CatalogCache interface {
	GetSports(ctx context.Context, maxAge time.Duration) (domain.SportsCatalog, bool, error)
	PutSports(ctx context.Context, catalog domain.SportsCatalog) error

	GetBookmakers(ctx context.Context, maxAge time.Duration) ([]domain.Bookmaker, bool, error)
	PutBookmakers(ctx context.Context, bookmakers []domain.Bookmaker) error

	Close() error
}
