package ports

import (
	"context"

	"github.com/alejandrodnm/surebet/internal/domain"
)

// ScanService es el backend que detecta oportunidades de arbitraje.
// El escaneo real (fetch de cuotas, detección) ocurre al otro lado;
// aquí solo consumimos su API.
type ScanService interface {
	// ListSports devuelve el catálogo de deportes activos, ya filtrado
	// por el backend (sin mercados "_winner" ni deportes inactivos).
	ListSports(ctx context.Context) (domain.SportsCatalog, error)

	// ListBookmakers devuelve el catálogo de casas soportadas.
	ListBookmakers(ctx context.Context) ([]domain.Bookmaker, error)

	// Scan escanea un deporte y devuelve las oportunidades encontradas.
	// Cada llamada consume créditos del proveedor upstream.
	Scan(ctx context.Context, req domain.ScanRequest) (domain.ScanResult, error)
}
