package ports

import (
	"context"

	"github.com/alejandrodnm/surebet/internal/domain"
)

// Notifier recibe cada snapshot que publica el orquestador: uno al inicio
// del escaneo, uno tras cada sub-scan y uno final. El snapshot es una copia
// de solo lectura.
type Notifier interface {
	Notify(ctx context.Context, snap domain.ScanSnapshot) error
}
