package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/alejandrodnm/surebet/internal/ports"
	"github.com/google/uuid"
)

// ErrScanInProgress se devuelve al intentar arrancar un escaneo mientras
// otro sigue en vuelo. Política explícita: rechazar, nunca encolar ni
// cancelar-y-reiniciar — el caller decide si reintenta.
var ErrScanInProgress = errors.New("orchestrator: scan already in progress")

// SubScanPolicy decide qué hacer cuando falla un deporte individual
// durante un escaneo multi-deporte.
type SubScanPolicy string

const (
	// PolicySkip ignora el fallo y sigue con el resto de deportes.
	// Un deporte caído no bloquea el escaneo de la flota entera.
	PolicySkip SubScanPolicy = "skip"
	// PolicyCollect sigue escaneando pero acumula el fallo en
	// snapshot.Warnings para que sea visible al usuario.
	PolicyCollect SubScanPolicy = "collect"
	// PolicyAbort corta el escaneo y registra el fallo como error
	// top-level del snapshot.
	PolicyAbort SubScanPolicy = "abort"
)

// Config contiene la configuración del orquestador.
type Config struct {
	OnSubScanError SubScanPolicy
}

// DefaultConfig replica el comportamiento original: fallos por deporte
// silenciados en multi-scan.
func DefaultConfig() Config {
	return Config{OnSubScanError: PolicySkip}
}

// Orchestrator secuencia los escaneos contra el ScanService, mantiene el
// ScanSnapshot y lo republica a los observadores tras cada sub-scan.
// Las peticiones van estrictamente en serie: los créditos del proveedor
// son un contador único que solo decrece, y el progreso incremental deja
// de tener sentido con fan-out paralelo.
type Orchestrator struct {
	cfg       Config
	svc       ports.ScanService
	observers []ports.Notifier

	mu       sync.Mutex
	snap     domain.ScanSnapshot
	scanning bool
}

// New crea un Orchestrator con el servicio y los observadores inyectados.
func New(cfg Config, svc ports.ScanService, observers ...ports.Notifier) *Orchestrator {
	if cfg.OnSubScanError == "" {
		cfg.OnSubScanError = PolicySkip
	}
	return &Orchestrator{cfg: cfg, svc: svc, observers: observers}
}

// Snapshot devuelve una copia del estado actual.
func (o *Orchestrator) Snapshot() domain.ScanSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snap.Clone()
}

// ScanSingleSport escanea un único deporte y reemplaza los resultados.
//
// Precondición (la valida el caller, igual que el backend): bookmakers
// tiene al menos 2 entradas — con una sola casa no hay arbitraje posible.
//
// El backend ya devuelve las oportunidades ordenadas por ROI, así que aquí
// no se reordena. Un fallo queda registrado en snapshot.Error y los
// resultados previos se conservan; en ambos casos el estado vuelve a reposo.
func (o *Orchestrator) ScanSingleSport(ctx context.Context, sportKey string, bookmakers []string, includeProps bool) error {
	if err := o.begin(sportKey); err != nil {
		return err
	}
	defer o.finish()

	scanID := uuid.NewString()
	slog.Info("scan started", "scan_id", scanID, "sport", sportKey, "bookmakers", len(bookmakers), "props", includeProps)
	o.publish(ctx)

	result, err := o.svc.Scan(ctx, domain.ScanRequest{
		SportKey:     sportKey,
		Bookmakers:   bookmakers,
		IncludeProps: includeProps,
	})

	o.mu.Lock()
	if err != nil {
		o.snap.Error = err.Error()
	} else {
		o.snap.Opportunities = result.Opportunities
		o.snap.TotalFound = result.TotalFound
		o.snap.RemainingCredits = result.RemainingCredits
		o.snap.Progress = 100
	}
	o.mu.Unlock()

	if err != nil {
		slog.Warn("scan failed", "scan_id", scanID, "sport", sportKey, "err", err)
		return err
	}

	slog.Info("scan complete", "scan_id", scanID, "sport", sportKey,
		"found", result.TotalFound, "credits", result.RemainingCredits)
	return nil
}

// ScanMultipleSports escanea los deportes dados uno a uno, en serie,
// acumulando resultados y republicando el snapshot tras cada intento para
// que los observadores vean los resultados crecer en tiempo real.
//
// Los resultados del sub-scan i se publican siempre después de que i-1
// haya terminado del todo y antes de arrancar i+1. El acumulador se
// reordena completo (ROI descendente, sort estable) en cada publicación;
// los sets son pequeños y no merece un merge incremental.
func (o *Orchestrator) ScanMultipleSports(ctx context.Context, sports []domain.Sport, bookmakers []string, includeProps bool) error {
	if err := o.begin(""); err != nil {
		return err
	}
	defer o.finish()

	o.mu.Lock()
	o.snap.Opportunities = nil
	o.snap.TotalFound = 0
	o.mu.Unlock()

	scanID := uuid.NewString()
	slog.Info("multi-scan started", "scan_id", scanID, "sports", len(sports),
		"bookmakers", len(bookmakers), "policy", o.cfg.OnSubScanError)
	o.publish(ctx)

	var (
		acc     []domain.Opportunity
		total   int
		credits string
		aborted error
	)

	for i, sport := range sports {
		if ctx.Err() != nil {
			aborted = ctx.Err()
			break
		}

		o.mu.Lock()
		o.snap.CurrentLabel = sport.Title
		o.mu.Unlock()

		result, err := o.svc.Scan(ctx, domain.ScanRequest{
			SportKey:     sport.Key,
			Bookmakers:   bookmakers,
			IncludeProps: includeProps,
		})

		if err != nil {
			slog.Warn("sub-scan failed", "scan_id", scanID, "sport", sport.Key, "err", err)
			switch o.cfg.OnSubScanError {
			case PolicyAbort:
				aborted = err
			case PolicyCollect:
				o.mu.Lock()
				o.snap.Warnings = append(o.snap.Warnings, sport.Title+": "+err.Error())
				o.mu.Unlock()
			}
		} else {
			acc = append(acc, result.Opportunities...)
			total += result.TotalFound
			// El último sub-scan exitoso gana: la cuota upstream es un
			// contador único que solo decrece
			credits = result.RemainingCredits
			slog.Debug("sub-scan complete", "scan_id", scanID, "sport", sport.Key,
				"found", result.TotalFound, "accumulated", len(acc))
		}

		rankByROI(acc)

		o.mu.Lock()
		o.snap.Opportunities = append([]domain.Opportunity(nil), acc...)
		o.snap.TotalFound = total
		if credits != "" {
			o.snap.RemainingCredits = credits
		}
		o.snap.Progress = int(math.Round(100 * float64(i+1) / float64(len(sports))))
		if aborted != nil {
			o.snap.Error = aborted.Error()
		}
		o.mu.Unlock()
		o.publish(ctx)

		if aborted != nil {
			break
		}
	}

	if aborted != nil {
		slog.Warn("multi-scan aborted", "scan_id", scanID, "err", aborted)
		return aborted
	}

	slog.Info("multi-scan complete", "scan_id", scanID,
		"found", total, "opportunities", len(acc), "credits", credits)
	return nil
}

// ClearResults descarta los resultados acumulados. No toca IsScanning ni
// RemainingCredits; se puede llamar en cualquier momento, incluso con un
// escaneo en vuelo, y repetirla no cambia nada.
func (o *Orchestrator) ClearResults() {
	o.mu.Lock()
	o.snap.Opportunities = nil
	o.snap.TotalFound = 0
	o.snap.Progress = 0
	o.snap.Error = ""
	o.snap.Warnings = nil
	o.mu.Unlock()
}

// begin pasa el orquestador a estado Scanning y resetea progreso y error.
// Devuelve ErrScanInProgress si ya hay un escaneo en vuelo.
func (o *Orchestrator) begin(label string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scanning {
		return ErrScanInProgress
	}
	o.scanning = true
	o.snap.IsScanning = true
	o.snap.Progress = 0
	o.snap.Error = ""
	o.snap.Warnings = nil
	o.snap.CurrentLabel = label
	return nil
}

// finish devuelve el orquestador a reposo, pase lo que pase: no existe un
// estado terminal "failed" distinto de Idle.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.scanning = false
	o.snap.IsScanning = false
	o.snap.CurrentLabel = ""
	snap := o.snap.Clone()
	o.mu.Unlock()
	o.notifyAll(context.Background(), snap)
}

// publish envía una copia del snapshot actual a todos los observadores.
func (o *Orchestrator) publish(ctx context.Context) {
	o.mu.Lock()
	snap := o.snap.Clone()
	o.mu.Unlock()
	o.notifyAll(ctx, snap)
}

func (o *Orchestrator) notifyAll(ctx context.Context, snap domain.ScanSnapshot) {
	for _, obs := range o.observers {
		if err := obs.Notify(ctx, snap); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
}

// rankByROI ordena in-place por ROI descendente. Sort estable: los empates
// conservan el orden de llegada.
func rankByROI(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ROI > opps[j].ROI
	})
}
