package domain

// ScanSnapshot es el estado observable de una sesión de escaneo.
// Lo posee en exclusiva el orquestador; los observadores reciben copias
// y no deben mutarlas.
type ScanSnapshot struct {
	Opportunities    []Opportunity `json:"opportunities"` // ordenadas por ROI descendente
	TotalFound       int           `json:"total_found"`
	RemainingCredits string        `json:"remaining_credits"`
	Progress         int           `json:"progress"`      // porcentaje 0–100
	CurrentLabel     string        `json:"current_label"` // sub-scan en vuelo, "" en reposo
	Error            string        `json:"error,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"` // fallos por deporte en modo collect
	IsScanning       bool          `json:"is_scanning"`
}

// Clone devuelve una copia profunda del snapshot. Los slices internos de
// cada Opportunity se comparten porque las oportunidades son inmutables
// una vez recibidas del backend.
func (s ScanSnapshot) Clone() ScanSnapshot {
	out := s
	if s.Opportunities != nil {
		out.Opportunities = make([]Opportunity, len(s.Opportunities))
		copy(out.Opportunities, s.Opportunities)
	}
	if s.Warnings != nil {
		out.Warnings = make([]string, len(s.Warnings))
		copy(out.Warnings, s.Warnings)
	}
	return out
}
