package domain

// ScanRequest es la petición de escaneo de un deporte contra el backend.
type ScanRequest struct {
	SportKey     string   `json:"sport_key"`
	Bookmakers   []string `json:"bookmakers"`
	IncludeProps bool     `json:"include_props"`
}

// ScanResult es la respuesta de un escaneo: oportunidades ya ordenadas por
// ROI descendente por el backend, el total encontrado y los créditos
// restantes del proveedor upstream.
type ScanResult struct {
	Opportunities    []Opportunity `json:"opportunities"`
	TotalFound       int           `json:"total_found"`
	RemainingCredits string        `json:"remaining_credits"`
}
