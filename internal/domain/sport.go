package domain

// Sport es una entrada del catálogo de deportes del backend.
// Snapshot inmutable: se obtiene, se muestra y se descarta.
type Sport struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Group  string `json:"group"`
	Active bool   `json:"active"`
}

// Bookmaker es una entrada del catálogo de casas de apuestas soportadas.
type Bookmaker struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// SportsCatalog es la respuesta del listado de deportes.
// RemainingCredits refleja la cuota restante del proveedor upstream.
type SportsCatalog struct {
	Sports           []Sport `json:"sports"`
	RemainingCredits string  `json:"remaining_credits"`
}
