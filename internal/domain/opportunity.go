package domain

import "math"

// PercentEpsilon es la tolerancia para la suma de bet percentages (≈ 100).
const PercentEpsilon = 1e-6

// Bet es una pata de una oportunidad de arbitraje: un outcome en una casa
// concreta, con su cuota en formato americano y el porcentaje del bankroll
// que hay que apostarle.
type Bet struct {
	Outcome       string  `json:"outcome"`
	Bookmaker     string  `json:"bookmaker"`
	Odds          float64 `json:"odds"`           // cuota americana: +N underdog, -N favorito
	BetPercentage float64 `json:"bet_percentage"` // % del bankroll total, en (0, 100]
	BetAmount100  float64 `json:"bet_amount_100"` // dólares a apostar por cada $100 de bankroll
}

// DecimalOdds convierte la cuota americana de la pata a formato decimal.
func (b Bet) DecimalOdds() float64 {
	return AmericanToDecimal(b.Odds)
}

// Opportunity es un arbitraje detectado por el backend para un evento y
// mercado concretos. El detector solo emite oportunidades con ROI > 0,
// así que aquí el ROI es no-negativo por construcción.
type Opportunity struct {
	Event        string  `json:"event"`
	Sport        string  `json:"sport"`
	Market       string  `json:"market"` // h2h, spreads, totals, o "market - jugador" para props
	ROI          float64 `json:"roi"`    // % de ganancia garantizada sobre el stake total
	CommenceTime string  `json:"commence_time"`
	Bets         []Bet   `json:"bets"` // una por outcome, mínimo 2
}

// PercentagesOK comprueba el invariante que hace al arbitraje libre de riesgo:
// los bet percentages de todas las patas deben sumar 100 (con tolerancia
// relativa eps). Si esto no se cumple, los stakes derivados no cubren todos
// los outcomes por igual.
func (o Opportunity) PercentagesOK(eps float64) bool {
	if len(o.Bets) < 2 {
		return false
	}
	sum := 0.0
	for _, b := range o.Bets {
		sum += b.BetPercentage
	}
	return math.Abs(sum-100) <= eps*100
}

// Payouts devuelve el retorno neto (ganancia sobre el stake total) que se
// obtiene en cada outcome si se apuesta el porcentaje indicado de totalStake
// en cada pata. En una oportunidad válida todos los valores coinciden y son
// iguales a roi/100 × totalStake — esa es la demostración de que el
// arbitraje es libre de riesgo.
func (o Opportunity) Payouts(totalStake float64) []float64 {
	staked := totalStake
	out := make([]float64, len(o.Bets))
	for i, b := range o.Bets {
		stake := b.BetPercentage / 100 * totalStake
		// Si gana la pata i, cobras stake × cuota decimal y pierdes el resto
		out[i] = stake*b.DecimalOdds() - staked
	}
	return out
}

// AmericanToDecimal convierte una cuota americana a decimal:
// +150 → 2.50 (el underdog paga 150 por cada 100), -200 → 1.50.
func AmericanToDecimal(american float64) float64 {
	if american > 0 {
		return american/100 + 1
	}
	return 100/math.Abs(american) + 1
}
