package domain

import "math"

// StakeLeg es el importe a apostar en una pata concreta de la oportunidad.
type StakeLeg struct {
	Outcome   string  `json:"outcome"`
	Bookmaker string  `json:"bookmaker"`
	Odds      float64 `json:"odds"`
	Stake     float64 `json:"stake"`
}

// StakePlan es el desglose de stakes para un bankroll dado: una pata por
// cada bet de la oportunidad (en el mismo orden) y la ganancia esperada,
// que es la misma gane quien gane.
type StakePlan struct {
	Legs           []StakeLeg `json:"legs"`
	TotalStake     float64    `json:"total_stake"`
	ExpectedProfit float64    `json:"expected_profit"`
}

// AllocateStake reparte totalStake entre las patas de la oportunidad según
// sus bet percentages y calcula la ganancia garantizada (roi/100 × total).
//
// Función pura: sin estado, sin efectos, barata de llamar en cada cambio
// del input de bankroll. Un totalStake negativo o no-finito se trata como 0
// en vez de fallar — los porcentajes ya vienen validados del backend.
func AllocateStake(opp Opportunity, totalStake float64) StakePlan {
	if totalStake < 0 || math.IsNaN(totalStake) || math.IsInf(totalStake, 0) {
		totalStake = 0
	}

	legs := make([]StakeLeg, len(opp.Bets))
	for i, b := range opp.Bets {
		legs[i] = StakeLeg{
			Outcome:   b.Outcome,
			Bookmaker: b.Bookmaker,
			Odds:      b.Odds,
			Stake:     b.BetPercentage / 100 * totalStake,
		}
	}

	return StakePlan{
		Legs:           legs,
		TotalStake:     totalStake,
		ExpectedProfit: opp.ROI / 100 * totalStake,
	}
}
