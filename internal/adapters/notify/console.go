package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/surebet/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier escribiendo el estado del escaneo a
// stdout: una línea compacta por cada snapshot intermedio y, al terminar,
// la tabla de oportunidades con el desglose de stakes opcional.
type Console struct {
	out      io.Writer
	stake    float64 // bankroll para el desglose; 0 = sin desglose
	table    bool
	validate bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(stake float64, table, validate bool) *Console {
	return &Console{out: os.Stdout, stake: stake, table: table, validate: validate}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, stake float64, table, validate bool) *Console {
	return &Console{out: w, stake: stake, table: table, validate: validate}
}

// Notify imprime el snapshot: progreso si el escaneo sigue en vuelo,
// resultado completo cuando vuelve a reposo.
func (c *Console) Notify(_ context.Context, snap domain.ScanSnapshot) error {
	if snap.IsScanning {
		c.printProgress(snap)
		return nil
	}

	if snap.Error != "" {
		fmt.Fprintf(c.out, "[%s] scan failed: %s\n", timestamp(), snap.Error)
		return nil
	}

	if len(snap.Opportunities) == 0 {
		fmt.Fprintf(c.out, "[%s] no opportunities found\n", timestamp())
		return nil
	}

	if c.table {
		c.printFull(snap)
	} else {
		c.printCompact(snap)
	}

	for _, w := range snap.Warnings {
		fmt.Fprintf(c.out, "  warning: %s\n", w)
	}

	if c.validate {
		c.printValidation(snap.Opportunities)
	}
	return nil
}

// printProgress imprime una línea por sub-scan: porcentaje, deporte en
// vuelo y acumulado hasta ahora.
func (c *Console) printProgress(snap domain.ScanSnapshot) {
	label := snap.CurrentLabel
	if label == "" {
		label = "…"
	}
	fmt.Fprintf(c.out, "[%s] %3d%% scanning %s — %d opportunities so far\n",
		timestamp(), snap.Progress, label, len(snap.Opportunities))
}

// printCompact resume el resultado en una línea con las 3 mejores.
func (c *Console) printCompact(snap domain.ScanSnapshot) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d arbs (de %d detectados) credits:%s",
		timestamp(), len(snap.Opportunities), snap.TotalFound, snap.RemainingCredits)

	for i, opp := range snap.Opportunities {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %.2f%% %s", compactName(opp.Event, 22), opp.ROI, opp.Market)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa de oportunidades y, si hay bankroll
// configurado, el desglose de stakes de cada una.
func (c *Console) printFull(snap domain.ScanSnapshot) {
	fmt.Fprintf(c.out, "\n[%s] %d opportunities — total detected: %d, credits left: %s\n",
		timestamp(), len(snap.Opportunities), snap.TotalFound, snap.RemainingCredits)

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "ROI", "Event", "Sport", "Market", "Starts", "Legs")

	for i, opp := range snap.Opportunities {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f%%", opp.ROI),
			compactName(opp.Event, 34),
			opp.Sport,
			opp.Market,
			opp.CommenceTime,
			legsSummary(opp.Bets),
		)
	}
	table.Render()

	if c.stake > 0 {
		c.printStakes(snap.Opportunities)
	}
}

// printStakes imprime el plan de apuestas por oportunidad para el bankroll
// configurado.
func (c *Console) printStakes(opps []domain.Opportunity) {
	fmt.Fprintf(c.out, "\nStake plan for a %s bankroll per opportunity:\n", formatCurrency(c.stake))

	for i, opp := range opps {
		plan := domain.AllocateStake(opp, c.stake)
		fmt.Fprintf(c.out, "#%d %s (%s) → profit %s\n",
			i+1, compactName(opp.Event, 40), opp.Market, formatCurrency(plan.ExpectedProfit))

		for _, leg := range plan.Legs {
			fmt.Fprintf(c.out, "    %s de %s @ %s en %s\n",
				formatCurrency(leg.Stake), leg.Outcome, formatOdds(leg.Odds), leg.Bookmaker)
		}
	}
}

// printValidation demuestra pata a pata que el retorno neto es el mismo
// gane quien gane: stake × cuota decimal − bankroll debe coincidir con la
// ganancia esperada en todos los outcomes.
func (c *Console) printValidation(opps []domain.Opportunity) {
	bankroll := c.stake
	if bankroll <= 0 {
		bankroll = 100
	}

	shown := 0
	for _, opp := range opps {
		if shown >= 3 {
			break
		}
		shown++

		fmt.Fprintf(c.out, "\n=== validation: %s (%s) roi %.2f%% ===\n", opp.Event, opp.Market, opp.ROI)
		payouts := opp.Payouts(bankroll)
		for i, bet := range opp.Bets {
			fmt.Fprintf(c.out, "  if %-20s wins: stake %s @ %s → net %s\n",
				bet.Outcome,
				formatCurrency(bet.BetPercentage/100*bankroll),
				formatOdds(bet.Odds),
				formatCurrency(payouts[i]))
		}
		sumOK := "OK"
		if !opp.PercentagesOK(domain.PercentEpsilon) {
			sumOK = "MISMATCH"
		}
		fmt.Fprintf(c.out, "  percentages sum check: %s\n", sumOK)
	}
}

// formatOdds imprime la cuota americana con signo explícito: +150, -200.
func formatOdds(odds float64) string {
	if odds > 0 {
		return fmt.Sprintf("+%.0f", odds)
	}
	return fmt.Sprintf("%.0f", odds)
}

func formatCurrency(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// legsSummary resume las patas: "Lakers +150@draftkings / Celtics -120@fanduel".
func legsSummary(bets []domain.Bet) string {
	parts := make([]string, len(bets))
	for i, b := range bets {
		parts[i] = fmt.Sprintf("%s %s@%s", compactName(b.Outcome, 14), formatOdds(b.Odds), b.Bookmaker)
	}
	return strings.Join(parts, " / ")
}

// compactName trunca un nombre largo con "…".
func compactName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	if max <= 1 {
		return "…"
	}
	return name[:max-1] + "…"
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}
