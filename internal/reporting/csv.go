package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders session rows as CSV string.
func RenderCSV(rows []SessionRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("session_id,batch_id,mint,status,market_cap_usd,updates,dropped,decided_at,")
	sb.WriteString("attempt_status,tx_signature,simulation_ok,min_tokens_out\n")

	// Rows
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%d,%d,%d,%s,%s,%t,%d\n",
			r.SessionID,
			r.BatchID,
			r.Mint,
			r.Status,
			r.MarketCapUSD,
			r.Updates,
			r.Dropped,
			r.DecidedAt,
			r.AttemptStatus,
			r.TxSignature,
			r.SimulationOK,
			r.MinTokensOut,
		))
	}

	return sb.String()
}
