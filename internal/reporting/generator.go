package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"pump-sniper/internal/domain"
	"pump-sniper/internal/storage"
)

// Generator produces reports from the journals.
type Generator struct {
	journal   *storage.Journal
	threshold float64
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. threshold is informational.
func NewGenerator(journal *storage.Journal, threshold float64) *Generator {
	return &Generator{
		journal:   journal,
		threshold: threshold,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate summarises everything journaled within [start, end] (Unix ms).
func (g *Generator) Generate(ctx context.Context, start, end int64) (*Report, error) {
	if end < start {
		return nil, errors.New("range end before start")
	}

	tokens, err := g.journal.Tokens.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	outcomes, err := g.journal.Sessions.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	attempts, err := g.journal.Buys.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, err
	}

	var observations int
	if g.journal.Observations != nil {
		obs, err := g.journal.Observations.GetByTimeRange(ctx, start, end)
		if err != nil {
			return nil, err
		}
		observations = len(obs)
	}

	bySession := make(map[string]*domain.BuyAttempt, len(attempts))
	for _, a := range attempts {
		bySession[a.SessionID] = a
	}

	report := &Report{
		GeneratedAt: g.now(),
		RangeStart:  start,
		RangeEnd:    end,
		Threshold:   g.threshold,
		Sessions:    generateSessionRows(outcomes, bySession),
		Batches:     generateBatchRows(outcomes),
		Failures:    generateFailures(attempts),
	}
	report.Summary = summarize(len(tokens), observations, report.Batches, outcomes, attempts)
	return report, nil
}

func summarize(tokens, observations int, batches []BatchRow, outcomes []*domain.SessionOutcome, attempts []*domain.BuyAttempt) Summary {
	s := Summary{
		Tokens:       tokens,
		Batches:      len(batches),
		Sessions:     len(outcomes),
		Observations: observations,
	}
	for _, o := range outcomes {
		switch o.Status {
		case domain.SessionEligible:
			s.Eligible++
		case domain.SessionExpired:
			s.Expired++
		}
	}
	if s.Sessions > 0 {
		s.EligibilityRate = float64(s.Eligible) / float64(s.Sessions)
	}
	for _, a := range attempts {
		switch a.Status {
		case domain.BuyAttemptBuilt:
			s.Built++
		case domain.BuyAttemptFailed:
			s.BuildFailed++
		}
		if a.Simulated {
			s.Simulated++
			if a.SimulationOK {
				s.SimulationOK++
			}
		}
		if a.CreatedATA {
			s.ATAsCreated++
		}
	}
	return s
}

func generateSessionRows(outcomes []*domain.SessionOutcome, bySession map[string]*domain.BuyAttempt) []SessionRow {
	rows := make([]SessionRow, len(outcomes))
	for i, o := range outcomes {
		row := SessionRow{
			SessionID:    o.SessionID,
			BatchID:      o.BatchID,
			Mint:         o.Mint,
			Status:       o.Status.String(),
			MarketCapUSD: o.MarketCapUSD,
			Updates:      o.Updates,
			Dropped:      o.Dropped,
			DecidedAt:    o.DecidedAt,
		}
		if a, ok := bySession[o.SessionID]; ok {
			row.AttemptStatus = string(a.Status)
			row.SimulationOK = a.SimulationOK
			row.MinTokensOut = a.MinTokensOut
			if a.TxSignature != nil {
				row.TxSignature = *a.TxSignature
			}
		}
		rows[i] = row
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DecidedAt != rows[j].DecidedAt {
			return rows[i].DecidedAt < rows[j].DecidedAt
		}
		return rows[i].SessionID < rows[j].SessionID
	})
	return rows
}

func generateBatchRows(outcomes []*domain.SessionOutcome) []BatchRow {
	byBatch := make(map[string]*BatchRow)
	updates := make(map[string]int)

	for _, o := range outcomes {
		row, ok := byBatch[o.BatchID]
		if !ok {
			row = &BatchRow{BatchID: o.BatchID, FirstDecidedAt: o.DecidedAt}
			byBatch[o.BatchID] = row
		}
		row.Sessions++
		switch o.Status {
		case domain.SessionEligible:
			row.Eligible++
		case domain.SessionExpired:
			row.Expired++
		}
		if o.MarketCapUSD > row.MaxMarketCapUSD {
			row.MaxMarketCapUSD = o.MarketCapUSD
		}
		if o.DecidedAt < row.FirstDecidedAt {
			row.FirstDecidedAt = o.DecidedAt
		}
		updates[o.BatchID] += o.Updates
	}

	rows := make([]BatchRow, 0, len(byBatch))
	for id, row := range byBatch {
		row.MeanUpdates = float64(updates[id]) / float64(row.Sessions)
		rows = append(rows, *row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FirstDecidedAt != rows[j].FirstDecidedAt {
			return rows[i].FirstDecidedAt < rows[j].FirstDecidedAt
		}
		return rows[i].BatchID < rows[j].BatchID
	})
	return rows
}

func generateFailures(attempts []*domain.BuyAttempt) []FailureRow {
	var rows []FailureRow
	for _, a := range attempts {
		switch {
		case a.Status == domain.BuyAttemptFailed:
			row := FailureRow{SessionID: a.SessionID, Mint: a.Mint, Stage: "build"}
			if a.Error != nil {
				row.Error = *a.Error
			}
			rows = append(rows, row)
		case a.Simulated && !a.SimulationOK:
			row := FailureRow{SessionID: a.SessionID, Mint: a.Mint, Stage: "simulation"}
			if a.SimulationError != nil {
				row.Error = *a.SimulationError
			}
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SessionID < rows[j].SessionID })
	return rows
}
