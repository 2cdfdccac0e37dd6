// Package ledger provides LedgerSource implementations: a seeded synthetic
// generator and a caching decorator. The SQLite-backed ledger lives in
// internal/storage.
package ledger

import (
	"context"
	"math"
	"math/rand"

	"painel/internal/core"
)

const (
	revenueBase        = 150000
	revenueVariation   = 25000
	revenueSeasonality = 20000
	revenueFloor       = 50000
)

// Synthetic generates plausible revenue and client flow series. Output is a
// pure function of (seed, today, days) so repeated requests agree.
type Synthetic struct {
	seed int64
}

func NewSynthetic(seed int64) *Synthetic {
	return &Synthetic{seed: seed}
}

func (s *Synthetic) rng(stream int64, days int, today core.Date) *rand.Rand {
	return rand.New(rand.NewSource(s.seed ^ today.Unix() ^ int64(days)<<8 ^ stream))
}

// RevenueSeries returns days points ending at today. Each amount is
// 150000 + U[-25000,25000) + sin(i/days*2pi)*20000 reais, floored to an
// integer and never below 50000.
func (s *Synthetic) RevenueSeries(ctx context.Context, days int, today core.Date) ([]core.RevenuePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, nil
	}
	r := s.rng(1, days, today)
	out := make([]core.RevenuePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		d := today.AddDays(-i)
		variation := r.Float64()*2*revenueVariation - revenueVariation
		seasonal := math.Sin(float64(i)/float64(days)*2*math.Pi) * revenueSeasonality
		reais := int64(math.Floor(revenueBase + variation + seasonal))
		if reais < revenueFloor {
			reais = revenueFloor
		}
		out = append(out, core.RevenuePoint{Date: d, Label: d.DayMonth(), Amount: core.Reais(reais)})
	}
	return out, nil
}

// ClientFlow returns days points ending at today with 4-6 clients gained and
// 0-1 lost per day.
func (s *Synthetic) ClientFlow(ctx context.Context, days int, today core.Date) ([]core.ClientFlowPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, nil
	}
	r := s.rng(2, days, today)
	out := make([]core.ClientFlowPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		out = append(out, core.ClientFlowPoint{
			Date: today.AddDays(-i),
			In:   4 + r.Intn(3),
			Out:  r.Intn(2),
		})
	}
	return out, nil
}
