package postgres

import (
	"context"
	"time"

	"github.com/cryptoscreen/screenerd/internal/scorecard"
)

// ScorecardAdapter satisfies scorecard.Source and scorecard.Sink over a
// ScorecardRepo, translating its wider query-row shape into the
// generator's minimal ClosedSignal/Bin view. A closed signal counts as a
// win when its realized risk/reward came out positive.
type ScorecardAdapter struct {
	repo *ScorecardRepo
}

// NewScorecardAdapter wraps repo for use as a scorecard.Generator's
// Source and Sink.
func NewScorecardAdapter(repo *ScorecardRepo) *ScorecardAdapter {
	return &ScorecardAdapter{repo: repo}
}

func (a *ScorecardAdapter) ClosedSignals(ctx context.Context, weekStart, weekEnd time.Time) ([]scorecard.ClosedSignal, error) {
	rows, err := a.repo.ClosedInWeek(ctx, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}
	out := make([]scorecard.ClosedSignal, len(rows))
	for i, row := range rows {
		out[i] = scorecard.ClosedSignal{ConfluenceScore: row.ConfluenceScore, Won: row.RRRealized > 0}
	}
	return out, nil
}

func (a *ScorecardAdapter) UpsertScorecard(ctx context.Context, weekStart time.Time, bins []scorecard.Bin, monotonicOK bool) error {
	return a.repo.UpsertScorecard(ctx, weekStart, bins, monotonicOK)
}
