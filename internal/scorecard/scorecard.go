// Package scorecard implements the weekly calibration report: win-rate
// binned by confluence score, with a monotonicity check that emits a
// degraded notification when violated.
package scorecard

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cryptoscreen/screenerd/internal/notify"
)

// Bin is one confluence-score bucket's aggregate win rate.
type Bin struct {
	Label    string
	Low      float64
	High     float64
	Samples  int
	WinRate  float64
}

// Result is one week's computed scorecard.
type Result struct {
	WeekStart   time.Time
	Bins        []Bin
	MonotonicOK bool
}

// ClosedSignal is the minimal shape the generator needs per closed signal.
type ClosedSignal struct {
	ConfluenceScore float64 // in [0, 1]
	Won             bool
}

// Source supplies closed signals for a week; ClosedInWeek on
// signals/postgres.ScorecardRepo satisfies a thin adapter of this.
type Source interface {
	ClosedSignals(ctx context.Context, weekStart, weekEnd time.Time) ([]ClosedSignal, error)
}

// Sink persists the computed scorecard.
type Sink interface {
	UpsertScorecard(ctx context.Context, weekStart time.Time, bins []Bin, monotonicOK bool) error
}

var binDefs = []struct {
	label      string
	low, high  float64
}{
	{"0.50-0.59", 0.50, 0.60},
	{"0.60-0.69", 0.60, 0.70},
	{"0.70-0.79", 0.70, 0.80},
	{"0.80+", 0.80, 1.01},
}

// jakarta is the fixed process timezone for week-boundary computation.
var jakarta = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("Asia/Jakarta", 7*60*60)
	}
	return loc
}()

// Generator computes and persists the weekly scorecard, single-flighting
// overlapping triggers (manual invocation racing the scheduled run).
type Generator struct {
	source   Source
	sink     Sink
	notifier notify.Notifier
	group    singleflight.Group
}

// New builds a Generator.
func New(source Source, sink Sink, notifier notify.Notifier) *Generator {
	return &Generator{source: source, sink: sink, notifier: notifier}
}

// CurrentWeekStart returns the start of the current week (Monday 00:00) in
// Asia/Jakarta.
func CurrentWeekStart(now time.Time) time.Time {
	t := now.In(jakarta)
	offset := (int(t.Weekday()) + 6) % 7 // days since Monday
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, jakarta)
	return day.AddDate(0, 0, -offset)
}

// Generate computes the scorecard for the week starting at weekStart,
// coalescing overlapping calls for the same week.
func (g *Generator) Generate(ctx context.Context, weekStart time.Time) (Result, error) {
	key := weekStart.Format(time.RFC3339)
	v, err, _ := g.group.Do(key, func() (interface{}, error) {
		return g.generate(ctx, weekStart)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (g *Generator) generate(ctx context.Context, weekStart time.Time) (Result, error) {
	weekEnd := weekStart.AddDate(0, 0, 7)
	closed, err := g.source.ClosedSignals(ctx, weekStart, weekEnd)
	if err != nil {
		return Result{}, err
	}

	bins := make([]Bin, len(binDefs))
	for i, def := range binDefs {
		bins[i] = Bin{Label: def.label, Low: def.low, High: def.high}
	}
	for _, sig := range closed {
		for i, def := range binDefs {
			if sig.ConfluenceScore >= def.low && sig.ConfluenceScore < def.high {
				bins[i].Samples++
				if sig.Won {
					bins[i].WinRate += 1
				}
				break
			}
		}
	}
	for i := range bins {
		if bins[i].Samples > 0 {
			bins[i].WinRate /= float64(bins[i].Samples)
		}
	}

	monotonic := isMonotonic(bins)

	if err := g.sink.UpsertScorecard(ctx, weekStart, bins, monotonic); err != nil {
		return Result{}, err
	}

	if !monotonic {
		g.notifier.Notify("WARNING", "weekly scorecard is non-monotonic: win rate does not increase with confluence score for week "+weekStart.Format("2006-01-02"))
	}

	return Result{WeekStart: weekStart, Bins: bins, MonotonicOK: monotonic}, nil
}

// isMonotonic reports whether win rate is non-decreasing across bins that
// contain at least one sample, skipping empty bins.
func isMonotonic(bins []Bin) bool {
	lastRate := -1.0
	seenAny := false
	for _, b := range bins {
		if b.Samples == 0 {
			continue
		}
		if seenAny && b.WinRate < lastRate {
			return false
		}
		lastRate = b.WinRate
		seenAny = true
	}
	return true
}
