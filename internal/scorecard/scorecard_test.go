package scorecard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	signals []ClosedSignal
}

func (f *fakeSource) ClosedSignals(ctx context.Context, weekStart, weekEnd time.Time) ([]ClosedSignal, error) {
	return f.signals, nil
}

type fakeSink struct {
	calls       int
	lastBins    []Bin
	lastMono    bool
	lastWeek    time.Time
}

func (f *fakeSink) UpsertScorecard(ctx context.Context, weekStart time.Time, bins []Bin, monotonicOK bool) error {
	f.calls++
	f.lastBins = bins
	f.lastMono = monotonicOK
	f.lastWeek = weekStart
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Notify(severity, message string) {
	f.messages = append(f.messages, severity+": "+message)
}

func TestGenerateMonotonicIncreasing(t *testing.T) {
	source := &fakeSource{signals: []ClosedSignal{
		{ConfluenceScore: 0.55, Won: false},
		{ConfluenceScore: 0.55, Won: false},
		{ConfluenceScore: 0.65, Won: true},
		{ConfluenceScore: 0.65, Won: false},
		{ConfluenceScore: 0.85, Won: true},
	}}
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	g := New(source, sink, notifier)

	result, err := g.Generate(context.Background(), CurrentWeekStart(fixedNow()))
	require.NoError(t, err)
	assert.True(t, result.MonotonicOK)
	assert.Empty(t, notifier.messages)
	assert.Equal(t, 1, sink.calls)
}

func TestGenerateNonMonotonicNotifies(t *testing.T) {
	source := &fakeSource{signals: []ClosedSignal{
		{ConfluenceScore: 0.55, Won: true},
		{ConfluenceScore: 0.65, Won: false},
		{ConfluenceScore: 0.65, Won: false},
	}}
	sink := &fakeSink{}
	notifier := &fakeNotifier{}
	g := New(source, sink, notifier)

	result, err := g.Generate(context.Background(), CurrentWeekStart(fixedNow()))
	require.NoError(t, err)
	assert.False(t, result.MonotonicOK)
	assert.NotEmpty(t, notifier.messages)
}

func TestGenerateSkipsEmptyBinsForMonotonicity(t *testing.T) {
	source := &fakeSource{signals: []ClosedSignal{
		{ConfluenceScore: 0.55, Won: true},
		{ConfluenceScore: 0.85, Won: true},
	}}
	sink := &fakeSink{}
	g := New(source, sink, &fakeNotifier{})

	result, err := g.Generate(context.Background(), CurrentWeekStart(fixedNow()))
	require.NoError(t, err)
	assert.True(t, result.MonotonicOK)
}

func TestCurrentWeekStartIsMonday(t *testing.T) {
	ws := CurrentWeekStart(fixedNow())
	assert.Equal(t, time.Monday, ws.Weekday())
}

func fixedNow() time.Time {
	return time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
}
