package postgres

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/cryptoscreen/screenerd/internal/scorecard"
	"github.com/cryptoscreen/screenerd/internal/signals"
)

var (
	_ signals.EventLog   = (*EventLog)(nil)
	_ signals.EventLog   = (*GuardedEventLog)(nil)
	_ scorecard.Source   = (*ScorecardAdapter)(nil)
	_ scorecard.Sink     = (*ScorecardAdapter)(nil)
)

func TestIsDuplicateKeyDetectsPqUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: pqDuplicateKeyCode}
	assert.True(t, isDuplicateKey(err))
}

func TestIsDuplicateKeyIgnoresOtherErrors(t *testing.T) {
	assert.False(t, isDuplicateKey(errors.New("connection reset")))
	assert.False(t, isDuplicateKey(nil))
	assert.False(t, isDuplicateKey(&pq.Error{Code: "42601"}))
}
