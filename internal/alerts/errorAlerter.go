// Package alerts implements the sliding-window ErrorAlerter that watches
// HTTP error rates and escalates a cooldown-gated notification when
// thresholds are breached.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/cryptoscreen/screenerd/internal/notify"
)

// Severity is the escalation level attached to a fired alert.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

const (
	window             = 5 * time.Minute
	cooldown           = 15 * time.Minute
	threshold5xx       = 10
	threshold429       = 20
	thresholdTotal     = 25
	critical5xx        = 15
	criticalTotal      = 35
	high5xx            = 5
	highTotal          = 15
	maxRecentEndpoints = 5
)

type errorEvent struct {
	at       time.Time
	status   int
	endpoint string
}

// ErrorAlerter tracks HTTP 5xx/429/total error counts in a trailing
// 5-minute window and notifies an operator when thresholds are breached,
// subject to a 15-minute cooldown between alerts.
type ErrorAlerter struct {
	mu         sync.Mutex
	events     []errorEvent
	notifier   notify.Notifier
	env        string
	lastAlert  time.Time
}

// New builds an ErrorAlerter reporting through notifier, tagging alerts
// with env (e.g. "production").
func New(notifier notify.Notifier, env string) *ErrorAlerter {
	return &ErrorAlerter{notifier: notifier, env: env}
}

// Record registers one HTTP response's status code and originating
// endpoint, evaluates thresholds, and fires an alert if warranted. Alert
// delivery failures are logged by the notifier, never propagated here —
// this must never be on a request's critical path.
func (a *ErrorAlerter) Record(status int, endpoint string) {
	a.mu.Lock()
	now := time.Now()
	a.events = append(a.events, errorEvent{at: now, status: status, endpoint: endpoint})
	a.decayLocked(now)

	counts := a.countsLocked(now)
	fire := a.shouldFireLocked(counts, now)
	var snapshot alertSnapshot
	if fire {
		snapshot = a.buildSnapshotLocked(counts, now)
		a.events = nil
		a.lastAlert = now
	}
	a.mu.Unlock()

	if fire {
		a.notify(snapshot)
	}
}

type counts struct {
	c5xx  int
	c429  int
	total int
}

type alertSnapshot struct {
	counts    counts
	severity  Severity
	endpoints []string
	env       string
	at        time.Time
}

func (a *ErrorAlerter) decayLocked(now time.Time) {
	cutoff := now.Add(-window)
	kept := a.events[:0]
	for _, e := range a.events {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	a.events = kept
}

func (a *ErrorAlerter) countsLocked(now time.Time) counts {
	var c counts
	cutoff := now.Add(-window)
	for _, e := range a.events {
		if e.at.Before(cutoff) {
			continue
		}
		c.total++
		if e.status >= 500 {
			c.c5xx++
		}
		if e.status == 429 {
			c.c429++
		}
	}
	return c
}

func (a *ErrorAlerter) shouldFireLocked(c counts, now time.Time) bool {
	if !a.lastAlert.IsZero() && now.Sub(a.lastAlert) < cooldown {
		return false
	}
	return c.c5xx >= threshold5xx || c.c429 >= threshold429 || c.total >= thresholdTotal
}

func severityFor(c counts) Severity {
	switch {
	case c.c5xx >= critical5xx || c.total >= criticalTotal:
		return SeverityCritical
	case c.c5xx >= high5xx || c.total >= highTotal:
		return SeverityHigh
	default:
		return SeverityWarning
	}
}

func (a *ErrorAlerter) buildSnapshotLocked(c counts, now time.Time) alertSnapshot {
	seen := make(map[string]bool)
	var endpoints []string
	for i := len(a.events) - 1; i >= 0 && len(endpoints) < maxRecentEndpoints; i-- {
		ep := a.events[i].endpoint
		if !seen[ep] {
			seen[ep] = true
			endpoints = append(endpoints, ep)
		}
	}
	return alertSnapshot{counts: c, severity: severityFor(c), endpoints: endpoints, env: a.env, at: now}
}

func (a *ErrorAlerter) notify(s alertSnapshot) {
	msg := fmt.Sprintf("error alert [%s] env=%s 5xx=%d 429=%d total=%d endpoints=%v at=%s",
		s.severity, s.env, s.counts.c5xx, s.counts.c429, s.counts.total, s.endpoints, s.at.Format(time.RFC3339))
	a.notifier.Notify(string(s.severity), msg)
}
