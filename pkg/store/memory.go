// Package store persists pipeline output. The in-memory AlertLog is
// always on and backs the API; the Postgres repository and the Redis
// sample cache are optional and enabled by configuration.
package store

import (
	"sync"

	"rigwatch/pkg/orchestrator"
)

// AlertLog is a bounded, newest-last alert buffer. When full, appending
// evicts the oldest entries.
type AlertLog struct {
	mu      sync.RWMutex
	alerts  []orchestrator.Alert
	maxSize int
}

// NewAlertLog builds a log holding at most maxSize alerts (minimum 1).
func NewAlertLog(maxSize int) *AlertLog {
	if maxSize < 1 {
		maxSize = 1
	}
	return &AlertLog{maxSize: maxSize}
}

// Append adds alerts in order, evicting from the front when over capacity.
func (l *AlertLog) Append(alerts ...orchestrator.Alert) {
	if len(alerts) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, alerts...)
	if over := len(l.alerts) - l.maxSize; over > 0 {
		l.alerts = append([]orchestrator.Alert(nil), l.alerts[over:]...)
	}
}

// Recent returns up to n alerts, newest first. n <= 0 returns everything.
func (l *AlertLog) Recent(n int) []orchestrator.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.alerts) {
		n = len(l.alerts)
	}
	out := make([]orchestrator.Alert, 0, n)
	for i := len(l.alerts) - 1; i >= len(l.alerts)-n; i-- {
		out = append(out, l.alerts[i])
	}
	return out
}

// Acknowledge marks the alert with the given ID. Returns false when the
// alert is not in the buffer (evicted or never existed).
func (l *AlertLog) Acknowledge(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.alerts {
		if l.alerts[i].ID == id {
			l.alerts[i].Acknowledged = true
			return true
		}
	}
	return false
}

// Unacknowledged counts alerts still awaiting an operator.
func (l *AlertLog) Unacknowledged() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for i := range l.alerts {
		if !l.alerts[i].Acknowledged {
			n++
		}
	}
	return n
}

// Len returns the number of buffered alerts.
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.alerts)
}
