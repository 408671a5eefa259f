package alerts

import (
	"sync"
	"time"

	"github.com/louisruiz/mt5-trading-analyzer/internal/domain"
)

type dedupKey struct {
	kind    string
	subject string
}

type emission struct {
	at       time.Time
	severity domain.Severity
}

// History is the alert log shared between the refresh task, which is its only
// writer, and any number of readers.
type History struct {
	mu              sync.RWMutex
	alerts          []domain.Alert
	suggestions     []domain.Suggestion
	lastEmitted     map[dedupKey]emission
	limit           int
	suggestionLimit int
}

func NewHistory(limit, suggestionLimit int) *History {
	if limit <= 0 {
		limit = 50
	}
	if suggestionLimit <= 0 {
		suggestionLimit = 20
	}
	return &History{
		lastEmitted:     make(map[dedupKey]emission),
		limit:           limit,
		suggestionLimit: suggestionLimit,
	}
}

// Alerts returns a copy of the retained alerts, oldest first.
func (h *History) Alerts() []domain.Alert {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Alert, len(h.alerts))
	copy(out, h.alerts)
	return out
}

// Recent returns up to n of the newest alerts, oldest first.
func (h *History) Recent(n int) []domain.Alert {
	all := h.Alerts()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

func (h *History) Suggestions() []domain.Suggestion {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.Suggestion, len(h.suggestions))
	copy(out, h.suggestions)
	return out
}

// Restore preloads persisted alerts, e.g. after a restart, so the cooldown
// carries over.
func (h *History) Restore(alerts []domain.Alert) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, a := range alerts {
		h.append(a)
	}
}

func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = nil
	h.suggestions = nil
	h.lastEmitted = make(map[dedupKey]emission)
}

// admit records a when no alert with the same kind and subject was emitted
// within cooldown, or when a escalates the severity last emitted for them. It
// reports whether a was recorded.
func (h *History) admit(a domain.Alert, cooldown time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	last, ok := h.lastEmitted[dedupKey{a.Kind, a.Subject}]
	if ok && a.Timestamp.Sub(last.at) < cooldown && a.Severity.Rank() <= last.severity.Rank() {
		return false
	}
	h.append(a)
	return true
}

func (h *History) append(a domain.Alert) {
	k := dedupKey{a.Kind, a.Subject}
	if last, ok := h.lastEmitted[k]; !ok || !a.Timestamp.Before(last.at) {
		h.lastEmitted[k] = emission{at: a.Timestamp, severity: a.Severity}
	}
	h.alerts = append(h.alerts, a)
	if over := len(h.alerts) - h.limit; over > 0 {
		h.alerts = append([]domain.Alert(nil), h.alerts[over:]...)
	}
}

func (h *History) addSuggestions(s []domain.Suggestion) {
	if len(s) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.suggestions = append(h.suggestions, s...)
	if over := len(h.suggestions) - h.suggestionLimit; over > 0 {
		h.suggestions = append([]domain.Suggestion(nil), h.suggestions[over:]...)
	}
}
