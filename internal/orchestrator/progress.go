package orchestrator

import (
	"fmt"
	"sync"
	"time"
)

const subscriberBuffer = 64

// ProgressReporter fans progress events out to any number of subscribers.
// Emit never blocks: a subscriber whose buffer is full misses the event.
type ProgressReporter struct {
	mu     sync.Mutex
	subs   map[chan ProgressEvent]struct{}
	closed bool
}

// NewProgressReporter creates a ProgressReporter with no subscribers.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{subs: make(map[chan ProgressEvent]struct{})}
}

// Emit delivers event to every subscriber. A nil reporter discards it.
func (pr *ProgressReporter) Emit(event ProgressEvent) {
	if pr == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	pr.mu.Lock()
	defer pr.mu.Unlock()
	for ch := range pr.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving every event emitted from now on.
// The channel is closed by Unsubscribe or Close.
func (pr *ProgressReporter) Subscribe() <-chan ProgressEvent {
	ch := make(chan ProgressEvent, subscriberBuffer)
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		close(ch)
		return ch
	}
	pr.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (pr *ProgressReporter) Unsubscribe(ch <-chan ProgressEvent) {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	for sub := range pr.subs {
		if sub == ch {
			delete(pr.subs, sub)
			close(sub)
			return
		}
	}
}

// Close closes every subscriber channel. Later subscriptions receive an
// already-closed channel.
func (pr *ProgressReporter) Close() {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	if pr.closed {
		return
	}
	pr.closed = true
	for ch := range pr.subs {
		close(ch)
	}
	pr.subs = nil
}

// FormatProgress formats a ProgressEvent as a human-readable status line.
func FormatProgress(event ProgressEvent) string {
	switch event.Status {
	case ProgressStarted:
		return fmt.Sprintf("[%s] workflow started", event.WorkflowID)
	case ProgressWorking:
		return fmt.Sprintf("  ● %s...", event.Stage)
	case ProgressComplete:
		return fmt.Sprintf("  ✓ %s complete (%s)", event.Stage, event.Duration.Round(time.Millisecond))
	case ProgressFailed:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Stage, event.Message)
	case ProgressSkipped:
		return fmt.Sprintf("  ○ %s skipped (no agent registered)", event.Stage)
	case ProgressValidating:
		return fmt.Sprintf("  ● quality gate (attempt %d)...", event.Attempt)
	case ProgressRegenerating:
		return fmt.Sprintf("  ↻ regenerating: %s", event.Message)
	case ProgressFinished:
		return fmt.Sprintf("[%s] workflow completed: %s", event.WorkflowID, event.Message)
	case ProgressAborted:
		return fmt.Sprintf("[%s] workflow failed: %s", event.WorkflowID, event.Message)
	default:
		return fmt.Sprintf("  ? %s (unknown status %q)", event.Stage, event.Status)
	}
}

// FormatAttemptHeader formats the banner printed before each pipeline pass.
func FormatAttemptHeader(template string, attempt, maxAttempts int) string {
	return fmt.Sprintf("[%s] Attempt %d/%d", template, attempt, maxAttempts)
}
