package monitor

import (
	"time"

	"jobtrail/internal/classifier"
)

// Status is the snapshot returned by the status route. ProcessedCount grows
// for every fetched message a cycle handles, including ones already seen, so
// it keeps moving while the loop is alive. ClassifierAvailable reports a
// model-backed classifier; the heuristic fallback does not count.
type Status struct {
	IsRunning           bool      `json:"is_running"`
	MailboxConnected    bool      `json:"mailbox_connected"`
	ConnectedAccount    string    `json:"connected_account,omitempty"`
	ClassifierAvailable bool      `json:"classifier_available"`
	Classifier          string    `json:"classifier,omitempty"`
	ProcessedCount      int64     `json:"processed_count"`
	MergedCount         int64     `json:"merged_count"`
	PollIntervalSeconds int       `json:"poll_interval_seconds"`
	ConsecutiveFailures int       `json:"consecutive_failures,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	LastScan            time.Time `json:"last_scan,omitempty"`
	SeenMessages        int       `json:"seen_messages"`
}

// Status returns the latest monitor information.
func (m *Manager) Status() Status {
	m.mu.RLock()
	status := Status{
		IsRunning:           m.running,
		ProcessedCount:      m.processed,
		MergedCount:         m.merged,
		PollIntervalSeconds: int(m.pollInterval / time.Second),
		ConsecutiveFailures: m.failures,
		LastScan:            m.lastScan,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	m.mu.RUnlock()

	status.MailboxConnected = m.mailbox.IsAuthenticated()
	if status.MailboxConnected {
		status.ConnectedAccount = m.mailbox.Account()
	}
	if m.classifier != nil {
		status.Classifier = m.classifier.Name()
		status.ClassifierAvailable = status.Classifier != classifier.ProviderHeuristic
	}
	status.SeenMessages = m.seen.Len()
	return status
}

// Processed returns the number of messages handled since startup.
func (m *Manager) Processed() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processed
}

// Running reports whether the polling loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
