package monitor

import (
	"context"
	"errors"
	"time"

	"jobtrail/internal/classifier"
	"jobtrail/internal/logging"
	"jobtrail/internal/notifications"
	"jobtrail/internal/services"
)

// ScanReport summarizes one poll cycle.
type ScanReport struct {
	Fetched    int `json:"fetched"`
	Classified int `json:"classified"`
	Merged     int `json:"merged"`
}

// Start launches the polling loop. It is a no-op when the loop is already
// running or the mailbox is not authenticated, and reports whether the loop
// is running afterwards.
func (m *Manager) Start() bool {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return true
	}
	if !m.mailbox.IsAuthenticated() {
		m.mu.Unlock()
		m.logger.Info("monitor start skipped; mailbox not authenticated",
			logging.String(logging.FieldEventType, "monitor_start_skipped"))
		return false
	}

	// The loop outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.running = true
	m.failures = 0
	m.generation++
	generation := m.generation
	m.mu.Unlock()

	m.logger.Info("monitor started",
		logging.String(logging.FieldEventType, "monitor_started"),
		logging.String("account", m.mailbox.Account()),
		logging.Duration("poll_interval", m.pollInterval),
	)
	go m.run(runCtx, generation, done)
	return true
}

// Stop cancels the loop and waits up to the configured stop timeout for it
// to exit. The manager is Idle when Stop returns even if the goroutine is
// still finishing its current message.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()

	timer := time.NewTimer(m.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		m.logger.Info("monitor stopped", logging.String(logging.FieldEventType, "monitor_stopped"))
	case <-timer.C:
		logging.WarnWithContext(m.logger, "monitor loop did not exit before timeout", "monitor_stop_timeout",
			logging.Duration("timeout", m.stopTimeout),
			logging.String(logging.FieldErrorHint, "a mailbox or classifier call is still in flight; it will exit when it returns"),
		)
	}
}

// ManualScan runs one synchronous cycle. It leaves the loop's backoff state
// untouched and never waits for a loop cycle in flight; messages the loop is
// classifying at that moment are left to it.
func (m *Manager) ManualScan(ctx context.Context) (ScanReport, error) {
	if !m.mailbox.IsAuthenticated() {
		return ScanReport{}, services.Wrap(services.ErrNotAuthenticated, "monitor", "manual scan", "connect a mailbox first", nil)
	}
	report, err := m.scan(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "manual scan failed", "manual_scan_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check mailbox connectivity and credentials"),
		)
		return report, err
	}
	m.logger.Info("manual scan complete",
		logging.String(logging.FieldEventType, "manual_scan_complete"),
		logging.Int("fetched", report.Fetched),
		logging.Int("merged", report.Merged),
	)
	return report, nil
}

func (m *Manager) run(ctx context.Context, generation uint64, done chan struct{}) {
	defer close(done)

	for {
		if ctx.Err() != nil {
			return
		}

		report, err := m.scan(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := m.pollInterval
		if err != nil {
			if isDeauthorized(err) {
				m.deauthorized(generation, err)
				return
			}
			failures := m.recordFailure(err)
			wait = backoffDelay(failures)
			logging.WarnWithContext(m.logger, "mailbox poll failed; backing off", "poll_failed",
				logging.Error(err),
				logging.Int("consecutive_failures", failures),
				logging.Duration("retry_in", wait),
				logging.String(logging.FieldErrorHint, "check network connectivity and mailbox provider status"),
			)
		} else {
			m.recordSuccess()
			if report.Merged > 0 {
				m.logger.Info("poll cycle merged applications",
					logging.String(logging.FieldEventType, "poll_merged"),
					logging.Int("fetched", report.Fetched),
					logging.Int("merged", report.Merged),
				)
			} else {
				m.logger.Debug("poll cycle complete",
					logging.Int("fetched", report.Fetched),
					logging.Int("classified", report.Classified),
				)
			}
		}

		if !m.sleep(ctx, wait) {
			return
		}
	}
}

func (m *Manager) scan(ctx context.Context) (ScanReport, error) {
	var report ScanReport
	messages, err := m.mailbox.RecentMessages(ctx, m.maxResults)
	if err != nil {
		return report, err
	}
	report.Fetched = len(messages)

	for _, msg := range messages {
		if ctx.Err() != nil {
			break
		}
		if m.seen.Contains(msg.ID) {
			m.countProcessed()
			continue
		}
		if !m.claim(msg.ID) {
			continue
		}

		result := m.classifier.Classify(ctx, msg.Subject, msg.Body, msg.Sender)
		if ctx.Err() != nil {
			// Interrupted mid-classification; leave it for the next cycle.
			m.release(msg.ID)
			break
		}
		m.seen.Add(msg.ID)
		m.release(msg.ID)
		report.Classified++
		m.countProcessed()

		logger := m.logger.With(logging.String(logging.FieldMessageID, msg.ID))
		if !classifier.Actionable(result, m.minConfidence) {
			logger.Debug("message not actionable",
				logging.Int("confidence", result.Confidence),
				logging.String("interview_stage", result.InterviewStage),
			)
			continue
		}
		app, err := m.registry.Upsert(result.CompanyName, result.JobTitle, result.Stage())
		if err != nil {
			logging.WarnWithContext(logger, "registry upsert failed", "registry_upsert_failed",
				logging.Error(err),
				logging.String("company", result.CompanyName),
				logging.String("position", result.JobTitle),
			)
			continue
		}
		report.Merged++
		logger.Debug("message merged",
			logging.Int64(logging.FieldApplicationID, app.ID),
			logging.String(logging.FieldStage, string(app.Stage)),
			logging.Int("confidence", result.Confidence),
		)
	}

	m.mu.Lock()
	m.merged += int64(report.Merged)
	m.lastScan = time.Now()
	m.mu.Unlock()
	return report, nil
}

func (m *Manager) countProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

// claim reserves id for classification. It reports false when another pass
// already holds it. Messages without an id are never deduplicated.
func (m *Manager) claim(id string) bool {
	if id == "" {
		return true
	}
	m.inflightMu.Lock()
	defer m.inflightMu.Unlock()
	if _, busy := m.inflight[id]; busy {
		return false
	}
	m.inflight[id] = struct{}{}
	return true
}

func (m *Manager) release(id string) {
	if id == "" {
		return
	}
	m.inflightMu.Lock()
	delete(m.inflight, id)
	m.inflightMu.Unlock()
}

func (m *Manager) recordFailure(err error) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
	m.lastErr = err
	return m.failures
}

func (m *Manager) recordSuccess() {
	m.mu.Lock()
	m.failures = 0
	m.lastErr = nil
	m.mu.Unlock()
}

// deauthorized moves the manager to Idle when the loop that observed the
// rejected credential is still the current one.
func (m *Manager) deauthorized(generation uint64, err error) {
	m.mu.Lock()
	if m.generation == generation && m.running {
		m.running = false
		if m.cancel != nil {
			m.cancel()
		}
		m.cancel = nil
	}
	m.lastErr = err
	m.mu.Unlock()

	logging.ErrorWithContext(m.logger, "mailbox authorization lost; monitor stopped", "monitor_deauthorized",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "re-run jobtrail auth url and complete the login flow"),
		logging.String(logging.FieldImpact, "no new emails will be processed until the mailbox is reconnected"),
	)
	m.publish(notifications.EventMonitorStopped, notifications.Payload{"reason": "mailbox authorization expired"})
}

func (m *Manager) publish(event notifications.Event, payload notifications.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.notifier.Publish(ctx, event, payload); err != nil {
		m.logger.Warn("notification failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"),
			logging.String(logging.FieldErrorHint, "check ntfy topic configuration"),
		)
	}
}

func isDeauthorized(err error) bool {
	return errors.Is(err, services.ErrAuthExpired) || errors.Is(err, services.ErrNotAuthenticated)
}
