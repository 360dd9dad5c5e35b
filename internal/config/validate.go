package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var classifierProviders = map[string]struct{}{
	"auto":       {},
	"heuristic":  {},
	"gemini":     {},
	"openai":     {},
	"openrouter": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMailbox(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	if err := c.validateMonitor(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMailbox() error {
	switch c.Mailbox.Provider {
	case "gmail":
		return nil
	case "imap":
		if c.Mailbox.IMAPHost == "" {
			return errors.New("mailbox.imap_host must be set when mailbox.provider is imap")
		}
		if c.Mailbox.IMAPUsername == "" {
			return errors.New("mailbox.imap_username must be set when mailbox.provider is imap")
		}
		return nil
	default:
		return fmt.Errorf("mailbox.provider: unsupported value %q (want gmail or imap)", c.Mailbox.Provider)
	}
}

func (c *Config) validateClassifier() error {
	if _, ok := classifierProviders[c.Classifier.Provider]; !ok {
		names := make([]string, 0, len(classifierProviders))
		for name := range classifierProviders {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("classifier.provider: unsupported value %q (want one of %s)", c.Classifier.Provider, strings.Join(names, ", "))
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 100 {
		return errors.New("classifier.min_confidence must be between 0 and 100")
	}
	return ensurePositiveMap(map[string]int{
		"classifier.timeout_seconds": c.Classifier.TimeoutSeconds,
		"llm.timeout_seconds":        c.LLM.TimeoutSeconds,
	})
}

func (c *Config) validateMonitor() error {
	return ensurePositiveMap(map[string]int{
		"monitor.poll_interval_seconds":  c.Monitor.PollIntervalSeconds,
		"monitor.max_results":            c.Monitor.MaxResults,
		"monitor.stop_timeout_seconds":   c.Monitor.StopTimeoutSeconds,
		"monitor.seen_capacity":          c.Monitor.SeenCapacity,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
