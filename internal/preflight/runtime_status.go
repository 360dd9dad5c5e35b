package preflight

import (
	"strings"

	"jobtrail/internal/config"
)

// StatusLine is one labeled row of the CLI status view.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// SystemChecks combines daemon runtime state with configuration checks.
func SystemChecks(cfg *config.Config, daemonRunning, monitorRunning bool) []StatusLine {
	lines := make([]StatusLine, 0, 5)
	if daemonRunning {
		lines = append(lines, StatusLine{Label: "Jobtrail", Severity: "ok", Detail: "Running"})
		if monitorRunning {
			lines = append(lines, StatusLine{Label: "Monitor", Severity: "ok", Detail: "Polling"})
		} else {
			lines = append(lines, StatusLine{Label: "Monitor", Severity: "warn", Detail: "Idle (run `jobtrail start`)"})
		}
	} else {
		lines = append(lines, StatusLine{Label: "Jobtrail", Severity: "warn", Detail: "Not running (run `jobtrail start`)"})
	}

	for _, result := range []Result{CheckMailbox(cfg), CheckClassifier(cfg)} {
		lines = append(lines, resultLine(result))
	}

	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "ok", Detail: "Configured"})
	} else {
		lines = append(lines, StatusLine{Label: "Notifications", Severity: "info", Detail: "Not configured"})
	}
	return lines
}

func resultLine(result Result) StatusLine {
	severity := "error"
	if result.Passed {
		severity = "ok"
	}
	return StatusLine{Label: result.Name, Severity: severity, Detail: result.Detail}
}
