package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobtrail/internal/ipc"
)

func TestApplicationCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"apps", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("apps list: %v", err)
	}
	requireContains(t, out, "No applications tracked yet")

	out, _, err = runCLI(t, []string{"apps", "add", "Acme", "Backend Engineer"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("apps add: %v", err)
	}
	requireContains(t, out, "Tracking #1 Backend Engineer at Acme (Applied)")

	out, _, err = runCLI(t, []string{"apps", "set", "1", "interview"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("apps set: %v", err)
	}
	requireContains(t, out, "is now Interview")

	out, _, err = runCLI(t, []string{"apps", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("apps list: %v", err)
	}
	requireContains(t, out, "Interview (1)")
	requireContains(t, out, "Acme")

	out, _, err = runCLI(t, []string{"apps", "list", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("apps list --json: %v", err)
	}
	var grouped ipc.ApplicationsResponse
	if err := json.Unmarshal([]byte(out), &grouped); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if grouped.Total != 1 || len(grouped.Groups) != 4 {
		t.Fatalf("unexpected grouped listing %+v", grouped)
	}

	if _, _, err := runCLI(t, []string{"apps", "set", "1", "ghosted"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected invalid stage to fail")
	}

	out, _, err = runCLI(t, []string{"apps", "rm", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("apps rm: %v", err)
	}
	requireContains(t, out, "Removed application #1")

	_, _, err = runCLI(t, []string{"apps", "rm", "1"}, env.socketPath, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestMonitorCommandsWithoutMailboxSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"start"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "mailbox not connected")

	if _, _, err := runCLI(t, []string{"scan"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected scan to fail without a mailbox session")
	}

	out, _, err = runCLI(t, []string{"stop"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Monitor stopped")

	out, _, err = runCLI(t, []string{"auth", "url"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("auth url: %v", err)
	}
	requireContains(t, out, "https://accounts.example.test/o/oauth2/auth?state=")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "System Status")
	requireContains(t, out, "[OK] Running")
	requireContains(t, out, "not connected")
	requireContains(t, out, "Applied")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	missing := filepath.Join(t.TempDir(), "absent.sock")

	out, _, err := runCLI(t, []string{"status"}, missing, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
	if strings.Contains(out, "== Monitor ==") {
		t.Fatalf("did not expect monitor section when daemon is down: %q", out)
	}

	_, _, err = runCLI(t, []string{"apps", "list"}, missing, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "jobtrail start") {
		t.Fatalf("expected dial hint, got %v", err)
	}
}

func TestShutdownCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"shutdown"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	requireContains(t, out, "Daemon stopped")
	select {
	case <-env.shutdown:
	case <-time.After(2 * time.Second):
		t.Fatal("daemon shutdown hook was not invoked")
	}

	out, _, err = runCLI(t, []string{"shutdown"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Mailbox:")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.socketPath, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestParseApplicationID(t *testing.T) {
	cases := map[string]int64{"7": 7, "#12": 12, " 3 ": 3}
	for raw, want := range cases {
		got, err := parseApplicationID(raw)
		if err != nil || got != want {
			t.Fatalf("parseApplicationID(%q) = %d, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"", "0", "-4", "abc"} {
		if _, err := parseApplicationID(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
