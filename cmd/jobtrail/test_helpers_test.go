package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jobtrail/internal/classifier"
	"jobtrail/internal/config"
	"jobtrail/internal/daemon"
	"jobtrail/internal/ipc"
	"jobtrail/internal/logging"
	"jobtrail/internal/mailbox"
	"jobtrail/internal/monitor"
	"jobtrail/internal/registry"
	"jobtrail/internal/testsupport"
)

type signedOutMailbox struct{}

func (signedOutMailbox) AuthorizationURL(state string) (string, error) {
	return "https://accounts.example.test/o/oauth2/auth?state=" + state, nil
}
func (signedOutMailbox) Authenticate(context.Context, string) (string, error) { return "", nil }
func (signedOutMailbox) IsAuthenticated() bool                                  { return false }
func (signedOutMailbox) Account() string                                        { return "" }
func (signedOutMailbox) RecentMessages(context.Context, int) ([]mailbox.RawMessage, error) {
	return nil, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	socketPath string
	configPath string
	shutdown   chan struct{}
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t, testsupport.WithEnsuredDirectories())
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	st := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	reg := registry.New()
	mb := signedOutMailbox{}
	mon := monitor.NewManager(cfg, mb, classifier.NewHeuristic(logger), reg, logger)
	d, err := daemon.New(cfg, daemon.Deps{Store: st, Registry: reg, Mailbox: mb, Monitor: mon}, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	env := &cliTestEnv{
		cfg:        cfg,
		daemon:     d,
		socketPath: cfg.SocketPath(),
		configPath: configPath,
		shutdown:   make(chan struct{}),
	}
	var srv *ipc.Server
	srv, err = ipc.NewServer(ctx, env.socketPath, d, func() {
		close(env.shutdown)
		srv.Close()
	}, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})
	return env
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
api_bind = %q

[mailbox]
client_id = %q
client_secret = %q
token_file = %q

[classifier]
provider = "heuristic"
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.APIBind,
		cfg.Mailbox.ClientID,
		cfg.Mailbox.ClientSecret,
		cfg.Mailbox.TokenFile,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
