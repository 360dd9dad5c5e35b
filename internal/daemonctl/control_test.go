package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"jobtrail/internal/testsupport"
)

func TestProcessInfoWithoutSocket(t *testing.T) {
	running, pid, err := ProcessInfo(filepath.Join(t.TempDir(), "missing.sock"))
	if err != nil {
		t.Fatalf("ProcessInfo: %v", err)
	}
	if running || pid != 0 {
		t.Fatalf("expected daemon to be reported down, got running=%v pid=%d", running, pid)
	}
}

func TestShutdownWithoutDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithEnsuredDirectories())
	if _, err := Shutdown(cfg, 100*time.Millisecond); !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}

func TestWaitForShutdownReturnsWhenSocketMissing(t *testing.T) {
	if err := WaitForShutdown(filepath.Join(t.TempDir(), "gone.sock"), time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}
}

func TestForceKillProcessRefusesSelf(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "jobtrail.pid")
	if err := os.WriteFile(pidPath, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}
	_, err := ForceKillProcess(pidPath, "", 0)
	if err == nil || !strings.Contains(err.Error(), "refusing") {
		t.Fatalf("expected refusal, got %v", err)
	}
}

func TestForceKillProcessRequiresPID(t *testing.T) {
	_, err := ForceKillProcess(filepath.Join(t.TempDir(), "absent.pid"), "", 0)
	if err == nil || !strings.Contains(err.Error(), "unable to determine daemon pid") {
		t.Fatalf("expected missing pid error, got %v", err)
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Fatal("expected current process to be alive")
	}
	if processAlive(0) || processAlive(-1) {
		t.Fatal("expected non-positive pids to be reported dead")
	}
}

func TestIsDaemonUnavailable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{os.ErrNotExist, true},
		{fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{fmt.Errorf("dial: %w", syscall.ENOENT), true},
		{errors.New("permission denied"), false},
	}
	for _, tc := range cases {
		if got := isDaemonUnavailable(tc.err); got != tc.want {
			t.Fatalf("isDaemonUnavailable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
