package mailbox

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"

	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/services"
)

func startIMAPServer(t *testing.T) string {
	t.Helper()
	srv := server.New(memory.New())
	srv.AllowInsecureAuth = true
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = srv.Close()
	})
	return ln.Addr().String()
}

func TestIMAPRecentMessages(t *testing.T) {
	addr := startIMAPServer(t)
	c, err := NewIMAP(config.Mailbox{
		IMAPHost:     addr,
		IMAPUsername: "username",
		IMAPPassword: "password",
		IMAPFolder:   "INBOX",
	}, logging.NewNop(), WithPlaintextIMAP())
	if err != nil {
		t.Fatalf("NewIMAP: %v", err)
	}

	account, err := c.Authenticate(context.Background(), "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if account != "username" || !c.IsAuthenticated() {
		t.Fatalf("unexpected auth state account=%q", account)
	}

	msgs, err := c.RecentMessages(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.Subject != "A little message, just for you" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.Sender != "contact@example.org" {
		t.Fatalf("sender = %q", msg.Sender)
	}
	if msg.Body != "Hi there :)" {
		t.Fatalf("body = %q", msg.Body)
	}
}

func TestIMAPRejectedLogin(t *testing.T) {
	addr := startIMAPServer(t)
	c, err := NewIMAP(config.Mailbox{
		IMAPHost:     addr,
		IMAPUsername: "username",
		IMAPPassword: "wrong",
	}, logging.NewNop(), WithPlaintextIMAP())
	if err != nil {
		t.Fatalf("NewIMAP: %v", err)
	}
	_, err = c.RecentMessages(context.Background(), 10)
	if !errors.Is(err, services.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("expected rejected credentials to clear authentication")
	}
}

func TestIMAPHasNoAuthorizationURL(t *testing.T) {
	c, err := NewIMAP(config.Mailbox{IMAPHost: "imap.example.com", IMAPUsername: "u"}, logging.NewNop())
	if err != nil {
		t.Fatalf("NewIMAP: %v", err)
	}
	if _, err := c.AuthorizationURL("state"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if c.IsAuthenticated() {
		t.Fatal("client without password must not report authenticated")
	}
}

func TestNewIMAPRequiresHost(t *testing.T) {
	if _, err := NewIMAP(config.Mailbox{}, logging.NewNop()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
