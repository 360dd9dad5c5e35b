package mailbox

import (
	"context"
	"log/slog"
	"strings"

	"jobtrail/internal/config"
	"jobtrail/internal/services"
)

const (
	defaultSubject = "No Subject"
	defaultSender  = "Unknown Sender"
)

// RawMessage is one decoded email.
type RawMessage struct {
	ID       string
	ThreadID string
	Subject  string
	Sender   string
	Body     string
}

// Client is the mailbox capability consumed by the monitor and the auth
// routes. Credential state is written only by Authenticate and read by
// everything else.
type Client interface {
	// AuthorizationURL returns the provider login URL carrying state.
	AuthorizationURL(state string) (string, error)
	// Authenticate exchanges an authorization code and returns the connected
	// account address.
	Authenticate(ctx context.Context, code string) (string, error)
	IsAuthenticated() bool
	Account() string
	// RecentMessages returns up to max messages, newest first. Failures wrap
	// services.ErrFetch, or services.ErrAuthExpired when the credential was
	// rejected, in which case the client is no longer authenticated.
	RecentMessages(ctx context.Context, max int) ([]RawMessage, error)
}

// New builds the client selected by mailbox.provider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mailbox.Provider)) {
	case "", "gmail":
		return NewGmail(ctx, cfg.Mailbox, logger)
	case "imap":
		return NewIMAP(cfg.Mailbox, logger)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "mailbox", "new", "unknown provider "+cfg.Mailbox.Provider, nil)
	}
}

func withDefaults(msg RawMessage) RawMessage {
	msg.Subject = strings.TrimSpace(msg.Subject)
	if msg.Subject == "" {
		msg.Subject = defaultSubject
	}
	msg.Sender = strings.TrimSpace(msg.Sender)
	if msg.Sender == "" {
		msg.Sender = defaultSender
	}
	return msg
}
