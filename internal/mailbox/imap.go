package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/services"
	"jobtrail/internal/textutil"
)

// IMAPOption customizes the IMAP client.
type IMAPOption func(*IMAPClient)

// WithPlaintextIMAP dials without TLS.
func WithPlaintextIMAP() IMAPOption {
	return func(c *IMAPClient) {
		c.dial = func(addr string) (*client.Client, error) {
			return client.Dial(addr)
		}
	}
}

// IMAPClient reads messages over IMAP with a password or app password. It
// has no browser authorization flow.
type IMAPClient struct {
	addr     string
	username string
	password string
	folder   string
	dial     func(addr string) (*client.Client, error)
	logger   *slog.Logger

	mu       sync.RWMutex
	rejected bool
}

// NewIMAP builds an IMAP client from mailbox settings.
func NewIMAP(cfg config.Mailbox, logger *slog.Logger, opts ...IMAPOption) (*IMAPClient, error) {
	if cfg.IMAPHost == "" || cfg.IMAPUsername == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mailbox", "imap", "imap_host and imap_username are required", nil)
	}
	addr := cfg.IMAPHost
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}
	folder := cfg.IMAPFolder
	if folder == "" {
		folder = "INBOX"
	}
	c := &IMAPClient{
		addr:     addr,
		username: cfg.IMAPUsername,
		password: cfg.IMAPPassword,
		folder:   folder,
		dial: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, nil)
		},
		logger: logging.NewComponentLogger(logger, "mailbox").With(logging.String("provider", "imap")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AuthorizationURL is unsupported for IMAP.
func (c *IMAPClient) AuthorizationURL(string) (string, error) {
	return "", services.Wrap(services.ErrConfiguration, "mailbox", "authorization url", "imap provider uses configured credentials", nil)
}

// Authenticate verifies the configured credentials with a login round trip.
// The code argument is ignored.
func (c *IMAPClient) Authenticate(ctx context.Context, _ string) (string, error) {
	conn, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	_ = conn.Logout()
	c.setRejected(false)
	c.logger.Info("mailbox connected", logging.String("account", c.username))
	return c.username, nil
}

// IsAuthenticated reports whether credentials exist and were not rejected.
func (c *IMAPClient) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.password != "" && !c.rejected
}

// Account returns the login name while authenticated.
func (c *IMAPClient) Account() string {
	if !c.IsAuthenticated() {
		return ""
	}
	return c.username
}

func (c *IMAPClient) setRejected(value bool) {
	c.mu.Lock()
	c.rejected = value
	c.mu.Unlock()
}

func (c *IMAPClient) login(ctx context.Context) (*client.Client, error) {
	if c.password == "" {
		return nil, services.Wrap(services.ErrConfiguration, "mailbox", "imap login", "imap_password missing", nil)
	}
	conn, err := c.dial(c.addr)
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "mailbox", "imap dial", c.addr, err)
	}
	if ctx.Err() != nil {
		_ = conn.Logout()
		return nil, services.Wrap(services.ErrFetch, "mailbox", "imap dial", "", ctx.Err())
	}
	if err := conn.Login(c.username, c.password); err != nil {
		_ = conn.Logout()
		c.setRejected(true)
		return nil, services.Wrap(services.ErrAuthExpired, "mailbox", "imap login", "", err)
	}
	return conn, nil
}

// RecentMessages fetches the last max messages of the folder, newest first.
func (c *IMAPClient) RecentMessages(ctx context.Context, max int) ([]RawMessage, error) {
	if !c.IsAuthenticated() {
		return nil, services.Wrap(services.ErrNotAuthenticated, "mailbox", "recent messages", "", nil)
	}
	if max <= 0 {
		return nil, nil
	}
	conn, err := c.login(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	// go-imap v1 has no context support; a cancelled context terminates the
	// connection so the fetch unblocks.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Terminate()
		case <-stop:
		}
	}()

	mbox, err := conn.Select(c.folder, true)
	if err != nil {
		return nil, services.Wrap(services.ErrFetch, "mailbox", "imap select", c.folder, err)
	}
	if mbox.Messages == 0 {
		return nil, nil
	}
	from := uint32(1)
	if mbox.Messages > uint32(max) {
		from = mbox.Messages - uint32(max) + 1
	}
	seqset := new(imap.SeqSet)
	seqset.AddRange(from, mbox.Messages)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}
	messages := make(chan *imap.Message, max)
	done := make(chan error, 1)
	go func() {
		done <- conn.Fetch(seqset, items, messages)
	}()

	var out []RawMessage
	for msg := range messages {
		out = append(out, c.convert(msg, section))
	}
	if err := <-done; err != nil {
		return nil, services.Wrap(services.ErrFetch, "mailbox", "imap fetch", "", err)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (c *IMAPClient) convert(msg *imap.Message, section *imap.BodySectionName) RawMessage {
	raw := RawMessage{ID: fmt.Sprintf("%s:%d", c.folder, msg.Uid)}
	if env := msg.Envelope; env != nil {
		raw.Subject = env.Subject
		raw.ThreadID = env.MessageId
		if len(env.From) > 0 && env.From[0] != nil {
			raw.Sender = env.From[0].Address()
		}
	}
	if literal := msg.GetBody(section); literal != nil {
		parsed, err := parseMessage(literal)
		if err != nil {
			c.logger.Debug("imap body parse failed", logging.Int64("uid", int64(msg.Uid)), logging.Error(err))
		}
		if raw.Subject == "" {
			raw.Subject = parsed.Subject
		}
		if raw.Sender == "" {
			raw.Sender = parsed.Sender
		}
		raw.Body = parsed.Body
	}
	return withDefaults(raw)
}

// parseMessage decodes an RFC 5322 message, preferring the first text/plain
// part and falling back to text/html rendered as text.
func parseMessage(r io.Reader) (RawMessage, error) {
	var out RawMessage
	mr, err := mail.CreateReader(r)
	if err != nil {
		return out, fmt.Errorf("create reader: %w", err)
	}
	defer mr.Close()

	out.Subject, _ = mr.Header.Subject()
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.Sender = from[0].Address
	}

	var plain, markup string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if plain != "" || markup != "" {
				break
			}
			return out, fmt.Errorf("next part: %w", err)
		}
		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}
		switch strings.ToLower(contentType) {
		case "text/plain", "":
			if plain == "" {
				plain = string(body)
			}
		case "text/html":
			if markup == "" {
				markup = string(body)
			}
		}
	}
	switch {
	case strings.TrimSpace(plain) != "":
		out.Body = strings.TrimSpace(plain)
	case markup != "":
		out.Body = textutil.HTMLToText(markup)
	}
	return out, nil
}
