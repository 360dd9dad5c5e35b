package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/services"
)

const gmailUser = "me"

// GmailOption customizes the Gmail client.
type GmailOption func(*GmailClient)

// WithAPIOptions appends client options to every Gmail service built.
func WithAPIOptions(opts ...option.ClientOption) GmailOption {
	return func(g *GmailClient) {
		g.apiOpts = append(g.apiOpts, opts...)
	}
}

// WithTokenEndpoint overrides the OAuth token URL.
func WithTokenEndpoint(tokenURL string) GmailOption {
	return func(g *GmailClient) {
		if g.oauth != nil {
			g.oauth.Endpoint.TokenURL = tokenURL
		}
	}
}

// WithOAuthHTTPClient sets the HTTP client used for token exchange and
// refresh.
func WithOAuthHTTPClient(client *http.Client) GmailOption {
	return func(g *GmailClient) {
		g.baseCtx = context.WithValue(g.baseCtx, oauth2.HTTPClient, client)
	}
}

// GmailClient reads messages through the Gmail API with a read-only OAuth
// grant.
type GmailClient struct {
	oauth     *oauth2.Config
	tokenPath string
	apiOpts   []option.ClientOption
	baseCtx   context.Context
	logger    *slog.Logger

	mu      sync.RWMutex
	svc     *gmailv1.Service
	account string
}

// NewGmail builds the client and reconnects with a persisted token when one
// exists. Missing OAuth client credentials do not fail construction; they
// surface from AuthorizationURL and Authenticate instead.
func NewGmail(ctx context.Context, cfg config.Mailbox, logger *slog.Logger, opts ...GmailOption) (*GmailClient, error) {
	oauthCfg, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}
	g := &GmailClient{
		oauth:     oauthCfg,
		tokenPath: cfg.TokenFile,
		baseCtx:   context.Background(),
		logger:    logging.NewComponentLogger(logger, "mailbox").With(logging.String("provider", "gmail")),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.restore(ctx)
	return g, nil
}

func oauthConfig(cfg config.Mailbox) (*oauth2.Config, error) {
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "mailbox", "oauth config", "read credentials file", err)
		}
		if err == nil {
			oauthCfg, err := google.ConfigFromJSON(data, gmailv1.GmailReadonlyScope)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "mailbox", "oauth config", "parse credentials file", err)
			}
			if cfg.RedirectURL != "" {
				oauthCfg.RedirectURL = cfg.RedirectURL
			}
			return oauthCfg, nil
		}
	}
	if strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{gmailv1.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}, nil
}

func (g *GmailClient) restore(ctx context.Context) {
	if g.oauth == nil || g.tokenPath == "" {
		return
	}
	tok, err := readToken(g.tokenPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			g.logger.Warn("stored token unreadable", logging.Error(err))
		}
		return
	}
	svc, account, err := g.connect(ctx, tok)
	if err != nil {
		logging.WarnWithContext(g.logger, "stored token rejected", "mailbox_restore_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-run the authorization flow"),
			logging.String(logging.FieldImpact, "mailbox stays disconnected"),
		)
		return
	}
	g.setSession(svc, account)
	g.logger.Info("mailbox session restored", logging.String("account", account))
}

// AuthorizationURL returns the Google consent URL for offline read-only
// access.
func (g *GmailClient) AuthorizationURL(state string) (string, error) {
	if g.oauth == nil {
		return "", services.Wrap(services.ErrConfiguration, "mailbox", "authorization url", "oauth client credentials missing", nil)
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Authenticate exchanges code, persists the token and connects.
func (g *GmailClient) Authenticate(ctx context.Context, code string) (string, error) {
	if g.oauth == nil {
		return "", services.Wrap(services.ErrConfiguration, "mailbox", "authenticate", "oauth client credentials missing", nil)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", services.Wrap(services.ErrValidation, "mailbox", "authenticate", "authorization code required", nil)
	}
	tok, err := g.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, g.oauthHTTPClient()), code)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "mailbox", "authenticate", "exchange authorization code", err)
	}
	if g.tokenPath != "" {
		if err := saveToken(g.tokenPath, tok); err != nil {
			return "", services.Wrap(services.ErrConfiguration, "mailbox", "authenticate", "persist token", err)
		}
	}
	svc, account, err := g.connect(ctx, tok)
	if err != nil {
		return "", services.Wrap(services.ErrFetch, "mailbox", "authenticate", "load profile", err)
	}
	g.setSession(svc, account)
	g.logger.Info("mailbox connected", logging.String("account", account))
	return account, nil
}

func (g *GmailClient) oauthHTTPClient() *http.Client {
	if client, ok := g.baseCtx.Value(oauth2.HTTPClient).(*http.Client); ok && client != nil {
		return client
	}
	return http.DefaultClient
}

func (g *GmailClient) connect(ctx context.Context, tok *oauth2.Token) (*gmailv1.Service, string, error) {
	source := oauth2.ReuseTokenSource(tok, newSavingTokenSource(g.oauth.TokenSource(g.baseCtx, tok), g.tokenPath, tok, g.logger))
	httpClient := oauth2.NewClient(g.baseCtx, source)
	opts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, g.apiOpts...)
	svc, err := gmailv1.NewService(ctx, opts...)
	if err != nil {
		return nil, "", fmt.Errorf("create gmail service: %w", err)
	}
	profile, err := svc.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("get profile: %w", err)
	}
	return svc, profile.EmailAddress, nil
}

func (g *GmailClient) setSession(svc *gmailv1.Service, account string) {
	g.mu.Lock()
	g.svc = svc
	g.account = account
	g.mu.Unlock()
}

func (g *GmailClient) session() *gmailv1.Service {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.svc
}

// IsAuthenticated reports whether a usable session exists.
func (g *GmailClient) IsAuthenticated() bool {
	return g.session() != nil
}

// Account returns the connected address, or "" when disconnected.
func (g *GmailClient) Account() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.account
}

// RecentMessages lists the newest max messages and fetches each in full.
func (g *GmailClient) RecentMessages(ctx context.Context, max int) ([]RawMessage, error) {
	svc := g.session()
	if svc == nil {
		return nil, services.Wrap(services.ErrNotAuthenticated, "mailbox", "recent messages", "", nil)
	}
	if max <= 0 {
		return nil, nil
	}
	list, err := svc.Users.Messages.List(gmailUser).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, g.fetchError("list messages", err)
	}

	out := make([]RawMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if ref == nil || ref.Id == "" {
			continue
		}
		msg, err := svc.Users.Messages.Get(gmailUser, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, g.fetchError("get message "+ref.Id, err)
		}
		out = append(out, withDefaults(RawMessage{
			ID:       msg.Id,
			ThreadID: msg.ThreadId,
			Subject:  header(msg.Payload, "Subject"),
			Sender:   header(msg.Payload, "From"),
			Body:     extractBody(msg.Payload),
		}))
	}
	return out, nil
}

// fetchError tags err and drops the session when the credential was refused.
func (g *GmailClient) fetchError(op string, err error) error {
	if isAuthFailure(err) {
		g.setSession(nil, "")
		g.logger.Warn("mailbox credential rejected; session cleared", logging.String("op", op), logging.Error(err))
		return services.Wrap(services.ErrAuthExpired, "mailbox", op, "", err)
	}
	return services.Wrap(services.ErrFetch, "mailbox", op, "", err)
}

func isAuthFailure(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized
	}
	return false
}
