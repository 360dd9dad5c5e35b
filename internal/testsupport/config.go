package testsupport

import (
	"path/filepath"
	"testing"

	"jobtrail/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The heuristic classifier is selected so no credentials are needed.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Mailbox.TokenFile = filepath.Join(base, "data", "token.json")
	cfgVal.Mailbox.ClientID = "client-id"
	cfgVal.Mailbox.ClientSecret = "client-secret"
	cfgVal.Classifier.Provider = "heuristic"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutOAuthClient clears the Gmail OAuth client credentials.
func WithoutOAuthClient() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Mailbox.ClientID = ""
		b.cfg.Mailbox.ClientSecret = ""
		b.cfg.Mailbox.CredentialsFile = ""
	}
}

// WithClassifier selects a classifier provider.
func WithClassifier(provider string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classifier.Provider = provider
	}
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithEnsuredDirectories creates the data and log directories.
func WithEnsuredDirectories() ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.EnsureDirectories(); err != nil {
			b.t.Fatalf("ensure directories: %v", err)
		}
	}
}
