package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"jobtrail/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Mailbox selects the mailbox provider and holds its credentials.
//
// The gmail provider reads OAuth client credentials either from ClientID and
// ClientSecret or from a Google client secret JSON file (CredentialsFile).
// The imap provider logs in with IMAPUsername and IMAPPassword.
type Mailbox struct {
	Provider        string `toml:"provider"`
	CredentialsFile string `toml:"credentials_file"`
	ClientID        string `toml:"client_id"`
	ClientSecret    string `toml:"client_secret"`
	RedirectURL     string `toml:"redirect_url"`
	TokenFile       string `toml:"token_file"`
	IMAPHost        string `toml:"imap_host"`
	IMAPUsername    string `toml:"imap_username"`
	IMAPPassword    string `toml:"imap_password"`
	IMAPFolder      string `toml:"imap_folder"`
}

// Classifier selects the email classification strategy.
type Classifier struct {
	// Provider is one of auto, heuristic, gemini, openai, openrouter.
	Provider       string `toml:"provider"`
	MinConfidence  int    `toml:"min_confidence"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxBodyChars   int    `toml:"max_body_chars"`
}

// Gemini contains Google Gemini settings for the model-backed classifier.
type Gemini struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// OpenAI contains settings for an OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// LLM contains OpenRouter connection settings.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Monitor contains polling cadence settings.
type Monitor struct {
	PollIntervalSeconds int  `toml:"poll_interval_seconds"`
	MaxResults          int  `toml:"max_results"`
	StopTimeoutSeconds  int  `toml:"stop_timeout_seconds"`
	SeenCapacity        int  `toml:"seen_capacity"`
	AutoStart           bool `toml:"auto_start"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	StageChanges   bool   `toml:"stage_changes"`
	MonitorErrors  bool   `toml:"monitor_errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for jobtrail.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Mailbox: Gmail OAuth or IMAP credentials
//   - Classifier: strategy selection and actionable threshold
//   - Gemini, OpenAI, LLM: model-backed classifier providers
//   - Monitor: poll cadence and shutdown timeout
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Mailbox       Mailbox       `toml:"mailbox"`
	Classifier    Classifier    `toml:"classifier"`
	Gemini        Gemini        `toml:"gemini"`
	OpenAI        OpenAI        `toml:"openai"`
	LLM           LLM           `toml:"llm"`
	Monitor       Monitor       `toml:"monitor"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/jobtrail/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("jobtrail.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "jobtrail.db")
}

// SocketPath returns the IPC socket location used by the CLI.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.LogDir, "jobtrail.sock")
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "jobtrail.lock")
}

// PollInterval returns the monitor cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Monitor.PollIntervalSeconds) * time.Second
}

// StopTimeout returns the bounded wait used when stopping the monitor.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Monitor.StopTimeoutSeconds) * time.Second
}

// ClassifierTimeout returns the per-message classification deadline.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// HasOAuthClient reports whether Gmail OAuth client credentials are available.
func (c *Config) HasOAuthClient() bool {
	if strings.TrimSpace(c.Mailbox.ClientID) != "" && strings.TrimSpace(c.Mailbox.ClientSecret) != "" {
		return true
	}
	if path := strings.TrimSpace(c.Mailbox.CredentialsFile); path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := fileutil.WriteFileAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the OpenRouter settings used by the model-backed classifier.
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// GetLLM returns the OpenRouter connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		APIKey:         strings.TrimSpace(c.LLM.APIKey),
		BaseURL:        strings.TrimSpace(c.LLM.BaseURL),
		Model:          strings.TrimSpace(c.LLM.Model),
		Referer:        strings.TrimSpace(c.LLM.Referer),
		Title:          strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds: c.LLM.TimeoutSeconds,
	}
}
