package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMailbox(); err != nil {
		return err
	}
	c.normalizeClassifier()
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = envValue("JOBTRAIL_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeMailbox() error {
	c.Mailbox.Provider = strings.ToLower(strings.TrimSpace(c.Mailbox.Provider))
	if c.Mailbox.Provider == "" {
		c.Mailbox.Provider = defaultMailboxProvider
	}

	c.Mailbox.ClientID = strings.TrimSpace(c.Mailbox.ClientID)
	if c.Mailbox.ClientID == "" {
		c.Mailbox.ClientID = envValue("GOOGLE_CLIENT_ID")
	}
	c.Mailbox.ClientSecret = strings.TrimSpace(c.Mailbox.ClientSecret)
	if c.Mailbox.ClientSecret == "" {
		c.Mailbox.ClientSecret = envValue("GOOGLE_CLIENT_SECRET")
	}
	c.Mailbox.RedirectURL = strings.TrimSpace(c.Mailbox.RedirectURL)
	if value := envValue("GOOGLE_REDIRECT_URI"); value != "" && (c.Mailbox.RedirectURL == "" || c.Mailbox.RedirectURL == defaultRedirectURL) {
		c.Mailbox.RedirectURL = value
	}
	if c.Mailbox.RedirectURL == "" {
		c.Mailbox.RedirectURL = defaultRedirectURL
	}

	var err error
	if c.Mailbox.CredentialsFile, err = expandPath(strings.TrimSpace(c.Mailbox.CredentialsFile)); err != nil {
		return fmt.Errorf("mailbox.credentials_file: %w", err)
	}
	if strings.TrimSpace(c.Mailbox.TokenFile) == "" {
		c.Mailbox.TokenFile = defaultTokenFile
	}
	if c.Mailbox.TokenFile, err = expandPath(c.Mailbox.TokenFile); err != nil {
		return fmt.Errorf("mailbox.token_file: %w", err)
	}

	c.Mailbox.IMAPHost = strings.TrimSpace(c.Mailbox.IMAPHost)
	c.Mailbox.IMAPUsername = strings.TrimSpace(c.Mailbox.IMAPUsername)
	if c.Mailbox.IMAPPassword == "" {
		c.Mailbox.IMAPPassword = envValue("JOBTRAIL_IMAP_PASSWORD")
	}
	c.Mailbox.IMAPFolder = strings.TrimSpace(c.Mailbox.IMAPFolder)
	if c.Mailbox.IMAPFolder == "" {
		c.Mailbox.IMAPFolder = defaultIMAPFolder
	}
	return nil
}

func (c *Config) normalizeClassifier() {
	c.Classifier.Provider = strings.ToLower(strings.TrimSpace(c.Classifier.Provider))
	if c.Classifier.Provider == "" {
		c.Classifier.Provider = defaultClassifierProvider
	}
	if c.Classifier.MaxBodyChars <= 0 {
		c.Classifier.MaxBodyChars = defaultMaxBodyChars
	}

	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = envValue("GEMINI_API_KEY")
	}
	c.Gemini.Model = strings.TrimSpace(c.Gemini.Model)
	if c.Gemini.Model == "" {
		c.Gemini.Model = defaultGeminiModel
	}

	c.OpenAI.APIKey = strings.TrimSpace(c.OpenAI.APIKey)
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = envValue("OPENAI_API_KEY")
	}
	c.OpenAI.BaseURL = strings.TrimSpace(c.OpenAI.BaseURL)
	c.OpenAI.Model = strings.TrimSpace(c.OpenAI.Model)
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = defaultOpenAIModel
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = envValue("OPENROUTER_API_KEY")
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envValue(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
