package config

const (
	defaultDataDir               = "~/.local/share/jobtrail"
	defaultLogDir                = "~/.local/share/jobtrail/logs"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultMailboxProvider       = "gmail"
	defaultRedirectURL           = "http://127.0.0.1:7488/api/auth/callback"
	defaultTokenFile             = "~/.config/jobtrail/gmail_token.json"
	defaultIMAPFolder            = "INBOX"
	defaultClassifierProvider    = "auto"
	defaultMinConfidence         = 30
	defaultClassifierTimeout     = 30
	defaultMaxBodyChars          = 2000
	defaultGeminiModel           = "gemini-1.5-flash"
	defaultOpenAIModel           = "gpt-4o-mini"
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-2.0-flash-001"
	defaultLLMReferer            = "https://github.com/jobtrail/jobtrail"
	defaultLLMTitle              = "jobtrail classifier"
	defaultLLMTimeoutSeconds     = 60
	defaultPollIntervalSeconds   = 5
	defaultMaxResults            = 10
	defaultStopTimeoutSeconds    = 5
	defaultSeenCapacity          = 500
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Mailbox: Mailbox{
			Provider:    defaultMailboxProvider,
			RedirectURL: defaultRedirectURL,
			TokenFile:   defaultTokenFile,
			IMAPFolder:  defaultIMAPFolder,
		},
		Classifier: Classifier{
			Provider:       defaultClassifierProvider,
			MinConfidence:  defaultMinConfidence,
			TimeoutSeconds: defaultClassifierTimeout,
			MaxBodyChars:   defaultMaxBodyChars,
		},
		Gemini: Gemini{
			Model: defaultGeminiModel,
		},
		OpenAI: OpenAI{
			Model: defaultOpenAIModel,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Monitor: Monitor{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MaxResults:          defaultMaxResults,
			StopTimeoutSeconds:  defaultStopTimeoutSeconds,
			SeenCapacity:        defaultSeenCapacity,
			AutoStart:           true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			StageChanges:   true,
			MonitorErrors:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
