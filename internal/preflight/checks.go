package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"jobtrail/internal/classifier"
	"jobtrail/internal/config"
	"jobtrail/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetry(1, 0, 0))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckMailbox verifies that the selected mailbox provider has credentials.
// It does not contact the provider.
func CheckMailbox(cfg *config.Config) Result {
	const name = "Mailbox"

	switch cfg.Mailbox.Provider {
	case "imap":
		missing := make([]string, 0, 3)
		if cfg.Mailbox.IMAPHost == "" {
			missing = append(missing, "imap_host")
		}
		if cfg.Mailbox.IMAPUsername == "" {
			missing = append(missing, "imap_username")
		}
		if cfg.Mailbox.IMAPPassword == "" {
			missing = append(missing, "imap_password")
		}
		if len(missing) > 0 {
			return Result{Name: name, Detail: "IMAP missing " + strings.Join(missing, ", ")}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("IMAP %s as %s", cfg.Mailbox.IMAPHost, cfg.Mailbox.IMAPUsername)}
	default:
		if !cfg.HasOAuthClient() {
			return Result{Name: name, Detail: "Gmail OAuth client not configured (set GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET or mailbox.credentials_file)"}
		}
		detail := "Gmail OAuth client configured"
		if _, err := os.Stat(cfg.Mailbox.TokenFile); err == nil {
			detail += " (stored session present)"
		} else {
			detail += " (not signed in)"
		}
		return Result{Name: name, Passed: true, Detail: detail}
	}
}

// CheckClassifier verifies that the selected classifier provider has the
// credentials it needs. "auto" always passes because it falls back to the
// heuristic classifier.
func CheckClassifier(cfg *config.Config) Result {
	const name = "Classifier"

	provider := cfg.Classifier.Provider
	switch provider {
	case "", classifier.ProviderAuto:
		if cfg.Gemini.APIKey != "" {
			return Result{Name: name, Passed: true, Detail: "auto (Gemini " + cfg.Gemini.Model + ")"}
		}
		return Result{Name: name, Passed: true, Detail: "auto (heuristic, no model key configured)"}
	case classifier.ProviderHeuristic:
		return Result{Name: name, Passed: true, Detail: "heuristic"}
	case classifier.ProviderGemini:
		return keyResult(name, provider, cfg.Gemini.APIKey, cfg.Gemini.Model)
	case classifier.ProviderOpenAI:
		return keyResult(name, provider, cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	case classifier.ProviderOpenRouter:
		return keyResult(name, provider, cfg.LLM.APIKey, cfg.LLM.Model)
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unknown provider %q", provider)}
	}
}

func keyResult(name, provider, key, model string) Result {
	if strings.TrimSpace(key) == "" {
		return Result{Name: name, Detail: provider + " selected but API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", provider, model)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
