package mailbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/oauth2"

	"jobtrail/internal/fileutil"
	"jobtrail/internal/logging"
)

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return &tok, nil
}

// saveToken writes tok atomically with owner-only permissions.
func saveToken(path string, tok *oauth2.Token) error {
	return fileutil.WriteJSONAtomic(path, tok, 0o600, 0o700)
}

// savingTokenSource persists every token the wrapped source mints.
type savingTokenSource struct {
	base   oauth2.TokenSource
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func newSavingTokenSource(base oauth2.TokenSource, path string, initial *oauth2.Token, logger *slog.Logger) *savingTokenSource {
	src := &savingTokenSource{base: base, path: path, logger: logger}
	if initial != nil {
		src.last = initial.AccessToken
	}
	return src
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn("persist refreshed token failed", logging.Error(err))
		} else {
			s.logger.Debug("refreshed token persisted", logging.String("path", s.path))
		}
	}
	return tok, nil
}
