package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"google.golang.org/api/option"

	"jobtrail/internal/config"
	"jobtrail/internal/logging"
	"jobtrail/internal/services"
)

type fakeGmail struct {
	server     *httptest.Server
	listStatus atomic.Int32
}

func newFakeGmail(t *testing.T) *fakeGmail {
	t.Helper()
	f := &fakeGmail{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`))
	})
	mux.HandleFunc("/gmail/v1/users/me/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(t, w, map[string]any{"emailAddress": "me@example.com"})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		if status := f.listStatus.Load(); status != 0 {
			w.WriteHeader(int(status))
			writeJSON(t, w, map[string]any{"error": map[string]any{"code": status, "message": "nope"}})
			return
		}
		if r.URL.Query().Get("maxResults") != "5" {
			t.Errorf("unexpected maxResults %q", r.URL.Query().Get("maxResults"))
		}
		writeJSON(t, w, map[string]any{"messages": []any{
			map[string]any{"id": "m1", "threadId": "t1"},
			map[string]any{"id": "m2", "threadId": "t2"},
		}})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id":       "m1",
			"threadId": "t1",
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []any{
					map[string]any{"name": "Subject", "value": "Interview invitation"},
					map[string]any{"name": "From", "value": "Acme <jobs@acme.example>"},
				},
				"parts": []any{
					map[string]any{"mimeType": "text/plain", "body": map[string]any{"data": encode("Please schedule an interview")}},
				},
			},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/m2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"id":       "m2",
			"threadId": "t2",
			"payload": map[string]any{
				"mimeType": "text/html",
				"body":     map[string]any{"data": encode("<p>hello</p>")},
			},
		})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode: %v", err)
	}
}

func (f *fakeGmail) client(t *testing.T, cfg config.Mailbox) *GmailClient {
	t.Helper()
	g, err := NewGmail(context.Background(), cfg, logging.NewNop(),
		WithTokenEndpoint(f.server.URL+"/token"),
		WithOAuthHTTPClient(f.server.Client()),
		WithAPIOptions(option.WithEndpoint(f.server.URL+"/")),
	)
	if err != nil {
		t.Fatalf("NewGmail: %v", err)
	}
	return g
}

func mailboxConfig(t *testing.T) config.Mailbox {
	return config.Mailbox{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:7488/api/auth/callback",
		TokenFile:    filepath.Join(t.TempDir(), "token.json"),
	}
}

func TestGmailAuthorizationURL(t *testing.T) {
	g, err := NewGmail(context.Background(), mailboxConfig(t), logging.NewNop())
	if err != nil {
		t.Fatalf("NewGmail: %v", err)
	}
	raw, err := g.AuthorizationURL("state-123")
	if err != nil {
		t.Fatalf("AuthorizationURL: %v", err)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := parsed.Query()
	if q.Get("state") != "state-123" || q.Get("access_type") != "offline" || q.Get("prompt") != "consent" {
		t.Fatalf("unexpected query %v", q)
	}
	if !strings.Contains(q.Get("scope"), "gmail.readonly") {
		t.Fatalf("expected readonly scope, got %q", q.Get("scope"))
	}
}

func TestGmailMissingCredentials(t *testing.T) {
	cfg := mailboxConfig(t)
	cfg.ClientID = ""
	g, err := NewGmail(context.Background(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewGmail: %v", err)
	}
	if _, err := g.AuthorizationURL("x"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := g.Authenticate(context.Background(), "code"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGmailAuthenticateAndFetch(t *testing.T) {
	fake := newFakeGmail(t)
	cfg := mailboxConfig(t)
	g := fake.client(t, cfg)

	if g.IsAuthenticated() {
		t.Fatal("expected unauthenticated client before exchange")
	}
	if _, err := g.RecentMessages(context.Background(), 5); !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := g.Authenticate(context.Background(), "bad-code"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for rejected code, got %v", err)
	}

	account, err := g.Authenticate(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if account != "me@example.com" || g.Account() != account || !g.IsAuthenticated() {
		t.Fatalf("unexpected session state account=%q", account)
	}
	if _, err := os.Stat(cfg.TokenFile); err != nil {
		t.Fatalf("expected token file: %v", err)
	}

	msgs, err := g.RecentMessages(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	first := msgs[0]
	if first.ID != "m1" || first.ThreadID != "t1" || first.Subject != "Interview invitation" ||
		first.Sender != "Acme <jobs@acme.example>" || first.Body != "Please schedule an interview" {
		t.Fatalf("unexpected first message %+v", first)
	}
	second := msgs[1]
	if second.Subject != defaultSubject || second.Sender != defaultSender || second.Body != "hello" {
		t.Fatalf("unexpected second message %+v", second)
	}

	restored := fake.client(t, cfg)
	if !restored.IsAuthenticated() || restored.Account() != "me@example.com" {
		t.Fatal("expected persisted token to restore the session")
	}
}

func TestGmailFetchErrors(t *testing.T) {
	fake := newFakeGmail(t)
	g := fake.client(t, mailboxConfig(t))
	if _, err := g.Authenticate(context.Background(), "good-code"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	fake.listStatus.Store(http.StatusNotFound)
	_, err := g.RecentMessages(context.Background(), 5)
	if !errors.Is(err, services.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if !g.IsAuthenticated() {
		t.Fatal("fetch failure must not drop the session")
	}

	fake.listStatus.Store(http.StatusUnauthorized)
	_, err = g.RecentMessages(context.Background(), 5)
	if !errors.Is(err, services.ErrAuthExpired) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if g.IsAuthenticated() || g.Account() != "" {
		t.Fatal("expected session cleared after credential rejection")
	}
}
