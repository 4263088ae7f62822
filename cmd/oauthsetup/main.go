// Package main is a one-time OAuth setup helper. It runs a short-lived
// local web server: opening http://localhost:8910/ shows the provider's
// consent URL, and the provider redirects back to /callback, where the
// code is exchanged and the token persisted for the gallery's storage
// integration. The process exits on its own shortly after a successful
// exchange; on failure it stays up so the flow can be retried.
package main

import (
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// The helper always binds the same port so the redirect URI registered
// with the provider never has to change.
const listenAddr = ":8910"

const defaultTokenFile = "oauth-token.json"

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadOAuthConfig() (*oauth2.Config, error) {
	clientID := os.Getenv("OAUTH_CLIENT_ID")
	clientSecret := os.Getenv("OAUTH_CLIENT_SECRET")
	authURL := os.Getenv("OAUTH_AUTH_URL")
	tokenURL := os.Getenv("OAUTH_TOKEN_URL")
	if clientID == "" || clientSecret == "" || authURL == "" || tokenURL == "" {
		return nil, fmt.Errorf("OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET, OAUTH_AUTH_URL and OAUTH_TOKEN_URL must be set")
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  envOrDefault("OAUTH_REDIRECT_URL", "http://localhost:8910/callback"),
		Scopes: []string{
			envOrDefault("OAUTH_SCOPE_PROFILE", "openid email"),
			envOrDefault("OAUTH_SCOPE_STORAGE", "storage.readwrite"),
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}, nil
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	conf, err := loadOAuthConfig()
	if err != nil {
		slog.Error("oauth configuration incomplete", "error", err)
		os.Exit(1)
	}
	tokenFile := envOrDefault("OAUTH_TOKEN_FILE", defaultTokenFile)

	state := uuid.New().String()
	done := make(chan struct{})

	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		// Offline access so the server gets a refresh token it can use
		// without a browser present.
		url := conf.AuthCodeURL(state, oauth2.AccessTypeOffline)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<!doctype html><title>PosterPress OAuth setup</title>
<p>Authorize the poster gallery's storage access:</p>
<p><a href=%q>%s</a></p>`, url, html.EscapeString(url))
	})

	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("state"); got != state {
			http.Error(w, "state mismatch, restart the flow from /", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing authorization code", http.StatusBadRequest)
			return
		}

		token, err := conf.Exchange(r.Context(), code)
		if err != nil {
			slog.Error("code exchange failed", "error", err)
			http.Error(w, "token exchange failed, check the logs and retry from /", http.StatusInternalServerError)
			return
		}
		if err := saveToken(tokenFile, token); err != nil {
			slog.Error("token persist failed", "file", tokenFile, "error", err)
			http.Error(w, "could not save token, check the logs and retry from /", http.StatusInternalServerError)
			return
		}

		slog.Info("token saved", "file", tokenFile, "expires", token.Expiry)
		fmt.Fprintln(w, "Authorization complete. The token has been saved; this helper will exit now.")

		// Give the response a moment to flush before exiting.
		go func() {
			time.Sleep(2 * time.Second)
			close(done)
		}()
	})

	srv := &http.Server{Addr: listenAddr, Handler: mux}
	go func() {
		slog.Info("oauth setup listening", "addr", listenAddr, "open", "http://localhost:8910/")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("listener failed", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	srv.Close()
	slog.Info("setup complete")
}
