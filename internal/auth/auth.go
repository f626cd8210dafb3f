// Package auth handles the Google OAuth2 session used to read the calendar.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	apperrors "mileagecal/internal/errors"
	appLog "mileagecal/internal/log"
)

// Config holds the OAuth client registration. A zero Endpoint means Google.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
}

// Verifier checks that an authorized client actually works, e.g. with a
// one-item calendar list call.
type Verifier func(ctx context.Context, client *http.Client) error

// CodeReceiver blocks until the OAuth redirect delivers the authorization
// code for state.
type CodeReceiver interface {
	Await(ctx context.Context, state string) (string, error)
}

// Flow obtains an authorized HTTP client, from the token store when it
// still works, otherwise through the browser consent flow.
type Flow struct {
	oauth *oauth2.Config
	store *TokenStore

	// Out receives the consent URL. Defaults to io.Discard.
	Out io.Writer
}

func NewFlow(cfg Config, store *TokenStore) (*Flow, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, apperrors.NewValidation("google client id and secret are required")
	}
	if cfg.RedirectURL == "" {
		return nil, apperrors.NewValidation("google redirect uri is required")
	}
	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}
	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       []string{gcal.CalendarReadonlyScope},
		},
		store: store,
		Out:   io.Discard,
	}, nil
}

// AuthURL returns an offline-access consent URL and the state it carries.
func (f *Flow) AuthURL() (url, state string) {
	state = uuid.NewString()
	return f.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), state
}

// Exchange trades an authorization code for a token and stores it.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperrors.NewExternalService("exchange authorization code", err)
	}
	if err := f.store.Save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns an HTTP client for tok. Refreshed tokens are written back
// to the store.
func (f *Flow) Client(ctx context.Context, tok *oauth2.Token) *http.Client {
	src := &persistingSource{
		base:  f.oauth.TokenSource(ctx, tok),
		store: f.store,
		last:  tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src))
}

// Authorize returns a verified client. A stored token is tried first; if it
// is missing or fails verify, the consent URL is printed and the code from
// recv is exchanged.
func (f *Flow) Authorize(ctx context.Context, verify Verifier, recv CodeReceiver) (*http.Client, error) {
	tok, err := f.store.Load()
	switch {
	case err == nil:
		client := f.Client(ctx, tok)
		verr := verify(ctx, client)
		if verr == nil {
			appLog.Info("using stored token", "path", f.store.Path())
			return client, nil
		}
		if apperrors.IsRateLimit(verr) {
			return nil, verr
		}
		appLog.Warn("stored token invalid, re-authorizing", "err", verr)
	case errors.Is(err, ErrNoToken):
		appLog.Info("no stored token, authorization required")
	default:
		appLog.Warn("stored token unreadable, re-authorizing", "err", err)
	}

	url, state := f.AuthURL()
	fmt.Fprintln(f.Out, "Authorize this app by visiting this url:", url)

	code, err := recv.Await(ctx, state)
	if err != nil {
		return nil, err
	}
	tok, err = f.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	client := f.Client(ctx, tok)
	if err := verify(ctx, client); err != nil {
		return nil, err
	}
	appLog.Info("authorization complete", "path", f.store.Path())
	return client, nil
}

type persistingSource struct {
	base  oauth2.TokenSource
	store *TokenStore

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			appLog.Error("persist refreshed token failed", err, "path", s.store.Path())
		}
	}
	return tok, nil
}
