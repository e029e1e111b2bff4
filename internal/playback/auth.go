package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/spotify"

	"github.com/pixelrelapse/handplay/internal/config"
	"github.com/pixelrelapse/handplay/internal/store"
)

// SettingToken is the settings key holding the player API OAuth token.
const SettingToken = "playback.oauth_token"

// stateTTL bounds how long a login may take between redirect and callback.
const stateTTL = 10 * time.Minute

var (
	// ErrNotAuthorized is returned when no OAuth token has been obtained yet.
	ErrNotAuthorized = errors.New("player API not authorized, log in first")
	// ErrInvalidState is returned for a callback whose state was not issued or has expired.
	ErrInvalidState = errors.New("invalid or expired OAuth state")
)

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	// LoadToken returns the saved token, or nil when there is none.
	LoadToken() (*oauth2.Token, error)
	SaveToken(tok *oauth2.Token) error
}

// SettingsTokenStore keeps the token as JSON in the settings table.
type SettingsTokenStore struct {
	settings *store.SettingsRepository
}

// NewSettingsTokenStore creates a TokenStore backed by settings.
func NewSettingsTokenStore(settings *store.SettingsRepository) *SettingsTokenStore {
	return &SettingsTokenStore{settings: settings}
}

// LoadToken implements TokenStore.
func (s *SettingsTokenStore) LoadToken() (*oauth2.Token, error) {
	raw, err := s.settings.Get(SettingToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("failed to decode stored token: %w", err)
	}
	return &tok, nil
}

// SaveToken implements TokenStore.
func (s *SettingsTokenStore) SaveToken(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return s.settings.Set(SettingToken, string(data))
}

// Authenticator runs the OAuth authorization code flow for the player API
// and hands out access tokens, refreshing and persisting them as they expire.
// It implements oauth2.TokenSource.
type Authenticator struct {
	config *oauth2.Config
	tokens TokenStore

	mu     sync.Mutex
	source oauth2.TokenSource
	states map[string]time.Time
}

// NewAuthenticator creates an Authenticator from the playback settings.
func NewAuthenticator(cfg config.Playback, tokens TokenStore) *Authenticator {
	endpoint := spotify.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	return &Authenticator{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     endpoint,
		},
		tokens: tokens,
		states: make(map[string]time.Time),
	}
}

// AuthCodeURL returns the provider login URL carrying a fresh state value.
func (a *Authenticator) AuthCodeURL() string {
	state := uuid.NewString()

	a.mu.Lock()
	now := time.Now()
	for s, exp := range a.states {
		if now.After(exp) {
			delete(a.states, s)
		}
	}
	a.states[state] = now.Add(stateTTL)
	a.mu.Unlock()

	return a.config.AuthCodeURL(state)
}

// Exchange completes a login: it checks state, trades code for a token and
// saves the token. Each state value is accepted once.
func (a *Authenticator) Exchange(ctx context.Context, state, code string) error {
	a.mu.Lock()
	exp, ok := a.states[state]
	delete(a.states, state)
	a.mu.Unlock()

	if !ok || time.Now().After(exp) {
		return ErrInvalidState
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}
	if err := a.tokens.SaveToken(tok); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	a.mu.Lock()
	a.source = a.newSource(tok)
	a.mu.Unlock()

	log.Println("Player API authorized")
	return nil
}

// Authorized reports whether a token is available.
func (a *Authenticator) Authorized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source != nil {
		return true
	}
	tok, err := a.tokens.LoadToken()
	return err == nil && tok != nil
}

// Token implements oauth2.TokenSource. It returns ErrNotAuthorized until a
// login has completed.
func (a *Authenticator) Token() (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source == nil {
		tok, err := a.tokens.LoadToken()
		if err != nil {
			return nil, err
		}
		if tok == nil {
			return nil, ErrNotAuthorized
		}
		a.source = a.newSource(tok)
	}
	return a.source.Token()
}

// newSource must be called with a.mu held.
func (a *Authenticator) newSource(tok *oauth2.Token) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(tok, &savingSource{
		src:   a.config.TokenSource(context.Background(), tok),
		last:  tok.AccessToken,
		store: a.tokens,
	})
}

// savingSource persists every token the wrapped source refreshes.
type savingSource struct {
	src   oauth2.TokenSource
	store TokenStore

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.SaveToken(tok); err != nil {
			log.Printf("Failed to save refreshed token: %v", err)
		}
	}
	return tok, nil
}
