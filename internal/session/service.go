package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnquest/learnquest/internal/api"
	"github.com/learnquest/learnquest/internal/domain"
	"github.com/learnquest/learnquest/internal/event"
	"github.com/learnquest/learnquest/internal/token"
)

type Config struct {
	API      *api.Client
	Tokens   token.Store
	EventBus *event.Bus
}

// Service owns the session lifecycle: logged out, or logged in with a
// persisted credential and the identity decoded from it. The credential is
// mutated only by Login, Logout and decode failure; decode failure is the
// single automatic-logout trigger.
type Service struct {
	api    *api.Client
	tokens token.Store
	eb     *event.Bus

	mu       sync.Mutex
	identity *domain.Identity
}

func NewService(c Config) *Service {
	return &Service{
		api:    c.API,
		tokens: c.Tokens,
		eb:     c.EventBus,
	}
}

// Init restores the session from a persisted credential, if any. A
// credential that no longer decodes is cleared, leaving the session logged
// out. Init never fails: the worst outcome is the login screen.
func (s *Service) Init(ctx context.Context) {
	tok, err := s.tokens.Load()
	if err != nil {
		return
	}

	if err := s.adopt(ctx, tok); err != nil {
		slog.Warn("session: persisted credential rejected", "error", err)
	}
}

// LoggedIn reports whether a valid identity is present.
func (s *Service) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.identity != nil
}

// Identity returns the decoded identity, or nil when logged out.
func (s *Service) Identity() *domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.identity == nil {
		return nil
	}

	id := *s.identity
	return &id
}

// Login exchanges credentials for a token, persists it and decodes the
// identity. A token that cannot be decoded is discarded and the session
// stays logged out.
func (s *Service) Login(ctx context.Context, email, password string) error {
	tok, err := s.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return err
	}

	if err := s.tokens.Save(tok); err != nil {
		return err
	}

	return s.adopt(ctx, tok)
}

// Register creates an account and returns the backend confirmation. It
// never authenticates: the learner logs in afterwards.
func (s *Service) Register(ctx context.Context, username, email, password string) (string, error) {
	return s.api.Register(ctx, api.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
}

// Logout clears the persisted credential unconditionally.
func (s *Service) Logout(ctx context.Context) {
	if err := s.tokens.Clear(); err != nil {
		slog.Warn("session: clear credential", "error", err)
	}

	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()

	s.publishChange(ctx)
}

// adopt decodes the identity from a credential that is already persisted.
// On decode failure the credential is cleared and the session transitions
// to logged out.
func (s *Service) adopt(ctx context.Context, tok string) error {
	id, err := decodeIdentity(tok)
	if err != nil {
		s.Logout(ctx)
		return fmt.Errorf("session: decode credential: %w", err)
	}

	s.mu.Lock()
	s.identity = id
	s.mu.Unlock()

	s.publishChange(ctx)
	return nil
}

func (s *Service) publishChange(ctx context.Context) {
	if s.eb == nil {
		return
	}

	id := s.Identity()
	s.eb.Publish(ctx, domain.EventSessionChanged{
		LoggedIn: id != nil,
		Identity: id,
	})
}

// decodeIdentity extracts the identity claims from the bearer token. The
// client holds no signing key, so the signature is not verified; the
// backend remains the authority on every call. An expired token counts as
// a decode failure.
func decodeIdentity(tok string) (*domain.Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil, err
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("exp claim: %w", err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return nil, jwt.ErrTokenExpired
	}

	id := &domain.Identity{}
	if v, ok := claims["username"].(string); ok {
		id.Username = v
	}
	if v, ok := claims["email"].(string); ok {
		id.Email = v
	}

	if id.Username == "" {
		return nil, fmt.Errorf("missing username claim")
	}

	return id, nil
}
