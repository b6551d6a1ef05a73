package csrf

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
)

const (
	issuer   = "csvgate"
	audience = "csvgate-upload"

	// DefaultTTL is how long an issued token is accepted
	DefaultTTL = 12 * time.Hour
)

// ErrTagInvalidToken marks a token that failed verification
var ErrTagInvalidToken = goerr.NewTag("invalid_csrf_token")

// Service issues and verifies anti-forgery tokens. Tokens are HS256 signed
// JWTs, so no server side state is kept.
type Service struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithTTL sets the token lifetime
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.ttl = ttl
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates a Service signing with secret. An empty secret makes a random
// key, which invalidates tokens on restart.
func New(secret []byte, opts ...Option) (*Service, error) {
	key := secret
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, goerr.Wrap(err, "failed to generate CSRF signing key")
		}
	}

	s := &Service{
		key: key,
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ttl <= 0 {
		return nil, goerr.New("CSRF token TTL must be positive", goerr.V("ttl", s.ttl))
	}
	return s, nil
}

// Issue returns a new signed token
func (s *Service) Issue() (string, error) {
	now := s.now()
	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(issuer).
		Audience([]string{audience}).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(s.ttl)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build CSRF token")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, s.key))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign CSRF token")
	}
	return string(signed), nil
}

// Verify checks signature, issuer, audience and lifetime of token
func (s *Service) Verify(token string) error {
	if token == "" {
		return goerr.New("CSRF token is empty", goerr.T(ErrTagInvalidToken))
	}

	_, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, s.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithClock(jwt.ClockFunc(s.now)),
	)
	if err != nil {
		return goerr.Wrap(err, "invalid CSRF token", goerr.T(ErrTagInvalidToken))
	}
	return nil
}
