package csrf_test

import (
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/csvgate/pkg/service/csrf"
)

func TestService(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("issued token verifies", func(t *testing.T) {
		svc, err := csrf.New([]byte("secret"), csrf.WithClock(clock))
		gt.NoError(t, err).Required()

		token, err := svc.Issue()
		gt.NoError(t, err).Required()
		gt.Equal(t, strings.Count(token, "."), 2)
		gt.NoError(t, svc.Verify(token))
	})

	t.Run("tokens are unique", func(t *testing.T) {
		svc, err := csrf.New([]byte("secret"), csrf.WithClock(clock))
		gt.NoError(t, err).Required()

		a, err := svc.Issue()
		gt.NoError(t, err).Required()
		b, err := svc.Issue()
		gt.NoError(t, err).Required()
		gt.NotEqual(t, a, b)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		svc, err := csrf.New([]byte("secret"))
		gt.NoError(t, err).Required()

		err = svc.Verify("")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, csrf.ErrTagInvalidToken))
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		svc, err := csrf.New([]byte("secret"))
		gt.NoError(t, err).Required()

		err = svc.Verify("not-a-token")
		gt.Error(t, err)
		gt.True(t, goerr.HasTag(err, csrf.ErrTagInvalidToken))
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		issuer, err := csrf.New([]byte("secret-a"), csrf.WithClock(clock))
		gt.NoError(t, err).Required()
		verifier, err := csrf.New([]byte("secret-b"), csrf.WithClock(clock))
		gt.NoError(t, err).Required()

		token, err := issuer.Issue()
		gt.NoError(t, err).Required()
		gt.True(t, goerr.HasTag(verifier.Verify(token), csrf.ErrTagInvalidToken))
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		current := now
		svc, err := csrf.New([]byte("secret"),
			csrf.WithTTL(time.Minute),
			csrf.WithClock(func() time.Time { return current }),
		)
		gt.NoError(t, err).Required()

		token, err := svc.Issue()
		gt.NoError(t, err).Required()
		gt.NoError(t, svc.Verify(token))

		current = now.Add(2 * time.Minute)
		gt.True(t, goerr.HasTag(svc.Verify(token), csrf.ErrTagInvalidToken))
	})

	t.Run("random key when secret is empty", func(t *testing.T) {
		a, err := csrf.New(nil)
		gt.NoError(t, err).Required()
		b, err := csrf.New(nil)
		gt.NoError(t, err).Required()

		token, err := a.Issue()
		gt.NoError(t, err).Required()
		gt.NoError(t, a.Verify(token))
		gt.Error(t, b.Verify(token))
	})

	t.Run("non-positive TTL is rejected", func(t *testing.T) {
		_, err := csrf.New([]byte("secret"), csrf.WithTTL(0))
		gt.Error(t, err)
	})
}
