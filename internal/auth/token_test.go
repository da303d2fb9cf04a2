package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("super-secret", time.Hour)

	tok, err := issuer.Issue("user-123")
	require.NoError(t, err)

	claims, err := issuer.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "user-123", claims.UserID())
	require.NotEmpty(t, claims.ID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }

	tok, err := issuer.Issue("u1")
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	tok, err := NewTokenIssuer("right-secret", time.Hour).Issue("u2")
	require.NoError(t, err)

	_, err = NewTokenIssuer("wrong-secret", time.Hour).Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_TamperedSignature(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue("u3")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = issuer.Verify(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "u4",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Malformed(t *testing.T) {
	_, err := NewTokenIssuer("k", time.Hour).Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RequiresSubject(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue("")
	require.NoError(t, err)

	_, err = issuer.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}
