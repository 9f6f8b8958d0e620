package twitch

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func encodedTestSecret() string {
	return base64.StdEncoding.EncodeToString(testSecret)
}

func signTestToken(t *testing.T, secret []byte, claims extensionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func viewerClaims() extensionClaims {
	return extensionClaims{
		UserID:       "12345",
		OpaqueUserID: "U-abcdef",
		ChannelID:    "67890",
		Role:         domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestNewVerifier_RejectsInvalidBase64(t *testing.T) {
	_, err := NewVerifier("not-base64!!!")
	assert.Error(t, err)
}

func TestVerifier_ValidToken(t *testing.T) {
	verifier, err := NewVerifier(encodedTestSecret())
	require.NoError(t, err)

	token := signTestToken(t, testSecret, viewerClaims())

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "12345", claims.UserID)
	assert.Equal(t, "U-abcdef", claims.OpaqueUserID)
	assert.Equal(t, "67890", claims.ChannelID)
	assert.Equal(t, domain.RoleViewer, claims.Role)
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	verifier, err := NewVerifier(encodedTestSecret())
	require.NoError(t, err)

	token := signTestToken(t, []byte("another-secret-entirely-32bytes!"), viewerClaims())

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	verifier, err := NewVerifier(encodedTestSecret())
	require.NoError(t, err)

	claims := viewerClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := signTestToken(t, testSecret, claims)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifier_RejectsUnexpectedSigningMethod(t *testing.T) {
	verifier, err := NewVerifier(encodedTestSecret())
	require.NoError(t, err)

	// alg=none tokens must never pass
	token := jwt.NewWithClaims(jwt.SigningMethodNone, viewerClaims())
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.Error(t, err)
}

func TestSignServerToken_CarriesBroadcastPerms(t *testing.T) {
	now := time.Now()
	signed, err := signServerToken(testSecret, "owner-1", "chan-1", now)
	require.NoError(t, err)

	var claims extensionClaims
	_, err = jwt.ParseWithClaims(signed, &claims, func(t *jwt.Token) (any, error) {
		return testSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	require.NoError(t, err)

	assert.Equal(t, "owner-1", claims.UserID)
	assert.Equal(t, "chan-1", claims.ChannelID)
	assert.Equal(t, domain.RoleExternal, claims.Role)
	require.NotNil(t, claims.PubSubPerms)
	assert.Equal(t, []string{"broadcast"}, claims.PubSubPerms.Send)
	assert.WithinDuration(t, now.Add(time.Minute), claims.ExpiresAt.Time, time.Second)
}
