package twitch

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
)

// extensionClaims is the claim set Twitch's extension helper puts into the
// per-request JWT, plus what we sign into server-issued PubSub tokens.
type extensionClaims struct {
	UserID       string       `json:"user_id,omitempty"`
	OpaqueUserID string       `json:"opaque_user_id,omitempty"`
	ChannelID    string       `json:"channel_id,omitempty"`
	Role         string       `json:"role,omitempty"`
	PubSubPerms  *pubsubPerms `json:"pubsub_perms,omitempty"`
	jwt.RegisteredClaims
}

type pubsubPerms struct {
	Send []string `json:"send,omitempty"`
}

// Verifier validates extension-helper JWTs. The shared secret comes
// base64-encoded from the Twitch developer console.
type Verifier struct {
	secret []byte
}

func NewVerifier(encodedSecret string) (*Verifier, error) {
	secret, err := base64.StdEncoding.DecodeString(encodedSecret)
	if err != nil {
		return nil, fmt.Errorf("extension secret must be valid base64: %w", err)
	}
	return &Verifier{secret: secret}, nil
}

// Verify parses and validates a token, returning the caller's identity.
func (v *Verifier) Verify(token string) (domain.Claims, error) {
	var claims extensionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Claims{}, fmt.Errorf("invalid extension token: %w", err)
	}

	return domain.Claims{
		UserID:       claims.UserID,
		OpaqueUserID: claims.OpaqueUserID,
		ChannelID:    claims.ChannelID,
		Role:         claims.Role,
	}, nil
}

// signServerToken mints the short-lived token the EBS uses to call the
// PubSub broadcast endpoint on the broadcaster's channel.
func signServerToken(secret []byte, ownerUserID, channelID string, now time.Time) (string, error) {
	claims := extensionClaims{
		UserID:      ownerUserID,
		ChannelID:   channelID,
		Role:        domain.RoleExternal,
		PubSubPerms: &pubsubPerms{Send: []string{"broadcast"}},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign pubsub token: %w", err)
	}
	return signed, nil
}
