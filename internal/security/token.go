package security

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the identity provider vouches for on sign-in.
type Identity struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl"`
}

type Claims struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{PlayerID: c.PlayerID, DisplayName: c.DisplayName, AvatarURL: c.AvatarURL}
}

var playerIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidatePlayerID checks that an id is safe to use as a document path segment.
func ValidatePlayerID(id string) bool {
	return playerIDRegex.MatchString(id)
}

// GenerateJWT creates a signed token for an identity
func GenerateJWT(identity Identity, secret string, ttl time.Duration) (string, error) {
	if !ValidatePlayerID(identity.PlayerID) {
		return "", fmt.Errorf("invalid player id %q", identity.PlayerID)
	}

	now := time.Now()
	claims := &Claims{
		PlayerID:    identity.PlayerID,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.PlayerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT validates and parses a JWT token
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && ValidatePlayerID(claims.PlayerID) {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// roomCodeCharset leaves out 0/O and 1/I so codes survive being read aloud.
const roomCodeCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateSecureCode generates a cryptographically secure random room code
func GenerateSecureCode(length int) string {
	b := make([]byte, length)
	rand.Read(b)
	for i := range b {
		b[i] = roomCodeCharset[int(b[i])%len(roomCodeCharset)]
	}
	return string(b)
}
