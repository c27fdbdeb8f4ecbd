// Package auth issues participant tokens and checks organizer keys.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

const issuer = "drawnames"

// Claims identify one participant of one event. Subject is the participant ID.
type Claims struct {
	EventID string `json:"event_id"`
	jwt.RegisteredClaims
}

// ParticipantID returns the subject as a UUID.
func (c *Claims) ParticipantID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenIssuer signs and verifies participant tokens with HMAC-SHA256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a token that lets participantID act as themselves in eventID.
func (i *TokenIssuer) Issue(eventID, participantID uuid.UUID) (string, error) {
	now := i.now()
	claims := Claims{
		EventID: eventID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   participantID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Any failure is ErrUnauthorized.
func (i *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	if _, err := claims.ParticipantID(); err != nil {
		return nil, fmt.Errorf("%w: bad subject", common.ErrUnauthorized)
	}
	return claims, nil
}
