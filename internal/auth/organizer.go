package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

// OrganizerKeys creates and checks the secret handed to whoever creates an
// event. Only the bcrypt hash is stored.
type OrganizerKeys struct {
	cost int
}

// NewOrganizerKeys uses bcrypt.DefaultCost when cost is zero.
func NewOrganizerKeys(cost int) *OrganizerKeys {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &OrganizerKeys{cost: cost}
}

// Generate returns a new random key and its hash.
func (k *OrganizerKeys) Generate() (key, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate organizer key: %w", err)
	}
	key = base64.RawURLEncoding.EncodeToString(buf)

	h, err := bcrypt.GenerateFromPassword([]byte(key), k.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash organizer key: %w", err)
	}
	return key, string(h), nil
}

// Check returns ErrUnauthorized unless key matches hash.
func (k *OrganizerKeys) Check(hash, key string) error {
	if key == "" {
		return fmt.Errorf("%w: organizer key required", common.ErrUnauthorized)
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return fmt.Errorf("%w: wrong organizer key", common.ErrUnauthorized)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}
	return nil
}
