package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gravadigital/drawnames-api/internal/domain/common"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(secret, time.Hour)
	eventID, participantID := uuid.New(), uuid.New()

	token, err := issuer.Issue(eventID, participantID)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, eventID.String(), claims.EventID)
	got, err := claims.ParticipantID()
	require.NoError(t, err)
	assert.Equal(t, participantID, got)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer := NewTokenIssuer(secret, time.Hour)
	token, err := issuer.Issue(uuid.New(), uuid.New())
	require.NoError(t, err)

	other := NewTokenIssuer("another-secret-another-secret-xx", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = issuer.Parse("not-a-token")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	expired := NewTokenIssuer(secret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(token)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestOrganizerKeys(t *testing.T) {
	keys := NewOrganizerKeys(bcrypt.MinCost)

	key, hash, err := keys.Generate()
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.NotEqual(t, key, hash)

	assert.NoError(t, keys.Check(hash, key))
	assert.ErrorIs(t, keys.Check(hash, key+"x"), common.ErrUnauthorized)
	assert.ErrorIs(t, keys.Check(hash, ""), common.ErrUnauthorized)

	other, _, err := keys.Generate()
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
