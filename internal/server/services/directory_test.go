package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adaClaims() *auth.Claims {
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "usr_1"},
		SessionID:        "sess_1",
		Email:            "ada@example.com",
		FirstName:        "Ada",
		LastName:         "Lovelace",
	}
}

func TestUserDirectory_Sync(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	d := NewUserDirectory(&sql.DB{}, &fakeRepoManager{store}, logging.Discard())

	u, err := d.Sync(ctx, adaClaims())
	require.NoError(t, err)
	assert.Equal(t, "usr_1", u.ProviderID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEmpty(t, u.ID)

	// the same user synced again keeps its record
	claims := adaClaims()
	claims.LastName = "King"
	again, err := d.Sync(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "King", again.LastName)
	assert.Len(t, store.directory, 1)
}

func TestUserDirectory_SyncRequiresSubject(t *testing.T) {
	d := NewUserDirectory(&sql.DB{}, &fakeRepoManager{newFakeStore()}, logging.Discard())

	claims := adaClaims()
	claims.Subject = ""
	_, err := d.Sync(context.Background(), claims)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}
