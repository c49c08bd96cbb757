package brokerage_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/quantrail/corebook/internal/brokerage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_LoadMissingFileReturnsZeroValue(t *testing.T) {
	store := brokerage.NewTokenStore(filepath.Join(t.TempDir(), "missing.json"))
	creds, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, creds.AccessToken)
	assert.True(t, creds.Expired(time.Now(), 0))
}

func TestTokenStore_SaveThenLoadRoundTrips(t *testing.T) {
	store := brokerage.NewTokenStore(filepath.Join(t.TempDir(), "creds.json"))
	want := brokerage.Credentials{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		IssuedAt:     time.Now().UTC().Truncate(time.Second),
		ExpiresIn:    time.Hour,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, got.IssuedAt.Equal(want.IssuedAt))
	assert.Equal(t, want.ExpiresIn, got.ExpiresIn)
}

func TestCredentials_Expired(t *testing.T) {
	now := time.Now()
	c := brokerage.Credentials{AccessToken: "x", IssuedAt: now.Add(-50 * time.Minute), ExpiresIn: time.Hour}
	assert.False(t, c.Expired(now, 5*time.Minute))

	c.IssuedAt = now.Add(-58 * time.Minute)
	assert.True(t, c.Expired(now, 5*time.Minute))
}
