package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitporter/gitporter/internal/provider"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	store := NewStore(ttl)
	t.Cleanup(store.Close)
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store := newTestStore(t, time.Hour)

	sess := store.Create(42)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, int64(42), sess.UserID)

	assert.Same(t, sess, store.Get(sess.ID))
	assert.Nil(t, store.Get("unknown"))

	store.Delete(sess.ID)
	assert.Nil(t, store.Get(sess.ID))
}

func TestStoreExpiry(t *testing.T) {
	store := newTestStore(t, 10*time.Millisecond)

	sess := store.Create(1)
	time.Sleep(30 * time.Millisecond)
	assert.Nil(t, store.Get(sess.ID), "expired session still retrievable")
}

func TestCredentialLifecycle(t *testing.T) {
	store := newTestStore(t, time.Hour)
	sess := store.Create(1)

	assert.Nil(t, sess.Credential(provider.KindGitHub))

	cred := &provider.Credential{Kind: provider.KindGitHub, AccessToken: "tok", Username: "mona"}
	sess.SetCredential(cred)
	require.NotNil(t, sess.Credential(provider.KindGitHub))
	assert.Equal(t, "mona", sess.Credential(provider.KindGitHub).Username)

	// Credentials are provider-scoped.
	assert.Nil(t, sess.Credential(provider.KindGitLab))

	sess.ClearCredential(provider.KindGitHub)
	assert.Nil(t, sess.Credential(provider.KindGitHub))
}

func TestOAuthStateSingleUse(t *testing.T) {
	store := newTestStore(t, time.Hour)
	sess := store.Create(1)

	state := sess.BeginOAuth(provider.KindGitHub)
	require.NotEmpty(t, state)

	assert.False(t, sess.ConsumeOAuthState(provider.KindGitHub, "wrong"))
	// The mismatch burned the nonce; the right value no longer works either.
	assert.False(t, sess.ConsumeOAuthState(provider.KindGitHub, state))

	state = sess.BeginOAuth(provider.KindGitHub)
	assert.True(t, sess.ConsumeOAuthState(provider.KindGitHub, state))
	assert.False(t, sess.ConsumeOAuthState(provider.KindGitHub, state), "nonce consumed twice")
}

func TestUserMapAndSeeds(t *testing.T) {
	store := newTestStore(t, time.Hour)
	sess := store.Create(1)

	assert.Nil(t, sess.UserMap(provider.KindFogBugz))
	sess.SetUserMap(provider.KindFogBugz, map[string]int64{"2": 7})
	assert.Equal(t, map[string]int64{"2": 7}, sess.UserMap(provider.KindFogBugz))

	// The returned map is a copy.
	m := sess.UserMap(provider.KindFogBugz)
	m["2"] = 99
	assert.Equal(t, int64(7), sess.UserMap(provider.KindFogBugz)["2"])

	seeds := []provider.RemoteRepository{{ID: "p/a", FullName: "p/a"}}
	authors := []provider.RemoteAuthor{{ID: "alice@gmail.com"}}
	sess.SetSeeds(provider.KindManifest, seeds, authors)
	assert.Len(t, sess.Seeds(provider.KindManifest), 1)
	assert.Len(t, sess.SeedAuthors(provider.KindManifest), 1)
}

func TestRevoke(t *testing.T) {
	store := newTestStore(t, time.Hour)
	sess := store.Create(1)

	sess.SetCredential(&provider.Credential{Kind: provider.KindFogBugz, AccessToken: "tok"})
	sess.SetUserMap(provider.KindFogBugz, map[string]int64{"1": 1})

	sess.Revoke(provider.KindFogBugz)
	assert.Nil(t, sess.Credential(provider.KindFogBugz))
	assert.Nil(t, sess.UserMap(provider.KindFogBugz))
}
