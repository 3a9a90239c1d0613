package provider_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stealthnote/internal/domain"
	"stealthnote/internal/provider"
	"stealthnote/internal/testutil"
)

func TestHTTPKeySource_FetchesPublishedKeys(t *testing.T) {
	iss := testutil.NewIssuer(t)
	src := provider.NewHTTPKeySource(iss.Server.Client())

	set, err := src.FetchKeys(context.Background(), iss.Provider)
	require.NoError(t, err)
	_, ok := set.Lookup(iss.KeyID())
	assert.True(t, ok)
	assert.Equal(t, iss.Provider.ID, set.Provider)
}

func TestHTTPKeySource_FailuresAreTransient(t *testing.T) {
	iss := testutil.NewIssuer(t)
	iss.FailFetches(true)
	src := provider.NewHTTPKeySource(iss.Server.Client())

	_, err := src.FetchKeys(context.Background(), iss.Provider)
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestParseJWKS_SkipsUnusableKeys(t *testing.T) {
	_, err := provider.ParseJWKS([]byte(`{"keys":[{"kty":"EC","kid":"x"}]}`))
	require.Error(t, err)
	_, err = provider.ParseJWKS([]byte(`not json`))
	require.Error(t, err)
}

func TestKeyCache_RotationRetainsRetiredKeys(t *testing.T) {
	iss := testutil.NewIssuer(t)
	reg := iss.Registry(t)
	now := time.Now()
	clock := func() time.Time { return now }
	ring := provider.NewKeyring(reg, provider.NewHTTPKeySource(iss.Server.Client()), nil,
		provider.WithClock(clock), provider.WithRetention(time.Hour))
	cache, err := ring.Cache(iss.Provider.ID)
	require.NoError(t, err)

	first := iss.KeyID()
	require.NoError(t, cache.Refresh(context.Background()))
	assert.True(t, cache.TrustedSince(first, now))

	iss.Rotate(t)
	iss.Unpublish(first)
	now = now.Add(10 * time.Minute)
	require.NoError(t, cache.Refresh(context.Background()))

	_, current := cache.Lookup(first)
	assert.False(t, current)
	assert.True(t, cache.TrustedSince(first, now.Add(-time.Minute)))
	assert.False(t, cache.TrustedSince(first, now.Add(time.Minute)))

	now = now.Add(2 * time.Hour)
	require.NoError(t, cache.Refresh(context.Background()))
	assert.False(t, cache.TrustedSince(first, time.Time{}))
}

func TestKeyCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	iss := testutil.NewIssuer(t)
	var observed []error
	ring := provider.NewKeyring(iss.Registry(t), provider.NewHTTPKeySource(iss.Server.Client()), nil,
		provider.WithObserver(func(_ domain.ProviderID, err error) { observed = append(observed, err) }))

	_, err := ring.Keys(context.Background(), iss.Provider.ID)
	require.NoError(t, err)

	iss.FailFetches(true)
	require.Error(t, ring.RefreshAll(context.Background()))

	set, err := ring.Keys(context.Background(), iss.Provider.ID)
	require.NoError(t, err)
	_, ok := set.Lookup(iss.KeyID())
	assert.True(t, ok)
	require.Len(t, observed, 2)
	assert.NoError(t, observed[0])
	assert.Error(t, observed[1])
}

func TestKeyCache_ConcurrentReadersSeeWholeSets(t *testing.T) {
	iss := testutil.NewIssuer(t)
	ring := provider.NewKeyring(iss.Registry(t), provider.NewHTTPKeySource(iss.Server.Client()), nil)
	cache, err := ring.Cache(iss.Provider.ID)
	require.NoError(t, err)
	require.NoError(t, cache.Refresh(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				set, ok := cache.Current()
				if !ok || len(set.Keys) == 0 {
					t.Error("reader observed an empty key set")
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Refresh(context.Background()))
	}
	cancel()
	wg.Wait()
}

func TestKeyring_UnknownProvider(t *testing.T) {
	iss := testutil.NewIssuer(t)
	ring := provider.NewKeyring(iss.Registry(t), provider.NewHTTPKeySource(nil), nil)
	_, err := ring.Keys(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrUnknownProvider)
}
