package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/integration"
	"github.com/maheshrc27/crosspost/internal/integration/integrationtest"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiConfig(p models.Platform) models.PlatformConfig {
	return models.PlatformConfig{
		Platform:       p,
		Type:           models.IntegrationTypeAPI,
		Enabled:        true,
		MaxTitleLength: 100,
		API:            models.APISettings{BaseURL: "https://api.example.com"},
	}
}

func newRegistry(t *testing.T, platforms ...models.Platform) (*Registry, *integrationtest.Factory) {
	r := New(integration.Dependencies{})
	f := &integrationtest.Factory{}
	for _, p := range platforms {
		require.NoError(t, r.Register(p, f.Constructor, apiConfig(p)))
	}
	return r, f
}

func TestGetIntegrationIsCached(t *testing.T) {
	r, f := newRegistry(t, models.PlatformFacebook, models.PlatformEtsy)

	a := r.GetIntegration(models.PlatformFacebook, 1)
	b := r.GetIntegration(models.PlatformFacebook, 1)
	require.NotNil(t, a)
	assert.Same(t, a, b)

	other := r.GetIntegration(models.PlatformFacebook, 2)
	assert.NotSame(t, a, other)
	assert.NotNil(t, r.GetIntegration(models.PlatformEtsy, 1))
	assert.Len(t, f.Built(), 3)
	assert.Len(t, r.Instances(), 3)
}

func TestUpdateConfigEvictsStaleInstances(t *testing.T) {
	r, _ := newRegistry(t, models.PlatformFacebook, models.PlatformEtsy)

	old1 := r.GetIntegration(models.PlatformFacebook, 1).(*integrationtest.Integration)
	old2 := r.GetIntegration(models.PlatformFacebook, 2).(*integrationtest.Integration)
	etsy := r.GetIntegration(models.PlatformEtsy, 1)

	cfg2 := apiConfig(models.PlatformFacebook)
	cfg2.MaxTitleLength = 25
	require.NoError(t, r.UpdateConfig(models.PlatformFacebook, cfg2))

	assert.True(t, old1.Closed())
	assert.True(t, old2.Closed())

	for _, user := range []int64{1, 2, 3} {
		fresh := r.GetIntegration(models.PlatformFacebook, user).(*integrationtest.Integration)
		assert.NotSame(t, old1, fresh)
		assert.Equal(t, 25, fresh.Cfg.MaxTitleLength)
		assert.Equal(t, 2, fresh.Cfg.Version)
	}
	assert.Same(t, etsy, r.GetIntegration(models.PlatformEtsy, 1), "other platforms keep their instances")

	cfg, ok := r.Config(models.PlatformFacebook)
	require.True(t, ok)
	assert.Equal(t, 2, cfg.Version)
}

func TestUpdateConfigRejectsMismatch(t *testing.T) {
	r, _ := newRegistry(t, models.PlatformFacebook)

	err := r.UpdateConfig(models.PlatformFacebook, apiConfig(models.PlatformEtsy))
	assert.ErrorIs(t, err, ErrConfigMismatch)

	err = r.UpdateConfig(models.PlatformEtsy, apiConfig(models.PlatformEtsy))
	assert.ErrorIs(t, err, ErrPlatformNotRegistered)

	bad := apiConfig(models.PlatformFacebook)
	bad.API.BaseURL = ""
	assert.Error(t, r.UpdateConfig(models.PlatformFacebook, bad))
}

func TestRegisterValidation(t *testing.T) {
	r := New(integration.Dependencies{})
	f := &integrationtest.Factory{}

	assert.Error(t, r.Register(models.PlatformFacebook, nil, apiConfig(models.PlatformFacebook)))
	assert.ErrorIs(t, r.Register(models.PlatformFacebook, f.Constructor, apiConfig(models.PlatformEtsy)), ErrConfigMismatch)

	bad := apiConfig(models.PlatformFacebook)
	bad.Type = "carrier-pigeon"
	assert.Error(t, r.Register(models.PlatformFacebook, f.Constructor, bad))

	require.NoError(t, r.Register(models.PlatformFacebook, f.Constructor, apiConfig(models.PlatformFacebook)))
	assert.ErrorIs(t, r.Register(models.PlatformFacebook, f.Constructor, apiConfig(models.PlatformFacebook)), ErrAlreadyRegistered)
}

func TestUnavailableIntegrations(t *testing.T) {
	r := New(integration.Dependencies{})

	_, err := r.Resolve(models.PlatformFacebook, 1)
	assert.ErrorIs(t, err, ErrPlatformNotRegistered)
	assert.Nil(t, r.GetIntegration(models.PlatformFacebook, 1))

	disabled := apiConfig(models.PlatformEtsy)
	disabled.Enabled = false
	require.NoError(t, r.Register(models.PlatformEtsy, (&integrationtest.Factory{}).Constructor, disabled))
	_, err = r.Resolve(models.PlatformEtsy, 1)
	assert.ErrorIs(t, err, ErrPlatformDisabled)

	broken := &integrationtest.Factory{Err: errors.New("missing selector")}
	require.NoError(t, r.Register(models.PlatformDepop, broken.Constructor, apiConfig(models.PlatformDepop)))
	assert.Nil(t, r.GetIntegration(models.PlatformDepop, 1))

	wrong := func(cfg models.PlatformConfig, deps integration.Dependencies) (integration.Integration, error) {
		return integrationtest.New(apiConfig(models.PlatformEbay)), nil
	}
	require.NoError(t, r.Register(models.PlatformShopify, wrong, apiConfig(models.PlatformShopify)))
	_, err = r.Resolve(models.PlatformShopify, 1)
	assert.ErrorIs(t, err, ErrConfigMismatch)
}

func TestCleanupUser(t *testing.T) {
	r, _ := newRegistry(t, models.PlatformFacebook, models.PlatformEtsy)

	fb := r.GetIntegration(models.PlatformFacebook, 7).(*integrationtest.Integration)
	etsy := r.GetIntegration(models.PlatformEtsy, 7).(*integrationtest.Integration)
	keep := r.GetIntegration(models.PlatformFacebook, 8)

	assert.Equal(t, 2, r.CleanupUser(7))
	assert.True(t, fb.Closed())
	assert.True(t, etsy.Closed())
	assert.Same(t, keep, r.GetIntegration(models.PlatformFacebook, 8))
	assert.NotSame(t, fb, r.GetIntegration(models.PlatformFacebook, 7))
	assert.Equal(t, 0, r.CleanupUser(99))
}

func TestEvictWaitsForInFlightCall(t *testing.T) {
	r, _ := newRegistry(t, models.PlatformFacebook)
	inst := r.GetIntegration(models.PlatformFacebook, 1).(*integrationtest.Integration)

	unlock := r.Lock(models.PlatformFacebook, 1)
	done := make(chan struct{})
	go func() {
		r.Evict(models.PlatformFacebook, 1)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	assert.False(t, inst.Closed(), "close must wait for the pair lock")
	unlock()

	<-done
	assert.True(t, inst.Closed())
}

func TestEvictInstanceSparesReplacement(t *testing.T) {
	r, _ := newRegistry(t, models.PlatformFacebook)
	stale := r.GetIntegration(models.PlatformFacebook, 1).(*integrationtest.Integration)

	require.True(t, r.Evict(models.PlatformFacebook, 1))
	fresh := r.GetIntegration(models.PlatformFacebook, 1).(*integrationtest.Integration)
	require.NotSame(t, stale, fresh)

	assert.False(t, r.EvictInstance(models.PlatformFacebook, 1, stale))
	assert.False(t, fresh.Closed())
	assert.Same(t, fresh, r.GetIntegration(models.PlatformFacebook, 1))

	assert.True(t, r.EvictInstance(models.PlatformFacebook, 1, fresh))
	assert.True(t, fresh.Closed())
}

func TestLockSerialisesPerPair(t *testing.T) {
	r, _ := newRegistry(t)

	var mu sync.Mutex
	active, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := r.Lock(models.PlatformFacebook, 1)
			defer unlock()
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)

	// a different pair is not blocked
	unlock := r.Lock(models.PlatformFacebook, 1)
	other := r.Lock(models.PlatformFacebook, 2)
	other()
	unlock()
}

func TestCloseDestroysEverything(t *testing.T) {
	r, _ := newRegistry(t, models.PlatformFacebook)
	inst := r.GetIntegration(models.PlatformFacebook, 1).(*integrationtest.Integration)

	r.Close()
	assert.True(t, inst.Closed())
	assert.Empty(t, r.Instances())
	assert.Len(t, r.Platforms(), 1)
}
