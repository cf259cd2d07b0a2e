package browser_test

import (
	"context"
	"testing"
	"time"

	"github.com/maheshrc27/crosspost/internal/browser"
	"github.com/maheshrc27/crosspost/internal/browser/browsertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsLiveSessions(t *testing.T) {
	driver := &browsertest.Driver{}
	pool := browser.NewPool(driver, 2)
	ctx := context.Background()

	s1, err := pool.Acquire(ctx)
	require.NoError(t, err)
	s2, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pool.Live())

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, s1.Close())
	require.NoError(t, s1.Close(), "double close must not release twice")
	assert.EqualValues(t, 1, pool.Live())

	s3, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pool.Live())

	_ = s2.Close()
	_ = s3.Close()
	assert.EqualValues(t, 0, pool.Live())
	assert.Equal(t, 3, driver.Opened())
	assert.True(t, driver.Sessions[0].IsClosed())
}

func TestCookieRoundTrip(t *testing.T) {
	in := []browser.Cookie{{Name: "sid", Value: "abc", Domain: ".poshmark.com", Path: "/", Secure: true}}

	blob, err := browser.EncodeCookies(in)
	require.NoError(t, err)

	out, err := browser.DecodeCookies(blob)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	empty, err := browser.DecodeCookies("")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = browser.DecodeCookies("{not json")
	assert.Error(t, err)
}
