package pacing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/carfinder/internal/sources"
)

func TestDelayStaysInRange(t *testing.T) {
	p := NewPacer(1)
	r := sources.DelayRange{Min: time.Second, Max: 2500 * time.Millisecond}
	for i := 0; i < 200; i++ {
		d := p.Delay(r)
		assert.GreaterOrEqual(t, d, r.Min)
		assert.LessOrEqual(t, d, r.Max)
	}
	assert.Equal(t, time.Second, p.Delay(sources.DelayRange{Min: time.Second, Max: time.Second}))
	assert.Equal(t, time.Duration(0), p.Delay(sources.DelayRange{}))
	d := p.Delay(sources.DelayRange{Min: 3 * time.Second, Max: time.Second})
	assert.True(t, d >= time.Second && d <= 3*time.Second, "inverted range is swapped")
}

func TestPauseStopsOnCancel(t *testing.T) {
	p := NewPacer(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := p.Pause(ctx, sources.DelayRange{Min: time.Minute, Max: time.Minute})
	require.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
}

func TestHostLimiterSpacesRequestsPerHost(t *testing.T) {
	h := NewHostLimiter(100*time.Millisecond, 1)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, h.Wait(ctx, "example.com"))
	require.NoError(t, h.Wait(ctx, "other.example"))
	assert.Less(t, time.Since(start), 50*time.Millisecond, "distinct hosts do not share a bucket")

	require.NoError(t, h.Wait(ctx, "www.example.com"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond, "www. prefix shares the bucket")
}

func TestHostLimiterDisabledAndSlowDown(t *testing.T) {
	var nilLimiter *HostLimiter
	require.NoError(t, nilLimiter.Wait(context.Background(), "a"))
	require.NoError(t, NewHostLimiter(0, 0).Wait(context.Background(), "a"))

	h := NewHostLimiter(time.Second, 1)
	h.SlowDown("a.example", 5*time.Second)
	assert.Equal(t, rate.Every(5*time.Second), h.limiter("a.example").Limit())
	h.SlowDown("a.example", 2*time.Second)
	assert.Equal(t, rate.Every(5*time.Second), h.limiter("a.example").Limit(), "never speeds up")
}
