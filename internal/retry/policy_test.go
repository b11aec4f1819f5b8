package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"git.home.luguber.info/inful/tplbuild/internal/config"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 0, p.MaxRetries)
	assert.NoError(t, p.Validate())
}

func TestFixedDelay(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, 2*time.Second, 10*time.Second, 3)
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(5))
}

func TestLinearDelayCapped(t *testing.T) {
	p := NewPolicy(config.RetryBackoffLinear, time.Second, 3*time.Second, 5)
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 3*time.Second, p.Delay(3))
	assert.Equal(t, 3*time.Second, p.Delay(10))
}

func TestExponentialDelayCapped(t *testing.T) {
	p := NewPolicy(config.RetryBackoffExponential, time.Second, 5*time.Second, 5)
	assert.Equal(t, time.Second, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 5*time.Second, p.Delay(4))
}

func TestUnknownModeFallsBackToDefault(t *testing.T) {
	p := NewPolicy("random", time.Second, 10*time.Second, 1)
	assert.Equal(t, config.RetryBackoffLinear, p.Mode)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(config.FailurePolicy{
		RetryCount:        2,
		RetryBackoff:      config.RetryBackoffExponential,
		RetryInitialDelay: "500ms",
		RetryMaxDelay:     "4s",
	})
	assert.Equal(t, config.RetryBackoffExponential, p.Mode)
	assert.Equal(t, 500*time.Millisecond, p.Initial)
	assert.Equal(t, 4*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
}

func TestInitialClampedToMax(t *testing.T) {
	p := NewPolicy(config.RetryBackoffFixed, time.Minute, time.Second, 1)
	assert.Equal(t, time.Second, p.Initial)
}
