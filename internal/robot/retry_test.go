package robot

import (
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(nil, nil)

	delay, ok := p.Approve()
	require.True(t, ok)
	assert.Equal(t, DefaultRetryDelay, delay)
}

func TestConstantDelayZeroMeansImmediate(t *testing.T) {
	p := NewRetryPolicy(nil, ConstantDelay(0))

	delay, ok := p.Approve()
	require.True(t, ok)
	assert.Equal(t, time.Duration(0), delay)
}

func TestRetryPolicyPredicate(t *testing.T) {
	allowed := false
	p := NewRetryPolicy(func() (bool, error) { return allowed, nil }, ConstantDelay(time.Second))

	_, ok := p.Approve()
	assert.False(t, ok)

	// O predicado é reavaliado a cada queda, com o estado mais recente
	allowed = true
	delay, ok := p.Approve()
	require.True(t, ok)
	assert.Equal(t, time.Second, delay)
}

func TestRetryPolicyPredicateError(t *testing.T) {
	p := NewRetryPolicy(func() (bool, error) {
		return true, errors.New("estado inacessível")
	}, ConstantDelay(time.Second))

	_, ok := p.Approve()
	assert.False(t, ok)
}

func TestNilPolicyNeverApproves(t *testing.T) {
	var p *RetryPolicy
	_, ok := p.Approve()
	assert.False(t, ok)
}

func TestExponentialDelayNeverGivesUp(t *testing.T) {
	p := NewRetryPolicy(nil, ExponentialDelay(10*time.Millisecond, 500*time.Millisecond))

	for i := 0; i < 100; i++ {
		delay, ok := p.Approve()
		require.True(t, ok, "tentativa %d", i)
		require.NotEqual(t, backoff.Stop, delay)
	}
}

func TestRetryPolicyResetRestartsCurve(t *testing.T) {
	p := NewRetryPolicy(nil, ExponentialDelay(10*time.Millisecond, 10*time.Second))

	var last time.Duration
	for i := 0; i < 8; i++ {
		last, _ = p.Approve()
	}
	require.Greater(t, last, 50*time.Millisecond)

	p.Reset()
	delay, ok := p.Approve()
	require.True(t, ok)
	// Com randomização de 50%, a primeira espera fica perto do inicial
	assert.Less(t, delay, 50*time.Millisecond)
}
