package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBoundedRetry(t *testing.T) {
	p := NewBoundedRetry(1)
	assert.True(t, p.Allows(1))
	assert.True(t, p.Allows(2))
	assert.False(t, p.Allows(3))

	none := NewBoundedRetry(-3)
	assert.True(t, none.Allows(1))
	assert.False(t, none.Allows(2))
	assert.Equal(t, time.Duration(0), none.Delay(4))
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff(time.Second, 10*time.Second)
	assert.Equal(t, time.Duration(0), b(0))
	assert.Equal(t, time.Second, b(1))
	assert.Equal(t, 2*time.Second, b(2))
	assert.Equal(t, 8*time.Second, b(4))
	assert.Equal(t, 10*time.Second, b(5))
	assert.Equal(t, 10*time.Second, b(60))
}

func TestRetryPolicy_NilBackoff(t *testing.T) {
	assert.Equal(t, time.Duration(0), RetryPolicy{MaxAttempts: 2}.Delay(3))
}
