package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionIsExpired(t *testing.T) {
	now := time.Now()

	free := &Subscription{Plan: "free"}
	assert.False(t, free.IsExpired(now), "free subscription has no expiry")

	past := now.Add(-time.Hour)
	expired := &Subscription{Plan: "premium", ExpiresAt: &past}
	assert.True(t, expired.IsExpired(now))

	future := now.Add(time.Hour)
	active := &Subscription{Plan: "premium", ExpiresAt: &future}
	assert.False(t, active.IsExpired(now))
}
