package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateZeroDelayAlwaysUnlocked(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	u := Calculate(nil, 0, now)
	assert.True(t, u.IsUnlocked)
	assert.Equal(t, 0, u.DaysRemaining)

	granted := now.Add(-time.Hour)
	u = Calculate(&granted, 0, now)
	assert.True(t, u.IsUnlocked)

	u = Calculate(&granted, -1, now)
	assert.True(t, u.IsUnlocked)
}

func TestCalculateNilGrantLockedWithFullDelay(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	u := Calculate(nil, 5, now)
	assert.False(t, u.IsUnlocked)
	assert.Equal(t, 5, u.DaysRemaining)
	assert.Nil(t, u.UnlockDate)
}

func TestCalculateElapsedDelayUnlocked(t *testing.T) {
	now := time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC)
	granted := now.AddDate(0, 0, -10)

	u := Calculate(&granted, 5, now)
	assert.True(t, u.IsUnlocked)
	assert.Equal(t, 0, u.DaysRemaining)
	if assert.NotNil(t, u.UnlockDate) {
		assert.Equal(t, granted.AddDate(0, 0, 5), *u.UnlockDate)
	}
}

func TestCalculatePendingDelayCountsDown(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	granted := now.AddDate(0, 0, -2)

	u := Calculate(&granted, 5, now)
	assert.False(t, u.IsUnlocked)
	assert.Equal(t, 3, u.DaysRemaining)
}

// Partial days round up: 12h short of the unlock date still reads as one
// day remaining.
func TestCalculateRemainingRoundsUp(t *testing.T) {
	granted := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	now := granted.AddDate(0, 0, 5).Add(-12 * time.Hour)

	u := Calculate(&granted, 5, now)
	assert.False(t, u.IsUnlocked)
	assert.Equal(t, 1, u.DaysRemaining)
}

// The boundary instant itself is unlocked.
func TestCalculateBoundaryInstantUnlocked(t *testing.T) {
	granted := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	now := granted.AddDate(0, 0, 7)

	u := Calculate(&granted, 7, now)
	assert.True(t, u.IsUnlocked)
}
