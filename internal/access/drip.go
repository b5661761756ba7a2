// Package access computes drip-content visibility: whether an entitlement
// is currently visible given when it was granted and the configured
// unlock delay.
package access

import (
	"math"
	"time"
)

// Unlock is the visibility verdict for one piece of dripped content.
type Unlock struct {
	IsUnlocked    bool       `json:"is_unlocked"`
	UnlockDate    *time.Time `json:"unlock_date,omitempty"`
	DaysRemaining int        `json:"days_remaining"`
}

// Calculate decides whether content is visible at now.
//
// A delay of zero (or negative) unlocks immediately. A nil grant timestamp
// with a positive delay means locked with the full delay remaining. The
// unlock date is grant + delay in calendar days (AddDate), so adding one
// day crosses a date boundary regardless of time of day.
func Calculate(grantedAt *time.Time, unlockAfterDays int, now time.Time) Unlock {
	if unlockAfterDays <= 0 {
		return Unlock{IsUnlocked: true}
	}

	if grantedAt == nil {
		return Unlock{IsUnlocked: false, DaysRemaining: unlockAfterDays}
	}

	unlockDate := grantedAt.AddDate(0, 0, unlockAfterDays)
	if !now.Before(unlockDate) {
		return Unlock{IsUnlocked: true, UnlockDate: &unlockDate}
	}

	remaining := int(math.Ceil(unlockDate.Sub(now).Hours() / 24))
	if remaining < 0 {
		remaining = 0
	}
	return Unlock{IsUnlocked: false, UnlockDate: &unlockDate, DaysRemaining: remaining}
}
