package services

import "time"

// SetTokenClock replaces the clock used to issue and redeem checkout tokens.
func SetTokenClock(t *CheckoutTokens, now func() time.Time) {
	t.now = now
}
