package abuse

import (
	"time"

	"panel-auth/internal/ledger"
)

const (
	// DefaultThreshold is how many failed guesses arm the challenge.
	DefaultThreshold = 5
	// DefaultWindow is how far back failed guesses are counted.
	DefaultWindow = 15 * time.Minute
)

// Policy decides when a login attempt must carry a captcha challenge.
// It only reads the attempt ledger and keeps no state of its own, so a
// decision is always a fresh function of the recent window.
type Policy struct {
	attempts  *ledger.Ledger
	threshold int
	window    time.Duration
}

// New creates a policy over the given ledger. Non-positive threshold or
// window fall back to the defaults.
func New(attempts *ledger.Ledger, threshold int, window time.Duration) *Policy {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Policy{attempts: attempts, threshold: threshold, window: window}
}

// RequiresChallenge reports whether the next login attempt for username
// must present a valid challenge.
func (p *Policy) RequiresChallenge(username string) bool {
	return p.attempts.RecentFailures(username, p.window) >= p.threshold
}
