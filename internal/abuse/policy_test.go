package abuse

import (
	"testing"
	"time"

	"panel-auth/internal/domain"
	"panel-auth/internal/ledger"
)

func recordFailures(l *ledger.Ledger, username string, n int) {
	for i := 0; i < n; i++ {
		l.Record(domain.LoginAttempt{
			Username:  username,
			IP:        "127.0.0.1",
			Timestamp: time.Now(),
		})
	}
}

func TestRequiresChallenge(t *testing.T) {
	l := ledger.New(100)
	p := New(l, 5, 15*time.Minute)

	recordFailures(l, "alice", 4)
	if p.RequiresChallenge("alice") {
		t.Error("below threshold should not require a challenge")
	}

	recordFailures(l, "alice", 1)
	if !p.RequiresChallenge("alice") {
		t.Error("at threshold a challenge must be required")
	}

	if p.RequiresChallenge("bob") {
		t.Error("another identity should be unaffected")
	}
}

func TestSuccessDisarms(t *testing.T) {
	l := ledger.New(100)
	p := New(l, 5, 15*time.Minute)

	recordFailures(l, "alice", 6)
	if !p.RequiresChallenge("alice") {
		t.Fatal("threshold exceeded, challenge expected")
	}

	l.Record(domain.LoginAttempt{Username: "alice", Success: true, Timestamp: time.Now()})
	if p.RequiresChallenge("alice") {
		t.Error("a successful login resets the failure count")
	}
}

func TestDefaults(t *testing.T) {
	p := New(ledger.New(10), 0, 0)
	if p.threshold != DefaultThreshold || p.window != DefaultWindow {
		t.Errorf("got threshold=%d window=%v, want defaults", p.threshold, p.window)
	}
}
