package ledger

import (
	"testing"
	"time"

	"panel-auth/internal/domain"
)

func attempt(username string, success, challenged bool, at time.Time) domain.LoginAttempt {
	return domain.LoginAttempt{
		Username:          username,
		IP:                "127.0.0.1",
		Success:           success,
		ChallengeRequired: challenged,
		Timestamp:         at,
	}
}

func TestRecordEvictsOldest(t *testing.T) {
	l := New(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		l.Record(attempt("alice", false, false, now.Add(time.Duration(i)*time.Second)))
	}

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}

	recent := l.Recent(0)
	if !recent[0].Timestamp.Equal(now.Add(4 * time.Second)) {
		t.Error("newest entry should be first")
	}
	if !recent[2].Timestamp.Equal(now.Add(2 * time.Second)) {
		t.Error("oldest retained entry should be the third written after eviction")
	}
}

func TestRecentLimit(t *testing.T) {
	l := New(10)
	now := time.Now()

	for i := 0; i < 5; i++ {
		l.Record(attempt("alice", i == 2, false, now.Add(time.Duration(i)*time.Second)))
	}

	recent := l.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d entries", len(recent))
	}
	for i := 0; i < len(recent)-1; i++ {
		if recent[i].Timestamp.Before(recent[i+1].Timestamp) {
			t.Error("entries must be ordered most recent first")
		}
	}
	if !recent[0].Timestamp.Equal(now.Add(4 * time.Second)) {
		t.Error("Recent(3) should start at the newest entry")
	}
}

func TestRecentFailures(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		attempts []domain.LoginAttempt
		want     int
	}{
		{
			name: "counts consecutive failures",
			attempts: []domain.LoginAttempt{
				attempt("alice", false, false, now.Add(-3*time.Minute)),
				attempt("alice", false, false, now.Add(-2*time.Minute)),
				attempt("alice", false, false, now.Add(-time.Minute)),
			},
			want: 3,
		},
		{
			name: "success resets the count",
			attempts: []domain.LoginAttempt{
				attempt("alice", false, false, now.Add(-3*time.Minute)),
				attempt("alice", true, false, now.Add(-2*time.Minute)),
				attempt("alice", false, false, now.Add(-time.Minute)),
			},
			want: 1,
		},
		{
			name: "failures outside the window age out",
			attempts: []domain.LoginAttempt{
				attempt("alice", false, false, now.Add(-time.Hour)),
				attempt("alice", false, false, now.Add(-time.Minute)),
			},
			want: 1,
		},
		{
			name: "challenge rejections are not guesses",
			attempts: []domain.LoginAttempt{
				attempt("alice", false, false, now.Add(-3*time.Minute)),
				attempt("alice", false, true, now.Add(-2*time.Minute)),
				attempt("alice", false, false, now.Add(-time.Minute)),
			},
			want: 2,
		},
		{
			name: "other identities do not interfere",
			attempts: []domain.LoginAttempt{
				attempt("bob", false, false, now.Add(-2*time.Minute)),
				attempt("alice", false, false, now.Add(-time.Minute)),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(100)
			for _, a := range tt.attempts {
				l.Record(a)
			}
			if got := l.RecentFailures("alice", 15*time.Minute); got != tt.want {
				t.Errorf("RecentFailures() = %d, want %d", got, tt.want)
			}
		})
	}
}
