package captcha

import (
	"strings"
	"testing"
	"time"
)

func issueWithAnswer(t *testing.T, s *Store) (id, answer string) {
	t.Helper()
	id, image, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !strings.HasPrefix(image, "data:image/") {
		t.Errorf("image should be a data URI, got %q", image[:min(len(image), 20)])
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[id]
	if !ok {
		t.Fatalf("challenge %q not stored", id)
	}
	return id, ch.answer
}

func TestVerify(t *testing.T) {
	s := NewStore(5 * time.Minute)

	id, answer := issueWithAnswer(t, s)
	if !s.Verify(id, answer) {
		t.Error("correct answer should verify")
	}
}

func TestVerifyCaseInsensitive(t *testing.T) {
	s := NewStore(5 * time.Minute)

	id, answer := issueWithAnswer(t, s)
	if !s.Verify(id, "  "+strings.ToUpper(answer)+" ") {
		t.Error("answer comparison should fold case and trim spaces")
	}
}

func TestVerifyConsumesOnFirstAttempt(t *testing.T) {
	s := NewStore(5 * time.Minute)

	id, answer := issueWithAnswer(t, s)
	if s.Verify(id, "definitely wrong") {
		t.Fatal("wrong answer should not verify")
	}
	// first attempt consumed the challenge, the right answer is too late now
	if s.Verify(id, answer) {
		t.Error("consumed challenge should never verify again")
	}
}

func TestVerifyNeverTwice(t *testing.T) {
	s := NewStore(5 * time.Minute)

	id, answer := issueWithAnswer(t, s)
	if !s.Verify(id, answer) {
		t.Fatal("first verification should succeed")
	}
	if s.Verify(id, answer) {
		t.Error("second verification with the same answer should fail")
	}
}

func TestVerifyUnknownID(t *testing.T) {
	s := NewStore(5 * time.Minute)

	if s.Verify("no-such-id", "12345") {
		t.Error("unknown challenge id should fail closed")
	}
}

func TestVerifyExpired(t *testing.T) {
	s := NewStore(-time.Minute) // everything is born expired

	id, answer := issueWithAnswer(t, s)
	if s.Verify(id, answer) {
		t.Error("expired challenge should fail even with the correct answer")
	}
}

func TestPurge(t *testing.T) {
	s := NewStore(-time.Minute)

	id, _ := issueWithAnswer(t, s)
	s.Purge()

	s.mu.Lock()
	_, ok := s.challenges[id]
	remaining := len(s.challenges)
	s.mu.Unlock()

	if ok || remaining != 0 {
		t.Errorf("expired challenges should be purged, %d left", remaining)
	}
}
