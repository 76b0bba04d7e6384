package captcha

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mojocn/base64Captcha"
)

// challenge is a single-use human verification puzzle. The expected answer
// never leaves the server; clients only ever see the rendered image.
type challenge struct {
	answer    string
	createdAt time.Time
	expiresAt time.Time
	consumed  bool
}

// Store issues and verifies single-use, time-limited captcha challenges.
// All access to the challenge map goes through the mutex; callers never
// see the map itself.
type Store struct {
	mu         sync.Mutex
	challenges map[string]*challenge
	driver     *base64Captcha.DriverDigit
	ttl        time.Duration
}

// NewStore creates a challenge store whose challenges expire after ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		challenges: make(map[string]*challenge),
		driver:     base64Captcha.NewDriverDigit(80, 240, 5, 0.7, 80),
		ttl:        ttl,
	}
}

// Issue generates a new challenge and returns its id together with the
// rendered puzzle as a base64 image data URI.
func (s *Store) Issue() (id, image string, err error) {
	_, content, answer := s.driver.GenerateIdQuestionAnswer()
	item, err := s.driver.DrawCaptcha(content)
	if err != nil {
		return "", "", fmt.Errorf("draw captcha: %w", err)
	}

	id = uuid.New().String()
	now := time.Now()

	s.mu.Lock()
	// opportunistic cleanup bounds the map even without the purge ticker
	s.purgeLocked(now)
	s.challenges[id] = &challenge{
		answer:    answer,
		createdAt: now,
		expiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()

	return id, item.EncodeB64string(), nil
}

// Verify consumes the challenge on first call regardless of outcome and
// compares the submitted answer case-insensitively. Unknown, consumed and
// expired challenges fail closed.
func (s *Store) Verify(id, answer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[id]
	if !ok || ch.consumed || time.Now().After(ch.expiresAt) {
		return false
	}
	ch.consumed = true

	return strings.EqualFold(strings.TrimSpace(answer), ch.answer)
}

// Purge drops expired and consumed challenges. Safe to run concurrently
// with Issue and Verify.
func (s *Store) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(time.Now())
}

func (s *Store) purgeLocked(now time.Time) {
	for id, ch := range s.challenges {
		if ch.consumed || now.After(ch.expiresAt) {
			delete(s.challenges, id)
		}
	}
}
