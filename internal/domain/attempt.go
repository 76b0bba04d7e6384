package domain

import "time"

// LoginAttempt is one entry in the bounded login attempt log.
// ChallengeRequired marks rejections where a captcha was demanded but not
// satisfied; those are not password guesses.
type LoginAttempt struct {
	Username          string
	IP                string
	Success           bool
	ChallengeRequired bool
	Timestamp         time.Time
}
