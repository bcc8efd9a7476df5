package session

import (
	"time"

	"github.com/MrEthical07/goCaptcha/challenge"
)

// Session is one challenge lifecycle: created, challenged once, then verified or expired.
//
// Answer is set iff CaptchaType is set. Locked implies a non-zero LockUntil.
type Session struct {
	Token         string
	CreatedAt     time.Time
	IPFingerprint [32]byte

	CaptchaType          challenge.Kind
	Answer               challenge.Answer
	ChallengeGeneratedAt time.Time

	Attempts  int
	Locked    bool
	LockUntil time.Time
}

// Challenged reports whether a challenge has been issued for the session.
func (s *Session) Challenged() bool {
	return s.CaptchaType != challenge.KindNone
}

// Age returns how long ago the session was created.
func (s *Session) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Patch lists the fields [Store.Update] may change. Nil fields are left untouched.
type Patch struct {
	CaptchaType          *challenge.Kind
	Answer               *challenge.Answer
	ChallengeGeneratedAt *time.Time
	Locked               *bool
	LockUntil            *time.Time
}

func (p Patch) apply(s *Session) {
	if p.CaptchaType != nil {
		s.CaptchaType = *p.CaptchaType
	}
	if p.Answer != nil {
		s.Answer = p.Answer.Clone()
	}
	if p.ChallengeGeneratedAt != nil {
		s.ChallengeGeneratedAt = *p.ChallengeGeneratedAt
	}
	if p.Locked != nil {
		s.Locked = *p.Locked
	}
	if p.LockUntil != nil {
		s.LockUntil = *p.LockUntil
	}
}
