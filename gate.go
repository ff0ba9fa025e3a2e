package main

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultMaxAttempts = 5
	defaultCooldown    = 300 * time.Second
)

type gateResult int

const (
	outcomeAllowed gateResult = iota
	outcomeDenied
	outcomeRateLimited
)

// gateOutcome is the answer to one login attempt.
type gateOutcome struct {
	Result    gateResult
	Message   string
	Remaining time.Duration // set for outcomeRateLimited
}

// attemptRecord counts attempts from one client since the last reset.
type attemptRecord struct {
	count int
	last  time.Time
}

// accessGate limits login attempts per client identity. A client with
// maxAttempts recorded attempts is locked until cooldown has passed since
// its last attempt; the reset happens lazily on the next request.
type accessGate struct {
	mu          sync.Mutex
	records     map[string]*attemptRecord
	maxAttempts int
	cooldown    time.Duration
	now         func() time.Time
}

func newAccessGate(maxAttempts int, cooldown time.Duration) *accessGate {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &accessGate{
		records:     make(map[string]*attemptRecord),
		maxAttempts: maxAttempts,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// lockedLocked reports the remaining cooldown for clientID, resetting an
// expired lock. It never creates a record. g.mu must be held.
func (g *accessGate) lockedLocked(clientID string, now time.Time) (time.Duration, bool) {
	rec, ok := g.records[clientID]
	if !ok || rec.count < g.maxAttempts {
		return 0, false
	}
	elapsed := now.Sub(rec.last)
	if elapsed < g.cooldown {
		return g.cooldown - elapsed, true
	}
	rec.count = 0
	rec.last = now
	return 0, false
}

// status is the read side used when the login form is shown.
func (g *accessGate) status(clientID string) gateOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if remaining, locked := g.lockedLocked(clientID, g.now()); locked {
		return rateLimited(remaining)
	}
	return gateOutcome{Result: outcomeAllowed}
}

// attempt records one login attempt and validates the provided secret.
// The counter is bumped before validation; locked clients are refused
// without being counted again.
func (g *accessGate) attempt(clientID, provided string, expected secretValue) gateOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if remaining, locked := g.lockedLocked(clientID, now); locked {
		return rateLimited(remaining)
	}

	rec, ok := g.records[clientID]
	if !ok {
		rec = &attemptRecord{}
		g.records[clientID] = rec
	}
	rec.count++
	rec.last = now

	if expected.matches(provided) {
		delete(g.records, clientID)
		return gateOutcome{Result: outcomeAllowed}
	}
	return gateOutcome{Result: outcomeDenied, Message: "Wrong password."}
}

// attempts returns the recorded attempt count for clientID.
func (g *accessGate) attempts(clientID string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	rec, ok := g.records[clientID]
	if !ok {
		return 0, false
	}
	return rec.count, true
}

func rateLimited(remaining time.Duration) gateOutcome {
	secs := int(remaining / time.Second)
	return gateOutcome{
		Result:    outcomeRateLimited,
		Remaining: remaining,
		Message:   fmt.Sprintf("Too many login attempts. Try again in %d seconds.", secs),
	}
}

// secretValue is the configured login secret. The zero value matches nothing.
type secretValue struct {
	value string
	set   bool
}

func (s secretValue) matches(provided string) bool {
	if !s.set || s.value == "" {
		return false
	}
	if isBcryptHash(s.value) {
		return bcrypt.CompareHashAndPassword([]byte(s.value), []byte(provided)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.value), []byte(provided)) == 1
}

func isBcryptHash(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}

// secretFile reads the login secret from disk on every check so it can be
// changed without a restart.
type secretFile struct {
	path string
}

// load returns the trimmed file content. A missing or empty file gives the
// zero secretValue, which no attempt can match.
func (f secretFile) load() secretValue {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: secret file %s not found, logins are disabled", f.path)
		} else {
			log.Printf("Warning: cannot read secret file %s: %v", f.path, err)
		}
		return secretValue{}
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		log.Printf("Warning: secret file %s is empty, logins are disabled", f.path)
		return secretValue{}
	}
	return secretValue{value: v, set: true}
}
