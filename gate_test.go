package main

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestGate() (*accessGate, *fakeClock) {
	clock := newFakeClock()
	g := newAccessGate(5, 300*time.Second)
	g.now = clock.now
	return g, clock
}

var correct = secretValue{value: testSecret, set: true}

func TestAccessGate_CorrectSecretAllowed(t *testing.T) {
	g, _ := newTestGate()

	out := g.attempt("1.2.3.4", testSecret, correct)
	assert.Equal(t, outcomeAllowed, out.Result)

	_, ok := g.attempts("1.2.3.4")
	assert.False(t, ok, "success should clear the record")
}

func TestAccessGate_LocksAfterMaxFailures(t *testing.T) {
	g, clock := newTestGate()
	client := "10.0.0.1"

	for i := 1; i <= 5; i++ {
		out := g.attempt(client, "wrong", correct)
		require.Equal(t, outcomeDenied, out.Result, "attempt %d", i)
		assert.Equal(t, "Wrong password.", out.Message)
		n, _ := g.attempts(client)
		assert.Equal(t, i, n)
		clock.advance(time.Second)
	}

	// The correct secret is refused while locked, and not counted
	out := g.attempt(client, testSecret, correct)
	require.Equal(t, outcomeRateLimited, out.Result)
	assert.Contains(t, out.Message, "Too many login attempts")
	n, _ := g.attempts(client)
	assert.Equal(t, 5, n)

	first := out.Remaining
	clock.advance(10 * time.Second)
	out = g.attempt(client, "wrong", correct)
	require.Equal(t, outcomeRateLimited, out.Result)
	assert.Less(t, out.Remaining, first)
	assert.Equal(t, first-10*time.Second, out.Remaining)
}

func TestAccessGate_RemainingMessage(t *testing.T) {
	g, clock := newTestGate()
	for i := 0; i < 5; i++ {
		g.attempt("c", "wrong", correct)
	}
	clock.advance(100 * time.Second)

	out := g.attempt("c", "wrong", correct)
	assert.Equal(t, 200*time.Second, out.Remaining)
	assert.Equal(t, "Too many login attempts. Try again in 200 seconds.", out.Message)
}

func TestAccessGate_CooldownResets(t *testing.T) {
	g, clock := newTestGate()
	client := "10.0.0.2"
	for i := 0; i < 5; i++ {
		g.attempt(client, "wrong", correct)
	}
	require.Equal(t, outcomeRateLimited, g.status(client).Result)

	clock.advance(300 * time.Second)

	assert.Equal(t, outcomeAllowed, g.status(client).Result)
	n, ok := g.attempts(client)
	require.True(t, ok)
	assert.Equal(t, 0, n)

	out := g.attempt(client, "wrong", correct)
	assert.Equal(t, outcomeDenied, out.Result)
	n, _ = g.attempts(client)
	assert.Equal(t, 1, n)
}

func TestAccessGate_SuccessAfterFailuresClears(t *testing.T) {
	g, _ := newTestGate()
	for i := 0; i < 4; i++ {
		g.attempt("c", "wrong", correct)
	}
	assert.Equal(t, outcomeAllowed, g.attempt("c", testSecret, correct).Result)

	_, ok := g.attempts("c")
	assert.False(t, ok)
	assert.Equal(t, outcomeDenied, g.attempt("c", "wrong", correct).Result)
	n, _ := g.attempts("c")
	assert.Equal(t, 1, n)
}

func TestAccessGate_ClientsAreIndependent(t *testing.T) {
	g, _ := newTestGate()
	for i := 0; i < 5; i++ {
		g.attempt("a", "wrong", correct)
	}
	assert.Equal(t, outcomeRateLimited, g.status("a").Result)
	assert.Equal(t, outcomeAllowed, g.attempt("b", testSecret, correct).Result)
}

func TestAccessGate_UnsetSecretNeverMatches(t *testing.T) {
	g, _ := newTestGate()
	for _, provided := range []string{"", "anything"} {
		out := g.attempt("c", provided, secretValue{})
		assert.Equal(t, outcomeDenied, out.Result, "provided %q", provided)
	}
	assert.Equal(t, outcomeDenied, g.attempt("d", "", secretValue{value: "", set: true}).Result)
}

func TestAccessGate_Concurrent(t *testing.T) {
	g := newAccessGate(5, time.Hour)

	var wg sync.WaitGroup
	results := make(chan gateResult, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- g.attempt("shared", "wrong", correct).Result
		}()
	}
	wg.Wait()
	close(results)

	var denied, limited int
	for r := range results {
		switch r {
		case outcomeDenied:
			denied++
		case outcomeRateLimited:
			limited++
		}
	}
	assert.Equal(t, 5, denied, "exactly maxAttempts attempts are counted")
	assert.Equal(t, 45, limited)
	n, _ := g.attempts("shared")
	assert.Equal(t, 5, n)
}

func TestSecretValue_Matches(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testSecret), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name     string
		secret   secretValue
		provided string
		want     bool
	}{
		{"plain match", secretValue{value: testSecret, set: true}, testSecret, true},
		{"plain mismatch", secretValue{value: testSecret, set: true}, testSecret + "x", false},
		{"bcrypt match", secretValue{value: string(hash), set: true}, testSecret, true},
		{"bcrypt mismatch", secretValue{value: string(hash), set: true}, "nope", false},
		{"bcrypt hash itself is not the password", secretValue{value: string(hash), set: true}, string(hash), false},
		{"unset", secretValue{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.secret.matches(tt.provided))
		})
	}
}

func TestSecretFile_Load(t *testing.T) {
	dir := t.TempDir()

	missing := secretFile{path: filepath.Join(dir, "missing.txt")}
	assert.False(t, missing.load().set)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0600))
	assert.False(t, secretFile{path: empty}.load().set)

	good := filepath.Join(dir, "password.txt")
	require.NoError(t, os.WriteFile(good, []byte(testSecret+"\n"), 0600))
	v := secretFile{path: good}.load()
	assert.True(t, v.set)
	assert.Equal(t, testSecret, v.value)
}

func TestAccessGate_StatusDoesNotTrackClients(t *testing.T) {
	g, _ := newTestGate()
	for i := 0; i < 10; i++ {
		assert.Equal(t, outcomeAllowed, g.status("viewer").Result)
	}
	_, ok := g.attempts("viewer")
	assert.False(t, ok, "showing the form must not create a record")
	assert.Empty(t, g.records)

	g.attempt("poster", "wrong", correct)
	assert.Len(t, g.records, 1)
}
