package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eraiiz/internal/client/session"
	"eraiiz/internal/shared/models"
)

type fakeSession struct {
	exp   atomic.Value // time.Time
	token atomic.Value // string
}

func newFakeSession(exp time.Time) *fakeSession {
	f := &fakeSession{}
	f.exp.Store(exp)
	f.token.Store("tok")
	return f
}

func (f *fakeSession) ExpiresAt() (time.Time, bool) {
	t := f.exp.Load().(time.Time)
	return t, !t.IsZero()
}

func (f *fakeSession) AccessToken() (string, bool) {
	s := f.token.Load().(string)
	return s, s != ""
}

func (f *fakeSession) Clear() error {
	f.token.Store("")
	f.exp.Store(time.Time{})
	return nil
}

type fakeRefresher struct {
	calls atomic.Int64
	err   error
	sess  *fakeSession
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls.Add(1)
	if f.err != nil {
		return f.err
	}
	if f.sess != nil {
		f.sess.exp.Store(time.Now().Add(time.Hour))
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool, within time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", within, msg)
}

func TestIdleTimeoutForcesLogoutOnce(t *testing.T) {
	sess := newFakeSession(time.Now().Add(time.Hour))
	var logouts atomic.Int64
	m := New(sess, &fakeRefresher{}, func() { logouts.Add(1) }, Config{
		CheckInterval: 10 * time.Millisecond,
		IdleTimeout:   30 * time.Millisecond,
	})
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return logouts.Load() == 1 }, time.Second, "idle logout")
	_, ok := sess.AccessToken()
	assert.False(t, ok, "credentials must be gone after idle logout")
	// terminal: no further activity, counter stays at one
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, logouts.Load())
}

func TestIdleLogoutClearsStore(t *testing.T) {
	store, err := session.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.SetSession(
		models.TokenPair{AccessToken: "tok", RefreshToken: "ref"},
		models.User{ID: "u1", Email: "u@example.com"}))

	var logouts atomic.Int64
	m := New(store, &fakeRefresher{}, func() { logouts.Add(1) }, Config{
		CheckInterval: 10 * time.Millisecond,
		IdleTimeout:   30 * time.Millisecond,
	})
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return logouts.Load() == 1 }, time.Second, "idle logout")
	_, ok := store.AccessToken()
	assert.False(t, ok, "access token still on disk after idle logout")
	_, ok = store.RefreshToken()
	assert.False(t, ok, "refresh token still on disk after idle logout")
}

func TestActivityPreventsIdleLogout(t *testing.T) {
	sess := newFakeSession(time.Now().Add(time.Hour))
	var logouts atomic.Int64
	m := New(sess, &fakeRefresher{}, func() { logouts.Add(1) }, Config{
		CheckInterval: 10 * time.Millisecond,
		IdleTimeout:   60 * time.Millisecond,
	})
	m.Start()

	// keep touching just before the threshold, the 29m59s analogue
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		m.Touch()
	}
	assert.Zero(t, logouts.Load(), "activity inside the window must not log out")
	m.Stop()
}

func TestProactiveRefreshNearExpiry(t *testing.T) {
	sess := newFakeSession(time.Now().Add(20 * time.Millisecond))
	ref := &fakeRefresher{sess: sess}
	var logouts atomic.Int64
	m := New(sess, ref, func() { logouts.Add(1) }, Config{
		CheckInterval:  10 * time.Millisecond,
		IdleTimeout:    time.Hour,
		RefreshHorizon: 50 * time.Millisecond,
	})
	m.Start()
	defer m.Stop()

	waitFor(t, func() bool { return ref.calls.Load() >= 1 }, time.Second, "proactive refresh")
	assert.Zero(t, logouts.Load(), "successful refresh must not log out")
}

func TestFailedProactiveRefreshForcesLogout(t *testing.T) {
	sess := newFakeSession(time.Now().Add(20 * time.Millisecond))
	ref := &fakeRefresher{err: errors.New("refresh rejected")}
	var logouts atomic.Int64
	m := New(sess, ref, func() { logouts.Add(1) }, Config{
		CheckInterval:  10 * time.Millisecond,
		IdleTimeout:    time.Hour,
		RefreshHorizon: 50 * time.Millisecond,
	})
	m.Start()

	waitFor(t, func() bool { return logouts.Load() == 1 }, time.Second, "logout after failed refresh")
	m.Stop()
	require.EqualValues(t, 1, logouts.Load())
}

func TestStopEndsChecks(t *testing.T) {
	sess := newFakeSession(time.Now().Add(time.Hour))
	ref := &fakeRefresher{}
	m := New(sess, ref, func() {}, Config{
		CheckInterval: 5 * time.Millisecond,
		IdleTimeout:   time.Hour,
	})
	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	before := ref.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, ref.calls.Load(), "no checks after Stop")
}

func TestStopWithoutStart(t *testing.T) {
	m := New(newFakeSession(time.Now().Add(time.Hour)), &fakeRefresher{}, func() {}, Config{})
	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked with no running monitor")
	}
}
