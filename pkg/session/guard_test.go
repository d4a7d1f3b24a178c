package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	creds   Credentials
	err     error
}

func (s *stubRefresher) Refresh(ctx context.Context, refreshToken string) (Credentials, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.err != nil {
		return Credentials{}, s.err
	}
	return s.creds, nil
}

func tokenCall(valid string, attempts *atomic.Int32) Call {
	return func(ctx context.Context, token string) error {
		if attempts != nil {
			attempts.Add(1)
		}
		if token != valid {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "token rejected")
		}
		return nil
	}
}

func TestGuardPassesThroughSuccess(t *testing.T) {
	refresher := &stubRefresher{}
	guard := NewGuard(NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"}), refresher, nil)

	var attempts atomic.Int32
	require.NoError(t, guard.Do(context.Background(), tokenCall("a1", &attempts)))
	assert.EqualValues(t, 1, attempts.Load())
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestGuardNonAuthErrorsAreNotRetried(t *testing.T) {
	refresher := &stubRefresher{}
	guard := NewGuard(NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"}), refresher, nil)

	boom := errors.New("boom")
	var attempts int
	err := guard.Do(context.Background(), func(ctx context.Context, token string) error {
		attempts++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestGuardConcurrentFailuresShareOneRefresh(t *testing.T) {
	const callers = 8
	refresher := &stubRefresher{
		release: make(chan struct{}),
		creds:   Credentials{AccessToken: "a2", RefreshToken: "r2"},
	}
	state := NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"})
	guard := NewGuard(state, refresher, nil)

	var failed sync.WaitGroup
	failed.Add(callers)
	call := func(ctx context.Context, token string) error {
		if token != "a2" {
			failed.Done()
			return ErrUnauthorized
		}
		return nil
	}

	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() { errs <- guard.Do(context.Background(), call) }()
	}

	failed.Wait()
	close(refresher.release)

	for i := 0; i < callers; i++ {
		require.NoError(t, <-errs)
	}
	assert.EqualValues(t, 1, refresher.calls.Load())

	creds, _, ok := state.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "a2", creds.AccessToken)
	assert.Equal(t, "r2", creds.RefreshToken)
}

func TestGuardRefreshFailureExpiresEveryWaiter(t *testing.T) {
	const callers = 4
	refresher := &stubRefresher{release: make(chan struct{}), err: errors.New("refresh denied")}
	state := NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"})
	guard := NewGuard(state, refresher, nil)

	var failed sync.WaitGroup
	failed.Add(callers)
	call := func(ctx context.Context, token string) error {
		failed.Done()
		return ErrUnauthorized
	}

	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() { errs <- guard.Do(context.Background(), call) }()
	}
	failed.Wait()
	close(refresher.release)

	for i := 0; i < callers; i++ {
		err := <-errs
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired), "got %v", err)
	}
	assert.EqualValues(t, 1, refresher.calls.Load())
	assert.False(t, state.Valid())

	err := guard.Do(context.Background(), tokenCall("a1", nil))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired))
}

func TestGuardRetriesAtMostOnce(t *testing.T) {
	refresher := &stubRefresher{creds: Credentials{AccessToken: "a2"}}
	guard := NewGuard(NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"}), refresher, nil)

	var attempts atomic.Int32
	err := guard.Do(context.Background(), tokenCall("never", &attempts))
	assert.True(t, IsUnauthorized(err))
	assert.EqualValues(t, 2, attempts.Load())
	assert.EqualValues(t, 1, refresher.calls.Load())
}

func TestGuardSkipsRefreshWhenAlreadyRotated(t *testing.T) {
	refresher := &stubRefresher{creds: Credentials{AccessToken: "a3"}}
	state := NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"})
	guard := NewGuard(state, refresher, nil)

	err := guard.Do(context.Background(), func(ctx context.Context, token string) error {
		if token == "a1" {
			state.replace(Credentials{AccessToken: "a2", RefreshToken: "r2"})
			return ErrUnauthorized
		}
		if token == "a2" {
			return nil
		}
		return ErrUnauthorized
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, refresher.calls.Load())
}

func TestGuardCallerCancelDoesNotAbortRefresh(t *testing.T) {
	refresher := &stubRefresher{
		release: make(chan struct{}),
		creds:   Credentials{AccessToken: "a2", RefreshToken: "r2"},
	}
	state := NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"})
	guard := NewGuard(state, refresher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- guard.Do(ctx, tokenCall("a2", nil)) }()

	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(refresher.release)
	require.Eventually(t, func() bool {
		creds, _, _ := state.Snapshot()
		return creds.AccessToken == "a2"
	}, time.Second, 5*time.Millisecond)
}

func TestGuardWithoutRefreshTokenExpires(t *testing.T) {
	guard := NewGuard(NewState(Credentials{AccessToken: "a1"}), &stubRefresher{}, nil)
	err := guard.Do(context.Background(), tokenCall("a2", nil))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSessionExpired))
	assert.False(t, guard.State().Valid())
}

func TestStateReplaceKeepsRefreshToken(t *testing.T) {
	state := NewState(Credentials{AccessToken: "a1", RefreshToken: "r1"})
	_, before, _ := state.Snapshot()
	after := state.replace(Credentials{AccessToken: "a2"})
	creds, _, ok := state.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "r1", creds.RefreshToken)
	assert.Greater(t, after, before)
}
