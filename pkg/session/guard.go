package session

import (
	"context"
	"errors"

	pkgerrors "github.com/angelmondragon/marketcart/pkg/errors"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const refreshKey = "refresh"

// ErrUnauthorized can be returned by a guarded call to signal that the server
// rejected the access token. Typed errors with CodeUnauthorized work as well.
var ErrUnauthorized = errors.New("access token rejected")

// Refresher exchanges a refresh token for a new credential pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// Call is one authenticated request. It must be safe to run twice.
type Call func(ctx context.Context, accessToken string) error

// Guard runs calls with the current access token and recovers from an
// authorization failure by refreshing once. Concurrent failures share a single
// refresh and are all released with its result.
type Guard struct {
	state     *State
	refresher Refresher
	logg      *logger.Logger
	flight    singleflight.Group
}

// NewGuard wires a guard around the injected state.
func NewGuard(state *State, refresher Refresher, logg *logger.Logger) *Guard {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Guard{state: state, refresher: refresher, logg: logg}
}

// State exposes the credential state the guard reads from.
func (g *Guard) State() *State {
	return g.state
}

// Do runs call, refreshing and retrying at most once when it fails with an
// authorization error. A failed refresh ends the session for every waiter.
func (g *Guard) Do(ctx context.Context, call Call) error {
	creds, generation, ok := g.state.Snapshot()
	if !ok {
		return sessionExpired(nil)
	}

	err := call(ctx, creds.AccessToken)
	if !IsUnauthorized(err) {
		return err
	}

	if err := g.refresh(ctx, generation); err != nil {
		return err
	}

	creds, _, ok = g.state.Snapshot()
	if !ok {
		return sessionExpired(nil)
	}
	return call(ctx, creds.AccessToken)
}

func (g *Guard) refresh(ctx context.Context, failedGeneration uint64) error {
	ch := g.flight.DoChan(refreshKey, func() (any, error) {
		// The refresh outlives the caller that started it; other waiters depend on it.
		rctx := context.WithoutCancel(ctx)

		creds, generation, ok := g.state.Snapshot()
		if !ok {
			return nil, sessionExpired(nil)
		}
		if generation != failedGeneration {
			return nil, nil
		}
		if creds.RefreshToken == "" || g.refresher == nil {
			g.state.invalidate()
			return nil, sessionExpired(errors.New("no refresh token"))
		}

		fresh, err := g.refresher.Refresh(rctx, creds.RefreshToken)
		if err != nil {
			g.state.invalidate()
			g.logg.Warn(rctx, "credential refresh failed; session ended")
			return nil, sessionExpired(err)
		}
		g.state.replace(fresh)
		g.logg.Debug(rctx, "credentials refreshed")
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

// IsUnauthorized reports whether err means the access token was rejected.
func IsUnauthorized(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUnauthorized) || pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized)
}

func sessionExpired(cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, cause, "session expired")
}
