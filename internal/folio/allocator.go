// Package folio assigns per-scope sequence numbers by optimistic retry.
//
// Callers read the current maximum, try to insert max+1 and report a
// collision when the store's unique constraint rejects the row. The
// constraint is the only source of truth; nothing is cached or locked in
// process, so any number of instances may allocate concurrently.
package folio

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// MaxAttempts bounds how many candidates a single allocation may try.
const MaxAttempts = 8

var (
	// ErrCollision is returned (wrapped) by an attempt whose candidate was
	// taken by a concurrent writer.
	ErrCollision = errors.New("folio already taken")
	// ErrExhausted means every attempt collided.
	ErrExhausted = errors.New("no se pudo asignar folio")
)

// Attempt performs one read-max/insert round. n is the 1-based attempt number.
type Attempt func(ctx context.Context, n int) error

type Allocator struct {
	MaxAttempts int
	// NewBackOff builds the wait policy between collisions.
	NewBackOff func() backoff.BackOff
	Log        *logrus.Logger
	Scope      string // for log lines only, e.g. "mixes"
}

func NewAllocator(scope string, log *logrus.Logger) *Allocator {
	return &Allocator{
		MaxAttempts: MaxAttempts,
		NewBackOff:  DefaultBackOff,
		Log:         log,
		Scope:       scope,
	}
}

// DefaultBackOff waits a few jittered milliseconds between attempts so two
// colliding writers do not re-read in lockstep.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 0
	return b
}

// Run calls attempt until it succeeds, fails with something other than a
// collision, or MaxAttempts collisions happened. It returns the number of
// attempts made.
func (a *Allocator) Run(ctx context.Context, attempt Attempt) (int, error) {
	maxAttempts := a.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = MaxAttempts
	}
	newBackOff := a.NewBackOff
	if newBackOff == nil {
		newBackOff = DefaultBackOff
	}

	attempts := 0
	operation := func() error {
		attempts++
		err := attempt(ctx, attempts)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrCollision) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(maxAttempts-1)), ctx)
	err := backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		if a.Log != nil {
			a.Log.WithFields(logrus.Fields{
				"scope":   a.Scope,
				"attempt": attempts,
				"wait":    wait.String(),
			}).Debug("folio collision, retrying")
		}
	})
	if err == nil {
		return attempts, nil
	}

	if errors.Is(err, ErrCollision) {
		if a.Log != nil {
			a.Log.WithFields(logrus.Fields{
				"scope":    a.Scope,
				"attempts": attempts,
			}).Warn("folio allocation exhausted")
		}
		return attempts, ErrExhausted
	}
	return attempts, err
}
