package mixes

import (
	"context"
	"errors"
	"time"

	"pinturas-backend/internal/logger"

	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
)

const (
	DefaultSweepGrace = 10 * time.Minute
	sweepLockKey      = "lock:mixes:orphan-sweep"
)

// Locker is satisfied by *redislock.Client.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// Sweeper deletes mix headers that never got items. CreateMix no longer
// leaves such rows behind; they come from older partial writes.
type Sweeper struct {
	store  Store
	grace  time.Duration
	locker Locker // optional
	log    *logrus.Logger
	now    func() time.Time
}

func NewSweeper(store Store, grace time.Duration, locker Locker, log *logrus.Logger) *Sweeper {
	if grace <= 0 {
		grace = DefaultSweepGrace
	}
	if log == nil {
		log = logger.Get()
	}
	return &Sweeper{store: store, grace: grace, locker: locker, log: log, now: time.Now}
}

// Sweep runs one pass. When another instance holds the lock it does nothing
// and returns 0.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, sweepLockKey, s.grace, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			s.log.WithField("key", sweepLockKey).Debug("orphan sweep skipped, lock held elsewhere")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		defer func() {
			if releaseErr := lock.Release(context.Background()); releaseErr != nil {
				s.log.Warn("failed to release sweep lock: " + releaseErr.Error())
			}
		}()
	}

	cutoff := s.now().Add(-s.grace)
	deleted, err := s.store.DeleteOrphans(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.WithFields(logrus.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
		}).Warn("orphan mix headers removed")
	}
	return deleted, nil
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				logger.LogError(s.log, "mixes", "Sweeper.Run", "sweep", nil, err)
			}
		}
	}
}
