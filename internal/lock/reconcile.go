package lock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/shipledger/internal/config"
)

const keyReconcile = "shipledger:reconcile:%s:%d"

// ReconcileGuard serializes reconcile runs per target across processes.
// A nil or disabled guard admits every run.
type ReconcileGuard struct {
	locker *Locker
	policy *config.PolicyHolder
}

func NewReconcileGuard(locker *Locker, policy *config.PolicyHolder) *ReconcileGuard {
	if locker == nil {
		return nil
	}
	return &ReconcileGuard{locker: locker, policy: policy}
}

func (g *ReconcileGuard) Enabled() bool {
	return g != nil && g.locker != nil
}

// Acquire returns a release func when the lock was taken. ok is false when
// another run holds the target.
func (g *ReconcileGuard) Acquire(ctx context.Context, kind string, id int64) (release func(), ok bool, err error) {
	if !g.Enabled() {
		return func() {}, true, nil
	}

	key := ReconcileKey(kind, id)
	token, ok, err := g.locker.TryLock(ctx, key, g.ttl())
	if err != nil || !ok {
		return func() {}, ok, err
	}
	return func() {
		// the caller's ctx may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = g.locker.Release(releaseCtx, key, token)
	}, true, nil
}

func (g *ReconcileGuard) ttl() time.Duration {
	if g.policy != nil {
		if ttl := g.policy.Get().Reconcile.LockTTL; ttl > 0 {
			return ttl
		}
	}
	return config.DefaultPolicy().Reconcile.LockTTL
}

func ReconcileKey(kind string, id int64) string {
	return fmt.Sprintf(keyReconcile, strings.TrimSpace(kind), id)
}
