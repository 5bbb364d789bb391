package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LockManager hands out expiring named locks inside one process. The dispatch
// engine takes "cab:<id>", "trip:<id>" and "location:<id>" keys so that two
// concurrent bookings can never claim the same cab.
//
// Expiry means a lock whose holder never released it frees itself after its
// TTL. A background sweep drops expired entries so the map does not grow with
// every cab and trip ever locked. For several server instances sharing one
// store, use redisstore.LockManager instead.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]heldLock
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

type heldLock struct {
	token  string
	expiry time.Time
}

// NewLockManager starts a sweeper that runs every sweepEvery.
func NewLockManager(sweepEvery time.Duration) *LockManager {
	if sweepEvery <= 0 {
		sweepEvery = time.Second
	}
	lm := &LockManager{
		locks: make(map[string]heldLock),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go lm.sweep(sweepEvery)
	return lm
}

// AcquireLock takes key for ttl if it is free or its previous holder's TTL
// has run out. It never blocks.
func (lm *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if l, held := lm.locks[key]; held && now.Before(l.expiry) {
		return "", false, nil
	}
	token := uuid.NewString()
	lm.locks[key] = heldLock{token: token, expiry: now.Add(ttl)}
	return token, true, nil
}

// ReleaseLock is a no-op unless key is still held under token.
func (lm *LockManager) ReleaseLock(ctx context.Context, key, token string) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if l, held := lm.locks[key]; held && l.token == token {
		delete(lm.locks, key)
	}
	return nil
}

func (lm *LockManager) IsLocked(ctx context.Context, key string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	l, held := lm.locks[key]
	return held && lm.now().Before(l.expiry), nil
}

// Held returns the number of unexpired locks.
func (lm *LockManager) Held() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	n := 0
	for _, l := range lm.locks {
		if now.Before(l.expiry) {
			n++
		}
	}
	return n
}

func (lm *LockManager) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lm.mu.Lock()
			now := lm.now()
			for key, l := range lm.locks {
				if !now.Before(l.expiry) {
					delete(lm.locks, key)
				}
			}
			lm.mu.Unlock()
		case <-lm.stop:
			return
		}
	}
}

// Stop ends the sweeper. It is safe to call more than once.
func (lm *LockManager) Stop() {
	lm.once.Do(func() { close(lm.stop) })
}
