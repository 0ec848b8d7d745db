// Package lock serializes work per key (one professional, one booking).
// Local is enough for a single process; Redis extends the guarantee across
// API instances sharing one database.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped when no goroutine
// holds or waits for them.
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

func NewLocal() *Local {
	return &Local{keys: map[string]*entry{}}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(key, e, true) }) }, nil
}

func (l *Local) release(key string, e *entry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}

var ErrLockTimeout = errors.New("lock: timed out waiting for key")

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis holds keys with SET NX PX and releases them only if the token still
// matches, so an expired holder never frees someone else's lock.
type Redis struct {
	RDB    *redis.Client
	Prefix string
	TTL    time.Duration
	Wait   time.Duration
	Poll   time.Duration

	// Local narrows contention inside this process before touching Redis.
	Local *Local
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{
		RDB:    rdb,
		Prefix: "homeman:lock:",
		TTL:    10 * time.Second,
		Wait:   5 * time.Second,
		Poll:   25 * time.Millisecond,
		Local:  NewLocal(),
	}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := r.Local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	token := uuid.NewString()
	full := r.Prefix + key
	deadline := time.Now().Add(r.Wait)
	for {
		ok, err := r.RDB.SetNX(ctx, full, token, r.TTL).Result()
		if err != nil {
			unlockLocal()
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			unlockLocal()
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			unlockLocal()
			return nil, ctx.Err()
		case <-time.After(r.Poll):
		}
	}

	return func() {
		_ = unlockScript.Run(context.Background(), r.RDB, []string{full}, token).Err()
		unlockLocal()
	}, nil
}
