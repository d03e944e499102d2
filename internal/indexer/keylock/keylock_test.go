package keylock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "apple")
			require.NoError(t, err)
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.Len())
}

func TestLocalDisjointKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
}

func TestLocalHonorsContext(t *testing.T) {
	l := NewLocal()
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()
	assert.Equal(t, 0, l.Len())
}

// fakeLockClient expires keys after their TTL like Redis does.
type fakeLockClient struct {
	mu        sync.Mutex
	held      map[string]string
	expires   map[string]time.Time
	attempts  int
	refreshes int
	released  []string
}

func newFakeLockClient(held map[string]string) *fakeLockClient {
	f := &fakeLockClient{held: held, expires: map[string]time.Time{}}
	for k := range held {
		f.expires[k] = time.Now().Add(time.Hour)
	}
	return f
}

func (f *fakeLockClient) liveLocked(key string) bool {
	if _, ok := f.held[key]; !ok {
		return false
	}
	if time.Now().After(f.expires[key]) {
		delete(f.held, key)
		return false
	}
	return true
}

func (f *fakeLockClient) TryLock(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.liveLocked(key) {
		return false, nil
	}
	f.held[key] = token
	f.expires[key] = time.Now().Add(ttl)
	return true, nil
}

func (f *fakeLockClient) Refresh(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.liveLocked(key) || f.held[key] != token {
		return false, nil
	}
	f.refreshes++
	f.expires[key] = time.Now().Add(ttl)
	return true, nil
}

func (f *fakeLockClient) Release(_ context.Context, key, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held[key] == token {
		delete(f.held, key)
		f.released = append(f.released, key)
	}
	return nil
}

func TestRedisLockPollsUntilReleased(t *testing.T) {
	client := newFakeLockClient(map[string]string{})
	l := NewRedis(client, RedisConfig{KeySpace: "lock:", Retry: time.Millisecond})

	unlock, err := l.Lock(context.Background(), "apple")
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		u, err := l.Lock(context.Background(), "apple")
		if err == nil {
			acquired <- u
		}
	}()

	time.Sleep(10 * time.Millisecond)
	unlock()

	select {
	case u := <-acquired:
		u()
	case <-time.After(time.Second):
		t.Fatal("second lock was never acquired")
	}
	assert.Equal(t, []string{"lock:apple", "lock:apple"}, client.released)
	assert.Greater(t, client.attempts, 2)
}

func TestRedisLockHonorsContext(t *testing.T) {
	client := newFakeLockClient(map[string]string{"lock:apple": "other"})
	l := NewRedis(client, RedisConfig{KeySpace: "lock:", Retry: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.Lock(ctx, "apple")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLockLeaseOutlivesTTL(t *testing.T) {
	client := newFakeLockClient(map[string]string{})
	l := NewRedis(client, RedisConfig{KeySpace: "lock:", TTL: 60 * time.Millisecond, Retry: time.Millisecond})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "shared")
			require.NoError(t, err)
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			// Hold for more than twice the TTL.
			time.Sleep(140 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Greater(t, client.refreshes, 0)
	assert.Len(t, client.released, 3)
}

func TestRedisUnlockStopsRefreshing(t *testing.T) {
	client := newFakeLockClient(map[string]string{})
	l := NewRedis(client, RedisConfig{KeySpace: "lock:", TTL: 15 * time.Millisecond, Retry: time.Millisecond})

	unlock, err := l.Lock(context.Background(), "apple")
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	unlock()
	unlock()

	client.mu.Lock()
	after := client.refreshes
	client.mu.Unlock()
	time.Sleep(30 * time.Millisecond)

	client.mu.Lock()
	defer client.mu.Unlock()
	assert.Equal(t, after, client.refreshes)
	assert.Equal(t, []string{"lock:apple"}, client.released)
	assert.Empty(t, client.held)
}
