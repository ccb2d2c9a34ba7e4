// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/ipo-allotment/server/internal/services/otp"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clockedStore interface {
	otp.Store
	SetClock(func() time.Time)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore(t *testing.T) clockedStore {
	t.Helper()
	return otp.NewMemoryStore(otp.DefaultLength)
}

func newRedisStore(t *testing.T) clockedStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return otp.NewRedisStore(client, "test-otp", otp.DefaultLength)
}

var stores = map[string]func(t *testing.T) clockedStore{
	"memory": newMemoryStore,
	"redis":  newRedisStore,
}

func withClock(t *testing.T, s clockedStore) *fakeClock {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.SetClock(clock.Now)
	return clock
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestStore_IssueAndVerify(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)
			assert.Len(t, code, otp.DefaultLength)
			for _, c := range code {
				assert.True(t, c >= '0' && c <= '9', "code must be numeric")
			}

			ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRegistration)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_SingleUse(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRecovery, otp.DefaultTTL)
			require.NoError(t, err)

			ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRecovery)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = s.Verify(ctx, "a@example.com", code, otp.PurposeRecovery)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_UnknownKey(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ok, err := newStore(t).Verify(context.Background(), "nobody@example.com", "123456", otp.PurposeRegistration)

			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_UnknownKeyLeavesOtherEntries(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)

			ok, err := s.Verify(ctx, "b@example.com", code, otp.PurposeRegistration)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.Verify(ctx, "a@example.com", code, otp.PurposeRegistration)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_WrongPurposeDeletesEntry(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)

			ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRecovery)
			require.NoError(t, err)
			assert.False(t, ok)

			// No resurrection with the right purpose afterwards.
			ok, err = s.Verify(ctx, "a@example.com", code, otp.PurposeRegistration)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_WrongCodeDeletesEntry(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)

			ok, err := s.Verify(ctx, "a@example.com", wrongCode(code), otp.PurposeRegistration)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = s.Verify(ctx, "a@example.com", code, otp.PurposeRegistration)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_Expired(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			clock := withClock(t, s)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRecovery, time.Minute)
			require.NoError(t, err)

			clock.Advance(time.Minute + time.Second)

			ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRecovery)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_ValidUntilDeadline(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)
			clock := withClock(t, s)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRecovery, time.Minute)
			require.NoError(t, err)

			clock.Advance(time.Minute)

			ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRecovery)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_ReissueReplacesPrevious(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			first, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)
			second, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)

			if first != second {
				ok, err := s.Verify(ctx, "a@example.com", first, otp.PurposeRegistration)
				require.NoError(t, err)
				assert.False(t, ok)

				second, err = s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
				require.NoError(t, err)
			}

			ok, err := s.Verify(ctx, "a@example.com", second, otp.PurposeRegistration)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_ReissueAcrossPurposes(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			_, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)
			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRecovery, otp.DefaultTTL)
			require.NoError(t, err)

			ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRecovery)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_ConcurrentVerifySucceedsOnce(t *testing.T) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := newStore(t)

			code, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, otp.DefaultTTL)
			require.NoError(t, err)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
			)
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRegistration)
					if err == nil && ok {
						mu.Lock()
						successes++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
		})
	}
}

func TestMemoryStore_ExpiredPurgedOnAccess(t *testing.T) {
	ctx := context.Background()
	s := otp.NewMemoryStore(otp.DefaultLength)
	clock := &fakeClock{now: time.Now()}
	s.SetClock(clock.Now)

	_, err := s.Issue(ctx, "a@example.com", otp.PurposeRecovery, time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	assert.Equal(t, 1, s.Len())

	_, err = s.Verify(ctx, "a@example.com", "123456", otp.PurposeRecovery)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStore_CustomLength(t *testing.T) {
	s := otp.NewMemoryStore(8)

	code, err := s.Issue(context.Background(), "a@example.com", otp.PurposeRecovery, otp.DefaultTTL)

	require.NoError(t, err)
	assert.Len(t, code, 8)
}

func TestRedisStore_KeyExpiresInRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := otp.NewRedisStore(client, "", otp.DefaultLength)

	code, err := s.Issue(ctx, "a@example.com", otp.PurposeRegistration, time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("otp:a@example.com"))

	mr.FastForward(2 * time.Minute)

	ok, err := s.Verify(ctx, "a@example.com", code, otp.PurposeRegistration)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := otp.NewRedisStore(client, "", otp.DefaultLength)
	mr.Close()

	_, err := s.Issue(context.Background(), "a@example.com", otp.PurposeRegistration, time.Minute)

	assert.Error(t, err)
}
