package leaselock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	key string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.key
	return nil
}

type lockRow struct {
	owner   string
	expires time.Time
}

// fakeDB keeps app_locks in memory and answers the three statements the
// client issues.
type fakeDB struct {
	mu       sync.Mutex
	locks    map[string]lockRow
	renewErr error
	renews   int
}

func newFakeDB() *fakeDB {
	return &fakeDB{locks: map[string]lockRow{}}
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()

	key, token := args[0].(string), args[1].(string)
	ttl := time.Duration(args[2].(int64)) * time.Millisecond
	cur, held := db.locks[key]

	switch sql {
	case tryAcquireSQL:
		if held && cur.owner != token && cur.expires.After(time.Now()) {
			return fakeRow{err: pgx.ErrNoRows}
		}
		db.locks[key] = lockRow{owner: token, expires: time.Now().Add(ttl)}
		return fakeRow{key: key}
	case renewSQL:
		db.renews++
		if db.renewErr != nil {
			return fakeRow{err: db.renewErr}
		}
		if !held || cur.owner != token {
			return fakeRow{err: pgx.ErrNoRows}
		}
		db.locks[key] = lockRow{owner: token, expires: time.Now().Add(ttl)}
		return fakeRow{key: key}
	}
	return fakeRow{err: errors.New("unexpected query")}
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if sql != releaseSQL {
		return pgconn.CommandTag{}, errors.New("unexpected statement")
	}
	key, token := args[0].(string), args[1].(string)
	if cur, ok := db.locks[key]; ok && cur.owner == token {
		delete(db.locks, key)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.NewCommandTag("DELETE 0"), nil
}

func (db *fakeDB) steal(key string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.locks[key] = lockRow{owner: "someone-else", expires: time.Now().Add(time.Hour)}
}

func (db *fakeDB) held(key string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	_, ok := db.locks[key]
	return ok
}

func TestAcquireBusyAndRelease(t *testing.T) {
	db := newFakeDB()
	c := New(db)
	ctx := context.Background()
	key := GraphKey("g1")
	assert.Equal(t, "graph:g1", key)

	lease, err := c.Acquire(ctx, key, Options{TTL: time.Minute, TokenPrefix: "worker-"})
	require.NoError(t, err)
	assert.Contains(t, lease.Token, "worker-")

	_, err = c.Acquire(ctx, key, Options{TTL: time.Minute})
	assert.ErrorIs(t, err, ErrBusy)

	require.NoError(t, lease.Release(ctx))
	require.NoError(t, lease.Release(ctx))
	assert.False(t, db.held(key))
	assert.Error(t, lease.Context.Err())

	again, err := c.Acquire(ctx, key, Options{TTL: time.Minute})
	require.NoError(t, err)
	_ = again.Release(ctx)
}

func TestAcquireEmptyKey(t *testing.T) {
	_, err := New(newFakeDB()).Acquire(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestAcquireWaitHonorsContext(t *testing.T) {
	db := newFakeDB()
	db.steal("k")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := New(db).Acquire(ctx, "k", Options{Wait: true, WaitInterval: 5 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLeaseReleasesAfterRun(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	ran := false
	err := c.WithLease(context.Background(), "k", Options{TTL: time.Minute}, func(ctx context.Context) error {
		ran = true
		assert.True(t, db.held("k"))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, db.held("k"))

	boom := errors.New("boom")
	err = c.WithLease(context.Background(), "k", Options{TTL: time.Minute}, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, db.held("k"))
}

func TestLostLeaseCancelsContext(t *testing.T) {
	db := newFakeDB()
	c := New(db)

	lease, err := c.Acquire(context.Background(), "k", Options{TTL: 40 * time.Millisecond, RenewEvery: 10 * time.Millisecond})
	require.NoError(t, err)
	defer lease.Release(context.Background())

	db.steal("k")

	select {
	case <-lease.Context.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("lease context was not canceled")
	}
	assert.ErrorIs(t, context.Cause(lease.Context), ErrLost)
}

func TestRenewKeepsLease(t *testing.T) {
	db := newFakeDB()
	lease, err := New(db).Acquire(context.Background(), "k", Options{TTL: 40 * time.Millisecond, RenewEvery: 5 * time.Millisecond})
	require.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, lease.Context.Err())

	db.mu.Lock()
	renews := db.renews
	db.mu.Unlock()
	assert.Greater(t, renews, 1)
	require.NoError(t, lease.Release(context.Background()))
}
