package shared

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// fakeExec mimics idempotency_keys with a composite (module, key) primary key.
type fakeExec struct {
	keys map[string]time.Time
}

func newFakeExec() *fakeExec {
	return &fakeExec{keys: map[string]time.Time{}}
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.HasPrefix(sql, "INSERT"):
		id := args[0].(string) + "/" + args[1].(string)
		if _, ok := f.keys[id]; ok {
			return pgconn.NewCommandTag("INSERT 0 0"), nil
		}
		f.keys[id] = args[2].(time.Time)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "created_at <"):
		cutoff := args[0].(time.Time)
		n := 0
		for id, at := range f.keys {
			if at.Before(cutoff) {
				delete(f.keys, id)
				n++
			}
		}
		return pgconn.NewCommandTag(fmt.Sprintf("DELETE %d", n)), nil
	default:
		delete(f.keys, args[0].(string)+"/"+args[1].(string))
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
}

func TestIdempotencyClaimAndRelease(t *testing.T) {
	store := NewIdempotencyStore(newFakeExec())
	ctx := context.Background()

	require.NoError(t, store.Claim(ctx, "invoicing", "batch-1:0"))
	require.ErrorIs(t, store.Claim(ctx, "invoicing", "batch-1:0"), ErrIdempotencyConflict)
	require.NoError(t, store.Claim(ctx, "payments", "batch-1:0"), "keys are scoped per module")

	require.NoError(t, store.Release(ctx, "invoicing", "batch-1:0"))
	require.NoError(t, store.Claim(ctx, "invoicing", "batch-1:0"))
}

func TestIdempotencyUniqueViolationIsConflict(t *testing.T) {
	store := NewIdempotencyStore(execFunc(func() error { return &pgconn.PgError{Code: "23505"} }))
	require.ErrorIs(t, store.Claim(context.Background(), "invoicing", "k"), ErrIdempotencyConflict)
}

func TestIdempotencyCleanup(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	db := newFakeExec()
	db.keys["invoicing/old"] = now.Add(-48 * time.Hour)
	db.keys["invoicing/fresh"] = now.Add(-time.Hour)
	store := NewIdempotencyStore(db)
	store.now = func() time.Time { return now }

	removed, err := store.Cleanup(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
	require.Contains(t, db.keys, "invoicing/fresh")

	_, err = store.Cleanup(context.Background(), 0)
	require.Error(t, err)
}

func TestIdempotencyRequiresModuleAndKey(t *testing.T) {
	store := NewIdempotencyStore(newFakeExec())
	require.Error(t, store.Claim(context.Background(), "invoicing", ""))
	require.Error(t, store.Claim(context.Background(), "", "k"))

	var nilStore *IdempotencyStore
	require.Error(t, nilStore.Claim(context.Background(), "invoicing", "k"))
	require.NoError(t, nilStore.Release(context.Background(), "invoicing", "k"))
}

type execFunc func() error

func (f execFunc) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, f()
}

func TestTodayTruncatesToCivilDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	clock := FixedClock{T: time.Date(2024, 3, 1, 23, 30, 0, 0, loc)}
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Today(clock))
}
