package core

import (
	"context"
	"testing"
	"time"

	"stablecore/pkg/domain"
)

// testClock pins the store to Monday 2026-08-31 08:00 UTC so weekday math and
// "today" filtering are deterministic.
var testClock = time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

const testToday = "2026-08-31"

func newTestStore(t *testing.T, opts ...StoreOption) *MemoryStore {
	t.Helper()
	opts = append([]StoreOption{WithNow(func() time.Time { return testClock })}, opts...)
	return NewMemoryStore(opts...)
}

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	return NewService(newTestStore(t), opts...)
}

// mustTx runs fn in a transaction and fails the test on error.
func mustTx(t *testing.T, store *MemoryStore, fn func(tx *Transaction) error) {
	t.Helper()
	if err := store.RunInTransaction(context.Background(), fn); err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
}

// seedUser creates a profile with the given memberships directly in the
// store, bypassing the guarded commands.
func seedUser(t *testing.T, store *MemoryStore, name string, memberships ...Membership) UserProfile {
	t.Helper()
	var out UserProfile
	mustTx(t, store, func(tx *Transaction) error {
		var err error
		out, err = tx.CreateUser(UserProfile{Name: name, Memberships: memberships})
		return err
	})
	return out
}

// seedStable creates a stable and an admin/owner profile signed in and
// selected, the state most command tests start from.
func seedStable(t *testing.T, store *MemoryStore) (Stable, UserProfile) {
	t.Helper()
	var st Stable
	var admin UserProfile
	mustTx(t, store, func(tx *Transaction) error {
		var err error
		st, err = tx.CreateStable(Stable{Name: "Testgården"})
		if err != nil {
			return err
		}
		admin, err = tx.CreateUser(UserProfile{
			Name: "Admin",
			Memberships: []Membership{
				{StableID: st.ID, Role: RoleAdmin, Access: AccessOwner},
			},
		})
		if err != nil {
			return err
		}
		tx.SetCurrentStable(st.ID)
		tx.SetCurrentUser(admin.ID)
		return nil
	})
	return st, admin
}

// signIn switches the current user without going through the command layer.
func signIn(t *testing.T, store *MemoryStore, userID string) {
	t.Helper()
	mustTx(t, store, func(tx *Transaction) error {
		tx.SetCurrentUser(userID)
		return nil
	})
}

func membership(stableID string, role Role, access AccessLevel) Membership {
	return Membership{StableID: stableID, Role: role, Access: access}
}

func requireSuccess(t *testing.T, res domain.CommandResult) {
	t.Helper()
	if !res.Success {
		t.Fatalf("command failed: %s", res.Reason)
	}
}

func requireDenied(t *testing.T, res domain.CommandResult) {
	t.Helper()
	if res.Success {
		t.Fatalf("expected permission denial, got success")
	}
	if res.Reason != domain.ReasonPermissionDenied {
		t.Fatalf("expected %q, got %q", domain.ReasonPermissionDenied, res.Reason)
	}
}
