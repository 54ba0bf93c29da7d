package core

import (
	"context"
	"errors"
	"testing"

	"stablecore/internal/infra/persistence/memory"
	"stablecore/pkg/domain"
)

func TestTransactionCommitReplacesState(t *testing.T) {
	store := newTestStore(t)
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.CreateStable(Stable{Name: "Stall A"})
		return err
	})
	stables := store.ListStables()
	if len(stables) != 1 || stables[0].Name != "Stall A" {
		t.Fatalf("unexpected stables: %+v", stables)
	}
	if stables[0].ID == "" || stables[0].CreatedAt.IsZero() {
		t.Fatalf("create must assign id and timestamps: %+v", stables[0])
	}
}

func TestTransactionRollbackOnError(t *testing.T) {
	store := newTestStore(t)
	sentinel := errors.New("boom")
	err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		if _, err := tx.CreateStable(Stable{Name: "Vanishing"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	if got := store.ListStables(); len(got) != 0 {
		t.Fatalf("failed transaction must not commit, got %+v", got)
	}
}

func TestReadersReturnIsolatedCopies(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)

	got, ok := store.GetStable(st.ID)
	if !ok {
		t.Fatalf("stable not found")
	}
	got.Name = "mutated"
	got.RideTypes = append(got.RideTypes, RideType{Code: "x", Label: "X"})

	again, _ := store.GetStable(st.ID)
	if again.Name != "Testgården" || len(again.RideTypes) != 0 {
		t.Fatalf("reader copies must not alias committed state: %+v", again)
	}
}

func TestDeleteStableCascades(t *testing.T) {
	store := newTestStore(t)
	st, admin := seedStable(t, store)
	mustTx(t, store, func(tx *Transaction) error {
		h, err := tx.CreateHorse(Horse{Name: "Blansch", StableID: st.ID})
		if err != nil {
			return err
		}
		if _, err := tx.CreatePaddock(Paddock{Name: "Norra", StableID: st.ID}); err != nil {
			return err
		}
		if _, err := tx.CreateAssignment(Assignment{StableID: st.ID, Date: testToday, Slot: SlotMorning, Label: "Morgonpass", StartTime: "07:00", Status: AssignmentOpen}); err != nil {
			return err
		}
		if _, err := tx.CreateRideLog(RideLogEntry{StableID: st.ID, HorseID: h.ID, UserID: admin.ID, Date: testToday}); err != nil {
			return err
		}
		return nil
	})

	mustTx(t, store, func(tx *Transaction) error {
		return tx.DeleteStable(st.ID)
	})

	if len(store.ListHorses()) != 0 || len(store.ListPaddocks()) != 0 || len(store.ListAssignments()) != 0 {
		t.Fatalf("stable-scoped records must cascade")
	}
	if len(store.ListRideLogs()) != 0 {
		t.Fatalf("ride logs of deleted horses must cascade")
	}
	if store.CurrentStableID() != "" {
		t.Fatalf("current stable selection must clear on delete")
	}
	u, _ := store.GetUser(admin.ID)
	if len(u.Memberships) != 0 {
		t.Fatalf("memberships of deleted stable must be removed: %+v", u.Memberships)
	}
}

func TestDeleteUserReopensTheirShifts(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	rider := seedUser(t, store, "Rider", membership(st.ID, RoleRider, AccessView))

	var a Assignment
	mustTx(t, store, func(tx *Transaction) error {
		id := rider.ID
		var err error
		a, err = tx.CreateAssignment(Assignment{
			StableID: st.ID, Date: testToday, Slot: SlotMorning,
			Label: "Morgonpass", StartTime: "07:00",
			Status: AssignmentAssigned, AssigneeID: &id, AssignedVia: AssignedViaManual,
		})
		return err
	})
	mustTx(t, store, func(tx *Transaction) error {
		return tx.DeleteUser(rider.ID)
	})

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentOpen || got.AssigneeID != nil {
		t.Fatalf("deleting a user must reopen their shifts: %+v", got)
	}
}

func TestPutHorseDayStatusUpserts(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	var h Horse
	mustTx(t, store, func(tx *Transaction) error {
		var err error
		h, err = tx.CreateHorse(Horse{Name: "Maja", StableID: st.ID})
		return err
	})
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.PutHorseDayStatus(HorseDayStatus{StableID: st.ID, HorseID: h.ID, Date: testToday, Handling: DayHandlingBox})
		return err
	})
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.PutHorseDayStatus(HorseDayStatus{StableID: st.ID, HorseID: h.ID, Date: testToday, Handling: DayHandlingLoose})
		return err
	})
	statuses := store.ListHorseDayStatuses()
	if len(statuses) != 1 {
		t.Fatalf("one record per (horse, date): %+v", statuses)
	}
	if statuses[0].Handling != DayHandlingLoose {
		t.Fatalf("upsert must replace handling: %+v", statuses[0])
	}
}

func TestPersistAfterSuccessfulTransaction(t *testing.T) {
	sink := memory.NewSink()
	store := newTestStore(t, WithSnapshotSink(sink))
	seedStable(t, store)

	if sink.SaveCount() == 0 {
		t.Fatalf("successful transactions must push a snapshot")
	}
	data, ok, err := sink.Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	st, err := domain.DecodePersistedState(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(st.Stables) != 1 || len(st.Users) != 1 {
		t.Fatalf("snapshot incomplete: %+v", st)
	}
}

func TestHydrateRestoresPersistedSlice(t *testing.T) {
	sink := memory.NewSink()
	first := newTestStore(t, WithSnapshotSink(sink))
	st, admin := seedStable(t, first)

	second := newTestStore(t, WithSnapshotSink(sink))
	if err := second.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if _, ok := second.GetStable(st.ID); !ok {
		t.Fatalf("stable lost across restart")
	}
	if second.CurrentUserID() != admin.ID || second.CurrentStableID() != st.ID {
		t.Fatalf("session scalars lost across restart")
	}
}

func TestPersistenceFailureDoesNotSurfaceToCommands(t *testing.T) {
	store := newTestStore(t, WithSnapshotSink(failingSink{}))
	err := store.RunInTransaction(context.Background(), func(tx *Transaction) error {
		_, err := tx.CreateStable(Stable{Name: "Stall B"})
		return err
	})
	if err != nil {
		t.Fatalf("sink failures must be swallowed, got %v", err)
	}
	if len(store.ListStables()) != 1 {
		t.Fatalf("commit must survive sink failure")
	}
}

type failingSink struct{}

func (failingSink) Load(ctx context.Context) ([]byte, bool, error) { return nil, false, nil }
func (failingSink) Save(ctx context.Context, data []byte) error {
	return errors.New("disk full")
}
