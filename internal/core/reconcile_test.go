package core

import "testing"

// Monday 2026-08-31: weekday 0 in the engine's Monday-first counting.

func seedOpenShift(t *testing.T, store *MemoryStore, stableID, date string, slot Slot) Assignment {
	t.Helper()
	var a Assignment
	mustTx(t, store, func(tx *Transaction) error {
		var err error
		a, err = tx.CreateAssignment(Assignment{
			StableID:  stableID,
			Date:      date,
			Slot:      slot,
			Label:     slot.DefaultLabel(),
			StartTime: slot.DefaultStartTime(),
			Status:    AssignmentOpen,
		})
		return err
	})
	return a
}

func withDefaultPass(stableID string, weekday int, slot Slot) UserProfile {
	return UserProfile{
		Memberships:   []Membership{{StableID: stableID, Role: RoleRider, Access: AccessView}},
		DefaultPasses: []DefaultPass{{Weekday: weekday, Slot: slot}},
	}
}

func seedPassHolder(t *testing.T, store *MemoryStore, name, stableID string, weekday int, slot Slot) UserProfile {
	t.Helper()
	var u UserProfile
	mustTx(t, store, func(tx *Transaction) error {
		profile := withDefaultPass(stableID, weekday, slot)
		profile.Name = name
		var err error
		u, err = tx.CreateUser(profile)
		return err
	})
	return u
}

func reconcile(t *testing.T, store *MemoryStore) {
	t.Helper()
	mustTx(t, store, func(tx *Transaction) error {
		tx.Reconcile()
		return nil
	})
}

func TestReconcileAssignsSoleCandidate(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	rider := seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)

	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentAssigned {
		t.Fatalf("sole candidate must be auto-assigned: %+v", got)
	}
	if got.AssigneeID == nil || *got.AssigneeID != rider.ID {
		t.Fatalf("assignee = %v, want %s", got.AssigneeID, rider.ID)
	}
	if got.AssignedVia != AssignedViaDefault {
		t.Fatalf("auto-assignment must be marked default, got %q", got.AssignedVia)
	}
}

func TestReconcileLeavesAmbiguousShiftsOpen(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	seedPassHolder(t, store, "Berit", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)

	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentOpen || got.AssigneeID != nil {
		t.Fatalf("two candidates means no auto-assignment: %+v", got)
	}
}

func TestReconcileSkipsDeclinedCandidates(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	rider := seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.UpdateAssignment(a.ID, func(a *Assignment) error {
			a.DeclinedBy = []string{rider.ID}
			return nil
		})
		return err
	})

	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentOpen {
		t.Fatalf("declined candidate must not be re-offered: %+v", got)
	}
}

func TestReconcileRevertsStaleDefaultAssignment(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	rider := seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)

	reconcile(t, store)

	// The pass is withdrawn; the default assignment is no longer justified.
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.UpdateUser(rider.ID, func(u *UserProfile) error {
			u.DefaultPasses = nil
			return nil
		})
		return err
	})
	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentOpen || got.AssigneeID != nil || got.AssignedVia != "" {
		t.Fatalf("stale default assignment must revert: %+v", got)
	}
}

func TestReconcileHandsOverWhenPassMoves(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	anna := seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)

	reconcile(t, store)

	// Anna drops the pass, Berit picks it up. One sweep both reverts and
	// re-assigns.
	berit := seedPassHolder(t, store, "Berit", st.ID, 0, SlotMorning)
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.UpdateUser(anna.ID, func(u *UserProfile) error {
			u.DefaultPasses = nil
			return nil
		})
		return err
	})
	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.AssigneeID == nil || *got.AssigneeID != berit.ID {
		t.Fatalf("shift should hand over to the new sole candidate: %+v", got)
	}
	if got.AssignedVia != AssignedViaDefault {
		t.Fatalf("handover must stay a default assignment: %+v", got)
	}
}

func TestReconcileNeverTouchesManualAssignments(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	outsider := seedUser(t, store, "Classic", membership(st.ID, RoleStaff, AccessEdit))
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)
	seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)

	mustTx(t, store, func(tx *Transaction) error {
		id := outsider.ID
		_, err := tx.UpdateAssignment(a.ID, func(a *Assignment) error {
			a.Status = AssignmentAssigned
			a.AssigneeID = &id
			a.AssignedVia = AssignedViaManual
			return nil
		})
		return err
	})
	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.AssigneeID == nil || *got.AssigneeID != outsider.ID || got.AssignedVia != AssignedViaManual {
		t.Fatalf("manual assignments outrank defaults: %+v", got)
	}
}

func TestReconcileNeverTouchesCompletedShifts(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	rider := seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)
	mustTx(t, store, func(tx *Transaction) error {
		id := rider.ID
		now := testClock
		_, err := tx.UpdateAssignment(a.ID, func(a *Assignment) error {
			a.Status = AssignmentCompleted
			a.AssigneeID = &id
			a.AssignedVia = AssignedViaDefault
			a.CompletedAt = &now
			return nil
		})
		return err
	})
	// Withdraw the pass; a completed shift still must not revert.
	mustTx(t, store, func(tx *Transaction) error {
		_, err := tx.UpdateUser(rider.ID, func(u *UserProfile) error {
			u.DefaultPasses = nil
			return nil
		})
		return err
	})
	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentCompleted || got.AssigneeID == nil {
		t.Fatalf("completed is terminal: %+v", got)
	}
}

func TestReconcileIgnoresPastShifts(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	seedPassHolder(t, store, "Anna", st.ID, 6, SlotMorning)
	// 2026-08-30 is the Sunday before the pinned clock.
	a := seedOpenShift(t, store, st.ID, "2026-08-30", SlotMorning)

	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentOpen || got.AssigneeID != nil {
		t.Fatalf("past shifts are out of scope: %+v", got)
	}
}

func TestReconcileRequiresMembershipOnTheStable(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	// Pass matches, but the profile belongs to a different stable.
	mustTx(t, store, func(tx *Transaction) error {
		other, err := tx.CreateStable(Stable{Name: "Annat stall"})
		if err != nil {
			return err
		}
		_, err = tx.CreateUser(UserProfile{
			Name:          "Anna",
			Memberships:   []Membership{{StableID: other.ID, Role: RoleRider, Access: AccessView}},
			DefaultPasses: []DefaultPass{{Weekday: 0, Slot: SlotMorning}},
		})
		return err
	})
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)

	reconcile(t, store)

	got, _ := store.GetAssignment(a.ID)
	if got.Status != AssignmentOpen {
		t.Fatalf("candidates must belong to the shift's stable: %+v", got)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	st, _ := seedStable(t, store)
	seedPassHolder(t, store, "Anna", st.ID, 0, SlotMorning)
	a := seedOpenShift(t, store, st.ID, testToday, SlotMorning)

	reconcile(t, store)
	first, _ := store.GetAssignment(a.ID)
	reconcile(t, store)
	second, _ := store.GetAssignment(a.ID)

	if first.Status != second.Status || first.AssignedVia != second.AssignedVia {
		t.Fatalf("second sweep changed state: %+v vs %+v", first, second)
	}
	if first.AssigneeID == nil || second.AssigneeID == nil || *first.AssigneeID != *second.AssigneeID {
		t.Fatalf("second sweep changed assignee")
	}
	if second.UpdatedAt != first.UpdatedAt {
		t.Fatalf("a no-op sweep must not rewrite the assignment")
	}
}
