package core

import (
	"sort"

	"stablecore/pkg/domain"
)

// Reconcile re-derives shift ownership from the members' default passes.
// It runs synchronously inside the transaction that changed assignments or
// users, so the committed snapshot is always consistent.
//
// For every assignment that is not completed and dated today or later:
//
//  1. An assignment the pass itself put in place ("default") is re-validated:
//     the assignee must still exist, still be the sole candidate for the
//     occurrence's (weekday, slot), and must not have declined it. Any
//     failure releases the shift back to the pool.
//  2. An open, unassigned shift is auto-assigned only when exactly one
//     candidate holds a matching default pass and has not declined this
//     occurrence. Ambiguity (zero or several candidates) is never resolved
//     automatically.
//
// A shift released in step 1 falls through to step 2 in the same sweep, so
// one pass reaches the fixed point: re-running it without an intervening
// mutation is a no-op. Manually claimed and completed shifts are never
// touched.
func (tx *Transaction) Reconcile() {
	today := tx.now.Format(domain.DateLayout)

	for _, id := range sortedAssignmentIDs(tx.state) {
		a := tx.state.assignments[id]
		if a.Status == AssignmentCompleted || a.Date < today {
			continue
		}

		candidates := tx.candidatesFor(a)

		if a.Status == AssignmentAssigned && a.AssignedVia == AssignedViaDefault {
			if !tx.defaultAssignmentStillValid(a, candidates) {
				a.Status = AssignmentOpen
				a.AssigneeID = nil
				a.AssignedVia = ""
				a.UpdatedAt = tx.now
				tx.state.assignments[id] = cloneAssignment(a)
			}
		}

		if a.Status == AssignmentOpen && a.AssigneeID == nil && len(candidates) == 1 {
			sole := candidates[0]
			if !a.Declined(sole) {
				a.Status = AssignmentAssigned
				a.AssigneeID = &sole
				a.AssignedVia = AssignedViaDefault
				a.UpdatedAt = tx.now
				tx.state.assignments[id] = cloneAssignment(a)
			}
		}
	}
}

func sortedAssignmentIDs(st memoryState) []string {
	ids := make([]string, 0, len(st.assignments))
	for id := range st.assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// candidatesFor returns the id-sorted set of stable members whose default
// passes match the assignment's weekday and slot.
func (tx *Transaction) candidatesFor(a Assignment) []string {
	weekday := domain.WeekdayOf(a.Date)
	if weekday < 0 {
		return nil
	}
	var out []string
	for id, u := range tx.state.users {
		if _, member := u.MembershipFor(a.StableID); !member {
			continue
		}
		if u.HasDefaultPass(weekday, a.Slot) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (tx *Transaction) defaultAssignmentStillValid(a Assignment, candidates []string) bool {
	if a.AssigneeID == nil {
		return false
	}
	assignee := *a.AssigneeID
	if _, exists := tx.state.users[assignee]; !exists {
		return false
	}
	if len(candidates) != 1 || candidates[0] != assignee {
		return false
	}
	return !a.Declined(assignee)
}
