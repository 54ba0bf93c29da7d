package core

import (
	"context"

	"stablecore/pkg/domain"
)

// AddMemberInput creates a user profile and attaches it to one or more
// stables in a single atomic command.
type AddMemberInput struct {
	Name        string
	Email       string
	Phone       string
	Role        Role
	Access      AccessLevel // empty derives the default for the role
	RiderRole   RiderRole
	CustomLabel string
	HorseIDs    []string
	StableIDs   []string // empty falls back to the current stable
}

// AddMember creates a member across all target stables or none: the caller
// needs owner access on every one of them, and any invalid reference rolls
// the whole command back.
func (s *Service) AddMember(ctx context.Context, input AddMemberInput) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "add_member", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		name := trimmed(input.Name)
		if name == "" {
			return "", "", failTx("member name is required")
		}
		if !domain.KnownRole(input.Role) {
			return "", "", failTxf("unknown role %q", string(input.Role))
		}
		stableIDs := input.StableIDs
		if len(stableIDs) == 0 {
			if cur := tx.CurrentStableID(); cur != "" {
				stableIDs = []string{cur}
			}
		}
		if len(stableIDs) == 0 {
			return "", "", failTx("no stable selected")
		}
		for _, id := range stableIDs {
			if _, ok := tx.FindStable(id); !ok {
				return "", "", failTxf("stable %q not found", id)
			}
			caps := domain.ResolveCapabilities(&actor, id)
			if !caps.ManageMembers {
				return "", id, permissionDenied()
			}
		}
		for _, id := range input.HorseIDs {
			if _, ok := tx.FindHorse(id); !ok {
				return "", stableIDs[0], failTxf("horse %q not found", id)
			}
		}

		access := input.Access
		if access == "" {
			access = domain.DefaultAccessForRole(input.Role)
		}
		if access.Rank() < 0 {
			return "", stableIDs[0], failTxf("unknown access level %q", string(input.Access))
		}

		memberships := make([]Membership, 0, len(stableIDs))
		for _, id := range stableIDs {
			m := Membership{
				StableID:    id,
				Role:        input.Role,
				Access:      access,
				CustomLabel: optional(input.CustomLabel),
				HorseIDs:    append([]string(nil), input.HorseIDs...),
			}
			if input.RiderRole != "" {
				rr := input.RiderRole
				m.RiderRole = &rr
			}
			memberships = append(memberships, m)
		}

		out, err = tx.CreateUser(UserProfile{
			Name:        name,
			Email:       optional(input.Email),
			Phone:       optional(input.Phone),
			Memberships: memberships,
		})
		if err != nil {
			return "", stableIDs[0], err
		}
		history(tx, stableIDs[0], actor.ID, "member", "%s lades till", out.Name)
		return out.ID, stableIDs[0], nil
	})
	return out, res
}

// UpdateMemberInput adjusts one membership of an existing user. Nil fields
// are left untouched.
type UpdateMemberInput struct {
	UserID      string
	StableID    string // empty falls back to the current stable
	Role        *Role
	Access      *AccessLevel
	RiderRole   *RiderRole
	CustomLabel *string
	HorseIDs    []string
}

// UpdateMember updates role, access and horse linkage of a member within one
// stable.
func (s *Service) UpdateMember(ctx context.Context, input UpdateMemberInput) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "update_member", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageMembers {
			return input.UserID, st.ID, permissionDenied()
		}
		target, ok := tx.FindUser(trimmed(input.UserID))
		if !ok {
			return "", st.ID, failTxf("user %q not found", input.UserID)
		}
		if _, ok := target.MembershipFor(st.ID); !ok {
			return target.ID, st.ID, failTxf("%s is not a member of this stable", target.Name)
		}
		if input.Role != nil && !domain.KnownRole(*input.Role) {
			return target.ID, st.ID, failTxf("unknown role %q", string(*input.Role))
		}
		if input.Access != nil && input.Access.Rank() < 0 {
			return target.ID, st.ID, failTxf("unknown access level %q", string(*input.Access))
		}
		for _, id := range input.HorseIDs {
			if _, ok := tx.FindHorse(id); !ok {
				return target.ID, st.ID, failTxf("horse %q not found", id)
			}
		}

		out, err = tx.UpdateUser(target.ID, func(u *UserProfile) error {
			for i := range u.Memberships {
				if u.Memberships[i].StableID != st.ID {
					continue
				}
				m := &u.Memberships[i]
				if input.Role != nil {
					m.Role = *input.Role
				}
				if input.Access != nil {
					m.Access = *input.Access
				}
				if input.RiderRole != nil {
					if *input.RiderRole == "" {
						m.RiderRole = nil
					} else {
						rr := *input.RiderRole
						m.RiderRole = &rr
					}
				}
				if input.CustomLabel != nil {
					m.CustomLabel = optional(*input.CustomLabel)
				}
				if input.HorseIDs != nil {
					m.HorseIDs = append([]string(nil), input.HorseIDs...)
				}
			}
			return nil
		})
		if err != nil {
			return target.ID, st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// RemoveMemberFromStable detaches a user from one stable. The profile and its
// other memberships survive; shifts the member held in that stable reopen via
// the reconciliation pass triggered by the user change.
func (s *Service) RemoveMemberFromStable(ctx context.Context, userID, stableID string) CommandResult {
	return s.mutate(ctx, "remove_member", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, stableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageMembers {
			return userID, st.ID, permissionDenied()
		}
		target, ok := tx.FindUser(trimmed(userID))
		if !ok {
			return "", st.ID, failTxf("user %q not found", userID)
		}
		if _, ok := target.MembershipFor(st.ID); !ok {
			return target.ID, st.ID, failTxf("%s is not a member of this stable", target.Name)
		}

		_, err = tx.UpdateUser(target.ID, func(u *UserProfile) error {
			kept := u.Memberships[:0]
			for _, m := range u.Memberships {
				if m.StableID != st.ID {
					kept = append(kept, m)
				}
			}
			u.Memberships = kept
			return nil
		})
		if err != nil {
			return target.ID, st.ID, err
		}
		// Shifts in this stable still assigned to the removed member reopen
		// here; reconciliation only reverts default assignments.
		for _, id := range sortedAssignmentIDs(tx.state) {
			a := tx.state.assignments[id]
			if a.StableID != st.ID || a.Status != AssignmentAssigned {
				continue
			}
			if a.AssigneeID == nil || *a.AssigneeID != target.ID {
				continue
			}
			if _, err := tx.UpdateAssignment(a.ID, func(a *Assignment) error {
				a.Status = AssignmentOpen
				a.AssigneeID = nil
				a.AssignedVia = ""
				return nil
			}); err != nil {
				return target.ID, st.ID, err
			}
		}
		history(tx, st.ID, actor.ID, "member", "%s togs bort från stallet", target.Name)
		return target.ID, st.ID, nil
	})
}

// SetDefaultPassesInput replaces a user's standing weekday/slot declarations.
type SetDefaultPassesInput struct {
	UserID string // empty means the caller
	Passes []DefaultPass
}

// SetDefaultPasses replaces the default passes of a user. Members manage
// their own; changing someone else's requires owner access on a stable shared
// with them. Reconciliation runs afterwards and may hand out or revert
// default-assigned shifts.
func (s *Service) SetDefaultPasses(ctx context.Context, input SetDefaultPassesInput) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "set_default_passes", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		targetID := trimmed(input.UserID)
		if targetID == "" {
			targetID = actor.ID
		}
		target, ok := tx.FindUser(targetID)
		if !ok {
			return "", "", failTxf("user %q not found", targetID)
		}
		if target.ID != actor.ID && !canManageUser(&actor, &target) {
			return target.ID, tx.CurrentStableID(), permissionDenied()
		}
		seen := make(map[DefaultPass]bool, len(input.Passes))
		for _, p := range input.Passes {
			if p.Weekday < 0 || p.Weekday > 6 {
				return target.ID, tx.CurrentStableID(), failTxf("weekday %d out of range", p.Weekday)
			}
			if p.Slot.Index() < 0 {
				return target.ID, tx.CurrentStableID(), failTxf("unknown shift slot %q", string(p.Slot))
			}
			if seen[p] {
				return target.ID, tx.CurrentStableID(), failTx("duplicate default pass")
			}
			seen[p] = true
		}

		out, err = tx.UpdateUser(target.ID, func(u *UserProfile) error {
			u.DefaultPasses = append([]DefaultPass(nil), input.Passes...)
			return nil
		})
		if err != nil {
			return target.ID, tx.CurrentStableID(), err
		}
		return out.ID, tx.CurrentStableID(), nil
	})
	return out, res
}

// canManageUser reports whether the actor holds member management on any
// stable the target belongs to.
func canManageUser(actor, target *UserProfile) bool {
	for _, m := range target.Memberships {
		caps := domain.ResolveCapabilities(actor, m.StableID)
		if caps.ManageMembers {
			return true
		}
	}
	return false
}

// AddAwayNoticeInput declares a calendar-day range the caller is unavailable.
type AddAwayNoticeInput struct {
	From  string
	Until string
	Note  string
}

// AddAwayNotice records an away range on the caller's profile. The range is
// stored and displayed only; it does not affect reconciliation.
func (s *Service) AddAwayNotice(ctx context.Context, input AddAwayNoticeInput) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "add_away_notice", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		from, until := trimmed(input.From), trimmed(input.Until)
		if !validDate(from) || !validDate(until) {
			return actor.ID, tx.CurrentStableID(), failTx("away range needs valid from and until dates")
		}
		if until < from {
			return actor.ID, tx.CurrentStableID(), failTx("away range ends before it starts")
		}

		out, err = tx.UpdateUser(actor.ID, func(u *UserProfile) error {
			u.AwayNotices = append(u.AwayNotices, AwayNotice{From: from, Until: until, Note: optional(input.Note)})
			return nil
		})
		if err != nil {
			return actor.ID, tx.CurrentStableID(), err
		}
		return out.ID, tx.CurrentStableID(), nil
	})
	return out, res
}

// RemoveAwayNotice deletes the away notice at the given position on the
// caller's profile.
func (s *Service) RemoveAwayNotice(ctx context.Context, index int) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "remove_away_notice", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		if index < 0 || index >= len(actor.AwayNotices) {
			return actor.ID, tx.CurrentStableID(), failTx("no such away notice")
		}
		out, err = tx.UpdateUser(actor.ID, func(u *UserProfile) error {
			u.AwayNotices = append(u.AwayNotices[:index], u.AwayNotices[index+1:]...)
			return nil
		})
		if err != nil {
			return actor.ID, tx.CurrentStableID(), err
		}
		return out.ID, tx.CurrentStableID(), nil
	})
	return out, res
}

// SelectStable switches the caller's current stable. The caller must be a
// member of the target stable.
func (s *Service) SelectStable(ctx context.Context, stableID string) CommandResult {
	return s.mutate(ctx, "select_stable", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, ok := tx.FindStable(trimmed(stableID))
		if !ok {
			return "", "", failTxf("stable %q not found", stableID)
		}
		if _, ok := actor.MembershipFor(st.ID); !ok {
			return st.ID, st.ID, permissionDenied()
		}
		tx.SetCurrentStable(st.ID)
		return st.ID, st.ID, nil
	})
}

// SignIn marks an existing user as the current identity. Identity itself is
// established by the auth boundary; this only switches the engine's notion of
// who acts.
func (s *Service) SignIn(ctx context.Context, userID string) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "sign_in", func(tx *Transaction) (string, string, error) {
		u, ok := tx.FindUser(trimmed(userID))
		if !ok {
			return "", "", failTxf("user %q not found", userID)
		}
		tx.SetCurrentUser(u.ID)
		// Keep the stable selection consistent with the new identity.
		if cur := tx.CurrentStableID(); cur != "" {
			if _, ok := u.MembershipFor(cur); !ok {
				tx.SetCurrentStable("")
			}
		}
		if tx.CurrentStableID() == "" && len(u.Memberships) > 0 {
			tx.SetCurrentStable(u.Memberships[0].StableID)
		}
		out = u
		return u.ID, tx.CurrentStableID(), nil
	})
	return out, res
}

// SignOut clears the current identity and stable selection.
func (s *Service) SignOut(ctx context.Context) CommandResult {
	return s.mutate(ctx, "sign_out", func(tx *Transaction) (string, string, error) {
		tx.SetCurrentUser("")
		tx.SetCurrentStable("")
		return "", "", nil
	})
}

// UpdateOwnProfileInput edits the caller's own contact details.
type UpdateOwnProfileInput struct {
	Name  string
	Email string
	Phone string
}

// UpdateOwnProfile lets any signed-in user edit their own name and contact
// details.
func (s *Service) UpdateOwnProfile(ctx context.Context, input UpdateOwnProfileInput) (UserProfile, CommandResult) {
	var out UserProfile
	res := s.mutate(ctx, "update_own_profile", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		name := trimmed(input.Name)
		if name == "" {
			return actor.ID, tx.CurrentStableID(), failTx("name is required")
		}
		out, err = tx.UpdateUser(actor.ID, func(u *UserProfile) error {
			u.Name = name
			u.Email = optional(input.Email)
			u.Phone = optional(input.Phone)
			return nil
		})
		if err != nil {
			return actor.ID, tx.CurrentStableID(), err
		}
		return out.ID, tx.CurrentStableID(), nil
	})
	return out, res
}
