package domain

// Capabilities is the full capability set derived from one membership.
// A user without a membership on the target stable gets the zero value:
// every capability false (fail-closed).
type Capabilities struct {
	// Access-level axis.
	ManageAssignments    bool `json:"manage_assignments"`
	ManageHorses         bool `json:"manage_horses"`
	ManagePaddocks       bool `json:"manage_paddocks"`
	ManageStableSettings bool `json:"manage_stable_settings"`
	ManageMembers        bool `json:"manage_members"`
	ManageOnboarding     bool `json:"manage_onboarding"`

	// Role axis, independent of access level.
	ClaimShifts     bool `json:"claim_shifts"`
	ManageRideLog   bool `json:"manage_ride_log"`
	ManageArena     bool `json:"manage_arena"`
	ManageDayEvents bool `json:"manage_day_events"`
	CreatePosts     bool `json:"create_posts"`
	CommentAndLike  bool `json:"comment_and_like"`
	ManageGroups    bool `json:"manage_groups"`
}

func roleIn(role Role, set ...Role) bool {
	for _, r := range set {
		if role == r {
			return true
		}
	}
	return false
}

// ResolveCapabilities derives the capability set for one user on one stable.
// Pure function of the profile: no lookups, no side effects. A nil profile or
// a missing membership yields the all-false set.
func ResolveCapabilities(user *UserProfile, stableID string) Capabilities {
	if user == nil {
		return Capabilities{}
	}
	m, ok := user.MembershipFor(stableID)
	if !ok {
		return Capabilities{}
	}

	caps := Capabilities{
		ManageAssignments:    m.Access.AtLeast(AccessEdit),
		ManageHorses:         m.Access.AtLeast(AccessEdit),
		ManagePaddocks:       m.Access.AtLeast(AccessEdit),
		ManageStableSettings: m.Access.AtLeast(AccessEdit),
		ManageMembers:        m.Access.AtLeast(AccessOwner),
		ManageOnboarding:     m.Access.AtLeast(AccessOwner),
	}

	caps.ClaimShifts = roleIn(m.Role, RoleAdmin, RoleStaff, RoleRider)
	caps.ManageRideLog = roleIn(m.Role, RoleAdmin, RoleStaff, RoleRider)
	caps.ManageArena = roleIn(m.Role, RoleAdmin, RoleStaff)
	caps.ManageDayEvents = roleIn(m.Role, RoleAdmin, RoleStaff, RoleRider, RoleFarrier, RoleVet, RoleTrainer, RoleTherapist)
	caps.CreatePosts = roleIn(m.Role, RoleAdmin, RoleStaff, RoleRider)
	caps.CommentAndLike = m.Role != RoleGuest
	caps.ManageGroups = roleIn(m.Role, RoleAdmin, RoleStaff)

	return caps
}
