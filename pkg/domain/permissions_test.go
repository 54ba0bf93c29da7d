package domain

import (
	"reflect"
	"testing"
)

func memberUser(role Role, access AccessLevel) *UserProfile {
	return &UserProfile{
		Base: Base{ID: "user-1"},
		Name: "Test User",
		Memberships: []Membership{
			{StableID: "stable-1", Role: role, Access: access},
		},
	}
}

func TestResolveCapabilitiesFailClosed(t *testing.T) {
	if got := ResolveCapabilities(nil, "stable-1"); got != (Capabilities{}) {
		t.Fatalf("nil user should resolve to zero capabilities, got %+v", got)
	}
	u := memberUser(RoleAdmin, AccessOwner)
	if got := ResolveCapabilities(u, "other-stable"); got != (Capabilities{}) {
		t.Fatalf("missing membership should resolve to zero capabilities, got %+v", got)
	}
	if got := ResolveCapabilities(u, ""); got != (Capabilities{}) {
		t.Fatalf("empty stable id should resolve to zero capabilities, got %+v", got)
	}
}

func TestResolveCapabilitiesAccessAxis(t *testing.T) {
	viewOnly := ResolveCapabilities(memberUser(RoleRider, AccessView), "stable-1")
	if viewOnly.ManageAssignments || viewOnly.ManageHorses || viewOnly.ManagePaddocks || viewOnly.ManageStableSettings {
		t.Fatalf("view access must not grant management: %+v", viewOnly)
	}
	if viewOnly.ManageMembers {
		t.Fatalf("view access must not grant member management")
	}

	edit := ResolveCapabilities(memberUser(RoleRider, AccessEdit), "stable-1")
	if !edit.ManageAssignments || !edit.ManageHorses || !edit.ManagePaddocks || !edit.ManageStableSettings {
		t.Fatalf("edit access should grant record management: %+v", edit)
	}
	if edit.ManageMembers || edit.ManageOnboarding {
		t.Fatalf("edit access must not grant owner-level capabilities: %+v", edit)
	}

	owner := ResolveCapabilities(memberUser(RoleRider, AccessOwner), "stable-1")
	if !owner.ManageMembers || !owner.ManageOnboarding {
		t.Fatalf("owner access should grant member management: %+v", owner)
	}
}

func TestResolveCapabilitiesRoleAxis(t *testing.T) {
	cases := []struct {
		role        Role
		claimShifts bool
		arena       bool
		posts       bool
		interact    bool
	}{
		{RoleAdmin, true, true, true, true},
		{RoleStaff, true, true, true, true},
		{RoleRider, true, false, true, true},
		{RoleFarrier, false, false, false, true},
		{RoleVet, false, false, false, true},
		{RoleGuest, false, false, false, false},
	}
	for _, tc := range cases {
		caps := ResolveCapabilities(memberUser(tc.role, AccessView), "stable-1")
		if caps.ClaimShifts != tc.claimShifts {
			t.Errorf("%s: ClaimShifts = %v, want %v", tc.role, caps.ClaimShifts, tc.claimShifts)
		}
		if caps.ManageArena != tc.arena {
			t.Errorf("%s: ManageArena = %v, want %v", tc.role, caps.ManageArena, tc.arena)
		}
		if caps.CreatePosts != tc.posts {
			t.Errorf("%s: CreatePosts = %v, want %v", tc.role, caps.CreatePosts, tc.posts)
		}
		if caps.CommentAndLike != tc.interact {
			t.Errorf("%s: CommentAndLike = %v, want %v", tc.role, caps.CommentAndLike, tc.interact)
		}
	}
}

func TestResolveCapabilitiesIsPure(t *testing.T) {
	u := memberUser(RoleStaff, AccessEdit)
	before := memberUser(RoleStaff, AccessEdit)
	_ = ResolveCapabilities(u, "stable-1")
	if !reflect.DeepEqual(u, before) {
		t.Fatalf("resolver must not mutate its input: %+v != %+v", u, before)
	}
}

func TestDefaultAccessForRole(t *testing.T) {
	if got := DefaultAccessForRole(RoleAdmin); got != AccessOwner {
		t.Fatalf("admin default access = %s, want owner", got)
	}
	if got := DefaultAccessForRole(RoleStaff); got != AccessEdit {
		t.Fatalf("staff default access = %s, want edit", got)
	}
	for _, role := range []Role{RoleRider, RoleFarrier, RoleVet, RoleTrainer, RoleTherapist, RoleGuest} {
		if got := DefaultAccessForRole(role); got != AccessView {
			t.Fatalf("%s default access = %s, want view", role, got)
		}
	}
}

func TestAccessLevelRank(t *testing.T) {
	if !AccessOwner.AtLeast(AccessEdit) || !AccessEdit.AtLeast(AccessView) {
		t.Fatalf("access ordering broken")
	}
	if AccessView.AtLeast(AccessEdit) {
		t.Fatalf("view must not satisfy edit")
	}
	var unknown AccessLevel = "superuser"
	if unknown.AtLeast(AccessView) {
		t.Fatalf("unknown level must never satisfy a requirement")
	}
}
