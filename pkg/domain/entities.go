// Package domain defines the core persistent entities, value types, and
// capability primitives used by stablecore.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityStable identifies a stable record.
	EntityStable EntityType = "stable"
	// EntityFarm identifies a farm record.
	EntityFarm EntityType = "farm"
	// EntityHorse identifies a horse record.
	EntityHorse EntityType = "horse"
	// EntityPaddock identifies a paddock record.
	EntityPaddock EntityType = "paddock"
	// EntityUser identifies a user profile record.
	EntityUser EntityType = "user"
	// EntityAssignment identifies a shift assignment record.
	EntityAssignment EntityType = "assignment"
	// EntityHorseDayStatus identifies a per-day horse handling record.
	EntityHorseDayStatus EntityType = "horse_day_status"
	// EntityDayEvent identifies a calendar day event record.
	EntityDayEvent EntityType = "day_event"
	// EntityArenaBooking identifies an arena booking record.
	EntityArenaBooking EntityType = "arena_booking"
	// EntityArenaStatus identifies an arena status report.
	EntityArenaStatus EntityType = "arena_status"
	// EntityRideLog identifies a ride log entry.
	EntityRideLog EntityType = "ride_log"
	// EntityPost identifies a feed post.
	EntityPost EntityType = "post"
	// EntityGroup identifies a custom member group.
	EntityGroup EntityType = "group"
	// EntityConversation identifies a chat conversation.
	EntityConversation EntityType = "conversation"
)

// Role is a job-function tag carried by a membership. It gates action
// categories independently of the access level.
type Role string

// Membership roles recognised by the capability resolver.
const (
	RoleAdmin     Role = "admin"
	RoleStaff     Role = "staff"
	RoleRider     Role = "rider"
	RoleFarrier   Role = "farrier"
	RoleVet       Role = "vet"
	RoleTrainer   Role = "trainer"
	RoleTherapist Role = "therapist"
	RoleGuest     Role = "guest"
)

// KnownRole reports whether r is one of the recognised membership roles.
func KnownRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleRider, RoleFarrier, RoleVet, RoleTrainer, RoleTherapist, RoleGuest:
		return true
	}
	return false
}

// RiderRole refines a rider membership.
type RiderRole string

// Rider sub-roles.
const (
	RiderOwner      RiderRole = "owner"
	RiderMedryttare RiderRole = "medryttare"
	RiderOther      RiderRole = "other"
)

// AccessLevel is the ordered permission tier gating management actions.
type AccessLevel string

// Access levels ordered view < edit < owner.
const (
	AccessView  AccessLevel = "view"
	AccessEdit  AccessLevel = "edit"
	AccessOwner AccessLevel = "owner"
)

// Rank maps an access level onto its ordering (view=0 < edit=1 < owner=2).
// Unknown levels rank below view so malformed data fails closed.
func (a AccessLevel) Rank() int {
	switch a {
	case AccessView:
		return 0
	case AccessEdit:
		return 1
	case AccessOwner:
		return 2
	}
	return -1
}

// AtLeast reports whether a grants at minimum the given level.
func (a AccessLevel) AtLeast(min AccessLevel) bool {
	return a.Rank() >= min.Rank() && min.Rank() >= 0
}

// DefaultAccessForRole returns the access level a new membership receives
// when none is given explicitly: admins own, staff edit, everyone else views.
func DefaultAccessForRole(role Role) AccessLevel {
	switch role {
	case RoleAdmin:
		return AccessOwner
	case RoleStaff:
		return AccessEdit
	}
	return AccessView
}

// Slot is one of the fixed ordered shift times.
type Slot string

// Shift slots in day order.
const (
	SlotMorning Slot = "morning"
	SlotLunch   Slot = "lunch"
	SlotEvening Slot = "evening"
)

// Slots lists the shift slots in their fixed day order.
func Slots() []Slot {
	return []Slot{SlotMorning, SlotLunch, SlotEvening}
}

// Index returns the slot's position in the fixed day order, or -1 when unknown.
func (s Slot) Index() int {
	switch s {
	case SlotMorning:
		return 0
	case SlotLunch:
		return 1
	case SlotEvening:
		return 2
	}
	return -1
}

// DefaultLabel returns the display label a slot implies when the caller
// supplies none.
func (s Slot) DefaultLabel() string {
	switch s {
	case SlotMorning:
		return "Morgonpass"
	case SlotLunch:
		return "Lunchpass"
	case SlotEvening:
		return "Kvällspass"
	}
	return ""
}

// DefaultStartTime returns the time of day a slot implies when the caller
// supplies none, formatted HH:MM.
func (s Slot) DefaultStartTime() string {
	switch s {
	case SlotMorning:
		return "07:00"
	case SlotLunch:
		return "12:00"
	case SlotEvening:
		return "18:00"
	}
	return ""
}

// AssignmentStatus enumerates the shift occurrence lifecycle.
type AssignmentStatus string

// Assignment statuses. Completed is terminal.
const (
	AssignmentOpen      AssignmentStatus = "open"
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentCompleted AssignmentStatus = "completed"
)

// AssignedVia distinguishes how an assignment got its assignee.
type AssignedVia string

// Assignment provenance tags. Empty when the assignment is open.
const (
	// AssignedViaDefault marks a shift the reconciliation pass assigned
	// from a matching default pass.
	AssignedViaDefault AssignedVia = "default"
	// AssignedViaManual marks a shift a user claimed themselves. Manual
	// intent is never overridden by reconciliation.
	AssignedViaManual AssignedVia = "manual"
)

// DayHandling selects how a stable turns horses out for the day.
type DayHandling string

// Day handling modes.
const (
	DayHandlingBox   DayHandling = "box"
	DayHandlingLoose DayHandling = "loose"
)

// DateLayout is the calendar-day format used across the engine. Assignment
// dates, day statuses and away notices are calendar days, not instants.
const DateLayout = "2006-01-02"

// WeekdayOf derives the reconciliation weekday (Monday=0 .. Sunday=6) from
// a calendar date. Returns -1 for malformed dates.
func WeekdayOf(date string) int {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return -1
	}
	// time.Weekday counts Sunday=0; rotate so Monday=0.
	return (int(t.Weekday()) + 6) % 7
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Farm groups stables that share a yard, optionally with an indoor arena.
type Farm struct {
	Base
	Name            string  `json:"name"`
	IndoorArena     bool    `json:"indoor_arena"`
	IndoorArenaNote *string `json:"indoor_arena_note,omitempty"`
}

// RideType is a per-stable ride classification referenced by ride log entries.
type RideType struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// StableSettings carries per-stable behaviour switches.
type StableSettings struct {
	DayHandling DayHandling `json:"day_handling"`
	// EventVisibility toggles day-event categories on the calendar.
	EventVisibility map[string]bool `json:"event_visibility,omitempty"`
}

// Stable is the tenancy unit every other record is scoped to.
type Stable struct {
	Base
	Name      string         `json:"name"`
	Location  *string        `json:"location,omitempty"`
	FarmID    *string        `json:"farm_id"`
	RideTypes []RideType     `json:"ride_types"`
	Settings  StableSettings `json:"settings"`
}

// Horse is a stable-scoped horse record.
type Horse struct {
	Base
	Name     string  `json:"name"`
	StableID string  `json:"stable_id"`
	OwnerID  *string `json:"owner_id"`
	Gender   *string `json:"gender,omitempty"`
	Age      *int    `json:"age,omitempty"`
	Note     *string `json:"note,omitempty"`
}

// Paddock is a stable-scoped turnout area.
type Paddock struct {
	Base
	StableID string  `json:"stable_id"`
	Name     string  `json:"name"`
	Note     *string `json:"note,omitempty"`
}

// DefaultPass is a standing declaration "I normally do this shift on this
// weekday". Weekday counts Monday=0 .. Sunday=6.
type DefaultPass struct {
	Weekday int  `json:"weekday"`
	Slot    Slot `json:"slot"`
}

// AwayNotice marks a calendar-day range a member is unavailable.
type AwayNotice struct {
	From  string  `json:"from"`
	Until string  `json:"until"`
	Note  *string `json:"note,omitempty"`
}

// Membership is the (user, stable) relationship carrying role, access level
// and optional horse linkage.
type Membership struct {
	StableID    string      `json:"stable_id"`
	Role        Role        `json:"role"`
	Access      AccessLevel `json:"access"`
	CustomLabel *string     `json:"custom_label,omitempty"`
	RiderRole   *RiderRole  `json:"rider_role,omitempty"`
	// HorseIDs links a rider to specific horses. Empty means no explicit link.
	HorseIDs []string `json:"horse_ids,omitempty"`
}

// UserProfile is a person. One profile may belong to many stables.
type UserProfile struct {
	Base
	Name          string        `json:"name"`
	Email         *string       `json:"email,omitempty"`
	Phone         *string       `json:"phone,omitempty"`
	Memberships   []Membership  `json:"memberships"`
	DefaultPasses []DefaultPass `json:"default_passes"`
	AwayNotices   []AwayNotice  `json:"away_notices"`
}

// MembershipFor returns the user's membership for the given stable.
func (u UserProfile) MembershipFor(stableID string) (Membership, bool) {
	for _, m := range u.Memberships {
		if m.StableID == stableID {
			return m, true
		}
	}
	return Membership{}, false
}

// HasDefaultPass reports whether the user declared (weekday, slot).
func (u UserProfile) HasDefaultPass(weekday int, slot Slot) bool {
	for _, p := range u.DefaultPasses {
		if p.Weekday == weekday && p.Slot == slot {
			return true
		}
	}
	return false
}

// Assignment is a single dated, stable-scoped shift occurrence.
//
// Invariants: status "assigned" always has an assignee, "open" never does,
// and "completed" is terminal.
type Assignment struct {
	Base
	StableID    string           `json:"stable_id"`
	Date        string           `json:"date"`
	Slot        Slot             `json:"slot"`
	Label       string           `json:"label"`
	StartTime   string           `json:"start_time"`
	Status      AssignmentStatus `json:"status"`
	AssigneeID  *string          `json:"assignee_id"`
	AssignedVia AssignedVia      `json:"assigned_via,omitempty"`
	Note        *string          `json:"note,omitempty"`
	// DeclinedBy holds users who explicitly declined this occurrence;
	// reconciliation never offers it back to them.
	DeclinedBy  []string   `json:"declined_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Declined reports whether the given user declined this occurrence.
func (a Assignment) Declined(userID string) bool {
	for _, id := range a.DeclinedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// HorseDayStatus records how a horse is handled on one calendar day.
type HorseDayStatus struct {
	Base
	HorseID  string      `json:"horse_id"`
	StableID string      `json:"stable_id"`
	Date     string      `json:"date"`
	Handling DayHandling `json:"handling"`
	Note     *string     `json:"note,omitempty"`
}

// DayEvent is a stable-scoped calendar event (farrier visit, vet visit, ...).
type DayEvent struct {
	Base
	StableID  string  `json:"stable_id"`
	Date      string  `json:"date"`
	Category  string  `json:"category"`
	Title     string  `json:"title"`
	Note      *string `json:"note,omitempty"`
	CreatedBy string  `json:"created_by"`
}

// ArenaBooking reserves the arena for a member.
type ArenaBooking struct {
	Base
	StableID  string  `json:"stable_id"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	UserID    string  `json:"user_id"`
	Purpose   *string `json:"purpose,omitempty"`
}

// ArenaStatus reports the current arena condition. Any condition other than
// "ok" counts as an active alert in the dashboard summary.
type ArenaStatus struct {
	Base
	StableID   string  `json:"stable_id"`
	Condition  string  `json:"condition"`
	Note       *string `json:"note,omitempty"`
	ReportedBy string  `json:"reported_by"`
}

// RideLogEntry logs a ride of a horse by a member.
type RideLogEntry struct {
	Base
	StableID string  `json:"stable_id"`
	HorseID  string  `json:"horse_id"`
	UserID   string  `json:"user_id"`
	Date     string  `json:"date"`
	TypeCode string  `json:"type_code"`
	Note     *string `json:"note,omitempty"`
}

// PostComment is a comment on a feed post.
type PostComment struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Post is a stable-scoped feed entry.
type Post struct {
	Base
	StableID string  `json:"stable_id"`
	AuthorID string  `json:"author_id"`
	Body     string  `json:"body"`
	// AttachmentKey references an image in the blob store boundary.
	AttachmentKey *string       `json:"attachment_key,omitempty"`
	LikedBy       []string      `json:"liked_by,omitempty"`
	Comments      []PostComment `json:"comments,omitempty"`
}

// Group is a custom member group within a stable.
type Group struct {
	Base
	StableID  string   `json:"stable_id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"member_ids"`
	CreatedBy string   `json:"created_by"`
}

// Message is one chat message within a conversation.
type Message struct {
	ID       string    `json:"id"`
	SenderID string    `json:"sender_id"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at"`
}

// Conversation is a chat thread between stable members.
type Conversation struct {
	Base
	StableID       *string   `json:"stable_id"`
	ParticipantIDs []string  `json:"participant_ids"`
	Messages       []Message `json:"messages"`
}

// HistoryEntry records one action-layer mutation for the activity feed.
// History is transient and intentionally excluded from persistence.
type HistoryEntry struct {
	ID       string    `json:"id"`
	At       time.Time `json:"at"`
	StableID string    `json:"stable_id"`
	ActorID  string    `json:"actor_id"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)
