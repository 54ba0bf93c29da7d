package core

import "stablecore/pkg/domain"

type (
	EntityType       = domain.EntityType
	Role             = domain.Role
	RiderRole        = domain.RiderRole
	AccessLevel      = domain.AccessLevel
	DayHandling      = domain.DayHandling
	Slot             = domain.Slot
	AssignmentStatus = domain.AssignmentStatus
	AssignedVia      = domain.AssignedVia
	Base             = domain.Base
	Farm             = domain.Farm
	Stable           = domain.Stable
	StableSettings   = domain.StableSettings
	RideType         = domain.RideType
	Horse            = domain.Horse
	Paddock          = domain.Paddock
	UserProfile      = domain.UserProfile
	Membership       = domain.Membership
	DefaultPass      = domain.DefaultPass
	AwayNotice       = domain.AwayNotice
	Assignment       = domain.Assignment
	HorseDayStatus   = domain.HorseDayStatus
	DayEvent         = domain.DayEvent
	ArenaBooking     = domain.ArenaBooking
	ArenaStatus      = domain.ArenaStatus
	RideLogEntry     = domain.RideLogEntry
	Post             = domain.Post
	PostComment      = domain.PostComment
	Group            = domain.Group
	Conversation     = domain.Conversation
	Message          = domain.Message
	HistoryEntry     = domain.HistoryEntry
	Change           = domain.Change
	Action           = domain.Action
	CommandResult    = domain.CommandResult
	Capabilities     = domain.Capabilities
	PersistedState   = domain.PersistedState
)

const (
	RoleAdmin     = domain.RoleAdmin
	RoleStaff     = domain.RoleStaff
	RoleRider     = domain.RoleRider
	RoleFarrier   = domain.RoleFarrier
	RoleVet       = domain.RoleVet
	RoleTrainer   = domain.RoleTrainer
	RoleTherapist = domain.RoleTherapist
	RoleGuest     = domain.RoleGuest
)

const (
	AccessView  = domain.AccessView
	AccessEdit  = domain.AccessEdit
	AccessOwner = domain.AccessOwner
)

const (
	DayHandlingBox   = domain.DayHandlingBox
	DayHandlingLoose = domain.DayHandlingLoose
)

const (
	SlotMorning = domain.SlotMorning
	SlotLunch   = domain.SlotLunch
	SlotEvening = domain.SlotEvening
)

const (
	AssignmentOpen      = domain.AssignmentOpen
	AssignmentAssigned  = domain.AssignmentAssigned
	AssignmentCompleted = domain.AssignmentCompleted
)

const (
	AssignedViaDefault = domain.AssignedViaDefault
	AssignedViaManual  = domain.AssignedViaManual
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
