package core

import (
	"context"
	"strconv"

	"stablecore/pkg/domain"
)

// UpsertStableInput creates a stable when ID is empty, renames otherwise.
type UpsertStableInput struct {
	ID       string
	Name     string
	Location string
	FarmID   string
}

// UpsertStable creates or updates a stable. Creating grants the caller an
// admin membership with owner access and selects the new stable when none is
// selected yet.
func (s *Service) UpsertStable(ctx context.Context, input UpsertStableInput) (Stable, CommandResult) {
	var out Stable
	res := s.mutate(ctx, "upsert_stable", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		name := trimmed(input.Name)
		if name == "" {
			return "", "", failTx("stable name is required")
		}
		if input.FarmID != "" {
			if _, ok := tx.FindFarm(input.FarmID); !ok {
				return "", "", failTxf("farm %q not found", input.FarmID)
			}
		}

		if input.ID == "" {
			out, err = tx.CreateStable(Stable{
				Name:     name,
				Location: optional(input.Location),
				FarmID:   optional(input.FarmID),
			})
			if err != nil {
				return "", "", err
			}
			_, err = tx.UpdateUser(actor.ID, func(u *UserProfile) error {
				u.Memberships = append(u.Memberships, Membership{
					StableID: out.ID,
					Role:     RoleAdmin,
					Access:   AccessOwner,
				})
				return nil
			})
			if err != nil {
				return out.ID, out.ID, err
			}
			if tx.CurrentStableID() == "" {
				tx.SetCurrentStable(out.ID)
			}
			history(tx, out.ID, actor.ID, "stable", "Stallet %s skapades", out.Name)
			return out.ID, out.ID, nil
		}

		current, ok := tx.FindStable(input.ID)
		if !ok {
			return "", "", failTxf("stable %q not found", input.ID)
		}
		caps := domain.ResolveCapabilities(&actor, current.ID)
		if !caps.ManageStableSettings {
			return current.ID, current.ID, permissionDenied()
		}
		out, err = tx.UpdateStable(current.ID, func(st *Stable) error {
			st.Name = name
			st.Location = optional(input.Location)
			if input.FarmID != "" {
				id := input.FarmID
				st.FarmID = &id
			}
			return nil
		})
		if err != nil {
			return current.ID, current.ID, err
		}
		return out.ID, out.ID, nil
	})
	return out, res
}

// UpdateStableSettingsInput adjusts per-stable behaviour switches. Nil fields
// are left untouched.
type UpdateStableSettingsInput struct {
	StableID        string
	DayHandling     *DayHandling
	EventVisibility map[string]bool
	RideTypes       []RideType
}

// UpdateStableSettings updates day handling, event visibility and the ride
// type catalogue of a stable.
func (s *Service) UpdateStableSettings(ctx context.Context, input UpdateStableSettingsInput) (Stable, CommandResult) {
	var out Stable
	res := s.mutate(ctx, "update_stable_settings", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageStableSettings {
			return st.ID, st.ID, permissionDenied()
		}
		if input.DayHandling != nil && *input.DayHandling != DayHandlingBox && *input.DayHandling != DayHandlingLoose {
			return st.ID, st.ID, failTxf("unknown day handling %q", string(*input.DayHandling))
		}
		for _, rt := range input.RideTypes {
			if trimmed(rt.Code) == "" || trimmed(rt.Label) == "" {
				return st.ID, st.ID, failTx("ride types need both code and label")
			}
		}

		out, err = tx.UpdateStable(st.ID, func(st *Stable) error {
			if input.DayHandling != nil {
				st.Settings.DayHandling = *input.DayHandling
			}
			if input.EventVisibility != nil {
				st.Settings.EventVisibility = input.EventVisibility
			}
			if input.RideTypes != nil {
				st.RideTypes = input.RideTypes
			}
			return nil
		})
		if err != nil {
			return st.ID, st.ID, err
		}
		return out.ID, out.ID, nil
	})
	return out, res
}

// DeleteStable removes a stable and everything scoped to it. Owner access
// required.
func (s *Service) DeleteStable(ctx context.Context, stableID string) CommandResult {
	return s.mutate(ctx, "delete_stable", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, ok := tx.FindStable(trimmed(stableID))
		if !ok {
			return "", "", failTxf("stable %q not found", stableID)
		}
		m, ok := actor.MembershipFor(st.ID)
		if !ok || !m.Access.AtLeast(AccessOwner) {
			return st.ID, st.ID, permissionDenied()
		}
		if err := tx.DeleteStable(st.ID); err != nil {
			return st.ID, st.ID, err
		}
		return st.ID, st.ID, nil
	})
}

// UpsertFarmInput creates a farm when ID is empty, updates otherwise.
type UpsertFarmInput struct {
	ID              string
	Name            string
	IndoorArena     bool
	IndoorArenaNote string
}

// UpsertFarm creates or updates a farm. Farms are not stable-scoped; during
// onboarding no stable exists yet, so any signed-in user may create one.
// Updating requires onboarding access on the currently selected stable when
// one is selected.
func (s *Service) UpsertFarm(ctx context.Context, input UpsertFarmInput) (Farm, CommandResult) {
	var out Farm
	res := s.mutate(ctx, "upsert_farm", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		name := trimmed(input.Name)
		if name == "" {
			return "", "", failTx("farm name is required")
		}
		if stableID := tx.CurrentStableID(); stableID != "" && input.ID != "" {
			caps := domain.ResolveCapabilities(&actor, stableID)
			if !caps.ManageOnboarding {
				return input.ID, stableID, permissionDenied()
			}
		}

		if input.ID == "" {
			out, err = tx.CreateFarm(Farm{
				Name:            name,
				IndoorArena:     input.IndoorArena,
				IndoorArenaNote: optional(input.IndoorArenaNote),
			})
		} else {
			if _, ok := tx.FindFarm(input.ID); !ok {
				return "", "", failTxf("farm %q not found", input.ID)
			}
			out, err = tx.UpdateFarm(input.ID, func(f *Farm) error {
				f.Name = name
				f.IndoorArena = input.IndoorArena
				f.IndoorArenaNote = optional(input.IndoorArenaNote)
				return nil
			})
		}
		if err != nil {
			return "", "", err
		}
		return out.ID, tx.CurrentStableID(), nil
	})
	return out, res
}

// DeleteFarm removes a farm. Stables referencing it keep existing with the
// reference cleared.
func (s *Service) DeleteFarm(ctx context.Context, farmID string) CommandResult {
	return s.mutate(ctx, "delete_farm", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		if _, ok := tx.FindFarm(trimmed(farmID)); !ok {
			return "", "", failTxf("farm %q not found", farmID)
		}
		if stableID := tx.CurrentStableID(); stableID != "" {
			caps := domain.ResolveCapabilities(&actor, stableID)
			if !caps.ManageOnboarding {
				return farmID, stableID, permissionDenied()
			}
		}
		if err := tx.DeleteFarm(trimmed(farmID)); err != nil {
			return farmID, "", err
		}
		return farmID, tx.CurrentStableID(), nil
	})
}

// UpsertHorseInput creates a horse when ID is empty, updates otherwise. Age
// arrives as form text and must parse as a non-negative integer when set.
type UpsertHorseInput struct {
	ID       string
	StableID string
	Name     string
	OwnerID  string
	Gender   string
	Age      string
	Note     string
}

// UpsertHorse creates or updates a horse record.
func (s *Service) UpsertHorse(ctx context.Context, input UpsertHorseInput) (Horse, CommandResult) {
	var out Horse
	res := s.mutate(ctx, "upsert_horse", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageHorses {
			return input.ID, st.ID, permissionDenied()
		}
		name := trimmed(input.Name)
		if name == "" {
			return input.ID, st.ID, failTx("horse name is required")
		}
		var age *int
		if raw := trimmed(input.Age); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return input.ID, st.ID, failTxf("invalid age %q", raw)
			}
			age = &n
		}
		if input.OwnerID != "" {
			if _, ok := tx.FindUser(input.OwnerID); !ok {
				return input.ID, st.ID, failTxf("owner %q not found", input.OwnerID)
			}
		}

		if input.ID == "" {
			out, err = tx.CreateHorse(Horse{
				Name:     name,
				StableID: st.ID,
				OwnerID:  optional(input.OwnerID),
				Gender:   optional(input.Gender),
				Age:      age,
				Note:     optional(input.Note),
			})
			if err == nil {
				history(tx, st.ID, actor.ID, "horse", "Hästen %s lades till", out.Name)
			}
		} else {
			if _, ok := tx.FindHorse(input.ID); !ok {
				return "", st.ID, failTxf("horse %q not found", input.ID)
			}
			out, err = tx.UpdateHorse(input.ID, func(h *Horse) error {
				h.Name = name
				h.OwnerID = optional(input.OwnerID)
				h.Gender = optional(input.Gender)
				h.Age = age
				h.Note = optional(input.Note)
				return nil
			})
		}
		if err != nil {
			return input.ID, st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// DeleteHorse removes a horse together with its ride log and day statuses.
func (s *Service) DeleteHorse(ctx context.Context, horseID string) CommandResult {
	return s.mutate(ctx, "delete_horse", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		h, ok := tx.FindHorse(trimmed(horseID))
		if !ok {
			return "", "", failTxf("horse %q not found", horseID)
		}
		caps := domain.ResolveCapabilities(&actor, h.StableID)
		if !caps.ManageHorses {
			return h.ID, h.StableID, permissionDenied()
		}
		if err := tx.DeleteHorse(h.ID); err != nil {
			return h.ID, h.StableID, err
		}
		return h.ID, h.StableID, nil
	})
}

// UpsertPaddockInput creates a paddock when ID is empty, updates otherwise.
type UpsertPaddockInput struct {
	ID       string
	StableID string
	Name     string
	Note     string
}

// UpsertPaddock creates or updates a paddock.
func (s *Service) UpsertPaddock(ctx context.Context, input UpsertPaddockInput) (Paddock, CommandResult) {
	var out Paddock
	res := s.mutate(ctx, "upsert_paddock", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManagePaddocks {
			return input.ID, st.ID, permissionDenied()
		}
		name := trimmed(input.Name)
		if name == "" {
			return input.ID, st.ID, failTx("paddock name is required")
		}

		if input.ID == "" {
			out, err = tx.CreatePaddock(Paddock{StableID: st.ID, Name: name, Note: optional(input.Note)})
		} else {
			if _, ok := tx.FindPaddock(input.ID); !ok {
				return "", st.ID, failTxf("paddock %q not found", input.ID)
			}
			out, err = tx.UpdatePaddock(input.ID, func(p *Paddock) error {
				p.Name = name
				p.Note = optional(input.Note)
				return nil
			})
		}
		if err != nil {
			return input.ID, st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// DeletePaddock removes a paddock.
func (s *Service) DeletePaddock(ctx context.Context, paddockID string) CommandResult {
	return s.mutate(ctx, "delete_paddock", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		p, ok := tx.FindPaddock(trimmed(paddockID))
		if !ok {
			return "", "", failTxf("paddock %q not found", paddockID)
		}
		caps := domain.ResolveCapabilities(&actor, p.StableID)
		if !caps.ManagePaddocks {
			return p.ID, p.StableID, permissionDenied()
		}
		if err := tx.DeletePaddock(p.ID); err != nil {
			return p.ID, p.StableID, err
		}
		return p.ID, p.StableID, nil
	})
}

// SetHorseDayStatusInput upserts the box/loose handling override of one horse
// on one calendar day.
type SetHorseDayStatusInput struct {
	HorseID  string
	Date     string
	Handling DayHandling
	Note     string
}

// SetHorseDayStatus records the daily handling status for a horse. One record
// per (horse, date) is kept.
func (s *Service) SetHorseDayStatus(ctx context.Context, input SetHorseDayStatusInput) (HorseDayStatus, CommandResult) {
	var out HorseDayStatus
	res := s.mutate(ctx, "set_horse_day_status", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		h, ok := tx.FindHorse(trimmed(input.HorseID))
		if !ok {
			return "", "", failTxf("horse %q not found", input.HorseID)
		}
		caps := domain.ResolveCapabilities(&actor, h.StableID)
		if !caps.ManageHorses {
			return h.ID, h.StableID, permissionDenied()
		}
		if !validDate(trimmed(input.Date)) {
			return h.ID, h.StableID, failTx("status date is required (YYYY-MM-DD)")
		}
		if input.Handling != DayHandlingBox && input.Handling != DayHandlingLoose {
			return h.ID, h.StableID, failTxf("unknown day handling %q", string(input.Handling))
		}

		out, err = tx.PutHorseDayStatus(HorseDayStatus{
			StableID: h.StableID,
			HorseID:  h.ID,
			Date:     trimmed(input.Date),
			Handling: input.Handling,
			Note:     optional(input.Note),
		})
		if err != nil {
			return h.ID, h.StableID, err
		}
		return out.ID, h.StableID, nil
	})
	return out, res
}

// ClearHorseDayStatus removes a previously recorded day status.
func (s *Service) ClearHorseDayStatus(ctx context.Context, statusID string) CommandResult {
	return s.mutate(ctx, "clear_horse_day_status", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		for _, d := range tx.state.dayStatuses {
			if d.ID == trimmed(statusID) {
				caps := domain.ResolveCapabilities(&actor, d.StableID)
				if !caps.ManageHorses {
					return d.ID, d.StableID, permissionDenied()
				}
				if err := tx.DeleteHorseDayStatus(d.ID); err != nil {
					return d.ID, d.StableID, err
				}
				return d.ID, d.StableID, nil
			}
		}
		return "", "", failTxf("day status %q not found", statusID)
	})
}
