package core

import (
	"sort"
	"strings"
	"time"

	"stablecore/pkg/domain"
)

// Views are derived read models computed on demand from the committed
// snapshot. They hold no state of their own and never mutate the store.

// ShiftCounts aggregates the shift situation of one stable from today
// onwards.
type ShiftCounts struct {
	Total     int `json:"total"`
	Open      int `json:"open"`
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
}

// DashboardView is the per-stable landing summary.
type DashboardView struct {
	StableID   string      `json:"stable_id"`
	StableName string      `json:"stable_name"`
	Shifts     ShiftCounts `json:"shifts"`
	// ActiveAlerts lists arena reports whose condition is not "ok".
	ActiveAlerts []ArenaStatus `json:"active_alerts,omitempty"`
	// NextShift is the caller's next assigned shift, or the earliest open
	// one when nothing is assigned to them.
	NextShift *Assignment `json:"next_shift,omitempty"`
	// Upcoming holds at most five future shifts that are open or assigned
	// to the caller, sorted by date then start time. Shifts held by other
	// members are not the caller's concern.
	Upcoming []Assignment `json:"upcoming,omitempty"`
	// RecentActivity holds at most five history entries, newest first.
	RecentActivity []HistoryEntry `json:"recent_activity,omitempty"`
}

// Dashboard builds the landing view for the currently selected stable. The
// second return is false when no stable is selected.
func (s *Service) Dashboard() (DashboardView, bool) {
	stableID := s.store.CurrentStableID()
	st, ok := s.store.GetStable(stableID)
	if !ok {
		return DashboardView{}, false
	}
	callerID := s.store.CurrentUserID()
	today := s.store.Now().Format(domain.DateLayout)

	view := DashboardView{StableID: st.ID, StableName: st.Name}

	var future []Assignment
	for _, a := range s.store.ListAssignments() {
		if a.StableID != st.ID || a.Date < today {
			continue
		}
		view.Shifts.Total++
		switch a.Status {
		case AssignmentOpen:
			view.Shifts.Open++
		case AssignmentAssigned:
			view.Shifts.Assigned++
		case AssignmentCompleted:
			view.Shifts.Completed++
		}
		if a.Status == AssignmentCompleted {
			continue
		}
		if a.AssigneeID == nil || *a.AssigneeID == callerID {
			future = append(future, a)
		}
	}
	sort.Slice(future, func(i, j int) bool {
		if future[i].Date != future[j].Date {
			return future[i].Date < future[j].Date
		}
		if future[i].StartTime != future[j].StartTime {
			return future[i].StartTime < future[j].StartTime
		}
		return future[i].ID < future[j].ID
	})

	view.NextShift = nextShift(future, callerID)
	if len(future) > 5 {
		future = future[:5]
	}
	view.Upcoming = future

	for _, rep := range s.store.ListArenaStatuses() {
		if rep.StableID == st.ID && rep.Condition != "ok" {
			view.ActiveAlerts = append(view.ActiveAlerts, rep)
		}
	}

	history := s.store.History()
	for i := len(history) - 1; i >= 0 && len(view.RecentActivity) < 5; i-- {
		if history[i].StableID == st.ID {
			view.RecentActivity = append(view.RecentActivity, history[i])
		}
	}

	return view, true
}

// nextShift picks the caller's earliest assigned shift, falling back to the
// earliest open one. Input must already be sorted by date and start time.
func nextShift(future []Assignment, callerID string) *Assignment {
	if callerID != "" {
		for _, a := range future {
			if a.Status == AssignmentAssigned && a.AssigneeID != nil && *a.AssigneeID == callerID {
				pick := a
				return &pick
			}
		}
	}
	for _, a := range future {
		if a.Status == AssignmentOpen {
			pick := a
			return &pick
		}
	}
	return nil
}

// WeekShift pairs one calendar day of the shift schedule with its slot rows.
type WeekShift struct {
	Date        string       `json:"date"`
	Weekday     int          `json:"weekday"`
	Assignments []Assignment `json:"assignments"`
}

// WeekSchedule lists the shifts of the selected stable for the seven days
// starting at from (a calendar date). Malformed dates yield a nil schedule.
func (s *Service) WeekSchedule(from string) []WeekShift {
	start, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return nil
	}
	stableID := s.store.CurrentStableID()
	if stableID == "" {
		return nil
	}

	byDate := make(map[string][]Assignment)
	for _, a := range s.store.ListAssignments() {
		if a.StableID == stableID {
			byDate[a.Date] = append(byDate[a.Date], a)
		}
	}

	week := make([]WeekShift, 0, 7)
	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i).Format(domain.DateLayout)
		day := WeekShift{Date: date, Weekday: domain.WeekdayOf(date)}
		day.Assignments = byDate[date]
		sort.Slice(day.Assignments, func(a, b int) bool {
			if day.Assignments[a].StartTime != day.Assignments[b].StartTime {
				return day.Assignments[a].StartTime < day.Assignments[b].StartTime
			}
			return day.Assignments[a].ID < day.Assignments[b].ID
		})
		week = append(week, day)
	}
	return week
}

// SearchResult groups matches of a free-text search across the selected
// stable.
type SearchResult struct {
	Horses   []Horse       `json:"horses,omitempty"`
	Members  []UserProfile `json:"members,omitempty"`
	Paddocks []Paddock     `json:"paddocks,omitempty"`
}

// Search matches horses, members and paddocks of the selected stable by
// case-insensitive substring. A blank query matches nothing.
func (s *Service) Search(query string) SearchResult {
	var out SearchResult
	q := strings.ToLower(strings.TrimSpace(query))
	stableID := s.store.CurrentStableID()
	if q == "" || stableID == "" {
		return out
	}

	for _, h := range s.store.ListHorses() {
		if h.StableID == stableID && strings.Contains(strings.ToLower(h.Name), q) {
			out.Horses = append(out.Horses, h)
		}
	}
	for _, u := range s.store.ListUsers() {
		if _, ok := u.MembershipFor(stableID); !ok {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), q) {
			out.Members = append(out.Members, u)
		}
	}
	for _, p := range s.store.ListPaddocks() {
		if p.StableID == stableID && strings.Contains(strings.ToLower(p.Name), q) {
			out.Paddocks = append(out.Paddocks, p)
		}
	}
	return out
}

// FeedView pairs posts of the selected stable, newest first, with resolved
// author names.
type FeedView struct {
	Posts []FeedPost `json:"posts"`
}

// FeedPost is a post enriched with its author's display name.
type FeedPost struct {
	Post
	AuthorName string `json:"author_name"`
}

// Feed lists the posts of the selected stable, newest first.
func (s *Service) Feed() FeedView {
	var out FeedView
	stableID := s.store.CurrentStableID()
	if stableID == "" {
		return out
	}
	for _, p := range s.store.ListPosts() {
		if p.StableID != stableID {
			continue
		}
		fp := FeedPost{Post: p}
		if u, ok := s.store.GetUser(p.AuthorID); ok {
			fp.AuthorName = u.Name
		}
		out.Posts = append(out.Posts, fp)
	}
	sort.Slice(out.Posts, func(i, j int) bool {
		if !out.Posts[i].CreatedAt.Equal(out.Posts[j].CreatedAt) {
			return out.Posts[i].CreatedAt.After(out.Posts[j].CreatedAt)
		}
		return out.Posts[i].ID < out.Posts[j].ID
	})
	return out
}

// HorseCard bundles one horse with its owner name and latest day status.
type HorseCard struct {
	Horse
	OwnerName string          `json:"owner_name,omitempty"`
	Today     *HorseDayStatus `json:"today,omitempty"`
}

// HorseBoard lists the horses of the selected stable with today's handling
// status resolved.
func (s *Service) HorseBoard() []HorseCard {
	stableID := s.store.CurrentStableID()
	if stableID == "" {
		return nil
	}
	today := s.store.Now().Format(domain.DateLayout)

	statusByHorse := make(map[string]HorseDayStatus)
	for _, d := range s.store.ListHorseDayStatuses() {
		if d.StableID == stableID && d.Date == today {
			statusByHorse[d.HorseID] = d
		}
	}

	var cards []HorseCard
	for _, h := range s.store.ListHorses() {
		if h.StableID != stableID {
			continue
		}
		card := HorseCard{Horse: h}
		if h.OwnerID != nil {
			if u, ok := s.store.GetUser(*h.OwnerID); ok {
				card.OwnerName = u.Name
			}
		}
		if d, ok := statusByHorse[h.ID]; ok {
			st := d
			card.Today = &st
		}
		cards = append(cards, card)
	}
	return cards
}
