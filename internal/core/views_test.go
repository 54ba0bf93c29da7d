package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestDashboardCountsAndAlerts(t *testing.T) {
	svc := newTestService(t)
	seedStable(t, svc.Store())
	ctx := context.Background()

	_, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: "2026-08-30", Slot: SlotMorning})
	requireSuccess(t, res)
	_, res = svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotMorning})
	requireSuccess(t, res)
	mine, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: "2026-09-01", Slot: SlotEvening, AssignToCurrentUser: true})
	requireSuccess(t, res)
	done, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotLunch, AssignToCurrentUser: true})
	requireSuccess(t, res)
	_, res = svc.CompleteAssignment(ctx, done.ID)
	requireSuccess(t, res)

	_, res = svc.ReportArenaStatus(ctx, ReportArenaStatusInput{Condition: "harrowing needed", Note: "djupa spår"})
	requireSuccess(t, res)

	view, ok := svc.Dashboard()
	if !ok {
		t.Fatalf("dashboard must resolve with a stable selected")
	}
	if view.Shifts.Total != 3 || view.Shifts.Open != 1 || view.Shifts.Assigned != 1 || view.Shifts.Completed != 1 {
		t.Fatalf("yesterday's shift must not be counted: %+v", view.Shifts)
	}
	if len(view.ActiveAlerts) != 1 || view.ActiveAlerts[0].Condition != "harrowing needed" {
		t.Fatalf("arena report must surface as alert: %+v", view.ActiveAlerts)
	}
	if view.NextShift == nil || view.NextShift.ID != mine.ID {
		t.Fatalf("caller's own shift must win over the open one: %+v", view.NextShift)
	}
	if len(view.RecentActivity) == 0 || len(view.RecentActivity) > 5 {
		t.Fatalf("recent activity out of bounds: %d", len(view.RecentActivity))
	}
}

func TestDashboardNextShiftFallsBackToOpen(t *testing.T) {
	svc := newTestService(t)
	seedStable(t, svc.Store())
	ctx := context.Background()
	_, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: "2026-09-02", Slot: SlotMorning})
	requireSuccess(t, res)
	sooner, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotEvening})
	requireSuccess(t, res)

	view, _ := svc.Dashboard()
	if view.NextShift == nil || view.NextShift.ID != sooner.ID {
		t.Fatalf("earliest open shift must be picked: %+v", view.NextShift)
	}
}

func TestDashboardUpcomingCapped(t *testing.T) {
	svc := newTestService(t)
	seedStable(t, svc.Store())
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		date := fmt.Sprintf("2026-09-%02d", i+1)
		for _, slot := range []Slot{SlotMorning, SlotEvening} {
			_, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: date, Slot: slot})
			requireSuccess(t, res)
		}
	}

	view, _ := svc.Dashboard()
	if len(view.Upcoming) != 5 {
		t.Fatalf("upcoming must cap at five, got %d", len(view.Upcoming))
	}
	for i := 1; i < len(view.Upcoming); i++ {
		prev, cur := view.Upcoming[i-1], view.Upcoming[i]
		if prev.Date > cur.Date || (prev.Date == cur.Date && prev.StartTime > cur.StartTime) {
			t.Fatalf("upcoming out of order: %s %s before %s %s", prev.Date, prev.StartTime, cur.Date, cur.StartTime)
		}
	}
}

func TestDashboardUpcomingOmitsShiftsHeldByOthers(t *testing.T) {
	svc := newTestService(t)
	st, _ := seedStable(t, svc.Store())
	ctx := context.Background()
	open, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotMorning})
	requireSuccess(t, res)
	mine, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotLunch, AssignToCurrentUser: true})
	requireSuccess(t, res)
	taken, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotEvening})
	requireSuccess(t, res)

	rider := seedUser(t, svc.Store(), "Anna", membership(st.ID, RoleRider, AccessView))
	signIn(t, svc.Store(), rider.ID)
	_, res = svc.ClaimAssignment(ctx, taken.ID)
	requireSuccess(t, res)

	signInAdmin(t, svc)
	view, _ := svc.Dashboard()
	ids := map[string]bool{}
	for _, a := range view.Upcoming {
		ids[a.ID] = true
	}
	if !ids[open.ID] || !ids[mine.ID] {
		t.Fatalf("open and own shifts must stay upcoming: %+v", view.Upcoming)
	}
	if ids[taken.ID] {
		t.Fatalf("a shift claimed by another member must not be upcoming: %+v", view.Upcoming)
	}
	if view.Shifts.Assigned != 2 {
		t.Fatalf("counts still cover the whole stable: %+v", view.Shifts)
	}
}

func TestDashboardNeedsSelectedStable(t *testing.T) {
	svc := newTestService(t)
	if _, ok := svc.Dashboard(); ok {
		t.Fatalf("dashboard without a stable must report false")
	}
}

func TestWeekSchedule(t *testing.T) {
	svc := newTestService(t)
	seedStable(t, svc.Store())
	ctx := context.Background()
	_, res := svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotEvening})
	requireSuccess(t, res)
	_, res = svc.CreateAssignment(ctx, CreateAssignmentInput{Date: testToday, Slot: SlotMorning})
	requireSuccess(t, res)
	_, res = svc.CreateAssignment(ctx, CreateAssignmentInput{Date: "2026-09-06", Slot: SlotLunch})
	requireSuccess(t, res)

	week := svc.WeekSchedule(testToday)
	if len(week) != 7 {
		t.Fatalf("want 7 days, got %d", len(week))
	}
	if week[0].Date != testToday || week[0].Weekday != 0 {
		t.Fatalf("week must start on the given Monday: %+v", week[0])
	}
	if len(week[0].Assignments) != 2 || week[0].Assignments[0].StartTime != "07:00" {
		t.Fatalf("same-day shifts must sort by start time: %+v", week[0].Assignments)
	}
	if week[6].Weekday != 6 || len(week[6].Assignments) != 1 {
		t.Fatalf("Sunday shift misplaced: %+v", week[6])
	}

	if got := svc.WeekSchedule("måndag"); got != nil {
		t.Fatalf("malformed start date must yield nil, got %+v", got)
	}
}

func TestSearch(t *testing.T) {
	svc := newTestService(t)
	st, _ := seedStable(t, svc.Store())
	ctx := context.Background()
	_, res := svc.UpsertHorse(ctx, UpsertHorseInput{Name: "Blansch"})
	requireSuccess(t, res)
	_, res = svc.UpsertPaddock(ctx, UpsertPaddockInput{Name: "Stora hagen"})
	requireSuccess(t, res)
	seedUser(t, svc.Store(), "Hanna", membership(st.ID, RoleRider, AccessView))

	got := svc.Search("HA")
	if len(got.Horses) != 0 {
		t.Fatalf("no horse matches 'ha': %+v", got.Horses)
	}
	if len(got.Members) != 1 || got.Members[0].Name != "Hanna" {
		t.Fatalf("member match missing: %+v", got.Members)
	}
	if len(got.Paddocks) != 1 {
		t.Fatalf("paddock match missing: %+v", got.Paddocks)
	}

	if got := svc.Search("   "); len(got.Horses)+len(got.Members)+len(got.Paddocks) != 0 {
		t.Fatalf("blank query must match nothing: %+v", got)
	}
}

func TestFeedNewestFirstWithAuthorNames(t *testing.T) {
	clock := testClock
	store := NewMemoryStore(WithNow(func() time.Time { return clock }))
	svc := NewService(store)
	_, admin := seedStable(t, store)
	ctx := context.Background()

	_, res := svc.CreatePost(ctx, CreatePostInput{Body: "första"})
	requireSuccess(t, res)
	clock = clock.Add(time.Hour)
	_, res = svc.CreatePost(ctx, CreatePostInput{Body: "andra"})
	requireSuccess(t, res)

	feed := svc.Feed()
	if len(feed.Posts) != 2 {
		t.Fatalf("want 2 posts, got %d", len(feed.Posts))
	}
	if feed.Posts[0].Body != "andra" {
		t.Fatalf("newest post must come first: %+v", feed.Posts[0])
	}
	if feed.Posts[0].AuthorName != admin.Name {
		t.Fatalf("author name not resolved: %q", feed.Posts[0].AuthorName)
	}
}

func TestHorseBoard(t *testing.T) {
	svc := newTestService(t)
	_, admin := seedStable(t, svc.Store())
	ctx := context.Background()
	h, res := svc.UpsertHorse(ctx, UpsertHorseInput{Name: "Blansch", OwnerID: admin.ID})
	requireSuccess(t, res)
	other, res := svc.UpsertHorse(ctx, UpsertHorseInput{Name: "Maja"})
	requireSuccess(t, res)
	_, res = svc.SetHorseDayStatus(ctx, SetHorseDayStatusInput{HorseID: h.ID, Date: testToday, Handling: DayHandlingLoose})
	requireSuccess(t, res)
	_, res = svc.SetHorseDayStatus(ctx, SetHorseDayStatusInput{HorseID: other.ID, Date: "2026-09-01", Handling: DayHandlingBox})
	requireSuccess(t, res)

	cards := svc.HorseBoard()
	if len(cards) != 2 {
		t.Fatalf("want 2 cards, got %d", len(cards))
	}
	byName := map[string]HorseCard{}
	for _, c := range cards {
		byName[c.Name] = c
	}
	if c := byName["Blansch"]; c.Today == nil || c.Today.Handling != DayHandlingLoose || c.OwnerName != admin.Name {
		t.Fatalf("today's status or owner missing: %+v", c)
	}
	if c := byName["Maja"]; c.Today != nil {
		t.Fatalf("tomorrow's status must not show today: %+v", c.Today)
	}
}
