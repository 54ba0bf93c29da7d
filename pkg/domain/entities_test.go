package domain

import "testing"

func TestWeekdayOfCountsFromMonday(t *testing.T) {
	// 2026-08-31 is a Monday.
	if got := WeekdayOf("2026-08-31"); got != 0 {
		t.Fatalf("monday = %d, want 0", got)
	}
	if got := WeekdayOf("2026-09-06"); got != 6 {
		t.Fatalf("sunday = %d, want 6", got)
	}
	if got := WeekdayOf("not-a-date"); got != -1 {
		t.Fatalf("malformed date = %d, want -1", got)
	}
}

func TestSlotDefaults(t *testing.T) {
	cases := []struct {
		slot  Slot
		index int
		label string
		start string
	}{
		{SlotMorning, 0, "Morgonpass", "07:00"},
		{SlotLunch, 1, "Lunchpass", "12:00"},
		{SlotEvening, 2, "Kvällspass", "18:00"},
	}
	for _, tc := range cases {
		if tc.slot.Index() != tc.index {
			t.Errorf("%s index = %d, want %d", tc.slot, tc.slot.Index(), tc.index)
		}
		if tc.slot.DefaultLabel() != tc.label {
			t.Errorf("%s label = %q, want %q", tc.slot, tc.slot.DefaultLabel(), tc.label)
		}
		if tc.slot.DefaultStartTime() != tc.start {
			t.Errorf("%s start = %q, want %q", tc.slot, tc.slot.DefaultStartTime(), tc.start)
		}
	}
	var bogus Slot = "night"
	if bogus.Index() != -1 {
		t.Fatalf("unknown slot index = %d, want -1", bogus.Index())
	}
}

func TestAssignmentDeclined(t *testing.T) {
	a := Assignment{DeclinedBy: []string{"u1", "u2"}}
	if !a.Declined("u1") || a.Declined("u3") {
		t.Fatalf("declined lookup broken: %+v", a.DeclinedBy)
	}
}

func TestUserProfileHasDefaultPass(t *testing.T) {
	u := UserProfile{DefaultPasses: []DefaultPass{{Weekday: 0, Slot: SlotMorning}}}
	if !u.HasDefaultPass(0, SlotMorning) {
		t.Fatalf("expected declared pass to match")
	}
	if u.HasDefaultPass(0, SlotEvening) || u.HasDefaultPass(1, SlotMorning) {
		t.Fatalf("pass must match both weekday and slot")
	}
}

func TestSplitAssembleBucketsRoundTrip(t *testing.T) {
	st := PersistedState{
		Farms:           []Farm{{Base: Base{ID: "f1"}, Name: "Gården"}},
		Stables:         []Stable{{Base: Base{ID: "s1"}, Name: "Stall A"}},
		Horses:          []Horse{{Base: Base{ID: "h1"}, Name: "Blansch", StableID: "s1"}},
		Users:           []UserProfile{{Base: Base{ID: "u1"}, Name: "Anna"}},
		CurrentStableID: "s1",
		CurrentUserID:   "u1",
	}
	encoded, err := EncodePersistedState(st)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	buckets, err := SplitBuckets(encoded)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if len(buckets) != len(BucketOrder) {
		t.Fatalf("expected %d buckets, got %d", len(BucketOrder), len(buckets))
	}
	assembled, err := AssembleBuckets(buckets)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got, err := DecodePersistedState(assembled)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Stables) != 1 || got.Stables[0].Name != "Stall A" {
		t.Fatalf("stables lost in round trip: %+v", got.Stables)
	}
	if got.CurrentStableID != "s1" || got.CurrentUserID != "u1" {
		t.Fatalf("session scalars lost: %+v", got)
	}
}

func TestAssembleBucketsMissingBucketsAreEmpty(t *testing.T) {
	assembled, err := AssembleBuckets(map[string][]byte{"horses": []byte(`[{"id":"h1","name":"Maja"}]`)})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	got, err := DecodePersistedState(assembled)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Horses) != 1 || len(got.Stables) != 0 {
		t.Fatalf("unexpected state: %+v", got)
	}
}
