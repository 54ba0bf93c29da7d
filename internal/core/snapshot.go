package core

import "sort"

// Read helpers over committed state. Lists are id-sorted so repeated queries
// without an intervening mutation return equal results.

// GetStable retrieves a stable by ID from committed state.
func (s *MemoryStore) GetStable(id string) (Stable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.stables[id]
	if !ok {
		return Stable{}, false
	}
	return cloneStable(st), true
}

// GetFarm retrieves a farm by ID from committed state.
func (s *MemoryStore) GetFarm(id string) (Farm, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.farms[id]
	if !ok {
		return Farm{}, false
	}
	return cloneFarm(f), true
}

// GetUser retrieves a user profile by ID from committed state.
func (s *MemoryStore) GetUser(id string) (UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return UserProfile{}, false
	}
	return cloneUser(u), true
}

// GetHorse retrieves a horse by ID from committed state.
func (s *MemoryStore) GetHorse(id string) (Horse, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.state.horses[id]
	if !ok {
		return Horse{}, false
	}
	return cloneHorse(h), true
}

// GetAssignment retrieves an assignment by ID from committed state.
func (s *MemoryStore) GetAssignment(id string) (Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.assignments[id]
	if !ok {
		return Assignment{}, false
	}
	return cloneAssignment(a), true
}

// GetPost retrieves a feed post by ID from committed state.
func (s *MemoryStore) GetPost(id string) (Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.posts[id]
	if !ok {
		return Post{}, false
	}
	return clonePost(p), true
}

// ListFarms returns all farms, id-sorted.
func (s *MemoryStore) ListFarms() []Farm {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Farm, 0, len(s.state.farms))
	for _, f := range s.state.farms {
		out = append(out, cloneFarm(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListStables returns all stables, id-sorted.
func (s *MemoryStore) ListStables() []Stable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Stable, 0, len(s.state.stables))
	for _, st := range s.state.stables {
		out = append(out, cloneStable(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListHorses returns all horses, id-sorted.
func (s *MemoryStore) ListHorses() []Horse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Horse, 0, len(s.state.horses))
	for _, h := range s.state.horses {
		out = append(out, cloneHorse(h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPaddocks returns all paddocks, id-sorted.
func (s *MemoryStore) ListPaddocks() []Paddock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Paddock, 0, len(s.state.paddocks))
	for _, p := range s.state.paddocks {
		out = append(out, clonePaddock(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListUsers returns all user profiles, id-sorted.
func (s *MemoryStore) ListUsers() []UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]UserProfile, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListAssignments returns all assignments, id-sorted.
func (s *MemoryStore) ListAssignments() []Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Assignment, 0, len(s.state.assignments))
	for _, a := range s.state.assignments {
		out = append(out, cloneAssignment(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListHorseDayStatuses returns all day-handling records, id-sorted.
func (s *MemoryStore) ListHorseDayStatuses() []HorseDayStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]HorseDayStatus, 0, len(s.state.dayStatuses))
	for _, d := range s.state.dayStatuses {
		out = append(out, cloneDayStatus(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListDayEvents returns all day events, id-sorted.
func (s *MemoryStore) ListDayEvents() []DayEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DayEvent, 0, len(s.state.dayEvents))
	for _, e := range s.state.dayEvents {
		out = append(out, cloneDayEvent(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListArenaBookings returns all arena bookings, id-sorted.
func (s *MemoryStore) ListArenaBookings() []ArenaBooking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ArenaBooking, 0, len(s.state.arenaBookings))
	for _, b := range s.state.arenaBookings {
		out = append(out, cloneArenaBooking(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListArenaStatuses returns all arena condition reports, id-sorted.
func (s *MemoryStore) ListArenaStatuses() []ArenaStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ArenaStatus, 0, len(s.state.arenaStatuses))
	for _, st := range s.state.arenaStatuses {
		out = append(out, cloneArenaStatus(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListRideLogs returns all ride log entries, id-sorted.
func (s *MemoryStore) ListRideLogs() []RideLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RideLogEntry, 0, len(s.state.rideLogs))
	for _, r := range s.state.rideLogs {
		out = append(out, cloneRideLog(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListPosts returns all feed posts, id-sorted.
func (s *MemoryStore) ListPosts() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Post, 0, len(s.state.posts))
	for _, p := range s.state.posts {
		out = append(out, clonePost(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListGroups returns all custom groups, id-sorted.
func (s *MemoryStore) ListGroups() []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Group, 0, len(s.state.groups))
	for _, g := range s.state.groups {
		out = append(out, cloneGroup(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListConversations returns all chat threads, id-sorted.
func (s *MemoryStore) ListConversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Conversation, 0, len(s.state.conversations))
	for _, c := range s.state.conversations {
		out = append(out, cloneConversation(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns the activity log, oldest first.
func (s *MemoryStore) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistoryEntry(nil), s.state.history...)
}

// CurrentStableID returns the selected stable id, empty when none.
func (s *MemoryStore) CurrentStableID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.currentStableID
}

// CurrentUserID returns the acting user id, empty when none.
func (s *MemoryStore) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.currentUserID
}

// ExportPersisted extracts the restart-surviving slice of the store.
func (s *MemoryStore) ExportPersisted() PersistedState {
	return PersistedState{
		Farms:            s.ListFarms(),
		Stables:          s.ListStables(),
		Horses:           s.ListHorses(),
		Paddocks:         s.ListPaddocks(),
		HorseDayStatuses: s.ListHorseDayStatuses(),
		Users:            s.ListUsers(),
		CurrentStableID:  s.CurrentStableID(),
		CurrentUserID:    s.CurrentUserID(),
	}
}

// ImportPersisted replaces the persisted slice of the store. Transient
// collections (assignments, chat, posts, history) are left untouched.
func (s *MemoryStore) ImportPersisted(st PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.farms = make(map[string]Farm, len(st.Farms))
	for _, f := range st.Farms {
		s.state.farms[f.ID] = cloneFarm(f)
	}
	s.state.stables = make(map[string]Stable, len(st.Stables))
	for _, sb := range st.Stables {
		s.state.stables[sb.ID] = cloneStable(sb)
	}
	s.state.horses = make(map[string]Horse, len(st.Horses))
	for _, h := range st.Horses {
		s.state.horses[h.ID] = cloneHorse(h)
	}
	s.state.paddocks = make(map[string]Paddock, len(st.Paddocks))
	for _, p := range st.Paddocks {
		s.state.paddocks[p.ID] = clonePaddock(p)
	}
	s.state.dayStatuses = make(map[string]HorseDayStatus, len(st.HorseDayStatuses))
	for _, d := range st.HorseDayStatuses {
		s.state.dayStatuses[d.ID] = cloneDayStatus(d)
	}
	s.state.users = make(map[string]UserProfile, len(st.Users))
	for _, u := range st.Users {
		s.state.users[u.ID] = cloneUser(u)
	}
	s.state.currentStableID = st.CurrentStableID
	s.state.currentUserID = st.CurrentUserID
	return nil
}

// Close releases the snapshot sink when one is attached.
func (s *MemoryStore) Close() error {
	if closer, ok := s.sink.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
