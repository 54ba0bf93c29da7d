package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"pkt.systems/pslog"

	"stablecore/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*MemoryStore)(nil)

type memoryState struct {
	farms         map[string]Farm
	stables       map[string]Stable
	horses        map[string]Horse
	paddocks      map[string]Paddock
	users         map[string]UserProfile
	assignments   map[string]Assignment
	dayStatuses   map[string]HorseDayStatus
	dayEvents     map[string]DayEvent
	arenaBookings map[string]ArenaBooking
	arenaStatuses map[string]ArenaStatus
	rideLogs      map[string]RideLogEntry
	posts         map[string]Post
	groups        map[string]Group
	conversations map[string]Conversation

	history []HistoryEntry

	currentStableID string
	currentUserID   string
}

func newMemoryState() memoryState {
	return memoryState{
		farms:         make(map[string]Farm),
		stables:       make(map[string]Stable),
		horses:        make(map[string]Horse),
		paddocks:      make(map[string]Paddock),
		users:         make(map[string]UserProfile),
		assignments:   make(map[string]Assignment),
		dayStatuses:   make(map[string]HorseDayStatus),
		dayEvents:     make(map[string]DayEvent),
		arenaBookings: make(map[string]ArenaBooking),
		arenaStatuses: make(map[string]ArenaStatus),
		rideLogs:      make(map[string]RideLogEntry),
		posts:         make(map[string]Post),
		groups:        make(map[string]Group),
		conversations: make(map[string]Conversation),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.farms {
		cloned.farms[k] = cloneFarm(v)
	}
	for k, v := range s.stables {
		cloned.stables[k] = cloneStable(v)
	}
	for k, v := range s.horses {
		cloned.horses[k] = cloneHorse(v)
	}
	for k, v := range s.paddocks {
		cloned.paddocks[k] = clonePaddock(v)
	}
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.assignments {
		cloned.assignments[k] = cloneAssignment(v)
	}
	for k, v := range s.dayStatuses {
		cloned.dayStatuses[k] = cloneDayStatus(v)
	}
	for k, v := range s.dayEvents {
		cloned.dayEvents[k] = cloneDayEvent(v)
	}
	for k, v := range s.arenaBookings {
		cloned.arenaBookings[k] = cloneArenaBooking(v)
	}
	for k, v := range s.arenaStatuses {
		cloned.arenaStatuses[k] = cloneArenaStatus(v)
	}
	for k, v := range s.rideLogs {
		cloned.rideLogs[k] = cloneRideLog(v)
	}
	for k, v := range s.posts {
		cloned.posts[k] = clonePost(v)
	}
	for k, v := range s.groups {
		cloned.groups[k] = cloneGroup(v)
	}
	for k, v := range s.conversations {
		cloned.conversations[k] = cloneConversation(v)
	}
	cloned.history = append([]HistoryEntry(nil), s.history...)
	cloned.currentStableID = s.currentStableID
	cloned.currentUserID = s.currentUserID
	return cloned
}

func cloneFarm(f Farm) Farm { return f }

func cloneStable(st Stable) Stable {
	cp := st
	cp.RideTypes = append([]RideType(nil), st.RideTypes...)
	if st.Settings.EventVisibility != nil {
		vis := make(map[string]bool, len(st.Settings.EventVisibility))
		for k, v := range st.Settings.EventVisibility {
			vis[k] = v
		}
		cp.Settings.EventVisibility = vis
	}
	return cp
}

func cloneHorse(h Horse) Horse       { return h }
func clonePaddock(p Paddock) Paddock { return p }

func cloneUser(u UserProfile) UserProfile {
	cp := u
	cp.Memberships = make([]Membership, len(u.Memberships))
	for i, m := range u.Memberships {
		mc := m
		mc.HorseIDs = append([]string(nil), m.HorseIDs...)
		cp.Memberships[i] = mc
	}
	cp.DefaultPasses = append([]DefaultPass(nil), u.DefaultPasses...)
	cp.AwayNotices = append([]AwayNotice(nil), u.AwayNotices...)
	return cp
}

func cloneAssignment(a Assignment) Assignment {
	cp := a
	cp.DeclinedBy = append([]string(nil), a.DeclinedBy...)
	return cp
}

func cloneDayStatus(d HorseDayStatus) HorseDayStatus { return d }
func cloneDayEvent(e DayEvent) DayEvent              { return e }
func cloneArenaBooking(b ArenaBooking) ArenaBooking  { return b }
func cloneArenaStatus(s ArenaStatus) ArenaStatus     { return s }
func cloneRideLog(r RideLogEntry) RideLogEntry       { return r }

func clonePost(p Post) Post {
	cp := p
	cp.LikedBy = append([]string(nil), p.LikedBy...)
	cp.Comments = append([]PostComment(nil), p.Comments...)
	return cp
}

func cloneGroup(g Group) Group {
	cp := g
	cp.MemberIDs = append([]string(nil), g.MemberIDs...)
	return cp
}

func cloneConversation(c Conversation) Conversation {
	cp := c
	cp.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	cp.Messages = append([]Message(nil), c.Messages...)
	return cp
}

// MemoryStore holds the single authoritative snapshot of the stable state.
// Every mutation runs against a transactional clone that replaces the
// committed state on success, so readers never observe partial writes.
type MemoryStore struct {
	mu     sync.RWMutex
	state  memoryState
	sink   domain.SnapshotSink
	logger pslog.Logger
	nowFn  func() time.Time
}

// StoreOption configures a MemoryStore.
type StoreOption func(*MemoryStore)

// WithSnapshotSink attaches a durable boundary the store persists the
// restart-surviving slice through after every successful transaction.
// Persistence is fire-and-forget: failures are logged, never surfaced.
func WithSnapshotSink(sink domain.SnapshotSink) StoreOption {
	return func(s *MemoryStore) { s.sink = sink }
}

// WithStoreLogger sets the logger used for swallowed persistence failures.
func WithStoreLogger(logger pslog.Logger) StoreOption {
	return func(s *MemoryStore) { s.logger = logger }
}

// WithNow overrides the store clock.
func WithNow(now func() time.Time) StoreOption {
	return func(s *MemoryStore) { s.nowFn = now }
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Now returns the store clock reading.
func (s *MemoryStore) Now() time.Time {
	return s.nowFn()
}

// Hydrate loads the persisted slice from the snapshot sink, if one is
// attached and a snapshot exists. Called once at startup.
func (s *MemoryStore) Hydrate(ctx context.Context) error {
	if s.sink == nil {
		return nil
	}
	data, ok, err := s.sink.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	st, err := domain.DecodePersistedState(data)
	if err != nil {
		return err
	}
	return s.ImportPersisted(st)
}

// Transaction represents a mutation set applied to the store state.
type Transaction struct {
	store   *MemoryStore
	state   memoryState
	changes []Change
	now     time.Time
}

// RunInTransaction executes fn within a transactional copy of the store
// state. The copy replaces the committed state only when fn succeeds, after
// which the persisted slice is pushed to the snapshot sink.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	s.mu.Lock()

	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return err
	}

	s.state = tx.state
	s.mu.Unlock()

	s.persist(ctx)
	return nil
}

// persist pushes the persisted slice to the sink. Failures are logged and
// swallowed: durable storage is advisory from the action layer's view.
func (s *MemoryStore) persist(ctx context.Context) {
	if s.sink == nil {
		return
	}
	data, err := domain.EncodePersistedState(s.ExportPersisted())
	if err != nil {
		s.logError("encode snapshot failed", err)
		return
	}
	if err := s.sink.Save(ctx, data); err != nil {
		s.logError("save snapshot failed", err)
	}
}

// Flush pushes the current persisted slice to the sink outside a
// transaction. Used after bulk imports.
func (s *MemoryStore) Flush(ctx context.Context) {
	s.persist(ctx)
}

func (s *MemoryStore) logError(msg string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.With("err", err).Error(msg)
}

// Changes returns the change records accumulated so far in the transaction.
func (tx *Transaction) Changes() []Change {
	return tx.changes
}

func (tx *Transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// TouchedReconcileInputs reports whether the transaction mutated the
// reconciliation inputs (assignments or users).
func (tx *Transaction) TouchedReconcileInputs() bool {
	for _, c := range tx.changes {
		if c.Entity == domain.EntityAssignment || c.Entity == domain.EntityUser {
			return true
		}
	}
	return false
}

// Farms -----------------------------------------------------------------------

// CreateFarm stores a new farm.
func (tx *Transaction) CreateFarm(f Farm) (Farm, error) {
	if f.ID == "" {
		f.ID = tx.store.newID()
	}
	if _, exists := tx.state.farms[f.ID]; exists {
		return Farm{}, fmt.Errorf("farm %q already exists", f.ID)
	}
	f.CreatedAt = tx.now
	f.UpdatedAt = tx.now
	tx.state.farms[f.ID] = cloneFarm(f)
	tx.recordChange(Change{Entity: domain.EntityFarm, Action: ActionCreate, After: cloneFarm(f)})
	return cloneFarm(f), nil
}

// UpdateFarm mutates a farm using the provided mutator function.
func (tx *Transaction) UpdateFarm(id string, mutator func(*Farm) error) (Farm, error) {
	current, ok := tx.state.farms[id]
	if !ok {
		return Farm{}, fmt.Errorf("farm %q not found", id)
	}
	before := cloneFarm(current)
	if err := mutator(&current); err != nil {
		return Farm{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.farms[id] = cloneFarm(current)
	tx.recordChange(Change{Entity: domain.EntityFarm, Action: ActionUpdate, Before: before, After: cloneFarm(current)})
	return cloneFarm(current), nil
}

// DeleteFarm removes a farm. Stables referencing it keep running with the
// soft reference cleared.
func (tx *Transaction) DeleteFarm(id string) error {
	current, ok := tx.state.farms[id]
	if !ok {
		return fmt.Errorf("farm %q not found", id)
	}
	delete(tx.state.farms, id)
	for sid, st := range tx.state.stables {
		if st.FarmID != nil && *st.FarmID == id {
			st.FarmID = nil
			tx.state.stables[sid] = st
		}
	}
	tx.recordChange(Change{Entity: domain.EntityFarm, Action: ActionDelete, Before: cloneFarm(current)})
	return nil
}

// Stables ---------------------------------------------------------------------

// CreateStable stores a new stable.
func (tx *Transaction) CreateStable(st Stable) (Stable, error) {
	if st.ID == "" {
		st.ID = tx.store.newID()
	}
	if _, exists := tx.state.stables[st.ID]; exists {
		return Stable{}, fmt.Errorf("stable %q already exists", st.ID)
	}
	st.CreatedAt = tx.now
	st.UpdatedAt = tx.now
	if st.Settings.DayHandling == "" {
		st.Settings.DayHandling = domain.DayHandlingBox
	}
	tx.state.stables[st.ID] = cloneStable(st)
	tx.recordChange(Change{Entity: domain.EntityStable, Action: ActionCreate, After: cloneStable(st)})
	return cloneStable(st), nil
}

// UpdateStable mutates a stable using the provided mutator function.
func (tx *Transaction) UpdateStable(id string, mutator func(*Stable) error) (Stable, error) {
	current, ok := tx.state.stables[id]
	if !ok {
		return Stable{}, fmt.Errorf("stable %q not found", id)
	}
	before := cloneStable(current)
	if err := mutator(&current); err != nil {
		return Stable{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.stables[id] = cloneStable(current)
	tx.recordChange(Change{Entity: domain.EntityStable, Action: ActionUpdate, Before: before, After: cloneStable(current)})
	return cloneStable(current), nil
}

// DeleteStable removes a stable and cascades to everything scoped to it:
// horses (with their ride logs and day statuses), paddocks, assignments,
// bookings, statuses, day events, and the stable's memberships.
func (tx *Transaction) DeleteStable(id string) error {
	current, ok := tx.state.stables[id]
	if !ok {
		return fmt.Errorf("stable %q not found", id)
	}
	delete(tx.state.stables, id)
	for hid, h := range tx.state.horses {
		if h.StableID == id {
			tx.deleteHorseRecords(hid)
			delete(tx.state.horses, hid)
		}
	}
	for pid, p := range tx.state.paddocks {
		if p.StableID == id {
			delete(tx.state.paddocks, pid)
		}
	}
	for aid, a := range tx.state.assignments {
		if a.StableID == id {
			delete(tx.state.assignments, aid)
		}
	}
	for bid, b := range tx.state.arenaBookings {
		if b.StableID == id {
			delete(tx.state.arenaBookings, bid)
		}
	}
	for sid, st := range tx.state.arenaStatuses {
		if st.StableID == id {
			delete(tx.state.arenaStatuses, sid)
		}
	}
	for eid, e := range tx.state.dayEvents {
		if e.StableID == id {
			delete(tx.state.dayEvents, eid)
		}
	}
	for uid, u := range tx.state.users {
		kept := u.Memberships[:0]
		for _, m := range u.Memberships {
			if m.StableID != id {
				kept = append(kept, m)
			}
		}
		if len(kept) != len(u.Memberships) {
			u.Memberships = append([]Membership(nil), kept...)
			tx.state.users[uid] = cloneUser(u)
		}
	}
	if tx.state.currentStableID == id {
		tx.state.currentStableID = ""
	}
	tx.recordChange(Change{Entity: domain.EntityStable, Action: ActionDelete, Before: cloneStable(current)})
	return nil
}

// Horses ----------------------------------------------------------------------

// CreateHorse stores a new horse.
func (tx *Transaction) CreateHorse(h Horse) (Horse, error) {
	if h.ID == "" {
		h.ID = tx.store.newID()
	}
	if _, exists := tx.state.horses[h.ID]; exists {
		return Horse{}, fmt.Errorf("horse %q already exists", h.ID)
	}
	h.CreatedAt = tx.now
	h.UpdatedAt = tx.now
	tx.state.horses[h.ID] = cloneHorse(h)
	tx.recordChange(Change{Entity: domain.EntityHorse, Action: ActionCreate, After: cloneHorse(h)})
	return cloneHorse(h), nil
}

// UpdateHorse mutates a horse using the provided mutator function.
func (tx *Transaction) UpdateHorse(id string, mutator func(*Horse) error) (Horse, error) {
	current, ok := tx.state.horses[id]
	if !ok {
		return Horse{}, fmt.Errorf("horse %q not found", id)
	}
	before := cloneHorse(current)
	if err := mutator(&current); err != nil {
		return Horse{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.horses[id] = cloneHorse(current)
	tx.recordChange(Change{Entity: domain.EntityHorse, Action: ActionUpdate, Before: before, After: cloneHorse(current)})
	return cloneHorse(current), nil
}

// deleteHorseRecords removes the records owned by a horse: ride logs and
// day statuses.
func (tx *Transaction) deleteHorseRecords(horseID string) {
	for rid, r := range tx.state.rideLogs {
		if r.HorseID == horseID {
			delete(tx.state.rideLogs, rid)
		}
	}
	for did, d := range tx.state.dayStatuses {
		if d.HorseID == horseID {
			delete(tx.state.dayStatuses, did)
		}
	}
}

// DeleteHorse removes a horse and cascades to its ride logs and day statuses.
func (tx *Transaction) DeleteHorse(id string) error {
	current, ok := tx.state.horses[id]
	if !ok {
		return fmt.Errorf("horse %q not found", id)
	}
	tx.deleteHorseRecords(id)
	delete(tx.state.horses, id)
	tx.recordChange(Change{Entity: domain.EntityHorse, Action: ActionDelete, Before: cloneHorse(current)})
	return nil
}

// Paddocks --------------------------------------------------------------------

// CreatePaddock stores a new paddock.
func (tx *Transaction) CreatePaddock(p Paddock) (Paddock, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	if _, exists := tx.state.paddocks[p.ID]; exists {
		return Paddock{}, fmt.Errorf("paddock %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.paddocks[p.ID] = clonePaddock(p)
	tx.recordChange(Change{Entity: domain.EntityPaddock, Action: ActionCreate, After: clonePaddock(p)})
	return clonePaddock(p), nil
}

// UpdatePaddock mutates a paddock.
func (tx *Transaction) UpdatePaddock(id string, mutator func(*Paddock) error) (Paddock, error) {
	current, ok := tx.state.paddocks[id]
	if !ok {
		return Paddock{}, fmt.Errorf("paddock %q not found", id)
	}
	before := clonePaddock(current)
	if err := mutator(&current); err != nil {
		return Paddock{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.paddocks[id] = clonePaddock(current)
	tx.recordChange(Change{Entity: domain.EntityPaddock, Action: ActionUpdate, Before: before, After: clonePaddock(current)})
	return clonePaddock(current), nil
}

// DeletePaddock removes a paddock.
func (tx *Transaction) DeletePaddock(id string) error {
	current, ok := tx.state.paddocks[id]
	if !ok {
		return fmt.Errorf("paddock %q not found", id)
	}
	delete(tx.state.paddocks, id)
	tx.recordChange(Change{Entity: domain.EntityPaddock, Action: ActionDelete, Before: clonePaddock(current)})
	return nil
}

// Users -----------------------------------------------------------------------

// CreateUser stores a new user profile.
func (tx *Transaction) CreateUser(u UserProfile) (UserProfile, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return UserProfile{}, fmt.Errorf("user %q already exists", u.ID)
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates a user profile using the provided mutator function.
func (tx *Transaction) UpdateUser(id string, mutator func(*UserProfile) error) (UserProfile, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return UserProfile{}, fmt.Errorf("user %q not found", id)
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return UserProfile{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// DeleteUser removes a user profile. Their assignments revert to open.
func (tx *Transaction) DeleteUser(id string) error {
	current, ok := tx.state.users[id]
	if !ok {
		return fmt.Errorf("user %q not found", id)
	}
	delete(tx.state.users, id)
	for aid, a := range tx.state.assignments {
		if a.Status == AssignmentAssigned && a.AssigneeID != nil && *a.AssigneeID == id {
			a.AssigneeID = nil
			a.Status = AssignmentOpen
			a.AssignedVia = ""
			tx.state.assignments[aid] = cloneAssignment(a)
		}
	}
	if tx.state.currentUserID == id {
		tx.state.currentUserID = ""
	}
	tx.recordChange(Change{Entity: domain.EntityUser, Action: ActionDelete, Before: cloneUser(current)})
	return nil
}

// Assignments -----------------------------------------------------------------

// CreateAssignment stores a new shift occurrence.
func (tx *Transaction) CreateAssignment(a Assignment) (Assignment, error) {
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	if _, exists := tx.state.assignments[a.ID]; exists {
		return Assignment{}, fmt.Errorf("assignment %q already exists", a.ID)
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.assignments[a.ID] = cloneAssignment(a)
	tx.recordChange(Change{Entity: domain.EntityAssignment, Action: ActionCreate, After: cloneAssignment(a)})
	return cloneAssignment(a), nil
}

// UpdateAssignment mutates a shift occurrence.
func (tx *Transaction) UpdateAssignment(id string, mutator func(*Assignment) error) (Assignment, error) {
	current, ok := tx.state.assignments[id]
	if !ok {
		return Assignment{}, fmt.Errorf("assignment %q not found", id)
	}
	before := cloneAssignment(current)
	if err := mutator(&current); err != nil {
		return Assignment{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.assignments[id] = cloneAssignment(current)
	tx.recordChange(Change{Entity: domain.EntityAssignment, Action: ActionUpdate, Before: before, After: cloneAssignment(current)})
	return cloneAssignment(current), nil
}

// DeleteAssignment removes a shift occurrence.
func (tx *Transaction) DeleteAssignment(id string) error {
	current, ok := tx.state.assignments[id]
	if !ok {
		return fmt.Errorf("assignment %q not found", id)
	}
	delete(tx.state.assignments, id)
	tx.recordChange(Change{Entity: domain.EntityAssignment, Action: ActionDelete, Before: cloneAssignment(current)})
	return nil
}

// Secondary records -----------------------------------------------------------

// PutHorseDayStatus upserts the day-handling record for (horse, date).
func (tx *Transaction) PutHorseDayStatus(d HorseDayStatus) (HorseDayStatus, error) {
	for id, existing := range tx.state.dayStatuses {
		if existing.HorseID == d.HorseID && existing.Date == d.Date {
			existing.Handling = d.Handling
			existing.Note = d.Note
			existing.UpdatedAt = tx.now
			tx.state.dayStatuses[id] = cloneDayStatus(existing)
			tx.recordChange(Change{Entity: domain.EntityHorseDayStatus, Action: ActionUpdate, After: cloneDayStatus(existing)})
			return cloneDayStatus(existing), nil
		}
	}
	if d.ID == "" {
		d.ID = tx.store.newID()
	}
	d.CreatedAt = tx.now
	d.UpdatedAt = tx.now
	tx.state.dayStatuses[d.ID] = cloneDayStatus(d)
	tx.recordChange(Change{Entity: domain.EntityHorseDayStatus, Action: ActionCreate, After: cloneDayStatus(d)})
	return cloneDayStatus(d), nil
}

// DeleteHorseDayStatus removes a day-handling record.
func (tx *Transaction) DeleteHorseDayStatus(id string) error {
	current, ok := tx.state.dayStatuses[id]
	if !ok {
		return fmt.Errorf("horse day status %q not found", id)
	}
	delete(tx.state.dayStatuses, id)
	tx.recordChange(Change{Entity: domain.EntityHorseDayStatus, Action: ActionDelete, Before: cloneDayStatus(current)})
	return nil
}

// CreateDayEvent stores a calendar event.
func (tx *Transaction) CreateDayEvent(e DayEvent) (DayEvent, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.dayEvents[e.ID] = cloneDayEvent(e)
	tx.recordChange(Change{Entity: domain.EntityDayEvent, Action: ActionCreate, After: cloneDayEvent(e)})
	return cloneDayEvent(e), nil
}

// UpdateDayEvent mutates a calendar event.
func (tx *Transaction) UpdateDayEvent(id string, mutator func(*DayEvent) error) (DayEvent, error) {
	current, ok := tx.state.dayEvents[id]
	if !ok {
		return DayEvent{}, fmt.Errorf("day event %q not found", id)
	}
	before := cloneDayEvent(current)
	if err := mutator(&current); err != nil {
		return DayEvent{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.dayEvents[id] = cloneDayEvent(current)
	tx.recordChange(Change{Entity: domain.EntityDayEvent, Action: ActionUpdate, Before: before, After: cloneDayEvent(current)})
	return cloneDayEvent(current), nil
}

// DeleteDayEvent removes a calendar event.
func (tx *Transaction) DeleteDayEvent(id string) error {
	current, ok := tx.state.dayEvents[id]
	if !ok {
		return fmt.Errorf("day event %q not found", id)
	}
	delete(tx.state.dayEvents, id)
	tx.recordChange(Change{Entity: domain.EntityDayEvent, Action: ActionDelete, Before: cloneDayEvent(current)})
	return nil
}

// CreateArenaBooking stores an arena booking.
func (tx *Transaction) CreateArenaBooking(b ArenaBooking) (ArenaBooking, error) {
	if b.ID == "" {
		b.ID = tx.store.newID()
	}
	b.CreatedAt = tx.now
	b.UpdatedAt = tx.now
	tx.state.arenaBookings[b.ID] = cloneArenaBooking(b)
	tx.recordChange(Change{Entity: domain.EntityArenaBooking, Action: ActionCreate, After: cloneArenaBooking(b)})
	return cloneArenaBooking(b), nil
}

// DeleteArenaBooking removes an arena booking.
func (tx *Transaction) DeleteArenaBooking(id string) error {
	current, ok := tx.state.arenaBookings[id]
	if !ok {
		return fmt.Errorf("arena booking %q not found", id)
	}
	delete(tx.state.arenaBookings, id)
	tx.recordChange(Change{Entity: domain.EntityArenaBooking, Action: ActionDelete, Before: cloneArenaBooking(current)})
	return nil
}

// PutArenaStatus upserts the arena condition report for a stable.
func (tx *Transaction) PutArenaStatus(st ArenaStatus) (ArenaStatus, error) {
	for id, existing := range tx.state.arenaStatuses {
		if existing.StableID == st.StableID {
			existing.Condition = st.Condition
			existing.Note = st.Note
			existing.ReportedBy = st.ReportedBy
			existing.UpdatedAt = tx.now
			tx.state.arenaStatuses[id] = cloneArenaStatus(existing)
			tx.recordChange(Change{Entity: domain.EntityArenaStatus, Action: ActionUpdate, After: cloneArenaStatus(existing)})
			return cloneArenaStatus(existing), nil
		}
	}
	if st.ID == "" {
		st.ID = tx.store.newID()
	}
	st.CreatedAt = tx.now
	st.UpdatedAt = tx.now
	tx.state.arenaStatuses[st.ID] = cloneArenaStatus(st)
	tx.recordChange(Change{Entity: domain.EntityArenaStatus, Action: ActionCreate, After: cloneArenaStatus(st)})
	return cloneArenaStatus(st), nil
}

// CreateRideLog stores a ride log entry.
func (tx *Transaction) CreateRideLog(r RideLogEntry) (RideLogEntry, error) {
	if r.ID == "" {
		r.ID = tx.store.newID()
	}
	r.CreatedAt = tx.now
	r.UpdatedAt = tx.now
	tx.state.rideLogs[r.ID] = cloneRideLog(r)
	tx.recordChange(Change{Entity: domain.EntityRideLog, Action: ActionCreate, After: cloneRideLog(r)})
	return cloneRideLog(r), nil
}

// DeleteRideLog removes a ride log entry.
func (tx *Transaction) DeleteRideLog(id string) error {
	current, ok := tx.state.rideLogs[id]
	if !ok {
		return fmt.Errorf("ride log %q not found", id)
	}
	delete(tx.state.rideLogs, id)
	tx.recordChange(Change{Entity: domain.EntityRideLog, Action: ActionDelete, Before: cloneRideLog(current)})
	return nil
}

// CreatePost stores a feed post.
func (tx *Transaction) CreatePost(p Post) (Post, error) {
	if p.ID == "" {
		p.ID = tx.store.newID()
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.posts[p.ID] = clonePost(p)
	tx.recordChange(Change{Entity: domain.EntityPost, Action: ActionCreate, After: clonePost(p)})
	return clonePost(p), nil
}

// UpdatePost mutates a feed post.
func (tx *Transaction) UpdatePost(id string, mutator func(*Post) error) (Post, error) {
	current, ok := tx.state.posts[id]
	if !ok {
		return Post{}, fmt.Errorf("post %q not found", id)
	}
	before := clonePost(current)
	if err := mutator(&current); err != nil {
		return Post{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.posts[id] = clonePost(current)
	tx.recordChange(Change{Entity: domain.EntityPost, Action: ActionUpdate, Before: before, After: clonePost(current)})
	return clonePost(current), nil
}

// CreateGroup stores a custom member group.
func (tx *Transaction) CreateGroup(g Group) (Group, error) {
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	g.CreatedAt = tx.now
	g.UpdatedAt = tx.now
	tx.state.groups[g.ID] = cloneGroup(g)
	tx.recordChange(Change{Entity: domain.EntityGroup, Action: ActionCreate, After: cloneGroup(g)})
	return cloneGroup(g), nil
}

// UpdateGroup mutates a custom member group.
func (tx *Transaction) UpdateGroup(id string, mutator func(*Group) error) (Group, error) {
	current, ok := tx.state.groups[id]
	if !ok {
		return Group{}, fmt.Errorf("group %q not found", id)
	}
	before := cloneGroup(current)
	if err := mutator(&current); err != nil {
		return Group{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.groups[id] = cloneGroup(current)
	tx.recordChange(Change{Entity: domain.EntityGroup, Action: ActionUpdate, Before: before, After: cloneGroup(current)})
	return cloneGroup(current), nil
}

// DeleteGroup removes a custom member group.
func (tx *Transaction) DeleteGroup(id string) error {
	current, ok := tx.state.groups[id]
	if !ok {
		return fmt.Errorf("group %q not found", id)
	}
	delete(tx.state.groups, id)
	tx.recordChange(Change{Entity: domain.EntityGroup, Action: ActionDelete, Before: cloneGroup(current)})
	return nil
}

// CreateConversation stores a chat thread.
func (tx *Transaction) CreateConversation(c Conversation) (Conversation, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.conversations[c.ID] = cloneConversation(c)
	tx.recordChange(Change{Entity: domain.EntityConversation, Action: ActionCreate, After: cloneConversation(c)})
	return cloneConversation(c), nil
}

// UpdateConversation mutates a chat thread.
func (tx *Transaction) UpdateConversation(id string, mutator func(*Conversation) error) (Conversation, error) {
	current, ok := tx.state.conversations[id]
	if !ok {
		return Conversation{}, fmt.Errorf("conversation %q not found", id)
	}
	before := cloneConversation(current)
	if err := mutator(&current); err != nil {
		return Conversation{}, err
	}
	current.ID = id
	current.UpdatedAt = tx.now
	tx.state.conversations[id] = cloneConversation(current)
	tx.recordChange(Change{Entity: domain.EntityConversation, Action: ActionUpdate, Before: before, After: cloneConversation(current)})
	return cloneConversation(current), nil
}

// Scalars and history ---------------------------------------------------------

// SetCurrentStable selects the active stable.
func (tx *Transaction) SetCurrentStable(id string) {
	tx.state.currentStableID = id
}

// SetCurrentUser selects the acting user.
func (tx *Transaction) SetCurrentUser(id string) {
	tx.state.currentUserID = id
}

// AppendHistory records an activity entry. History is transient.
func (tx *Transaction) AppendHistory(e HistoryEntry) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if e.At.IsZero() {
		e.At = tx.now
	}
	tx.state.history = append(tx.state.history, e)
}

// Transactional lookups -------------------------------------------------------

// FindStable retrieves a stable within the transaction snapshot.
func (tx *Transaction) FindStable(id string) (Stable, bool) {
	st, ok := tx.state.stables[id]
	if !ok {
		return Stable{}, false
	}
	return cloneStable(st), true
}

// FindFarm retrieves a farm within the transaction snapshot.
func (tx *Transaction) FindFarm(id string) (Farm, bool) {
	f, ok := tx.state.farms[id]
	if !ok {
		return Farm{}, false
	}
	return cloneFarm(f), true
}

// FindUser retrieves a user within the transaction snapshot.
func (tx *Transaction) FindUser(id string) (UserProfile, bool) {
	u, ok := tx.state.users[id]
	if !ok {
		return UserProfile{}, false
	}
	return cloneUser(u), true
}

// FindHorse retrieves a horse within the transaction snapshot.
func (tx *Transaction) FindHorse(id string) (Horse, bool) {
	h, ok := tx.state.horses[id]
	if !ok {
		return Horse{}, false
	}
	return cloneHorse(h), true
}

// FindPaddock retrieves a paddock within the transaction snapshot.
func (tx *Transaction) FindPaddock(id string) (Paddock, bool) {
	p, ok := tx.state.paddocks[id]
	if !ok {
		return Paddock{}, false
	}
	return clonePaddock(p), true
}

// FindAssignment retrieves an assignment within the transaction snapshot.
func (tx *Transaction) FindAssignment(id string) (Assignment, bool) {
	a, ok := tx.state.assignments[id]
	if !ok {
		return Assignment{}, false
	}
	return cloneAssignment(a), true
}

// CurrentStableID returns the selected stable within the transaction.
func (tx *Transaction) CurrentStableID() string { return tx.state.currentStableID }

// CurrentUserID returns the acting user within the transaction.
func (tx *Transaction) CurrentUserID() string { return tx.state.currentUserID }
