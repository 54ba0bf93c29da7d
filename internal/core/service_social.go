package core

import (
	"context"

	"github.com/google/uuid"

	"stablecore/pkg/domain"
)

// Day events ------------------------------------------------------------------

// DayEventInput describes a calendar event such as a farrier or vet visit.
type DayEventInput struct {
	ID       string
	StableID string
	Date     string
	Category string
	Title    string
	Note     string
}

// UpsertDayEvent creates or updates a calendar event. The caller needs the
// day-event capability; updating someone else's event additionally requires
// edit access on the stable.
func (s *Service) UpsertDayEvent(ctx context.Context, input DayEventInput) (DayEvent, CommandResult) {
	var out DayEvent
	res := s.mutate(ctx, "upsert_day_event", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageDayEvents {
			return input.ID, st.ID, permissionDenied()
		}
		if !validDate(trimmed(input.Date)) {
			return input.ID, st.ID, failTx("event date is required (YYYY-MM-DD)")
		}
		if trimmed(input.Title) == "" {
			return input.ID, st.ID, failTx("event title is required")
		}

		if input.ID == "" {
			out, err = tx.CreateDayEvent(DayEvent{
				StableID:  st.ID,
				Date:      trimmed(input.Date),
				Category:  trimmed(input.Category),
				Title:     trimmed(input.Title),
				Note:      optional(input.Note),
				CreatedBy: actor.ID,
			})
		} else {
			current, ok := tx.state.dayEvents[input.ID]
			if !ok {
				return "", st.ID, failTxf("event %q not found", input.ID)
			}
			if current.CreatedBy != actor.ID && !caps.ManageAssignments {
				return current.ID, st.ID, permissionDenied()
			}
			out, err = tx.UpdateDayEvent(input.ID, func(e *DayEvent) error {
				e.Date = trimmed(input.Date)
				e.Category = trimmed(input.Category)
				e.Title = trimmed(input.Title)
				e.Note = optional(input.Note)
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

// DeleteDayEvent removes a calendar event. The caller needs the day-event
// capability and must be the creator or hold edit access on the stable.
func (s *Service) DeleteDayEvent(ctx context.Context, eventID string) CommandResult {
	return s.mutate(ctx, "delete_day_event", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		e, ok := tx.state.dayEvents[trimmed(eventID)]
		if !ok {
			return "", "", failTxf("event %q not found", eventID)
		}
		caps := domain.ResolveCapabilities(&actor, e.StableID)
		if !caps.ManageDayEvents {
			return e.ID, e.StableID, permissionDenied()
		}
		if e.CreatedBy != actor.ID && !caps.ManageAssignments {
			return e.ID, e.StableID, permissionDenied()
		}
		if err := tx.DeleteDayEvent(e.ID); err != nil {
			return e.ID, e.StableID, err
		}
		return e.ID, e.StableID, nil
	})
}

// Arena -----------------------------------------------------------------------

// ArenaBookingInput reserves the arena for the caller.
type ArenaBookingInput struct {
	StableID  string
	Date      string
	StartTime string
	EndTime   string
	Purpose   string
}

// BookArena creates an arena booking for the caller.
func (s *Service) BookArena(ctx context.Context, input ArenaBookingInput) (ArenaBooking, CommandResult) {
	var out ArenaBooking
	res := s.mutate(ctx, "book_arena", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageArena {
			return "", st.ID, permissionDenied()
		}
		if !validDate(trimmed(input.Date)) {
			return "", st.ID, failTx("booking date is required (YYYY-MM-DD)")
		}
		start, end := trimmed(input.StartTime), trimmed(input.EndTime)
		if start == "" || end == "" || end <= start {
			return "", st.ID, failTx("booking needs a start time before its end time")
		}
		for _, b := range tx.state.arenaBookings {
			if b.StableID == st.ID && b.Date == trimmed(input.Date) && start < b.EndTime && b.StartTime < end {
				return "", st.ID, failTx("arena is already booked in that window")
			}
		}

		out, err = tx.CreateArenaBooking(ArenaBooking{
			StableID:  st.ID,
			Date:      trimmed(input.Date),
			StartTime: start,
			EndTime:   end,
			UserID:    actor.ID,
			Purpose:   optional(input.Purpose),
		})
		if err != nil {
			return "", st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// CancelArenaBooking removes a booking. Booker or arena management required.
func (s *Service) CancelArenaBooking(ctx context.Context, bookingID string) CommandResult {
	return s.mutate(ctx, "cancel_arena_booking", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		b, ok := tx.state.arenaBookings[trimmed(bookingID)]
		if !ok {
			return "", "", failTxf("booking %q not found", bookingID)
		}
		caps := domain.ResolveCapabilities(&actor, b.StableID)
		if b.UserID != actor.ID && !caps.ManageArena {
			return b.ID, b.StableID, permissionDenied()
		}
		if err := tx.DeleteArenaBooking(b.ID); err != nil {
			return b.ID, b.StableID, err
		}
		return b.ID, b.StableID, nil
	})
}

// ReportArenaStatusInput reports the arena surface condition. A condition
// other than "ok" shows up as an active alert on the dashboard.
type ReportArenaStatusInput struct {
	StableID  string
	Condition string
	Note      string
}

// ReportArenaStatus upserts the arena condition report for a stable.
func (s *Service) ReportArenaStatus(ctx context.Context, input ReportArenaStatusInput) (ArenaStatus, CommandResult) {
	var out ArenaStatus
	res := s.mutate(ctx, "report_arena_status", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageArena {
			return "", st.ID, permissionDenied()
		}
		if trimmed(input.Condition) == "" {
			return "", st.ID, failTx("arena condition is required")
		}

		out, err = tx.PutArenaStatus(ArenaStatus{
			StableID:   st.ID,
			Condition:  trimmed(input.Condition),
			Note:       optional(input.Note),
			ReportedBy: actor.ID,
		})
		if err != nil {
			return "", st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// Ride log --------------------------------------------------------------------

// RideLogInput records one ride of a horse.
type RideLogInput struct {
	HorseID  string
	Date     string
	TypeCode string
	Note     string
}

// AddRideLog appends a ride log entry for the caller. The type code must be
// one of the stable's configured ride types when the stable defines any.
func (s *Service) AddRideLog(ctx context.Context, input RideLogInput) (RideLogEntry, CommandResult) {
	var out RideLogEntry
	res := s.mutate(ctx, "add_ride_log", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		h, ok := tx.FindHorse(trimmed(input.HorseID))
		if !ok {
			return "", "", failTxf("horse %q not found", input.HorseID)
		}
		caps := domain.ResolveCapabilities(&actor, h.StableID)
		if !caps.ManageRideLog {
			return h.ID, h.StableID, permissionDenied()
		}
		if !validDate(trimmed(input.Date)) {
			return h.ID, h.StableID, failTx("ride date is required (YYYY-MM-DD)")
		}
		st, _ := tx.FindStable(h.StableID)
		code := trimmed(input.TypeCode)
		if len(st.RideTypes) > 0 {
			known := false
			for _, rt := range st.RideTypes {
				if rt.Code == code {
					known = true
					break
				}
			}
			if !known {
				return h.ID, h.StableID, failTxf("unknown ride type %q", code)
			}
		}

		out, err = tx.CreateRideLog(RideLogEntry{
			StableID: h.StableID,
			HorseID:  h.ID,
			UserID:   actor.ID,
			Date:     trimmed(input.Date),
			TypeCode: code,
			Note:     optional(input.Note),
		})
		if err != nil {
			return h.ID, h.StableID, err
		}
		return out.ID, h.StableID, nil
	})
	return out, res
}

// DeleteRideLog removes a ride log entry. Author only.
func (s *Service) DeleteRideLog(ctx context.Context, entryID string) CommandResult {
	return s.mutate(ctx, "delete_ride_log", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		r, ok := tx.state.rideLogs[trimmed(entryID)]
		if !ok {
			return "", "", failTxf("ride log entry %q not found", entryID)
		}
		if r.UserID != actor.ID {
			return r.ID, r.StableID, permissionDenied()
		}
		if err := tx.DeleteRideLog(r.ID); err != nil {
			return r.ID, r.StableID, err
		}
		return r.ID, r.StableID, nil
	})
}

// Feed ------------------------------------------------------------------------

// CreatePostInput publishes a feed post. AttachmentKey references an image
// previously stored through the blob boundary.
type CreatePostInput struct {
	StableID      string
	Body          string
	AttachmentKey string
}

// CreatePost publishes a post on the stable feed.
func (s *Service) CreatePost(ctx context.Context, input CreatePostInput) (Post, CommandResult) {
	var out Post
	res := s.mutate(ctx, "create_post", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.CreatePosts {
			return "", st.ID, permissionDenied()
		}
		if trimmed(input.Body) == "" {
			return "", st.ID, failTx("post body is required")
		}

		out, err = tx.CreatePost(Post{
			StableID:      st.ID,
			AuthorID:      actor.ID,
			Body:          trimmed(input.Body),
			AttachmentKey: optional(input.AttachmentKey),
		})
		if err != nil {
			return "", st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// ToggleLike adds or removes the caller's like on a post.
func (s *Service) ToggleLike(ctx context.Context, postID string) (Post, CommandResult) {
	var out Post
	res := s.mutate(ctx, "toggle_like", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		p, ok := tx.state.posts[trimmed(postID)]
		if !ok {
			return "", "", failTxf("post %q not found", postID)
		}
		caps := domain.ResolveCapabilities(&actor, p.StableID)
		if !caps.CommentAndLike {
			return p.ID, p.StableID, permissionDenied()
		}

		out, err = tx.UpdatePost(p.ID, func(p *Post) error {
			for i, id := range p.LikedBy {
				if id == actor.ID {
					p.LikedBy = append(p.LikedBy[:i], p.LikedBy[i+1:]...)
					return nil
				}
			}
			p.LikedBy = append(p.LikedBy, actor.ID)
			return nil
		})
		if err != nil {
			return p.ID, p.StableID, err
		}
		return out.ID, p.StableID, nil
	})
	return out, res
}

// CommentOnPost appends a comment to a post.
func (s *Service) CommentOnPost(ctx context.Context, postID, body string) (Post, CommandResult) {
	var out Post
	res := s.mutate(ctx, "comment_on_post", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		p, ok := tx.state.posts[trimmed(postID)]
		if !ok {
			return "", "", failTxf("post %q not found", postID)
		}
		caps := domain.ResolveCapabilities(&actor, p.StableID)
		if !caps.CommentAndLike {
			return p.ID, p.StableID, permissionDenied()
		}
		if trimmed(body) == "" {
			return p.ID, p.StableID, failTx("comment body is required")
		}

		out, err = tx.UpdatePost(p.ID, func(p *Post) error {
			p.Comments = append(p.Comments, PostComment{
				ID:        uuid.NewString(),
				UserID:    actor.ID,
				Body:      trimmed(body),
				CreatedAt: tx.now,
			})
			return nil
		})
		if err != nil {
			return p.ID, p.StableID, err
		}
		return out.ID, p.StableID, nil
	})
	return out, res
}

// Groups ----------------------------------------------------------------------

// GroupInput creates or updates a member group.
type GroupInput struct {
	ID        string
	StableID  string
	Name      string
	MemberIDs []string
}

// UpsertGroup creates or updates a member group within a stable.
func (s *Service) UpsertGroup(ctx context.Context, input GroupInput) (Group, CommandResult) {
	var out Group
	res := s.mutate(ctx, "upsert_group", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, input.StableID)
		if err != nil {
			return "", "", err
		}
		caps := domain.ResolveCapabilities(&actor, st.ID)
		if !caps.ManageGroups {
			return input.ID, st.ID, permissionDenied()
		}
		if trimmed(input.Name) == "" {
			return input.ID, st.ID, failTx("group name is required")
		}
		for _, id := range input.MemberIDs {
			u, ok := tx.FindUser(id)
			if !ok {
				return input.ID, st.ID, failTxf("user %q not found", id)
			}
			if _, ok := u.MembershipFor(st.ID); !ok {
				return input.ID, st.ID, failTxf("%s is not a member of this stable", u.Name)
			}
		}

		if input.ID == "" {
			out, err = tx.CreateGroup(Group{
				StableID:  st.ID,
				Name:      trimmed(input.Name),
				MemberIDs: append([]string(nil), input.MemberIDs...),
				CreatedBy: actor.ID,
			})
		} else {
			if _, ok := tx.state.groups[input.ID]; !ok {
				return "", st.ID, failTxf("group %q not found", input.ID)
			}
			out, err = tx.UpdateGroup(input.ID, func(g *Group) error {
				g.Name = trimmed(input.Name)
				g.MemberIDs = append([]string(nil), input.MemberIDs...)
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

// DeleteGroup removes a member group.
func (s *Service) DeleteGroup(ctx context.Context, groupID string) CommandResult {
	return s.mutate(ctx, "delete_group", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		g, ok := tx.state.groups[trimmed(groupID)]
		if !ok {
			return "", "", failTxf("group %q not found", groupID)
		}
		caps := domain.ResolveCapabilities(&actor, g.StableID)
		if !caps.ManageGroups {
			return g.ID, g.StableID, permissionDenied()
		}
		if err := tx.DeleteGroup(g.ID); err != nil {
			return g.ID, g.StableID, err
		}
		return g.ID, g.StableID, nil
	})
}

// Chat ------------------------------------------------------------------------

// StartConversation opens a thread between the caller and the given
// participants. All participants must share a stable with the caller.
func (s *Service) StartConversation(ctx context.Context, stableID string, participantIDs []string) (Conversation, CommandResult) {
	var out Conversation
	res := s.mutate(ctx, "start_conversation", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		st, err := targetStable(tx, stableID)
		if err != nil {
			return "", "", err
		}
		if _, ok := actor.MembershipFor(st.ID); !ok {
			return "", st.ID, permissionDenied()
		}
		ids := []string{actor.ID}
		for _, id := range participantIDs {
			if id == actor.ID {
				continue
			}
			u, ok := tx.FindUser(id)
			if !ok {
				return "", st.ID, failTxf("user %q not found", id)
			}
			if _, ok := u.MembershipFor(st.ID); !ok {
				return "", st.ID, failTxf("%s is not a member of this stable", u.Name)
			}
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			return "", st.ID, failTx("a conversation needs at least one other participant")
		}

		sid := st.ID
		out, err = tx.CreateConversation(Conversation{
			StableID:       &sid,
			ParticipantIDs: ids,
		})
		if err != nil {
			return "", st.ID, err
		}
		return out.ID, st.ID, nil
	})
	return out, res
}

// SendMessage appends a message to a conversation the caller participates in.
func (s *Service) SendMessage(ctx context.Context, conversationID, body string) (Conversation, CommandResult) {
	var out Conversation
	res := s.mutate(ctx, "send_message", func(tx *Transaction) (string, string, error) {
		actor, err := requireActor(tx)
		if err != nil {
			return "", "", err
		}
		c, ok := tx.state.conversations[trimmed(conversationID)]
		if !ok {
			return "", "", failTxf("conversation %q not found", conversationID)
		}
		participant := false
		for _, id := range c.ParticipantIDs {
			if id == actor.ID {
				participant = true
				break
			}
		}
		stable := ""
		if c.StableID != nil {
			stable = *c.StableID
		}
		if !participant {
			return c.ID, stable, permissionDenied()
		}
		if trimmed(body) == "" {
			return c.ID, stable, failTx("message body is required")
		}

		out, err = tx.UpdateConversation(c.ID, func(c *Conversation) error {
			c.Messages = append(c.Messages, Message{
				ID:       uuid.NewString(),
				SenderID: actor.ID,
				Body:     trimmed(body),
				SentAt:   tx.now,
			})
			return nil
		})
		if err != nil {
			return c.ID, stable, err
		}
		return out.ID, stable, nil
	})
	return out, res
}
