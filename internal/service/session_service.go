package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Freeeeeet/studio_scheduler/internal/events"
	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
	"go.uber.org/zap"
)

const MaxCancelReasonLen = 500

type SessionService struct {
	sessions  SessionStore
	users     UserStore
	catalog   *StudioCatalog
	checker   *AvailabilityChecker
	publisher Publisher
	pending   PendingCache
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

func NewSessionService(
	sessions SessionStore,
	users UserStore,
	catalog *StudioCatalog,
	publisher Publisher,
	loc *time.Location,
	logger *zap.Logger,
) *SessionService {
	if loc == nil {
		loc = time.UTC
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &SessionService{
		sessions:  sessions,
		users:     users,
		catalog:   catalog,
		checker:   NewAvailabilityChecker(sessions, loc),
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

// SetPendingCache enables caching of PendingInviteCount.
func (s *SessionService) SetPendingCache(c PendingCache) {
	s.pending = c
}

func (s *SessionService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SessionService) Checker() *AvailabilityChecker {
	return s.checker
}

func (s *SessionService) Catalog() *StudioCatalog {
	return s.catalog
}

func (s *SessionService) Location() *time.Location {
	return s.loc
}

type CreateSessionInput struct {
	StudioID   string
	Date       string // YYYY-MM-DD
	Time       string
	StudentIDs []int64
}

// CreateSession books a studio slot for the actor and invites the students.
func (s *SessionService) CreateSession(ctx context.Context, actor *model.User, in CreateSessionInput) (*model.StudioSession, error) {
	if actor == nil || !actor.CanBook() {
		return nil, ErrForbidden
	}

	studio, ok := s.catalog.Get(in.StudioID)
	if !ok {
		return nil, invalid("studio_id", "unknown studio %q", in.StudioID)
	}
	if !model.IsSlotTime(in.Time) {
		return nil, invalid("time", "%q is not a bookable slot", in.Time)
	}
	day, err := model.ParseDay(in.Date, s.loc)
	if err != nil {
		return nil, invalid("date", "expected YYYY-MM-DD")
	}
	now := s.now()
	if s.checker.IsPast(day, now) {
		return nil, invalid("date", "%s is in the past", in.Date)
	}
	if len(in.StudentIDs) == 0 {
		return nil, invalid("student_ids", "select at least one student")
	}

	seen := make(map[int64]bool, len(in.StudentIDs))
	for _, id := range in.StudentIDs {
		if seen[id] {
			return nil, invalid("student_ids", "student %d listed twice", id)
		}
		seen[id] = true
	}

	students, err := s.users.GetByIDs(ctx, in.StudentIDs)
	if err != nil {
		return nil, fmt.Errorf("get students: %w", err)
	}
	found := make(map[int64]bool, len(students))
	for _, u := range students {
		if u.IsStudent() {
			found[u.ID] = true
		}
	}
	for _, id := range in.StudentIDs {
		if !found[id] {
			return nil, invalid("student_ids", "user %d is not a student", id)
		}
	}

	available, err := s.checker.SlotAvailable(ctx, studio.ID, day, in.Time, now)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !available {
		return nil, ErrSlotBooked
	}

	session := &model.StudioSession{
		StudioID:      studio.ID,
		StudioName:    studio.Name,
		ProfessorID:   actor.ID,
		ProfessorName: actor.DisplayName(),
		Date:          day,
		Time:          in.Time,
		Students:      make(map[int64]model.StudentResponse, len(in.StudentIDs)),
	}
	for _, id := range in.StudentIDs {
		session.Students[id] = model.StudentResponse{Status: model.ResponsePending}
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken):
			return nil, ErrSlotBooked
		case errors.Is(err, repository.ErrInvalidSession):
			return nil, invalid("session", "%v", err)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("Studio session created",
		zap.String("session_id", session.ID),
		zap.String("studio", session.StudioID),
		zap.String("date", session.DayKey()),
		zap.String("time", session.Time),
		zap.Int64("professor_id", session.ProfessorID),
		zap.Int("students", len(session.Students)),
	)

	s.invalidatePending(ctx, session.StudentIDs()...)
	s.publisher.Publish(events.Event{
		Kind:        events.KindSessionCreated,
		SessionID:   session.ID,
		ProfessorID: session.ProfessorID,
		StudentIDs:  session.StudentIDs(),
	})

	return session, nil
}

// Respond records the actor's own answer to an invitation. Repeating the
// current answer is a no-op.
func (s *SessionService) Respond(ctx context.Context, actor *model.User, sessionID string, status model.ResponseStatus) (*model.StudioSession, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	if !status.IsAnswer() {
		return nil, invalid("status", "must be confirmed or declined")
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	current, invited := session.StudentStatus(actor.ID)
	if !invited {
		return nil, ErrNotInvited
	}
	switch session.Status {
	case model.SessionStatusCanceled:
		return nil, ErrSessionCanceled
	case model.SessionStatusCompleted:
		return nil, ErrSessionCompleted
	}
	if current == status {
		return session, nil
	}
	if current != model.ResponsePending {
		return nil, ErrAlreadyResponded
	}

	if err := s.sessions.UpdateStudentStatus(ctx, sessionID, actor.ID, status); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrStudentNotInvited):
			return nil, ErrNotInvited
		case errors.Is(err, repository.ErrSessionNotActive):
			return nil, s.inactiveError(ctx, sessionID)
		case errors.Is(err, repository.ErrAlreadyAnswered):
			// a concurrent request answered first; the same answer is still a no-op
			latest, err := s.sessions.GetByID(ctx, sessionID)
			if err != nil {
				return nil, fmt.Errorf("get session: %w", err)
			}
			if latest != nil {
				if current, _ := latest.StudentStatus(actor.ID); current == status {
					return latest, nil
				}
			}
			return nil, ErrAlreadyResponded
		}
		return nil, fmt.Errorf("update student status: %w", err)
	}

	respondedAt := s.now()
	session.Students[actor.ID] = model.StudentResponse{Status: status, RespondedAt: &respondedAt}

	s.logger.Info("Student responded",
		zap.String("session_id", sessionID),
		zap.Int64("student_id", actor.ID),
		zap.String("status", string(status)),
	)

	s.invalidatePending(ctx, actor.ID)
	s.publisher.Publish(events.Event{
		Kind:        events.KindStudentResponded,
		SessionID:   session.ID,
		ProfessorID: session.ProfessorID,
		StudentID:   actor.ID,
		Status:      string(status),
	})

	return session, nil
}

// CancelSession cancels an active session. Only its professor or an admin may do it.
func (s *SessionService) CancelSession(ctx context.Context, actor *model.User, sessionID, reason string) (*model.StudioSession, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > MaxCancelReasonLen {
		return nil, invalid("reason", "at most %d characters", MaxCancelReasonLen)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.ProfessorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	switch session.Status {
	case model.SessionStatusCanceled:
		return nil, ErrSessionCanceled
	case model.SessionStatusCompleted:
		return nil, ErrSessionCompleted
	}

	if err := s.sessions.Cancel(ctx, sessionID, reason); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrSessionNotFound
		case errors.Is(err, repository.ErrSessionNotActive):
			return nil, s.inactiveError(ctx, sessionID)
		}
		return nil, fmt.Errorf("cancel session: %w", err)
	}

	session.Status = model.SessionStatusCanceled
	session.CancelReason = reason
	session.UpdatedAt = s.now()

	s.logger.Info("Studio session canceled",
		zap.String("session_id", sessionID),
		zap.Int64("actor_id", actor.ID),
		zap.String("reason", reason),
	)

	s.invalidatePending(ctx, session.StudentIDs()...)
	s.publisher.Publish(events.Event{
		Kind:        events.KindSessionCanceled,
		SessionID:   session.ID,
		ProfessorID: session.ProfessorID,
		StudentIDs:  session.StudentIDs(),
		Reason:      reason,
	})

	return session, nil
}

// GetSession returns a session visible to its professor, invited students and
// admins. Anyone else gets ErrForbidden, whether or not the session exists.
func (s *SessionService) GetSession(ctx context.Context, actor *model.User, sessionID string) (*model.StudioSession, error) {
	if actor == nil {
		return nil, ErrForbidden
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		// only admins learn whether an id exists
		if actor.IsAdmin() {
			return nil, ErrSessionNotFound
		}
		return nil, ErrForbidden
	}
	if _, invited := session.Students[actor.ID]; !invited && session.ProfessorID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	return session, nil
}

type StudentEntry struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	Instrument string               `json:"instrument,omitempty"`
	Status     model.ResponseStatus `json:"status"`
}

type ProfessorSessionView struct {
	Session  *model.StudioSession `json:"session"`
	Counts   model.ResponseCounts `json:"counts"`
	Students []StudentEntry       `json:"students"`
}

// ProfessorSessions lists every session of the professor, newest first, with answer counts.
func (s *SessionService) ProfessorSessions(ctx context.Context, professorID int64) ([]ProfessorSessionView, error) {
	sessions, err := s.sessions.ListByProfessor(ctx, professorID)
	if err != nil {
		return nil, fmt.Errorf("list professor sessions: %w", err)
	}
	model.SortByDateDesc(sessions)
	return s.buildViews(ctx, sessions)
}

// SessionView is the detail card of one session, visible to whoever may GetSession it.
func (s *SessionService) SessionView(ctx context.Context, actor *model.User, sessionID string) (ProfessorSessionView, error) {
	session, err := s.GetSession(ctx, actor, sessionID)
	if err != nil {
		return ProfessorSessionView{}, err
	}
	views, err := s.buildViews(ctx, []*model.StudioSession{session})
	if err != nil {
		return ProfessorSessionView{}, err
	}
	return views[0], nil
}

// buildViews resolves student names with one roster lookup for all sessions.
func (s *SessionService) buildViews(ctx context.Context, sessions []*model.StudioSession) ([]ProfessorSessionView, error) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, session := range sessions {
		for id := range session.Students {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	names := make(map[int64]*model.User, len(ids))
	if len(ids) > 0 {
		users, err := s.users.GetByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("get students: %w", err)
		}
		for _, u := range users {
			names[u.ID] = u
		}
	}

	views := make([]ProfessorSessionView, 0, len(sessions))
	for _, session := range sessions {
		view := ProfessorSessionView{
			Session:  session,
			Counts:   session.Counts(),
			Students: make([]StudentEntry, 0, len(session.Students)),
		}
		for _, id := range session.StudentIDs() {
			entry := StudentEntry{ID: id, Name: fmt.Sprintf("#%d", id), Status: session.Students[id].Status}
			if u, ok := names[id]; ok {
				entry.Name = u.DisplayName()
				entry.Instrument = u.Instrument
			}
			view.Students = append(view.Students, entry)
		}
		views = append(views, view)
	}
	return views, nil
}

// StudentSessions lists a student's sessions, own pending invitations first.
func (s *SessionService) StudentSessions(ctx context.Context, studentID int64) ([]*model.StudioSession, error) {
	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student sessions: %w", err)
	}
	model.SortForStudent(sessions, studentID)
	return sessions, nil
}

type Notification struct {
	Session    *model.StudioSession `json:"session"`
	MyStatus   model.ResponseStatus `json:"my_status"`
	CanRespond bool                 `json:"can_respond"`
	Canceled   bool                 `json:"canceled"`
}

// Notifications returns the invitation cards of a student: every active
// session, plus canceled ones that have not happened yet so the cancellation
// is shown instead of answer buttons. Completed sessions are history only.
func (s *SessionService) Notifications(ctx context.Context, studentID int64) ([]Notification, error) {
	sessions, err := s.StudentSessions(ctx, studentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]Notification, 0, len(sessions))
	for _, session := range sessions {
		switch session.Status {
		case model.SessionStatusCompleted:
			continue
		case model.SessionStatusCanceled:
			if s.checker.IsPast(session.Date, now) {
				continue
			}
		}
		status, _ := session.StudentStatus(studentID)
		out = append(out, Notification{
			Session:    session,
			MyStatus:   status,
			CanRespond: session.IsActive() && status == model.ResponsePending,
			Canceled:   session.Status == model.SessionStatusCanceled,
		})
	}
	return out, nil
}

// PendingInviteCount counts active sessions awaiting the student's answer.
func (s *SessionService) PendingInviteCount(ctx context.Context, studentID int64) (int, error) {
	cacheable := false
	var gen string
	if s.pending != nil {
		n, ok, err := s.pending.Get(ctx, studentID)
		if err != nil {
			s.logger.Warn("Pending count cache read failed", zap.Error(err), zap.Int64("student_id", studentID))
		} else if ok {
			return n, nil
		}
		if gen, err = s.pending.Generation(ctx, studentID); err != nil {
			s.logger.Warn("Pending count generation read failed", zap.Error(err), zap.Int64("student_id", studentID))
		} else {
			cacheable = true
		}
	}

	sessions, err := s.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("list student sessions: %w", err)
	}
	n := 0
	for _, session := range sessions {
		if st, _ := session.StudentStatus(studentID); session.IsActive() && st == model.ResponsePending {
			n++
		}
	}

	if cacheable {
		if err := s.pending.Set(ctx, studentID, n, gen); err != nil {
			s.logger.Warn("Pending count cache write failed", zap.Error(err), zap.Int64("student_id", studentID))
		}
	}
	return n, nil
}

// CompleteElapsed marks active sessions of past days as completed.
func (s *SessionService) CompleteElapsed(ctx context.Context) (int, error) {
	today := model.TruncateDay(s.now().In(s.loc))
	completed, err := s.sessions.CompleteBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("complete sessions: %w", err)
	}
	for _, session := range completed {
		s.invalidatePending(ctx, session.StudentIDs()...)
		s.publisher.Publish(events.Event{
			Kind:        events.KindSessionCompleted,
			SessionID:   session.ID,
			ProfessorID: session.ProfessorID,
			StudentIDs:  session.StudentIDs(),
		})
	}
	if len(completed) > 0 {
		s.logger.Info("Sessions completed", zap.Int("count", len(completed)))
	}
	return len(completed), nil
}

type MaintenanceSummary struct {
	Affected int64         `json:"affected"`
	Duration time.Duration `json:"duration_ns"`
}

// ClearAllSessions deletes every session. Test environments only.
func (s *SessionService) ClearAllSessions(ctx context.Context) (MaintenanceSummary, error) {
	start := time.Now()
	n, err := s.sessions.DeleteAll(ctx)
	if err != nil {
		return MaintenanceSummary{}, fmt.Errorf("delete sessions: %w", err)
	}
	summary := MaintenanceSummary{Affected: n, Duration: time.Since(start)}

	s.logger.Warn("All studio sessions deleted", zap.Int64("count", n))
	if s.pending != nil {
		if err := s.pending.InvalidateAll(ctx); err != nil {
			s.logger.Warn("Failed to invalidate pending counts", zap.Error(err))
		}
	}
	s.publisher.Publish(events.Event{Kind: events.KindSessionsCleared})
	return summary, nil
}

func (s *SessionService) BackfillCreatedAt(ctx context.Context, force bool) (MaintenanceSummary, error) {
	start := time.Now()
	n, err := s.sessions.BackfillCreatedAt(ctx, force)
	if err != nil {
		return MaintenanceSummary{Affected: n, Duration: time.Since(start)}, fmt.Errorf("backfill created_at: %w", err)
	}

	s.logger.Info("Backfilled session created_at", zap.Int64("count", n), zap.Bool("force", force))
	return MaintenanceSummary{Affected: n, Duration: time.Since(start)}, nil
}

// inactiveError explains why a conditional write found the session no longer active.
func (s *SessionService) inactiveError(ctx context.Context, sessionID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	if session.Status == model.SessionStatusCompleted {
		return ErrSessionCompleted
	}
	return ErrSessionCanceled
}

// invalidatePending drops cached counts before the change is announced, so a
// client refreshing on the event never reads the old value.
func (s *SessionService) invalidatePending(ctx context.Context, studentIDs ...int64) {
	if s.pending == nil || len(studentIDs) == 0 {
		return
	}
	if err := s.pending.Invalidate(ctx, studentIDs...); err != nil {
		s.logger.Warn("Failed to invalidate pending counts",
			zap.Error(err),
			zap.Int64s("student_ids", studentIDs),
		)
	}
}
