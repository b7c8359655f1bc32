package inmem

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
)

type SessionRepository struct {
	db  *sessionTable
	now func() time.Time
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db.sessions, now: time.Now}
}

// SetClock replaces the time source used for created/updated timestamps.
func (r *SessionRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *SessionRepository) Create(_ context.Context, s *model.StudioSession) error {
	if err := repository.PrepareNew(s, r.now()); err != nil {
		return err
	}

	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	key := slotKey(s.StudioID, s.Date, s.Time)
	for _, existing := range r.db.t {
		if existing.IsActive() && slotKey(existing.StudioID, existing.Date, existing.Time) == key {
			return repository.ErrSlotTaken
		}
	}

	r.db.t[s.ID] = s.Clone()
	return nil
}

// Insert stores a session as-is, bypassing PrepareNew. Used to seed legacy records.
func (r *SessionRepository) Insert(s *model.StudioSession) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()
	r.db.t[s.ID] = s.Clone()
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*model.StudioSession, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if s, ok := r.db.t[id]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (r *SessionRepository) ListByProfessor(_ context.Context, professorID int64) ([]*model.StudioSession, error) {
	res := r.query(func(s *model.StudioSession) bool { return s.ProfessorID == professorID })
	model.SortByDateDesc(res)
	return res, nil
}

func (r *SessionRepository) ListByStudent(_ context.Context, studentID int64) ([]*model.StudioSession, error) {
	res := r.query(func(s *model.StudioSession) bool {
		_, ok := s.Students[studentID]
		return ok
	})
	model.SortByDateDesc(res)
	return res, nil
}

func (r *SessionRepository) ListByStudio(_ context.Context, studioID string, from, to time.Time) ([]*model.StudioSession, error) {
	fromKey, toKey := from.Format(model.DateLayout), to.Format(model.DateLayout)
	return r.query(func(s *model.StudioSession) bool {
		if studioID != "" && s.StudioID != studioID {
			return false
		}
		key := s.DayKey()
		return key >= fromKey && key < toKey
	}), nil
}

// UpdateStudentStatus answers a pending invitation on an active session.
func (r *SessionRepository) UpdateStudentStatus(_ context.Context, sessionID string, studentID int64, status model.ResponseStatus) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	s, ok := r.db.t[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	current, ok := s.Students[studentID]
	switch {
	case !ok:
		return repository.ErrStudentNotInvited
	case !s.IsActive():
		return repository.ErrSessionNotActive
	case current.Status != model.ResponsePending:
		return repository.ErrAlreadyAnswered
	}

	now := r.now()
	s.Students[studentID] = model.StudentResponse{Status: status, RespondedAt: &now}
	return nil
}

func (r *SessionRepository) Cancel(_ context.Context, sessionID, reason string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	s, ok := r.db.t[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if !s.IsActive() {
		return repository.ErrSessionNotActive
	}
	s.Status = model.SessionStatusCanceled
	s.CancelReason = reason
	s.UpdatedAt = r.now()
	return nil
}

func (r *SessionRepository) CompleteBefore(_ context.Context, day time.Time) ([]*model.StudioSession, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	dayKey := day.Format(model.DateLayout)
	var completed []*model.StudioSession
	for _, s := range r.db.t {
		if s.IsActive() && s.DayKey() < dayKey {
			s.Status = model.SessionStatusCompleted
			s.UpdatedAt = r.now()
			completed = append(completed, s.Clone())
		}
	}
	return completed, nil
}

func (r *SessionRepository) DeleteAll(_ context.Context) (int64, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	n := int64(len(r.db.t))
	r.db.t = make(map[string]*model.StudioSession)
	return n, nil
}

func (r *SessionRepository) BackfillCreatedAt(_ context.Context, force bool) (int64, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	var n int64
	for _, s := range r.db.t {
		if force || s.CreatedAt == nil {
			created := model.TruncateDay(s.Date)
			s.CreatedAt = &created
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) query(keep func(*model.StudioSession) bool) []*model.StudioSession {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*model.StudioSession, 0)
	for _, s := range r.db.t {
		if keep(s) {
			res = append(res, s.Clone())
		}
	}
	return res
}
