package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const activeSlotConstraint = "studio_sessions_active_slot_uniq"

const sessionColumns = `id, studio_id, studio_name, professor_id, professor_name,
	to_char(date, 'YYYY-MM-DD'), time, status, cancel_reason, created_at, updated_at`

// SessionRepository stores studio sessions in PostgreSQL. Every invited student
// is its own row in session_students, so a response touches exactly one row.
type SessionRepository struct {
	*base.Repository
	loc *time.Location
	now func() time.Time
}

func NewSessionRepository(pool *pgxpool.Pool, loc *time.Location) *SessionRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionRepository{
		Repository: base.NewRepository(pool),
		loc:        loc,
		now:        time.Now,
	}
}

// Create inserts the session and its invitations in one transaction.
func (r *SessionRepository) Create(ctx context.Context, s *model.StudioSession) error {
	if err := PrepareNew(s, r.now()); err != nil {
		return err
	}

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO studio_sessions
				(id, studio_id, studio_name, professor_id, professor_name, date, time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::date, $7, $8, $9, $10)
		`,
			s.ID, s.StudioID, s.StudioName, s.ProfessorID, s.ProfessorName,
			s.DayKey(), s.Time, s.Status, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			if base.IsUniqueViolation(err, activeSlotConstraint) {
				return ErrSlotTaken
			}
			return fmt.Errorf("insert session: %w", err)
		}

		batch := &pgx.Batch{}
		for _, studentID := range s.StudentIDs() {
			batch.Queue(`
				INSERT INTO session_students (session_id, student_id, status)
				VALUES ($1, $2, $3)
			`, s.ID, studentID, model.ResponsePending)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert session students: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetByID returns nil, nil when the session does not exist.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.StudioSession, error) {
	sessions, err := r.list(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get session by id: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// ListByProfessor returns every session the professor created, newest first.
func (r *SessionRepository) ListByProfessor(ctx context.Context, professorID int64) ([]*model.StudioSession, error) {
	sessions, err := r.list(ctx, `WHERE professor_id = $1 ORDER BY date DESC, time DESC`, professorID)
	if err != nil {
		return nil, fmt.Errorf("list sessions by professor: %w", err)
	}
	return sessions, nil
}

// ListByStudent returns every session the student was invited to, whatever their answer.
func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.StudioSession, error) {
	sessions, err := r.list(ctx, `
		WHERE id IN (SELECT session_id FROM session_students WHERE student_id = $1)
		ORDER BY date DESC, time DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list sessions by student: %w", err)
	}
	return sessions, nil
}

// ListByStudio returns sessions dated in [from, to). An empty studioID means all studios.
func (r *SessionRepository) ListByStudio(ctx context.Context, studioID string, from, to time.Time) ([]*model.StudioSession, error) {
	sessions, err := r.list(ctx, `
		WHERE ($1 = '' OR studio_id = $1)
		  AND date >= $2::date AND date < $3::date
		ORDER BY date, time
	`, studioID, from.Format(model.DateLayout), to.Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list sessions by studio: %w", err)
	}
	return sessions, nil
}

// UpdateStudentStatus records the answer of a pending student on an active
// session. The session row is share-locked so a concurrent Cancel either
// commits first or waits for the answer.
func (r *SessionRepository) UpdateStudentStatus(ctx context.Context, sessionID string, studentID int64, status model.ResponseStatus) error {
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		var sessionStatus string
		err := tx.QueryRow(ctx, `SELECT status FROM studio_sessions WHERE id = $1 FOR SHARE`, sessionID).Scan(&sessionStatus)
		if err != nil {
			if base.IsNotFound(err) {
				return ErrNotFound
			}
			return fmt.Errorf("lock session: %w", err)
		}
		if model.SessionStatus(sessionStatus) != model.SessionStatusActive {
			return ErrSessionNotActive
		}

		tag, err := tx.Exec(ctx, `
			UPDATE session_students
			SET status = $3, responded_at = $4
			WHERE session_id = $1 AND student_id = $2 AND status = 'pending'
		`, sessionID, studentID, status, r.now())
		if err != nil {
			return fmt.Errorf("update student status: %w", err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}

		var invited bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM session_students WHERE session_id = $1 AND student_id = $2)
		`, sessionID, studentID).Scan(&invited)
		if err != nil {
			return fmt.Errorf("check invitation: %w", err)
		}
		if !invited {
			return ErrStudentNotInvited
		}
		return ErrAlreadyAnswered
	})
}

// Cancel marks an active session canceled and keeps it for history.
func (r *SessionRepository) Cancel(ctx context.Context, sessionID, reason string) error {
	affected, err := r.ExecAffected(ctx, `
		UPDATE studio_sessions
		SET status = 'canceled', cancel_reason = $2, updated_at = $3
		WHERE id = $1 AND status = 'active'
	`, sessionID, reason, r.now())
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	if affected > 0 {
		return nil
	}

	exists, err := r.exists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrSessionNotActive
}

// CompleteBefore marks active sessions dated before day as completed and returns them.
func (r *SessionRepository) CompleteBefore(ctx context.Context, day time.Time) ([]*model.StudioSession, error) {
	rows, err := r.Query(ctx, `
		UPDATE studio_sessions
		SET status = 'completed', updated_at = $2
		WHERE status = 'active' AND date < $1::date
		RETURNING id
	`, day.Format(model.DateLayout), r.now())
	if err != nil {
		return nil, fmt.Errorf("complete sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("complete sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	sessions, err := r.list(ctx, `WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load completed sessions: %w", err)
	}
	return sessions, nil
}

// DeleteAll removes every session. Invitations go with them through the cascade.
func (r *SessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	affected, err := r.ExecAffected(ctx, `DELETE FROM studio_sessions`)
	if err != nil {
		return 0, fmt.Errorf("delete all sessions: %w", err)
	}
	return affected, nil
}

// BackfillCreatedAt sets created_at from the session date where it is missing,
// or on every row when force is set.
func (r *SessionRepository) BackfillCreatedAt(ctx context.Context, force bool) (int64, error) {
	affected, err := r.ExecAffected(ctx, `
		UPDATE studio_sessions
		SET created_at = date::timestamp AT TIME ZONE $2
		WHERE $1 OR created_at IS NULL
	`, force, r.loc.String())
	if err != nil {
		return 0, fmt.Errorf("backfill created_at: %w", err)
	}
	return affected, nil
}

func (r *SessionRepository) exists(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM studio_sessions WHERE id = $1)`, sessionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check session exists: %w", err)
	}
	return exists, nil
}

// list loads sessions matching the clause and attaches their students.
func (r *SessionRepository) list(ctx context.Context, clause string, args ...interface{}) ([]*model.StudioSession, error) {
	rows, err := r.Query(ctx, `SELECT `+sessionColumns+` FROM studio_sessions `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.StudioSession
	byID := make(map[string]*model.StudioSession)
	for rows.Next() {
		var (
			s       model.StudioSession
			dateKey string
		)
		err := rows.Scan(
			&s.ID,
			&s.StudioID,
			&s.StudioName,
			&s.ProfessorID,
			&s.ProfessorName,
			&dateKey,
			&s.Time,
			&s.Status,
			&s.CancelReason,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.Date, err = model.ParseDay(dateKey, r.loc); err != nil {
			return nil, err
		}
		s.Students = make(map[int64]model.StudentResponse)
		sessions = append(sessions, &s)
		byID[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	if len(sessions) == 0 {
		return sessions, nil
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	studentRows, err := r.Query(ctx, `
		SELECT session_id, student_id, status, responded_at
		FROM session_students
		WHERE session_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query session students: %w", err)
	}
	defer studentRows.Close()

	for studentRows.Next() {
		var (
			sessionID string
			studentID int64
			resp      model.StudentResponse
		)
		if err := studentRows.Scan(&sessionID, &studentID, &resp.Status, &resp.RespondedAt); err != nil {
			return nil, fmt.Errorf("scan session student: %w", err)
		}
		if s, ok := byID[sessionID]; ok {
			s.Students[studentID] = resp
		}
	}
	if err := studentRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session students: %w", err)
	}

	return sessions, nil
}
