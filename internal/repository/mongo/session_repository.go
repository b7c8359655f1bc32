// Package mongo stores studio sessions as documents with a nested students map,
// the shape the platform's realtime document database used.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
	"github.com/Freeeeeet/studio_scheduler/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionName = "studio_sessions"
	opTimeout      = 5 * time.Second
)

type sessionDocument struct {
	ID            string                           `bson:"id"`
	StudioID      string                           `bson:"studioId"`
	StudioName    string                           `bson:"studioName"`
	ProfessorID   int64                            `bson:"professorId"`
	ProfessorName string                           `bson:"professorName"`
	Date          string                           `bson:"date"`
	Time          string                           `bson:"time"`
	Status        model.SessionStatus              `bson:"status"`
	CancelReason  string                           `bson:"cancelReason,omitempty"`
	Students      map[string]model.StudentResponse `bson:"students"`
	CreatedAt     *time.Time                       `bson:"createdAt,omitempty"`
	UpdatedAt     time.Time                        `bson:"updatedAt"`
}

type SessionRepository struct {
	coll *mongo.Collection
	loc  *time.Location
	now  func() time.Time
}

// NewSessionRepository constructs the document-backed session store.
func NewSessionRepository(db *mongo.Database, loc *time.Location) *SessionRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &SessionRepository{
		coll: db.Collection(collectionName),
		loc:  loc,
		now:  time.Now,
	}
}

// EnsureIndexes creates the indexes the store relies on, including the
// partial unique index that keeps one active session per studio slot.
func (r *SessionRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys: bson.D{{Key: "studioId", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": model.SessionStatusActive}).
				SetName("active_slot_uniq"),
		},
		{
			Keys:    bson.D{{Key: "professorId", Value: 1}, {Key: "date", Value: -1}},
			Options: options.Index().SetName("professor_date_idx"),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, s *model.StudioSession) error {
	if err := repository.PrepareNew(s, r.now()); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toDocument(s)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrSlotTaken
		}
		return fmt.Errorf("error creating session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.StudioSession, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var doc sessionDocument
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("error fetching session %s: %w", id, err)
	}
	return r.fromDocument(doc)
}

func (r *SessionRepository) ListByProfessor(ctx context.Context, professorID int64) ([]*model.StudioSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}})
	return r.find(ctx, bson.M{"professorId": professorID}, opts)
}

func (r *SessionRepository) ListByStudent(ctx context.Context, studentID int64) ([]*model.StudioSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "time", Value: -1}})
	return r.find(ctx, bson.M{studentPath(studentID): bson.M{"$exists": true}}, opts)
}

func (r *SessionRepository) ListByStudio(ctx context.Context, studioID string, from, to time.Time) ([]*model.StudioSession, error) {
	filter := bson.M{
		"date": bson.M{
			"$gte": from.Format(model.DateLayout),
			"$lt":  to.Format(model.DateLayout),
		},
	}
	if studioID != "" {
		filter["studioId"] = studioID
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})
	return r.find(ctx, filter, opts)
}

// UpdateStudentStatus answers one pending invitation on an active session by
// setting a single students.<id> path. The whole precondition sits in the
// filter, so the document update is the only check that counts.
func (r *SessionRepository) UpdateStudentStatus(ctx context.Context, sessionID string, studentID int64, status model.ResponseStatus) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	path := studentPath(studentID)
	filter := bson.M{
		"id":             sessionID,
		"status":         model.SessionStatusActive,
		path + ".status": model.ResponsePending,
	}
	update := bson.M{"$set": bson.M{
		path + ".status":      status,
		path + ".respondedAt": r.now(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error updating student status: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.whyUnmatched(ctx, sessionID, &studentID)
}

// Cancel marks an active session canceled.
func (r *SessionRepository) Cancel(ctx context.Context, sessionID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":       model.SessionStatusCanceled,
		"cancelReason": reason,
		"updatedAt":    r.now(),
	}}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": sessionID, "status": model.SessionStatusActive}, update)
	if err != nil {
		return fmt.Errorf("error canceling session %s: %w", sessionID, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return r.whyUnmatched(ctx, sessionID, nil)
}

// whyUnmatched reports which precondition of a conditional update failed.
func (r *SessionRepository) whyUnmatched(ctx context.Context, sessionID string, studentID *int64) error {
	var doc sessionDocument
	err := r.coll.FindOne(ctx, bson.M{"id": sessionID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error loading session %s: %w", sessionID, err)
	}
	if studentID != nil {
		if _, ok := doc.Students[strconv.FormatInt(*studentID, 10)]; !ok {
			return repository.ErrStudentNotInvited
		}
	}
	if doc.Status != model.SessionStatusActive {
		return repository.ErrSessionNotActive
	}
	return repository.ErrAlreadyAnswered
}

func (r *SessionRepository) CompleteBefore(ctx context.Context, day time.Time) ([]*model.StudioSession, error) {
	filter := bson.M{
		"status": model.SessionStatusActive,
		"date":   bson.M{"$lt": day.Format(model.DateLayout)},
	}
	sessions, err := r.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := r.now()
	_, err = r.coll.UpdateMany(ctx,
		bson.M{"id": bson.M{"$in": ids}, "status": model.SessionStatusActive},
		bson.M{"$set": bson.M{"status": model.SessionStatusCompleted, "updatedAt": now}},
	)
	if err != nil {
		return nil, fmt.Errorf("error completing sessions: %w", err)
	}

	for _, s := range sessions {
		s.Status = model.SessionStatusCompleted
		s.UpdatedAt = now
	}
	return sessions, nil
}

func (r *SessionRepository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("error deleting sessions: %w", err)
	}
	return res.DeletedCount, nil
}

// BackfillCreatedAt derives createdAt from the session date, one document at a time.
func (r *SessionRepository) BackfillCreatedAt(ctx context.Context, force bool) (int64, error) {
	filter := bson.M{}
	if !force {
		filter = bson.M{"$or": bson.A{
			bson.M{"createdAt": bson.M{"$exists": false}},
			bson.M{"createdAt": nil},
		}}
	}

	sessions, err := r.find(ctx, filter)
	if err != nil {
		return 0, err
	}

	var updated int64
	for _, s := range sessions {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		_, err := r.coll.UpdateOne(opCtx, bson.M{"id": s.ID}, bson.M{"$set": bson.M{"createdAt": s.Date}})
		cancel()
		if err != nil {
			return updated, fmt.Errorf("error backfilling session %s: %w", s.ID, err)
		}
		updated++
	}
	return updated, nil
}

func (r *SessionRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*model.StudioSession, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []sessionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("error decoding sessions: %w", err)
	}

	sessions := make([]*model.StudioSession, 0, len(docs))
	for _, doc := range docs {
		s, err := r.fromDocument(doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func studentPath(studentID int64) string {
	return "students." + strconv.FormatInt(studentID, 10)
}

func toDocument(s *model.StudioSession) sessionDocument {
	students := make(map[string]model.StudentResponse, len(s.Students))
	for id, resp := range s.Students {
		students[strconv.FormatInt(id, 10)] = resp
	}
	return sessionDocument{
		ID:            s.ID,
		StudioID:      s.StudioID,
		StudioName:    s.StudioName,
		ProfessorID:   s.ProfessorID,
		ProfessorName: s.ProfessorName,
		Date:          s.DayKey(),
		Time:          s.Time,
		Status:        s.Status,
		CancelReason:  s.CancelReason,
		Students:      students,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func (r *SessionRepository) fromDocument(doc sessionDocument) (*model.StudioSession, error) {
	date, err := model.ParseDay(doc.Date, r.loc)
	if err != nil {
		return nil, err
	}

	students := make(map[int64]model.StudentResponse, len(doc.Students))
	for key, resp := range doc.Students {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("session %s: bad student key %q: %w", doc.ID, key, err)
		}
		students[id] = resp
	}

	status := doc.Status
	if status == "" {
		status = model.SessionStatusActive
	}

	return &model.StudioSession{
		ID:            doc.ID,
		StudioID:      doc.StudioID,
		StudioName:    doc.StudioName,
		ProfessorID:   doc.ProfessorID,
		ProfessorName: doc.ProfessorName,
		Date:          date,
		Time:          doc.Time,
		Status:        status,
		CancelReason:  doc.CancelReason,
		Students:      students,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}, nil
}
