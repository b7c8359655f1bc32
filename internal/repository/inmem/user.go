package inmem

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

type UserRepository struct {
	db *userTable
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.users}
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if user.TelegramID != 0 {
		for _, u := range r.db.t {
			if u.TelegramID == user.TelegramID {
				return fmt.Errorf("create user: telegram id %d already linked", user.TelegramID)
			}
		}
	}

	r.db.nextID++
	user.ID = r.db.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	u := *user
	r.db.t[u.ID] = &u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if u, ok := r.db.t[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (r *UserRepository) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, u := range r.db.t {
		if u.TelegramID == telegramID {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) Update(_ context.Context, user *model.User) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[user.ID]; !ok {
		return fmt.Errorf("user not found")
	}
	u := *user
	r.db.t[u.ID] = &u
	return nil
}

func (r *UserRepository) ListStudents(_ context.Context, search string) ([]*model.User, error) {
	return r.query(func(u *model.User) bool { return u.IsStudent() && u.Matches(search) }), nil
}

func (r *UserRepository) GetByIDs(_ context.Context, ids []int64) ([]*model.User, error) {
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return r.query(func(u *model.User) bool { return want[u.ID] }), nil
}

func (r *UserRepository) query(keep func(*model.User) bool) []*model.User {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]*model.User, 0)
	for _, u := range r.db.t {
		if keep(u) {
			c := *u
			res = append(res, &c)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].FirstName != res[j].FirstName {
			return res[i].FirstName < res[j].FirstName
		}
		if res[i].LastName != res[j].LastName {
			return res[i].LastName < res[j].LastName
		}
		return res[i].ID < res[j].ID
	})
	return res
}
