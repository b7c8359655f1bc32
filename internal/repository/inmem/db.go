// Package inmem keeps sessions and users in process memory. It backs the
// "memory" store mode and the service tests.
package inmem

import (
	"sync"
	"time"

	"github.com/Freeeeeet/studio_scheduler/internal/model"
)

type (
	DB struct {
		sessions *sessionTable
		users    *userTable
	}

	sessionTable struct {
		t     map[string]*model.StudioSession
		mutex sync.RWMutex
	}

	userTable struct {
		t      map[int64]*model.User
		nextID int64
		mutex  sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		sessions: &sessionTable{t: make(map[string]*model.StudioSession)},
		users:    &userTable{t: make(map[int64]*model.User)},
	}
}

func slotKey(studioID string, date time.Time, slot string) string {
	return studioID + "|" + date.Format(model.DateLayout) + "|" + slot
}
